package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims carries the caller identity. The subject is the opaque user
// identifier assigned by the identity provider.
type AccessClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the opaque user identifier carried by the token.
func (c *AccessClaims) UserID() string {
	return c.Subject
}

// JWTManager validates HS256 access tokens issued by the identity provider.
type JWTManager struct {
	accessSecret []byte
	issuer       string
}

func NewJWTManager(accessSecret, issuer string) *JWTManager {
	return &JWTManager{
		accessSecret: []byte(accessSecret),
		issuer:       issuer,
	}
}

// GenerateAccessToken signs a token for userID. The service never issues
// tokens to end users; this exists for local tooling and tests.
func (m *JWTManager) GenerateAccessToken(userID, email string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.accessSecret)
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

func (m *JWTManager) ValidateAccessToken(tokenStr string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &AccessClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.accessSecret, nil
	}, jwt.WithIssuer(m.issuer))
	if err != nil {
		return nil, fmt.Errorf("parsing access token: %w", err)
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid access token claims")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("access token has no subject")
	}

	return claims, nil
}
