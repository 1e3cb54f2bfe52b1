package audit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codecache-ai/codecache/internal/auth"
)

type stubLister struct {
	logs      []Log
	err       error
	lastLimit int
}

func (s *stubLister) ListByUser(_ context.Context, _ string, limit int) ([]Log, error) {
	s.lastLimit = limit
	return s.logs, s.err
}

func authedRequest(target string) *http.Request {
	req := httptest.NewRequest("GET", target, nil)
	claims := &auth.AccessClaims{}
	claims.Subject = "user_a"
	return req.WithContext(auth.WithUserClaims(req.Context(), claims))
}

func TestHandlerList(t *testing.T) {
	t.Run("default limit", func(t *testing.T) {
		lister := &stubLister{}
		rec := httptest.NewRecorder()
		NewHandler(lister).List(rec, authedRequest("/api/v1/audit-logs"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, defaultListLimit, lister.lastLimit)
		assert.JSONEq(t, `{"data":[]}`, rec.Body.String())
	})

	t.Run("limit is capped", func(t *testing.T) {
		lister := &stubLister{}
		rec := httptest.NewRecorder()
		NewHandler(lister).List(rec, authedRequest("/api/v1/audit-logs?limit=1000"))

		assert.Equal(t, maxListLimit, lister.lastLimit)
	})

	t.Run("store error", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewHandler(&stubLister{err: errors.New("down")}).List(rec, authedRequest("/api/v1/audit-logs"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("anonymous", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewHandler(&stubLister{}).List(rec, httptest.NewRequest("GET", "/api/v1/audit-logs", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
