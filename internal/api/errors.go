package api

import (
	"errors"
	"net/http"
)

type AppError struct {
	Code    int    `json:"-"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"error"`
}

func (e *AppError) Error() string {
	return e.Message
}

var (
	ErrUnauthorized         = &AppError{Code: http.StatusUnauthorized, Kind: "unauthorized", Message: "unauthorized"}
	ErrNotFound             = &AppError{Code: http.StatusNotFound, Kind: "not_found", Message: "not found"}
	ErrInternalServer       = &AppError{Code: http.StatusInternalServerError, Message: "internal server error"}
	ErrInvalidToken         = &AppError{Code: http.StatusUnauthorized, Kind: "unauthorized", Message: "invalid or expired token"}
	ErrUpstreamModel        = &AppError{Code: http.StatusBadGateway, Kind: "upstream_error", Message: "upstream model error"}
	ErrPersistence          = &AppError{Code: http.StatusInternalServerError, Kind: "persistence_error", Message: "conversation could not be saved"}
	ErrConversationConflict = &AppError{Code: http.StatusConflict, Kind: "persistence_error", Message: "conversation was modified concurrently"}
)

func NewBadRequestError(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: msg}
}

func NewNotFoundError(msg string) *AppError {
	return &AppError{Code: http.StatusNotFound, Kind: "not_found", Message: msg}
}

func NewValidationError(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Kind: "validation_error", Message: msg}
}

func HandleError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		JSONErrorKind(w, appErr.Code, appErr.Kind, appErr.Message)
		return
	}
	JSONErrorMessage(w, http.StatusInternalServerError, "internal server error")
}
