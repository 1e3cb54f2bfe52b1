package audit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/codecache-ai/codecache/internal/api"
	"github.com/codecache-ai/codecache/internal/auth"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Lister reads a user's audit trail.
type Lister interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]Log, error)
}

type Handler struct {
	logs Lister
}

func NewHandler(logs Lister) *Handler {
	return &Handler{logs: logs}
}

// List returns the caller's most recent turn audit entries.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = min(n, maxListLimit)
		}
	}

	logs, err := h.logs.ListByUser(r.Context(), userID, limit)
	if err != nil {
		slog.Error("listing audit logs", "error", err, "user_id", userID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if logs == nil {
		logs = []Log{}
	}

	api.JSON(w, http.StatusOK, logs)
}
