// Package chat exposes conversation turns over HTTP.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/codecache-ai/codecache/internal/api"
	"github.com/codecache-ai/codecache/internal/auth"
	"github.com/codecache-ai/codecache/internal/conversation"
	"github.com/codecache-ai/codecache/internal/orchestrator"
)

const maxBodyBytes = 64 << 10

// Service is the orchestration surface the handler needs.
type Service interface {
	HandleTurn(ctx context.Context, req orchestrator.TurnRequest) (*conversation.Conversation, error)
	Conversations(ctx context.Context, userID string) ([]*conversation.Conversation, error)
	Conversation(ctx context.Context, userID, id string) (*conversation.Conversation, error)
}

type PostTurnRequest struct {
	Message        string `json:"message" validate:"required,max=32000"`
	ConversationID string `json:"conversation_id" validate:"omitempty,max=64"`
}

type Handler struct {
	svc      Service
	validate *validator.Validate
}

func NewHandler(svc Service) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

// PostTurn handles one user message and returns the updated conversation.
func (h *Handler) PostTurn(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req PostTurnRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid JSON body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	conv, err := h.svc.HandleTurn(r.Context(), orchestrator.TurnRequest{
		UserID:         userID,
		Text:           req.Message,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, conv)
}

// List returns the caller's conversations, most recently updated first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	list, err := h.svc.Conversations(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, list)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	conv, err := h.svc.Conversation(r.Context(), userID, chi.URLParam(r, "conversationID"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, conv)
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch orchestrator.Kind(err) {
	case orchestrator.KindUnauthorized:
		api.HandleError(w, api.ErrUnauthorized)
	case orchestrator.KindNotFound:
		api.HandleError(w, api.NewNotFoundError("conversation not found"))
	case orchestrator.KindInvalidRequest:
		api.HandleError(w, api.NewValidationError(err.Error()))
	case orchestrator.KindUpstream:
		api.HandleError(w, api.ErrUpstreamModel)
	case orchestrator.KindPersistence:
		if errors.Is(err, conversation.ErrConflict) {
			api.HandleError(w, api.ErrConversationConflict)
			return
		}
		api.HandleError(w, api.ErrPersistence)
	default:
		slog.Error("chat: unexpected error", "error", err)
		api.HandleError(w, api.ErrInternalServer)
	}
}
