package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hyptrb/messaging/internal/domain/messaging/entity"
	"github.com/hyptrb/messaging/internal/domain/messaging/service"
	threadentity "github.com/hyptrb/messaging/internal/domain/thread/entity"
	userentity "github.com/hyptrb/messaging/internal/domain/user/entity"
	"github.com/hyptrb/messaging/internal/httpx/response"
)

// ConversationService defines conversation lifecycle operations
type ConversationService interface {
	ListConversations(ctx context.Context, threadID string, requester *userentity.User) ([]entity.Conversation, error)
	CreateConversation(ctx context.Context, initiator *userentity.User, in service.CreateConversationInput) (*entity.Conversation, error)
	JoinConversation(ctx context.Context, conversationID string, joiner *userentity.User) (*entity.Conversation, error)
}

// ConversationHandler handles HTTP requests for conversations
type ConversationHandler struct {
	resolver UserResolver
	svc      ConversationService
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(resolver UserResolver, svc ConversationService) *ConversationHandler {
	return &ConversationHandler{resolver: resolver, svc: svc}
}

func (h *ConversationHandler) resolveCaller(w http.ResponseWriter, r *http.Request) *userentity.User {
	principal := PrincipalFromContext(r.Context())
	if principal == nil {
		response.Unauthorized(w, "authentication required")
		return nil
	}

	user, err := h.resolver.Resolve(r.Context(), *principal)
	if err != nil {
		handleUserError(w, err)
		return nil
	}
	return user
}

// ListConversationsResponse represents the response for listing conversations
type ListConversationsResponse struct {
	Conversations []entity.Conversation `json:"conversations"`
}

// ListConversations handles GET /messages/threads/{threadId}/conversations
func (h *ConversationHandler) ListConversations() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := h.resolveCaller(w, r)
		if user == nil {
			return
		}

		threadID := chi.URLParam(r, "threadId")

		conversations, err := h.svc.ListConversations(r.Context(), threadID, user)
		if err != nil {
			handleConversationError(w, err)
			return
		}

		response.OK(w, ListConversationsResponse{Conversations: conversations})
	}
}

// CreateConversationRequest represents the request body for creating a conversation
type CreateConversationRequest struct {
	Name               string `json:"name"`
	OtherParticipantID string `json:"other_participant_id"`
}

// CreateConversation handles POST /messages/threads/{threadId}/conversations
func (h *ConversationHandler) CreateConversation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := h.resolveCaller(w, r)
		if user == nil {
			return
		}

		threadID := chi.URLParam(r, "threadId")

		var req CreateConversationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON")
			return
		}

		conv, err := h.svc.CreateConversation(r.Context(), user, service.CreateConversationInput{
			ThreadID:           threadID,
			Name:               req.Name,
			OtherParticipantID: req.OtherParticipantID,
		})
		if err != nil {
			handleConversationError(w, err)
			return
		}

		response.Created(w, conv)
	}
}

// JoinConversation handles POST /messages/threads/{threadId}/conversations/{conversationId}/join
func (h *ConversationHandler) JoinConversation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := h.resolveCaller(w, r)
		if user == nil {
			return
		}

		conversationID := chi.URLParam(r, "conversationId")

		conv, err := h.svc.JoinConversation(r.Context(), conversationID, user)
		if err != nil {
			handleConversationError(w, err)
			return
		}

		response.OK(w, conv)
	}
}

func handleConversationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrConversationNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, entity.ErrWrongThread):
		response.NotFound(w, entity.ErrConversationNotFound.Error())
	case errors.Is(err, entity.ErrAlreadyPaired):
		response.Conflict(w, err.Error())
	case errors.Is(err, entity.ErrSelfJoin):
		response.BadRequest(w, err.Error())
	case errors.Is(err, entity.ErrSelfConversation):
		response.BadRequest(w, err.Error())
	case errors.Is(err, entity.ErrNotParticipant):
		response.Forbidden(w, err.Error())
	case errors.Is(err, threadentity.ErrThreadNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, threadentity.ErrNotThreadOwner):
		response.Forbidden(w, err.Error())
	case errors.Is(err, userentity.ErrUserNotFound):
		response.NotFound(w, err.Error())
	default:
		response.InternalError(w, "internal server error")
	}
}
