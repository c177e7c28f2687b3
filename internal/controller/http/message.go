package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hyptrb/messaging/internal/domain/messaging/entity"
	"github.com/hyptrb/messaging/internal/domain/messaging/service"
	userentity "github.com/hyptrb/messaging/internal/domain/user/entity"
	"github.com/hyptrb/messaging/internal/httpx/response"
)

// MessageService defines message log operations
type MessageService interface {
	GetConversation(ctx context.Context, threadID, conversationID string, requester *userentity.User) (*entity.Conversation, error)
	ListMessages(ctx context.Context, conversationID string, requester *userentity.User) ([]entity.Message, error)
	AppendMessage(ctx context.Context, sender *userentity.User, in service.AppendMessageInput) (*entity.Message, error)
	GetMessage(ctx context.Context, conversationID, messageID string, requester *userentity.User) (*entity.Message, error)
	SoftDeleteMessage(ctx context.Context, conversationID, messageID string, requester *userentity.User) error
	MarkConversationRead(ctx context.Context, conversationID string, requester *userentity.User) error
}

// MessageHandler handles HTTP requests for conversation messages
type MessageHandler struct {
	resolver UserResolver
	svc      MessageService
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(resolver UserResolver, svc MessageService) *MessageHandler {
	return &MessageHandler{resolver: resolver, svc: svc}
}

func (h *MessageHandler) resolveCaller(w http.ResponseWriter, r *http.Request) *userentity.User {
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

// guardConversation checks that the conversation exists under the
// addressed thread and that the caller participates in it
func (h *MessageHandler) guardConversation(w http.ResponseWriter, r *http.Request, user *userentity.User) (*entity.Conversation, bool) {
	threadID := chi.URLParam(r, "threadId")
	conversationID := chi.URLParam(r, "conversationId")

	conv, err := h.svc.GetConversation(r.Context(), threadID, conversationID, user)
	if err != nil {
		handleConversationError(w, err)
		return nil, false
	}
	return conv, true
}

// ListMessagesResponse represents the response for listing messages
type ListMessagesResponse struct {
	Conversation *entity.Conversation `json:"conversation"`
	Messages     []entity.Message     `json:"messages"`
}

// ListMessages handles GET /messages/threads/{threadId}/conversations/{conversationId}
func (h *MessageHandler) ListMessages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := h.resolveCaller(w, r)
		if user == nil {
			return
		}

		conv, ok := h.guardConversation(w, r, user)
		if !ok {
			return
		}

		messages, err := h.svc.ListMessages(r.Context(), conv.ID, user)
		if err != nil {
			handleMessageError(w, err)
			return
		}

		response.OK(w, ListMessagesResponse{Conversation: conv, Messages: messages})
	}
}

// AppendMessageRequest represents the request body for appending a message
type AppendMessageRequest struct {
	Body        string                    `json:"body"`
	Attachments []AppendAttachmentRequest `json:"attachments"`
}

// AppendAttachmentRequest references an uploaded attachment
type AppendAttachmentRequest struct {
	StorageKey string `json:"storage_key"`
	URL        string `json:"url"`
	Kind       string `json:"kind"`
	SizeBytes  int64  `json:"size_bytes"`
	Width      *int   `json:"width,omitempty"`
	Height     *int   `json:"height,omitempty"`
}

// AppendMessage handles POST /messages/threads/{threadId}/conversations/{conversationId}
func (h *MessageHandler) AppendMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := h.resolveCaller(w, r)
		if user == nil {
			return
		}

		conv, ok := h.guardConversation(w, r, user)
		if !ok {
			return
		}

		var req AppendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON")
			return
		}

		attachments := make([]entity.Attachment, 0, len(req.Attachments))
		for _, a := range req.Attachments {
			kind := entity.AttachmentKind(a.Kind)
			if kind == "" {
				kind = entity.AttachmentKindFile
			}
			attachments = append(attachments, entity.Attachment{
				StorageKey: a.StorageKey,
				URL:        a.URL,
				Kind:       kind,
				SizeBytes:  a.SizeBytes,
				Width:      a.Width,
				Height:     a.Height,
			})
		}

		msg, err := h.svc.AppendMessage(r.Context(), user, service.AppendMessageInput{
			ConversationID: conv.ID,
			Body:           req.Body,
			Attachments:    attachments,
		})
		if err != nil {
			handleMessageError(w, err)
			return
		}

		response.Created(w, msg)
	}
}

// MarkRead handles PUT /messages/threads/{threadId}/conversations/{conversationId}
func (h *MessageHandler) MarkRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := h.resolveCaller(w, r)
		if user == nil {
			return
		}

		conv, ok := h.guardConversation(w, r, user)
		if !ok {
			return
		}

		if err := h.svc.MarkConversationRead(r.Context(), conv.ID, user); err != nil {
			handleMessageError(w, err)
			return
		}

		response.NoContent(w)
	}
}

// GetMessage handles GET .../messages/{messageId}
func (h *MessageHandler) GetMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := h.resolveCaller(w, r)
		if user == nil {
			return
		}

		conv, ok := h.guardConversation(w, r, user)
		if !ok {
			return
		}

		messageID := chi.URLParam(r, "messageId")

		msg, err := h.svc.GetMessage(r.Context(), conv.ID, messageID, user)
		if err != nil {
			handleMessageError(w, err)
			return
		}

		response.OK(w, msg)
	}
}

// DeleteMessage handles DELETE .../messages/{messageId}
func (h *MessageHandler) DeleteMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := h.resolveCaller(w, r)
		if user == nil {
			return
		}

		conv, ok := h.guardConversation(w, r, user)
		if !ok {
			return
		}

		messageID := chi.URLParam(r, "messageId")

		if err := h.svc.SoftDeleteMessage(r.Context(), conv.ID, messageID, user); err != nil {
			handleMessageError(w, err)
			return
		}

		response.NoContent(w)
	}
}

func handleMessageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrMessageNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, entity.ErrEmptyMessage):
		response.BadRequest(w, err.Error())
	case errors.Is(err, entity.ErrNotSender):
		response.Forbidden(w, err.Error())
	case errors.Is(err, entity.ErrNotParticipant):
		response.Forbidden(w, err.Error())
	case errors.Is(err, entity.ErrConversationNotFound):
		response.NotFound(w, err.Error())
	default:
		response.InternalError(w, "internal server error")
	}
}
