package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	msgentity "github.com/hyptrb/messaging/internal/domain/messaging/entity"
	"github.com/hyptrb/messaging/internal/domain/thread/entity"
	"github.com/hyptrb/messaging/internal/domain/thread/service"
	userentity "github.com/hyptrb/messaging/internal/domain/user/entity"
	"github.com/hyptrb/messaging/internal/httpx/response"
)

// ThreadSynchronizer mirrors campaign ownership into threads and serves
// thread lookups
type ThreadSynchronizer interface {
	Sync(ctx context.Context, user *userentity.User) ([]entity.Thread, error)
	Get(ctx context.Context, id, requesterUID string) (*entity.Thread, error)
	Create(ctx context.Context, in service.CreateInput) (*entity.Thread, error)
}

// ConversationLister lists the requester's conversations under a thread
type ConversationLister interface {
	ListConversations(ctx context.Context, threadID string, requester *userentity.User) ([]msgentity.Conversation, error)
}

// ThreadHandler handles HTTP requests for message threads
type ThreadHandler struct {
	resolver UserResolver
	threads  ThreadSynchronizer
	convs    ConversationLister
}

// NewThreadHandler creates a new thread handler
func NewThreadHandler(resolver UserResolver, threads ThreadSynchronizer, convs ConversationLister) *ThreadHandler {
	return &ThreadHandler{resolver: resolver, threads: threads, convs: convs}
}

// resolveCaller resolves the authenticated principal to a stored user.
// Every thread route needs the caller's role and display attributes.
func (h *ThreadHandler) resolveCaller(w http.ResponseWriter, r *http.Request) *userentity.User {
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

// ListThreadsResponse represents the response for listing threads
type ListThreadsResponse struct {
	Threads []entity.Thread `json:"threads"`
}

// ListThreads handles GET /messages/threads
func (h *ThreadHandler) ListThreads() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := h.resolveCaller(w, r)
		if user == nil {
			return
		}

		threads, err := h.threads.Sync(r.Context(), user)
		if err != nil {
			handleThreadError(w, err)
			return
		}

		response.OK(w, ListThreadsResponse{Threads: threads})
	}
}

// CreateThreadRequest represents the request body for creating a thread
type CreateThreadRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	CampaignID  string `json:"campaign_id"`
}

// CreateThread handles POST /messages/threads
func (h *ThreadHandler) CreateThread() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := h.resolveCaller(w, r)
		if user == nil {
			return
		}

		var req CreateThreadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON")
			return
		}

		thread, err := h.threads.Create(r.Context(), service.CreateInput{
			OwnerID:     user.UID,
			Title:       req.Title,
			Description: req.Description,
			CampaignID:  req.CampaignID,
		})
		if err != nil {
			handleThreadError(w, err)
			return
		}

		response.Created(w, thread)
	}
}

// GetThreadResponse represents the response for getting a thread
type GetThreadResponse struct {
	Thread        *entity.Thread           `json:"thread"`
	Conversations []msgentity.Conversation `json:"conversations"`
}

// GetThread handles GET /messages/threads/{threadId}
func (h *ThreadHandler) GetThread() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := h.resolveCaller(w, r)
		if user == nil {
			return
		}

		threadID := chi.URLParam(r, "threadId")

		thread, err := h.threads.Get(r.Context(), threadID, user.UID)
		if err != nil {
			handleThreadError(w, err)
			return
		}

		conversations, err := h.convs.ListConversations(r.Context(), threadID, user)
		if err != nil {
			handleConversationError(w, err)
			return
		}

		response.OK(w, GetThreadResponse{Thread: thread, Conversations: conversations})
	}
}

func handleThreadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrThreadNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, entity.ErrNotThreadOwner):
		response.Forbidden(w, err.Error())
	case errors.Is(err, entity.ErrMissingCampaign):
		response.BadRequest(w, err.Error())
	default:
		response.InternalError(w, "internal server error")
	}
}
