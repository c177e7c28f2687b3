package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hyptrb/messaging/internal/domain/user/entity"
	"github.com/hyptrb/messaging/internal/domain/user/service"
	"github.com/hyptrb/messaging/internal/httpx/response"
)

// UserResolver resolves an authenticated principal to a stored user,
// enriching it from the upstream identity source when possible
type UserResolver interface {
	Resolve(ctx context.Context, principal entity.Principal) (*entity.User, error)
	Get(ctx context.Context, uid string) (*entity.User, error)
	UpdateProfile(ctx context.Context, in service.UpdateProfileInput) (*entity.User, error)
	List(ctx context.Context, limit, offset int) ([]entity.User, error)
}

// UserHandler handles HTTP requests for user profiles
type UserHandler struct {
	resolver UserResolver
}

// NewUserHandler creates a new user handler
func NewUserHandler(resolver UserResolver) *UserHandler {
	return &UserHandler{resolver: resolver}
}

// RegisterRoutes registers user routes
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		// Current caller's resolved profile
		r.Get("/me", h.GetMe())

		// Update current caller's profile
		r.Put("/me", h.UpdateMe())

		// Look up a stored user
		r.Get("/{uid}", h.GetUser())

		// List stored users
		r.Get("/", h.ListUsers())
	})
}

// GetMe handles GET /users/me
func (h *UserHandler) GetMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := PrincipalFromContext(r.Context())
		if principal == nil {
			response.Unauthorized(w, "authentication required")
			return
		}

		user, err := h.resolver.Resolve(r.Context(), *principal)
		if err != nil {
			handleUserError(w, err)
			return
		}

		response.OK(w, user)
	}
}

// UpdateMeRequest represents the request body for updating a profile
type UpdateMeRequest struct {
	DisplayName string `json:"display_name"`
	Phone       string `json:"phone"`
}

// UpdateMe handles PUT /users/me
func (h *UserHandler) UpdateMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := PrincipalFromContext(r.Context())
		if principal == nil {
			response.Unauthorized(w, "authentication required")
			return
		}

		var req UpdateMeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON")
			return
		}

		user, err := h.resolver.UpdateProfile(r.Context(), service.UpdateProfileInput{
			UID:         principal.UID,
			DisplayName: req.DisplayName,
			Phone:       req.Phone,
		})
		if err != nil {
			handleUserError(w, err)
			return
		}

		response.OK(w, user)
	}
}

// GetUser handles GET /users/{uid}
func (h *UserHandler) GetUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := chi.URLParam(r, "uid")

		user, err := h.resolver.Get(r.Context(), uid)
		if err != nil {
			handleUserError(w, err)
			return
		}

		response.OK(w, user)
	}
}

// ListUsersResponse represents the response for listing users
type ListUsersResponse struct {
	Users []entity.User `json:"users"`
}

// ListUsers handles GET /users
func (h *UserHandler) ListUsers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 100
		if l := r.URL.Query().Get("limit"); l != "" {
			if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
				limit = parsed
				if limit > 500 {
					limit = 500
				}
			}
		}

		offset := 0
		if o := r.URL.Query().Get("offset"); o != "" {
			if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
				offset = parsed
			}
		}

		users, err := h.resolver.List(r.Context(), limit, offset)
		if err != nil {
			handleUserError(w, err)
			return
		}

		response.OK(w, ListUsersResponse{Users: users})
	}
}

func handleUserError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrUserNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, entity.ErrMissingUID):
		response.BadRequest(w, err.Error())
	default:
		response.InternalError(w, "internal server error")
	}
}
