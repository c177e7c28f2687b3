package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hyptrb/messaging/internal/domain/user/entity"
	"github.com/hyptrb/messaging/internal/httpx/upstream/hyptrb"
)

// Gateway resolves role and profile attributes from the platform API
type Gateway interface {
	ResolveRole(ctx context.Context, email string) hyptrb.Result[entity.Role]
	ResolveProfile(ctx context.Context, id hyptrb.Identity, role entity.Role) hyptrb.Result[hyptrb.Profile]
}

// UserRepository defines the interface for user storage
type UserRepository interface {
	Upsert(ctx context.Context, u *entity.User) error
	GetByUID(ctx context.Context, uid string) (*entity.User, error)
	TouchLastSeen(ctx context.Context, uid string) error
	UpdateProfile(ctx context.Context, uid, displayName, phone string) error
	List(ctx context.Context, limit, offset int) ([]entity.User, error)
}

// defaultRefreshAfter bounds how long stored role/profile attributes are
// trusted before the resolver asks the platform again
const defaultRefreshAfter = time.Hour

// Resolver maps verified principals to internal user records, enriching
// them from the platform API when it is reachable
type Resolver struct {
	gw           Gateway
	repo         UserRepository
	refreshAfter time.Duration
	logger       *slog.Logger
}

// NewResolver creates a new identity resolver
func NewResolver(gw Gateway, repo UserRepository, logger *slog.Logger) *Resolver {
	return &Resolver{
		gw:           gw,
		repo:         repo,
		refreshAfter: defaultRefreshAfter,
		logger:       logger,
	}
}

// Resolve loads or creates the user record for a principal. Role and
// profile attributes are refreshed from the platform when the role is
// still unknown or the stored record has gone stale; if the platform is
// unavailable the stored state is kept and the request proceeds.
// Repeated calls converge to the same stored state.
func (r *Resolver) Resolve(ctx context.Context, p entity.Principal) (*entity.User, error) {
	if p.UID == "" {
		return nil, entity.ErrMissingUID
	}

	u, err := r.repo.GetByUID(ctx, p.UID)
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}

	fresh := u != nil && time.Since(u.UpdatedAt) < r.refreshAfter

	if u == nil {
		u = &entity.User{
			UID:         p.UID,
			Email:       p.Email,
			DisplayName: fallbackDisplayName(p),
			AvatarURL:   p.AvatarURL,
			Phone:       p.Phone,
			Role:        entity.RoleUnknown,
		}
	}
	u.EmailVerified = p.EmailVerified
	if u.Email == "" {
		u.Email = p.Email
	}

	if (u.Role == entity.RoleUnknown || !fresh) && u.Email != "" {
		r.enrich(ctx, u)
	}

	if err := r.repo.Upsert(ctx, u); err != nil {
		return nil, fmt.Errorf("storing user: %w", err)
	}

	if err := r.repo.TouchLastSeen(ctx, p.UID); err != nil {
		return nil, fmt.Errorf("recording activity: %w", err)
	}

	stored, err := r.repo.GetByUID(ctx, p.UID)
	if err != nil {
		return nil, fmt.Errorf("reloading user: %w", err)
	}
	if stored == nil {
		return u, nil
	}
	return stored, nil
}

// enrich overwrites role and profile attributes from the platform.
// Unavailable results leave the record untouched.
func (r *Resolver) enrich(ctx context.Context, u *entity.User) {
	if u.Role == entity.RoleUnknown {
		role, ok := r.gw.ResolveRole(ctx, u.Email).Get()
		if !ok {
			r.logger.Warn("role service unavailable, keeping stored role",
				"uid", u.UID)
			return
		}
		u.Role = role
	}

	if u.Role == entity.RoleUnknown {
		return
	}

	profile, ok := r.gw.ResolveProfile(ctx, hyptrb.Identity{UID: u.UID, Email: u.Email}, u.Role).Get()
	if !ok {
		r.logger.Warn("profile service unavailable, keeping stored profile",
			"uid", u.UID, "role", u.Role)
		return
	}

	if profile.DisplayName != "" {
		u.DisplayName = profile.DisplayName
	}
	if profile.AvatarURL != "" {
		u.AvatarURL = profile.AvatarURL
	}
	if profile.Phone != "" {
		u.Phone = profile.Phone
	}
}

// Get retrieves a stored user by uid
func (r *Resolver) Get(ctx context.Context, uid string) (*entity.User, error) {
	u, err := r.repo.GetByUID(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	if u == nil {
		return nil, entity.ErrUserNotFound
	}
	return u, nil
}

// UpdateProfileInput represents input for a profile edit
type UpdateProfileInput struct {
	UID         string
	DisplayName string
	Phone       string
}

// UpdateProfile overwrites the user-editable fields of a stored user
func (r *Resolver) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*entity.User, error) {
	u, err := r.Get(ctx, in.UID)
	if err != nil {
		return nil, err
	}

	displayName := u.DisplayName
	if in.DisplayName != "" {
		displayName = in.DisplayName
	}
	phone := u.Phone
	if in.Phone != "" {
		phone = in.Phone
	}

	if err := r.repo.UpdateProfile(ctx, in.UID, displayName, phone); err != nil {
		return nil, fmt.Errorf("updating profile: %w", err)
	}

	return r.Get(ctx, in.UID)
}

// List retrieves stored users with pagination
func (r *Resolver) List(ctx context.Context, limit, offset int) ([]entity.User, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.repo.List(ctx, limit, offset)
}

// fallbackDisplayName derives a name from the verified assertion when
// the platform profile is not available yet
func fallbackDisplayName(p entity.Principal) string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	if at := strings.IndexByte(p.Email, '@'); at > 0 {
		return p.Email[:at]
	}
	return "Unknown User"
}
