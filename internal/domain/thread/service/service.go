package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hyptrb/messaging/internal/domain/thread/entity"
	userentity "github.com/hyptrb/messaging/internal/domain/user/entity"
	"github.com/hyptrb/messaging/internal/httpx/upstream/hyptrb"
)

// ThreadRepository defines the interface for thread storage
type ThreadRepository interface {
	UpsertByCampaign(ctx context.Context, t *entity.Thread) (*entity.Thread, error)
	GetByID(ctx context.Context, id string) (*entity.Thread, error)
	ListByOwner(ctx context.Context, ownerID string) ([]entity.Thread, error)
}

// Synchronizer reconciles the platform's campaign list against internal
// thread records. Reconciliation only ever creates threads or refreshes
// titles; threads whose campaigns left the external list are kept so
// their history survives campaign archival.
type Synchronizer struct {
	campaigns hyptrb.CampaignSource
	repo      ThreadRepository
	logger    *slog.Logger
}

// NewSynchronizer creates a new campaign-thread synchronizer
func NewSynchronizer(campaigns hyptrb.CampaignSource, repo ThreadRepository, logger *slog.Logger) *Synchronizer {
	return &Synchronizer{
		campaigns: campaigns,
		repo:      repo,
		logger:    logger,
	}
}

// Sync brings the user's threads up to date with their campaign list and
// returns the stored thread set. Roles without campaigns skip
// reconciliation, and an unavailable campaign service degrades to the
// currently stored threads rather than failing the request. Safe to run
// concurrently for the same user: creation is an upsert guarded by the
// (campaign_id, owner_id) unique constraint.
func (s *Synchronizer) Sync(ctx context.Context, user *userentity.User) ([]entity.Thread, error) {
	if !user.Role.OwnsCampaigns() {
		return s.repo.ListByOwner(ctx, user.UID)
	}

	id := hyptrb.Identity{UID: user.UID, Email: user.Email}
	refs, ok := s.campaigns.ListCampaigns(ctx, id, user.Role).Get()
	if !ok {
		s.logger.Warn("campaign service unavailable, serving stored threads",
			"uid", user.UID, "role", user.Role)
		return s.repo.ListByOwner(ctx, user.UID)
	}

	for _, ref := range refs {
		if ref.ID == "" {
			continue
		}

		title := ref.DisplayName
		if title == "" {
			title = "Unnamed Campaign"
		}

		t := &entity.Thread{
			ID:          entity.NewThreadID(),
			Title:       title,
			Description: fmt.Sprintf("Messages for campaign %s", title),
			CampaignID:  ref.ID,
			OwnerID:     user.UID,
			Status:      entity.ThreadStatusActive,
		}
		if _, err := s.repo.UpsertByCampaign(ctx, t); err != nil {
			return nil, fmt.Errorf("reconciling thread for campaign %s: %w", ref.ID, err)
		}
	}

	return s.repo.ListByOwner(ctx, user.UID)
}

// Get retrieves a thread and enforces that the requester owns it
func (s *Synchronizer) Get(ctx context.Context, id, requesterUID string) (*entity.Thread, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading thread: %w", err)
	}
	if t == nil {
		return nil, entity.ErrThreadNotFound
	}
	if t.OwnerID != requesterUID {
		return nil, entity.ErrNotThreadOwner
	}
	return t, nil
}

// CreateInput represents input for an explicitly created thread
type CreateInput struct {
	OwnerID     string
	Title       string
	Description string
	CampaignID  string
}

// Create makes a thread outside of reconciliation. The same uniqueness
// invariant applies: creating twice for one campaign returns the stored
// thread.
func (s *Synchronizer) Create(ctx context.Context, in CreateInput) (*entity.Thread, error) {
	if in.CampaignID == "" {
		return nil, entity.ErrMissingCampaign
	}

	title := in.Title
	if title == "" {
		title = "New Thread"
	}

	t := &entity.Thread{
		ID:          entity.NewThreadID(),
		Title:       title,
		Description: in.Description,
		CampaignID:  in.CampaignID,
		OwnerID:     in.OwnerID,
		Status:      entity.ThreadStatusActive,
	}

	stored, err := s.repo.UpsertByCampaign(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("creating thread: %w", err)
	}
	return stored, nil
}
