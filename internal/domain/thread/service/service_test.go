package service

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyptrb/messaging/internal/domain/thread/entity"
	userentity "github.com/hyptrb/messaging/internal/domain/user/entity"
	"github.com/hyptrb/messaging/internal/httpx/upstream/hyptrb"
)

type fakeCampaignSource struct {
	listFn func(ctx context.Context, id hyptrb.Identity, role userentity.Role) hyptrb.Result[[]hyptrb.CampaignRef]

	mu    sync.Mutex
	calls int
}

func (f *fakeCampaignSource) ListCampaigns(ctx context.Context, id hyptrb.Identity, role userentity.Role) hyptrb.Result[[]hyptrb.CampaignRef] {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.listFn != nil {
		return f.listFn(ctx, id, role)
	}
	return hyptrb.Ok[[]hyptrb.CampaignRef](nil)
}

// fakeThreadRepo mirrors the (campaign_id, owner_id) uniqueness and
// title-refresh semantics of the real DAO. Access is serialized the way
// the unique constraint serializes concurrent upserts.
type fakeThreadRepo struct {
	mu    sync.Mutex
	byKey map[string]*entity.Thread
}

func newFakeThreadRepo() *fakeThreadRepo {
	return &fakeThreadRepo{byKey: map[string]*entity.Thread{}}
}

func (f *fakeThreadRepo) UpsertByCampaign(ctx context.Context, t *entity.Thread) (*entity.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := t.CampaignID + "|" + t.OwnerID
	if existing, ok := f.byKey[key]; ok {
		if existing.Title != t.Title {
			existing.Title = t.Title
			existing.UpdatedAt = time.Now()
		}
		copied := *existing
		return &copied, nil
	}

	stored := *t
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	f.byKey[key] = &stored
	copied := stored
	return &copied, nil
}

func (f *fakeThreadRepo) GetByID(ctx context.Context, id string) (*entity.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, t := range f.byKey {
		if t.ID == id {
			copied := *t
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeThreadRepo) ListByOwner(ctx context.Context, ownerID string) ([]entity.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []entity.Thread
	for _, t := range f.byKey {
		if t.OwnerID == ownerID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func clientUser() *userentity.User {
	return &userentity.User{
		UID:   "u1",
		Email: "acme@example.com",
		Role:  userentity.RoleClient,
	}
}

func TestSyncCreatesThreadPerCampaign(t *testing.T) {
	src := &fakeCampaignSource{
		listFn: func(ctx context.Context, id hyptrb.Identity, role userentity.Role) hyptrb.Result[[]hyptrb.CampaignRef] {
			return hyptrb.Ok([]hyptrb.CampaignRef{
				{ID: "cmp-1", DisplayName: "Summer Launch"},
				{ID: "cmp-2", DisplayName: "Holiday Promo"},
			})
		},
	}
	repo := newFakeThreadRepo()
	s := NewSynchronizer(src, repo, slog.Default())

	threads, err := s.Sync(context.Background(), clientUser())
	require.NoError(t, err)
	require.Len(t, threads, 2)

	titles := map[string]bool{}
	for _, th := range threads {
		titles[th.Title] = true
		assert.Equal(t, "u1", th.OwnerID)
		assert.Equal(t, entity.ThreadStatusActive, th.Status)
	}
	assert.True(t, titles["Summer Launch"])
	assert.True(t, titles["Holiday Promo"])
}

func TestSyncIsIdempotent(t *testing.T) {
	src := &fakeCampaignSource{
		listFn: func(ctx context.Context, id hyptrb.Identity, role userentity.Role) hyptrb.Result[[]hyptrb.CampaignRef] {
			return hyptrb.Ok([]hyptrb.CampaignRef{{ID: "cmp-1", DisplayName: "Summer Launch"}})
		},
	}
	repo := newFakeThreadRepo()
	s := NewSynchronizer(src, repo, slog.Default())

	first, err := s.Sync(context.Background(), clientUser())
	require.NoError(t, err)
	second, err := s.Sync(context.Background(), clientUser())
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
}

func TestSyncConcurrentlyCreatesNoDuplicates(t *testing.T) {
	src := &fakeCampaignSource{
		listFn: func(ctx context.Context, id hyptrb.Identity, role userentity.Role) hyptrb.Result[[]hyptrb.CampaignRef] {
			return hyptrb.Ok([]hyptrb.CampaignRef{{ID: "cmp-1", DisplayName: "Summer Launch"}})
		},
	}
	repo := newFakeThreadRepo()
	s := NewSynchronizer(src, repo, slog.Default())

	const workers = 4
	results := make([][]entity.Thread, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.Sync(context.Background(), clientUser())
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		require.Len(t, results[i], 1)
	}

	stored, err := repo.ListByOwner(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestSyncRefreshesTitleOnly(t *testing.T) {
	title := "Summer Launch"
	src := &fakeCampaignSource{
		listFn: func(ctx context.Context, id hyptrb.Identity, role userentity.Role) hyptrb.Result[[]hyptrb.CampaignRef] {
			return hyptrb.Ok([]hyptrb.CampaignRef{{ID: "cmp-1", DisplayName: title}})
		},
	}
	repo := newFakeThreadRepo()
	s := NewSynchronizer(src, repo, slog.Default())

	first, err := s.Sync(context.Background(), clientUser())
	require.NoError(t, err)

	title = "Summer Launch v2"
	second, err := s.Sync(context.Background(), clientUser())
	require.NoError(t, err)

	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, "Summer Launch v2", second[0].Title)
}

func TestSyncKeepsThreadsForRemovedCampaigns(t *testing.T) {
	refs := []hyptrb.CampaignRef{{ID: "cmp-1", DisplayName: "Summer Launch"}}
	src := &fakeCampaignSource{
		listFn: func(ctx context.Context, id hyptrb.Identity, role userentity.Role) hyptrb.Result[[]hyptrb.CampaignRef] {
			return hyptrb.Ok(refs)
		},
	}
	repo := newFakeThreadRepo()
	s := NewSynchronizer(src, repo, slog.Default())

	_, err := s.Sync(context.Background(), clientUser())
	require.NoError(t, err)

	// Campaign disappears upstream; the thread must survive
	refs = nil
	threads, err := s.Sync(context.Background(), clientUser())
	require.NoError(t, err)
	assert.Len(t, threads, 1)
}

func TestSyncUnavailableServesStoredThreads(t *testing.T) {
	repo := newFakeThreadRepo()
	_, err := repo.UpsertByCampaign(context.Background(), &entity.Thread{
		ID:         entity.NewThreadID(),
		Title:      "Summer Launch",
		CampaignID: "cmp-1",
		OwnerID:    "u1",
		Status:     entity.ThreadStatusActive,
	})
	require.NoError(t, err)

	src := &fakeCampaignSource{
		listFn: func(ctx context.Context, id hyptrb.Identity, role userentity.Role) hyptrb.Result[[]hyptrb.CampaignRef] {
			return hyptrb.Unavailable[[]hyptrb.CampaignRef]()
		},
	}
	s := NewSynchronizer(src, repo, slog.Default())

	threads, err := s.Sync(context.Background(), clientUser())
	require.NoError(t, err)
	assert.Len(t, threads, 1)
}

func TestSyncSkipsRolesWithoutCampaigns(t *testing.T) {
	src := &fakeCampaignSource{}
	repo := newFakeThreadRepo()
	s := NewSynchronizer(src, repo, slog.Default())

	admin := &userentity.User{UID: "a1", Role: userentity.RoleAdmin}
	threads, err := s.Sync(context.Background(), admin)
	require.NoError(t, err)

	assert.Empty(t, threads)
	assert.Equal(t, 0, src.calls)
}

func TestSyncSkipsEmptyCampaignIDs(t *testing.T) {
	src := &fakeCampaignSource{
		listFn: func(ctx context.Context, id hyptrb.Identity, role userentity.Role) hyptrb.Result[[]hyptrb.CampaignRef] {
			return hyptrb.Ok([]hyptrb.CampaignRef{
				{ID: "", DisplayName: "Broken"},
				{ID: "cmp-1", DisplayName: ""},
			})
		},
	}
	repo := newFakeThreadRepo()
	s := NewSynchronizer(src, repo, slog.Default())

	threads, err := s.Sync(context.Background(), clientUser())
	require.NoError(t, err)

	require.Len(t, threads, 1)
	assert.Equal(t, "Unnamed Campaign", threads[0].Title)
}

func TestGetEnforcesOwnership(t *testing.T) {
	repo := newFakeThreadRepo()
	stored, err := repo.UpsertByCampaign(context.Background(), &entity.Thread{
		ID:         entity.NewThreadID(),
		Title:      "Summer Launch",
		CampaignID: "cmp-1",
		OwnerID:    "u1",
		Status:     entity.ThreadStatusActive,
	})
	require.NoError(t, err)

	s := NewSynchronizer(&fakeCampaignSource{}, repo, slog.Default())

	_, err = s.Get(context.Background(), stored.ID, "u1")
	assert.NoError(t, err)

	_, err = s.Get(context.Background(), stored.ID, "intruder")
	assert.ErrorIs(t, err, entity.ErrNotThreadOwner)

	_, err = s.Get(context.Background(), "missing", "u1")
	assert.ErrorIs(t, err, entity.ErrThreadNotFound)
}

func TestCreateRequiresCampaign(t *testing.T) {
	s := NewSynchronizer(&fakeCampaignSource{}, newFakeThreadRepo(), slog.Default())

	_, err := s.Create(context.Background(), CreateInput{OwnerID: "u1"})
	assert.ErrorIs(t, err, entity.ErrMissingCampaign)
}

func TestCreateTwiceReturnsStoredThread(t *testing.T) {
	s := NewSynchronizer(&fakeCampaignSource{}, newFakeThreadRepo(), slog.Default())

	in := CreateInput{OwnerID: "u1", Title: "Summer Launch", CampaignID: "cmp-1"}
	first, err := s.Create(context.Background(), in)
	require.NoError(t, err)
	second, err := s.Create(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
}
