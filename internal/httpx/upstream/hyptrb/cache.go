package hyptrb

import (
	"context"
	"sync"
	"time"

	"github.com/hyptrb/messaging/internal/domain/user/entity"
)

// CampaignSource lists campaigns for an identity and role
type CampaignSource interface {
	ListCampaigns(ctx context.Context, id Identity, role entity.Role) Result[[]CampaignRef]
}

// CachedCampaignSource is a time-bounded cache in front of a
// CampaignSource. Reconciliation runs inline on thread-listing requests,
// so overlapping requests for the same user would otherwise hit the
// platform API once each; the cache collapses them without changing any
// reconciliation invariant. Only successful listings are cached; an
// Unavailable result is re-tried on the next call.
type CachedCampaignSource struct {
	src CampaignSource
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]campaignCacheEntry
}

type campaignCacheEntry struct {
	refs      []CampaignRef
	fetchedAt time.Time
}

// NewCachedCampaignSource wraps src with a TTL cache. A non-positive ttl
// disables caching.
func NewCachedCampaignSource(src CampaignSource, ttl time.Duration) *CachedCampaignSource {
	return &CachedCampaignSource{
		src:     src,
		ttl:     ttl,
		entries: make(map[string]campaignCacheEntry),
	}
}

// ListCampaigns serves a recent successful listing, or forwards to the
// underlying source
func (c *CachedCampaignSource) ListCampaigns(ctx context.Context, id Identity, role entity.Role) Result[[]CampaignRef] {
	if c.ttl <= 0 {
		return c.src.ListCampaigns(ctx, id, role)
	}

	key := id.UID + "|" + string(role)

	c.mu.Lock()
	entry, hit := c.entries[key]
	c.mu.Unlock()

	if hit && time.Since(entry.fetchedAt) < c.ttl {
		return Ok(entry.refs)
	}

	result := c.src.ListCampaigns(ctx, id, role)
	if refs, ok := result.Get(); ok {
		c.mu.Lock()
		c.entries[key] = campaignCacheEntry{refs: refs, fetchedAt: time.Now()}
		c.mu.Unlock()
	}

	return result
}
