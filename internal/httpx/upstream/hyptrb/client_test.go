package hyptrb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyptrb/messaging/internal/domain/user/entity"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return New(WithBaseURL(srv.URL)), srv
}

func TestResolveRole(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/roles/acme@example.com", r.URL.Path)
		w.Write([]byte(`{"role":"client"}`))
	})
	defer srv.Close()

	role, ok := c.ResolveRole(context.Background(), "acme@example.com").Get()
	require.True(t, ok)
	assert.Equal(t, entity.RoleClient, role)
}

func TestResolveRoleUnknownUserIsDefinite(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	defer srv.Close()

	// 404 is an answer, not an outage
	role, ok := c.ResolveRole(context.Background(), "nobody@example.com").Get()
	require.True(t, ok)
	assert.Equal(t, entity.RoleUnknown, role)
}

func TestResolveRoleServerErrorIsUnavailable(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer srv.Close()

	assert.False(t, c.ResolveRole(context.Background(), "acme@example.com").Available())
}

func TestResolveRoleMalformedPayloadIsUnavailable(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"role":`))
	})
	defer srv.Close()

	assert.False(t, c.ResolveRole(context.Background(), "acme@example.com").Available())
}

func TestResolveRoleTimeoutIsUnavailable(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.Write([]byte(`{"role":"client"}`))
	})
	defer srv.Close()

	c = New(WithBaseURL(srv.URL), WithTimeout(10*time.Millisecond))
	assert.False(t, c.ResolveRole(context.Background(), "acme@example.com").Available())
}

func TestResolveClientProfile(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/clients/get/acme@example.com", r.URL.Path)
		w.Write([]byte(`{"businessName":"Acme Ltd"}`))
	})
	defer srv.Close()

	profile, ok := c.ResolveProfile(context.Background(),
		Identity{UID: "u1", Email: "acme@example.com"}, entity.RoleClient).Get()
	require.True(t, ok)
	assert.Equal(t, "Acme Ltd", profile.DisplayName)
}

func TestResolveAdminProfileFallsBackToEmail(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/profile/ops@example.com", r.URL.Path)
		w.Write([]byte(`{"name":"","email":"ops@example.com","photo_url":"https://img/x.png"}`))
	})
	defer srv.Close()

	profile, ok := c.ResolveProfile(context.Background(),
		Identity{UID: "a1", Email: "ops@example.com"}, entity.RoleAdmin).Get()
	require.True(t, ok)
	assert.Equal(t, "ops@example.com", profile.DisplayName)
	assert.Equal(t, "https://img/x.png", profile.AvatarURL)
}

func TestResolveInfluencerProfileWrapped(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/influencer/get/profile/inf-1", r.URL.Path)
		w.Write([]byte(`{"success":true,"data":{"full_name":"Jay","profile_picture_url":"https://img/j.png","contact_phone":"+2547"}}`))
	})
	defer srv.Close()

	profile, ok := c.ResolveProfile(context.Background(),
		Identity{UID: "inf-1"}, entity.RoleInfluencer).Get()
	require.True(t, ok)
	assert.Equal(t, "Jay", profile.DisplayName)
	assert.Equal(t, "+2547", profile.Phone)
}

func TestResolveInfluencerProfileBare(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"full_name":"Jay","profile_picture_url":"https://img/j.png"}`))
	})
	defer srv.Close()

	profile, ok := c.ResolveProfile(context.Background(),
		Identity{UID: "inf-1"}, entity.RoleInfluencer).Get()
	require.True(t, ok)
	assert.Equal(t, "Jay", profile.DisplayName)
}

func TestResolveProfileMissingRole(t *testing.T) {
	c := New()
	assert.False(t, c.ResolveProfile(context.Background(), Identity{}, entity.RoleUnknown).Available())
}

func TestResolveProfileNotFoundIsUnavailable(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	defer srv.Close()

	assert.False(t, c.ResolveProfile(context.Background(),
		Identity{Email: "x@y.com"}, entity.RoleClient).Available())
}

func TestListClientCampaignsPaginatedShape(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/clients/get/all/campaigns/acme@example.com", r.URL.Path)
		w.Write([]byte(`{"data":[{"_id":"cmp-1","campaignName":"Summer Launch"},{"_id":"cmp-2","campaignName":"Holiday Promo"}],"total":2}`))
	})
	defer srv.Close()

	refs, ok := c.ListCampaigns(context.Background(),
		Identity{Email: "acme@example.com"}, entity.RoleClient).Get()
	require.True(t, ok)
	require.Len(t, refs, 2)
	assert.Equal(t, "cmp-1", refs[0].ID)
	assert.Equal(t, "Summer Launch", refs[0].DisplayName)
}

func TestListClientCampaignsBareArrayShape(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"_id":"cmp-1","campaignName":"Summer Launch"}]`))
	})
	defer srv.Close()

	refs, ok := c.ListCampaigns(context.Background(),
		Identity{Email: "acme@example.com"}, entity.RoleClient).Get()
	require.True(t, ok)
	require.Len(t, refs, 1)
	assert.Equal(t, "cmp-1", refs[0].ID)
}

func TestListClientCampaignsNotFoundIsEmpty(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	defer srv.Close()

	refs, ok := c.ListCampaigns(context.Background(),
		Identity{Email: "acme@example.com"}, entity.RoleClient).Get()
	require.True(t, ok)
	assert.Empty(t, refs)
}

func TestListInfluencerCollaborations(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/influencer/get/clients/collaborations/inf-1", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		w.Write([]byte(`{"current_clients":[{"campaigns":[{"campaign_id":"cmp-1","campaign_name":"Summer Launch"}]},{"campaigns":[{"campaign_id":"cmp-2","campaign_name":"Holiday Promo"}]}]}`))
	})
	defer srv.Close()

	refs, ok := c.ListCampaigns(context.Background(),
		Identity{UID: "inf-1"}, entity.RoleInfluencer).Get()
	require.True(t, ok)
	require.Len(t, refs, 2)
	assert.Equal(t, "cmp-2", refs[1].ID)
}

func TestListCampaignsRoleWithoutCampaigns(t *testing.T) {
	c := New()

	refs, ok := c.ListCampaigns(context.Background(), Identity{UID: "a1"}, entity.RoleAdmin).Get()
	require.True(t, ok)
	assert.Empty(t, refs)
}

func TestListCampaignsServerErrorIsUnavailable(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	defer srv.Close()

	assert.False(t, c.ListCampaigns(context.Background(),
		Identity{Email: "acme@example.com"}, entity.RoleClient).Available())
}
