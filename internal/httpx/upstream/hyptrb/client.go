package hyptrb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hyptrb/messaging/internal/domain/user/entity"
)

const (
	defaultBaseURL = "https://api.hyptrb.africa"
	defaultTimeout = 10 * time.Second
)

// Identity carries the two keys the platform API addresses users by
type Identity struct {
	UID   string
	Email string
}

// Profile holds the role-independent profile attributes the messaging
// core cares about
type Profile struct {
	DisplayName string
	AvatarURL   string
	Phone       string
}

// CampaignRef is one campaign from the platform's campaign or
// collaboration listing
type CampaignRef struct {
	ID          string
	DisplayName string
}

// Client is an HTTP client for the Hyptrb platform API. Every call is
// bounded by the configured timeout and degrades to Unavailable on
// timeout, transport error, non-2xx status or malformed payload. The
// client performs no retries; retry policy belongs to callers.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption is a function that configures the Client
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithTimeout sets the per-call timeout
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New creates a new Hyptrb API client
func New(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ResolveRole fetches the role recorded for an email address.
// A 404 means the platform does not know the user; that is a definite
// answer, so it maps to Ok(unknown) rather than Unavailable.
func (c *Client) ResolveRole(ctx context.Context, email string) Result[entity.Role] {
	var payload struct {
		Role string `json:"role"`
	}

	status, err := c.get(ctx, "/roles/"+url.PathEscape(email), &payload)
	if err != nil {
		return Unavailable[entity.Role]()
	}
	if status == http.StatusNotFound {
		return Ok(entity.RoleUnknown)
	}

	return Ok(entity.ParseRole(payload.Role))
}

// profileFetcher fetches and normalizes a role-specific profile shape
type profileFetcher func(ctx context.Context, c *Client, id Identity) (Profile, error)

// profileSources dispatches profile resolution per role; roles without a
// profile endpoint simply have no entry
var profileSources = map[entity.Role]profileFetcher{
	entity.RoleClient:     fetchClientProfile,
	entity.RoleAdmin:      fetchAdminProfile,
	entity.RoleInfluencer: fetchInfluencerProfile,
}

// ResolveProfile fetches display attributes for a user, using the
// endpoint shape that matches the role
func (c *Client) ResolveProfile(ctx context.Context, id Identity, role entity.Role) Result[Profile] {
	fetch, ok := profileSources[role]
	if !ok {
		return Unavailable[Profile]()
	}

	profile, err := fetch(ctx, c, id)
	if err != nil {
		return Unavailable[Profile]()
	}
	return Ok(profile)
}

func fetchClientProfile(ctx context.Context, c *Client, id Identity) (Profile, error) {
	var payload struct {
		BusinessName string `json:"businessName"`
	}

	status, err := c.get(ctx, "/clients/get/"+url.PathEscape(id.Email), &payload)
	if err != nil {
		return Profile{}, err
	}
	if status == http.StatusNotFound {
		return Profile{}, fmt.Errorf("client profile not found")
	}

	return Profile{DisplayName: payload.BusinessName}, nil
}

func fetchAdminProfile(ctx context.Context, c *Client, id Identity) (Profile, error) {
	var payload struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		PhotoURL string `json:"photo_url"`
		Phone    string `json:"phone_number"`
	}

	status, err := c.get(ctx, "/admin/profile/"+url.PathEscape(id.Email), &payload)
	if err != nil {
		return Profile{}, err
	}
	if status == http.StatusNotFound {
		return Profile{}, fmt.Errorf("admin profile not found")
	}

	name := payload.Name
	if name == "" {
		name = payload.Email
	}

	return Profile{DisplayName: name, AvatarURL: payload.PhotoURL, Phone: payload.Phone}, nil
}

func fetchInfluencerProfile(ctx context.Context, c *Client, id Identity) (Profile, error) {
	// The influencer endpoint may wrap the payload in {success, data}
	var payload struct {
		Success bool             `json:"success"`
		Data    *influencerShape `json:"data"`
		influencerShape
	}

	status, err := c.get(ctx, "/influencer/get/profile/"+url.PathEscape(id.UID), &payload)
	if err != nil {
		return Profile{}, err
	}
	if status == http.StatusNotFound {
		return Profile{}, fmt.Errorf("influencer profile not found")
	}

	shape := payload.influencerShape
	if payload.Success && payload.Data != nil {
		shape = *payload.Data
	}

	return Profile{
		DisplayName: shape.FullName,
		AvatarURL:   shape.ProfilePictureURL,
		Phone:       shape.ContactPhone,
	}, nil
}

type influencerShape struct {
	FullName          string `json:"full_name"`
	ProfilePictureURL string `json:"profile_picture_url"`
	ContactPhone      string `json:"contact_phone"`
}

// campaignFetcher lists campaign refs using the endpoint shape for a role
type campaignFetcher func(ctx context.Context, c *Client, id Identity) ([]CampaignRef, error)

// campaignSources dispatches the campaign listing per role: clients own
// campaigns directly, influencers reach theirs through collaborations
var campaignSources = map[entity.Role]campaignFetcher{
	entity.RoleClient:     fetchClientCampaigns,
	entity.RoleInfluencer: fetchInfluencerCollaborations,
}

// ListCampaigns fetches the campaigns a user owns or collaborates on.
// The returned sequence is a fresh snapshot on every call.
func (c *Client) ListCampaigns(ctx context.Context, id Identity, role entity.Role) Result[[]CampaignRef] {
	fetch, ok := campaignSources[role]
	if !ok {
		return Ok[[]CampaignRef](nil)
	}

	refs, err := fetch(ctx, c, id)
	if err != nil {
		return Unavailable[[]CampaignRef]()
	}
	return Ok(refs)
}

func fetchClientCampaigns(ctx context.Context, c *Client, id Identity) ([]CampaignRef, error) {
	type campaign struct {
		ID   string `json:"_id"`
		Name string `json:"campaignName"`
	}

	// Paginated {data: [...]} with a bare-array fallback
	var raw json.RawMessage
	status, err := c.get(ctx, "/clients/get/all/campaigns/"+url.PathEscape(id.Email), &raw)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}

	var campaigns []campaign
	var page struct {
		Data []campaign `json:"data"`
	}
	if err := json.Unmarshal(raw, &page); err == nil && page.Data != nil {
		campaigns = page.Data
	} else if err := json.Unmarshal(raw, &campaigns); err != nil {
		return nil, fmt.Errorf("decoding campaigns: %w", err)
	}

	refs := make([]CampaignRef, 0, len(campaigns))
	for _, cmp := range campaigns {
		refs = append(refs, CampaignRef{ID: cmp.ID, DisplayName: cmp.Name})
	}
	return refs, nil
}

func fetchInfluencerCollaborations(ctx context.Context, c *Client, id Identity) ([]CampaignRef, error) {
	var payload struct {
		CurrentClients []struct {
			Campaigns []struct {
				ID   string `json:"campaign_id"`
				Name string `json:"campaign_name"`
			} `json:"campaigns"`
		} `json:"current_clients"`
	}

	path := "/influencer/get/clients/collaborations/" + url.PathEscape(id.UID) + "?page=1&limit=100"
	status, err := c.get(ctx, path, &payload)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}

	var refs []CampaignRef
	for _, client := range payload.CurrentClients {
		for _, cmp := range client.Campaigns {
			refs = append(refs, CampaignRef{ID: cmp.ID, DisplayName: cmp.Name})
		}
	}
	return refs, nil
}

// get executes a GET request and decodes the response. A 404 is returned
// as a status for the caller to interpret; any other non-2xx status,
// transport failure or undecodable body is an error.
func (c *Client) get(ctx context.Context, path string, out interface{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return http.StatusNotFound, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("API error (status %d)", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("reading response body: %w", err)
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decoding response: %w", err)
		}
	}

	return resp.StatusCode, nil
}
