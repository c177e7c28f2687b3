package entity

import "time"

// Role of a platform user. The set is closed: anything the role service
// returns outside of it is treated as unknown.
type Role string

const (
	RoleClient     Role = "client"
	RoleInfluencer Role = "influencer"
	RoleAdmin      Role = "admin"
	RoleUnknown    Role = "unknown"
)

// ParseRole maps a raw role string to the closed enum
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleClient, RoleInfluencer, RoleAdmin:
		return Role(s)
	default:
		return RoleUnknown
	}
}

// OwnsCampaigns reports whether users with this role own or collaborate
// on campaigns and therefore take part in thread reconciliation
func (r Role) OwnsCampaigns() bool {
	return r == RoleClient || r == RoleInfluencer
}

// Principal is the verified caller identity presented with each request
type Principal struct {
	UID           string
	Email         string
	DisplayName   string
	AvatarURL     string
	Phone         string
	EmailVerified bool
}

// User is the internal user record derived from a principal,
// enriched from the platform profile services when they are reachable
type User struct {
	UID           string     `json:"uid"`
	Email         string     `json:"email,omitempty"`
	DisplayName   string     `json:"display_name,omitempty"`
	AvatarURL     string     `json:"avatar_url,omitempty"`
	Role          Role       `json:"role"`
	Phone         string     `json:"phone,omitempty"`
	EmailVerified bool       `json:"email_verified"`
	LastSeenAt    *time.Time `json:"last_seen_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
