package entity

import (
	"time"

	"github.com/google/uuid"
)

// ThreadStatus is the lifecycle state of a thread
type ThreadStatus string

const (
	ThreadStatusActive   ThreadStatus = "active"
	ThreadStatusArchived ThreadStatus = "archived"
)

// Thread is an internal conversation container mapped one-to-one to an
// external (campaign, owner) pair. Threads are created by campaign
// reconciliation and never deleted: a campaign disappearing from the
// platform does not retract message history.
type Thread struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	CampaignID  string       `json:"campaign_id"`
	OwnerID     string       `json:"owner_id"`
	Status      ThreadStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// NewThreadID generates a thread identifier
func NewThreadID() string {
	return "t" + uuid.New().String()[:8]
}
