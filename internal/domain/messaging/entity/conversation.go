package entity

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is a bounded, at-most-two-party chat nested under a
// thread. Participant 1 is always the initiator; participant 2 is either
// unset ("solo") or a distinct user ("paired"). The solo→paired
// transition happens exactly once, via Join, and is never reversed.
type Conversation struct {
	ID       string `json:"id"`
	ThreadID string `json:"thread_id"`
	Name     string `json:"name,omitempty"`

	Participant1ID     string `json:"participant1_id"`
	Participant1Name   string `json:"participant1_name,omitempty"`
	Participant1Avatar string `json:"participant1_avatar,omitempty"`

	Participant2ID     *string `json:"participant2_id,omitempty"`
	Participant2Name   *string `json:"participant2_name,omitempty"`
	Participant2Avatar *string `json:"participant2_avatar,omitempty"`

	LastMessage   string     `json:"last_message,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	UnreadCount   int        `json:"unread_count"`

	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ParticipantSnapshot is the display data copied into a participant slot
// at creation or join time. Snapshots are not live-joined on reads.
type ParticipantSnapshot struct {
	ID     string
	Name   string
	Avatar string
}

// Paired reports whether the second participant slot is filled
func (c *Conversation) Paired() bool {
	return c.Participant2ID != nil && *c.Participant2ID != ""
}

// HasParticipant reports whether uid occupies either participant slot.
// This is the guard in front of every message read and write.
func (c *Conversation) HasParticipant(uid string) bool {
	if c.Participant1ID == uid {
		return true
	}
	return c.Participant2ID != nil && *c.Participant2ID == uid
}

// NewConversationID generates a conversation identifier
func NewConversationID() string {
	return "c" + uuid.New().String()[:8]
}
