package entity

import (
	"time"

	"github.com/google/uuid"
)

// AttachmentKind is the declared media kind of an attachment
type AttachmentKind string

const (
	AttachmentKindImage AttachmentKind = "image"
	AttachmentKindVideo AttachmentKind = "video"
	AttachmentKindFile  AttachmentKind = "file"
)

// Attachment is a stored file reference owned by a message. Its
// lifecycle mirrors the message's soft-delete state; attachments are not
// independently deletable. Pixel dimensions are populated
// opportunistically and may be absent.
type Attachment struct {
	ID         string         `json:"id"`
	MessageID  string         `json:"message_id,omitempty"`
	StorageKey string         `json:"storage_key"`
	URL        string         `json:"url,omitempty"`
	Kind       AttachmentKind `json:"kind"`
	SizeBytes  int64          `json:"size_bytes"`
	Width      *int           `json:"width,omitempty"`
	Height     *int           `json:"height,omitempty"`
}

// Message is one entry in a conversation. The body may be empty when
// attachments are present. Deletion is soft: the row is retained and the
// content redacted from normal reads.
type Message struct {
	ID             string       `json:"id"`
	ConversationID string       `json:"conversation_id"`
	ThreadID       string       `json:"thread_id"`
	SenderID       string       `json:"sender_id"`
	SenderName     string       `json:"sender_name,omitempty"`
	Body           string       `json:"body,omitempty"`
	Attachments    []Attachment `json:"attachments,omitempty"`
	Deleted        bool         `json:"deleted"`
	DeletedAt      *time.Time   `json:"deleted_at,omitempty"`
	SentAt         time.Time    `json:"sent_at"`
	CreatedAt      time.Time    `json:"created_at"`
}

// Empty reports whether the message carries neither text nor attachments
func (m *Message) Empty() bool {
	return m.Body == "" && len(m.Attachments) == 0
}

// Redact hides the content of a soft-deleted message while keeping the
// row visible in listings
func (m *Message) Redact() {
	if !m.Deleted {
		return
	}
	m.Body = ""
	m.Attachments = nil
}

// NewMessageID generates a message identifier
func NewMessageID() string {
	return "m" + uuid.New().String()[:8]
}

// NewAttachmentID generates an attachment identifier
func NewAttachmentID() string {
	return "a" + uuid.New().String()[:8]
}
