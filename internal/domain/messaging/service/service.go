package service

import (
	"context"
	"fmt"
	"time"

	"github.com/hyptrb/messaging/internal/domain/messaging/entity"
	threadentity "github.com/hyptrb/messaging/internal/domain/thread/entity"
	userentity "github.com/hyptrb/messaging/internal/domain/user/entity"
)

// ConversationRepository defines the interface for conversation storage
type ConversationRepository interface {
	Create(ctx context.Context, conv *entity.Conversation) error
	GetByID(ctx context.Context, id string) (*entity.Conversation, error)
	ListByThreadForUser(ctx context.Context, threadID, uid string) ([]entity.Conversation, error)
	SetParticipant2(ctx context.Context, id string, p entity.ParticipantSnapshot) (bool, error)
	ResetUnread(ctx context.Context, id string) error
}

// MessageRepository defines the interface for message storage
type MessageRepository interface {
	Append(ctx context.Context, msg *entity.Message) error
	GetByID(ctx context.Context, id string) (*entity.Message, error)
	ListByConversation(ctx context.Context, conversationID string) ([]entity.Message, error)
	SoftDelete(ctx context.Context, id string) error
}

// ThreadDirectory looks up threads for ownership checks
type ThreadDirectory interface {
	GetByID(ctx context.Context, id string) (*threadentity.Thread, error)
}

// UserDirectory looks up stored users for participant snapshots
type UserDirectory interface {
	GetByUID(ctx context.Context, uid string) (*userentity.User, error)
}

// Service governs conversation lifecycle, participant visibility and the
// message log. Every read and write of a conversation's content is
// gated on participation; thread-level operations are gated on
// ownership.
type Service struct {
	convRepo ConversationRepository
	msgRepo  MessageRepository
	threads  ThreadDirectory
	users    UserDirectory
}

// New creates a new messaging service
func New(convRepo ConversationRepository, msgRepo MessageRepository, threads ThreadDirectory, users UserDirectory) *Service {
	return &Service{
		convRepo: convRepo,
		msgRepo:  msgRepo,
		threads:  threads,
		users:    users,
	}
}

// ListConversations returns the conversations of a thread visible to the
// requester: only the thread owner may list, and the result is filtered
// to conversations the requester participates in.
func (s *Service) ListConversations(ctx context.Context, threadID string, requester *userentity.User) ([]entity.Conversation, error) {
	if _, err := s.ownedThread(ctx, threadID, requester); err != nil {
		return nil, err
	}

	return s.convRepo.ListByThreadForUser(ctx, threadID, requester.UID)
}

// CreateConversationInput represents input for creating a conversation
type CreateConversationInput struct {
	ThreadID string
	Name     string
	// OtherParticipantID optionally fills the second slot at creation;
	// it must differ from the initiator
	OtherParticipantID string
}

// CreateConversation opens a conversation under a thread. The initiator
// must own the thread (admins may initiate on a thread they do not own)
// and always becomes participant 1; display attributes are snapshotted
// from the stored user records at creation time.
func (s *Service) CreateConversation(ctx context.Context, initiator *userentity.User, in CreateConversationInput) (*entity.Conversation, error) {
	t, err := s.threads.GetByID(ctx, in.ThreadID)
	if err != nil {
		return nil, fmt.Errorf("loading thread: %w", err)
	}
	if t == nil {
		return nil, threadentity.ErrThreadNotFound
	}
	if t.OwnerID != initiator.UID && initiator.Role != userentity.RoleAdmin {
		return nil, threadentity.ErrNotThreadOwner
	}

	if in.OtherParticipantID == initiator.UID {
		return nil, entity.ErrSelfConversation
	}

	name := in.Name
	if name == "" && in.OtherParticipantID == "" {
		name = t.Title + " Discussion"
	}

	conv := &entity.Conversation{
		ID:                 entity.NewConversationID(),
		ThreadID:           in.ThreadID,
		Name:               name,
		Participant1ID:     initiator.UID,
		Participant1Name:   initiator.DisplayName,
		Participant1Avatar: initiator.AvatarURL,
		Status:             "active",
	}

	if in.OtherParticipantID != "" {
		other, err := s.users.GetByUID(ctx, in.OtherParticipantID)
		if err != nil {
			return nil, fmt.Errorf("loading participant: %w", err)
		}
		if other == nil {
			return nil, userentity.ErrUserNotFound
		}
		conv.Participant2ID = &other.UID
		conv.Participant2Name = &other.DisplayName
		conv.Participant2Avatar = &other.AvatarURL
	}

	if err := s.convRepo.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}

	return s.convRepo.GetByID(ctx, conv.ID)
}

// JoinConversation fills the empty second participant slot with the
// joiner. The transition is exactly-once: once paired, every further
// join reports a conflict, and the initiator can never join their own
// conversation.
func (s *Service) JoinConversation(ctx context.Context, conversationID string, joiner *userentity.User) (*entity.Conversation, error) {
	conv, err := s.conversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	if conv.Participant1ID == joiner.UID {
		return nil, entity.ErrSelfJoin
	}
	if conv.Paired() {
		return nil, entity.ErrAlreadyPaired
	}

	swapped, err := s.convRepo.SetParticipant2(ctx, conversationID, entity.ParticipantSnapshot{
		ID:     joiner.UID,
		Name:   joiner.DisplayName,
		Avatar: joiner.AvatarURL,
	})
	if err != nil {
		return nil, fmt.Errorf("joining conversation: %w", err)
	}
	if !swapped {
		// A concurrent joiner filled the slot between our read and the
		// check-and-set
		return nil, entity.ErrAlreadyPaired
	}

	return s.convRepo.GetByID(ctx, conversationID)
}

// GetConversation returns a conversation the requester participates in,
// optionally verifying the thread it is addressed under
func (s *Service) GetConversation(ctx context.Context, threadID, conversationID string, requester *userentity.User) (*entity.Conversation, error) {
	conv, err := s.conversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if threadID != "" && conv.ThreadID != threadID {
		return nil, entity.ErrWrongThread
	}
	if !conv.HasParticipant(requester.UID) {
		return nil, entity.ErrNotParticipant
	}
	return conv, nil
}

// AuthorizeParticipant reports whether the user may read and write the
// conversation's messages
func (s *Service) AuthorizeParticipant(ctx context.Context, conversationID, uid string) (bool, error) {
	conv, err := s.conversation(ctx, conversationID)
	if err != nil {
		return false, err
	}
	return conv.HasParticipant(uid), nil
}

// ListMessages returns the messages of a conversation by send time
// ascending. Soft-deleted messages stay in the listing with their body
// and attachments redacted.
func (s *Service) ListMessages(ctx context.Context, conversationID string, requester *userentity.User) ([]entity.Message, error) {
	conv, err := s.conversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(requester.UID) {
		return nil, entity.ErrNotParticipant
	}

	messages, err := s.msgRepo.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}

	for i := range messages {
		messages[i].Redact()
	}

	return messages, nil
}

// AppendMessageInput represents input for appending a message
type AppendMessageInput struct {
	ConversationID string
	Body           string
	Attachments    []entity.Attachment
}

// AppendMessage appends a message from a participant. The message and
// the conversation's last-message/unread summary are written in one
// transactional unit by the repository.
func (s *Service) AppendMessage(ctx context.Context, sender *userentity.User, in AppendMessageInput) (*entity.Message, error) {
	conv, err := s.conversation(ctx, in.ConversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(sender.UID) {
		return nil, entity.ErrNotParticipant
	}

	msg := &entity.Message{
		ID:             entity.NewMessageID(),
		ConversationID: conv.ID,
		ThreadID:       conv.ThreadID,
		SenderID:       sender.UID,
		SenderName:     sender.DisplayName,
		Body:           in.Body,
		Attachments:    in.Attachments,
		SentAt:         time.Now().UTC(),
	}
	if msg.Empty() {
		return nil, entity.ErrEmptyMessage
	}

	for i := range msg.Attachments {
		if msg.Attachments[i].ID == "" {
			msg.Attachments[i].ID = entity.NewAttachmentID()
		}
		msg.Attachments[i].MessageID = msg.ID
	}

	if err := s.msgRepo.Append(ctx, msg); err != nil {
		return nil, fmt.Errorf("appending message: %w", err)
	}

	return s.msgRepo.GetByID(ctx, msg.ID)
}

// GetMessage returns one message, redacted if soft-deleted, to a
// conversation participant
func (s *Service) GetMessage(ctx context.Context, conversationID, messageID string, requester *userentity.User) (*entity.Message, error) {
	conv, err := s.conversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(requester.UID) {
		return nil, entity.ErrNotParticipant
	}

	msg, err := s.message(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.ConversationID != conversationID {
		return nil, entity.ErrMessageNotFound
	}

	msg.Redact()
	return msg, nil
}

// SoftDeleteMessage hides a message's content. Only the original sender
// may delete, and deleting an already deleted message succeeds without
// effect.
func (s *Service) SoftDeleteMessage(ctx context.Context, conversationID, messageID string, requester *userentity.User) error {
	msg, err := s.message(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.ConversationID != conversationID {
		return entity.ErrMessageNotFound
	}
	if msg.SenderID != requester.UID {
		return entity.ErrNotSender
	}
	if msg.Deleted {
		return nil
	}

	if err := s.msgRepo.SoftDelete(ctx, messageID); err != nil {
		return fmt.Errorf("deleting message: %w", err)
	}
	return nil
}

// MarkConversationRead resets the unread counter for a participant
func (s *Service) MarkConversationRead(ctx context.Context, conversationID string, requester *userentity.User) error {
	conv, err := s.conversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(requester.UID) {
		return entity.ErrNotParticipant
	}

	if err := s.convRepo.ResetUnread(ctx, conversationID); err != nil {
		return fmt.Errorf("marking conversation read: %w", err)
	}
	return nil
}

func (s *Service) ownedThread(ctx context.Context, threadID string, requester *userentity.User) (*threadentity.Thread, error) {
	t, err := s.threads.GetByID(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("loading thread: %w", err)
	}
	if t == nil {
		return nil, threadentity.ErrThreadNotFound
	}
	if t.OwnerID != requester.UID {
		return nil, threadentity.ErrNotThreadOwner
	}
	return t, nil
}

func (s *Service) conversation(ctx context.Context, id string) (*entity.Conversation, error) {
	conv, err := s.convRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading conversation: %w", err)
	}
	if conv == nil {
		return nil, entity.ErrConversationNotFound
	}
	return conv, nil
}

func (s *Service) message(ctx context.Context, id string) (*entity.Message, error) {
	msg, err := s.msgRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading message: %w", err)
	}
	if msg == nil {
		return nil, entity.ErrMessageNotFound
	}
	return msg, nil
}
