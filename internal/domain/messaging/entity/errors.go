package entity

import "errors"

// Domain errors for conversations and messages
var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrNotParticipant       = errors.New("not a participant in this conversation")
	ErrNotSender            = errors.New("only the sender can delete a message")
	ErrAlreadyPaired        = errors.New("conversation already has a second participant")
	ErrSelfJoin             = errors.New("cannot join your own conversation")
	ErrSelfConversation     = errors.New("second participant must differ from the initiator")
	ErrEmptyMessage         = errors.New("message needs text or attachments")
	ErrWrongThread          = errors.New("conversation does not belong to this thread")
)
