package service

import (
	"errors"
	"fmt"
	"time"

	"whisper-relay/internal/logger"
	"whisper-relay/internal/models"
	"whisper-relay/internal/presence"
	"whisper-relay/internal/protocol"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageService owns the message lifecycle:
// submitted -> (delivered)? -> (read)? -> deleted.
type MessageService struct {
	messages MessageStore
	presence *presence.Directory
}

// NewMessageService wires the lifecycle over its store and the presence
// directory.
func NewMessageService(messages MessageStore, dir *presence.Directory) *MessageService {
	return &MessageService{messages: messages, presence: dir}
}

// Send persists the message and, if the recipient is present, forwards it
// and marks it delivered once the handoff succeeds. A failed forward leaves
// the message undelivered so it is not flagged as received when it never
// reached the recipient. The returned record is the sender's ack echo and
// reflects the delivered flag. A persist failure is returned so the caller
// can surface an explicit send-failure instead of a silent drop; there is
// no retry-on-reconnect, an offline recipient sees the message through
// history.
func (s *MessageService) Send(senderID, recipientID, ciphertext, nonce string, isEncrypted bool, selfDestructSeconds *int) (*models.Message, error) {
	now := time.Now()
	msg := &models.Message{
		ID:                  uuid.NewString(),
		SenderID:            senderID,
		RecipientID:         recipientID,
		Ciphertext:          ciphertext,
		Nonce:               nonce,
		IsEncrypted:         isEncrypted,
		SelfDestructSeconds: selfDestructSeconds,
		CreatedAt:           now,
	}
	if selfDestructSeconds != nil {
		at := now.Add(time.Duration(*selfDestructSeconds) * time.Second)
		msg.SelfDestructAt = &at
	}

	if err := s.messages.Create(msg); err != nil {
		return nil, fmt.Errorf("persisting message: %w", err)
	}

	if sess, ok := s.presence.Get(recipientID); ok {
		if err := sess.Send(protocol.EventMessageDelivered, msg); err != nil {
			logger.Warningf("message %s: forward to %s failed: %v", msg.ID, recipientID, err)
		} else if err := s.messages.MarkDelivered(msg.ID); err != nil {
			logger.Warningf("message %s: mark delivered failed: %v", msg.ID, err)
		} else {
			msg.IsDelivered = true
		}
	}

	return msg, nil
}

// MarkRead sets the read flag. The flag is queryable; no propagation back
// to the sender.
func (s *MessageService) MarkRead(messageID string) error {
	if err := s.messages.MarkRead(messageID); err != nil {
		return fmt.Errorf("marking message read: %w", err)
	}
	return nil
}

// Delete stamps the tombstone. Idempotent.
func (s *MessageService) Delete(messageID string) error {
	if _, err := s.messages.GetByID(messageID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("loading message: %w", err)
	}
	if err := s.messages.SoftDelete(messageID, time.Now()); err != nil {
		return fmt.Errorf("deleting message: %w", err)
	}
	return nil
}

// ListConversation returns all non-deleted messages exchanged between the
// two users, newest first.
func (s *MessageService) ListConversation(userID, counterpartID string) ([]models.Message, error) {
	msgs, err := s.messages.ListConversation(userID, counterpartID)
	if err != nil {
		return nil, fmt.Errorf("listing conversation: %w", err)
	}
	return msgs, nil
}
