package storage

import (
	"time"

	"whisper-relay/internal/models"

	"gorm.io/gorm"
)

// MessageRepository handles database operations for Message
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// MigrateTable ensures the Message table exists
func (r *MessageRepository) MigrateTable() error {
	return r.db.AutoMigrate(&models.Message{})
}

// Create inserts a new Message
func (r *MessageRepository) Create(msg *models.Message) error {
	return r.db.Create(msg).Error
}

// GetByID returns the message with the given id, tombstoned or not
func (r *MessageRepository) GetByID(id string) (*models.Message, error) {
	var msg models.Message
	result := r.db.Where("id = ?", id).First(&msg)
	if result.Error != nil {
		return nil, result.Error
	}
	return &msg, nil
}

// MarkDelivered sets the delivered flag
func (r *MessageRepository) MarkDelivered(id string) error {
	return r.db.Model(&models.Message{}).
		Where("id = ?", id).
		Update("is_delivered", true).Error
}

// MarkRead sets the read flag
func (r *MessageRepository) MarkRead(id string) error {
	return r.db.Model(&models.Message{}).
		Where("id = ?", id).
		Update("is_read", true).Error
}

// SoftDelete stamps the tombstone. Idempotent: an already-deleted message
// keeps its original deleted_at.
func (r *MessageRepository) SoftDelete(id string, at time.Time) error {
	return r.db.Model(&models.Message{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", at).Error
}

// ListConversation returns all non-deleted messages exchanged between the
// two users, newest first.
func (r *MessageRepository) ListConversation(userID, counterpartID string) ([]models.Message, error) {
	var msgs []models.Message
	result := r.db.
		Where("deleted_at IS NULL").
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
			userID, counterpartID, counterpartID, userID).
		Order("created_at DESC").
		Find(&msgs)
	return msgs, result.Error
}

// ListExpired returns non-deleted messages that opted into self-destruction,
// have been read, and whose deadline has elapsed.
func (r *MessageRepository) ListExpired(now time.Time) ([]models.Message, error) {
	var msgs []models.Message
	result := r.db.
		Where("deleted_at IS NULL AND is_read = ? AND self_destruct_at IS NOT NULL AND self_destruct_at <= ?", true, now).
		Find(&msgs)
	return msgs, result.Error
}
