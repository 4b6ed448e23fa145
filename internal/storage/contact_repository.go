package storage

import (
	"whisper-relay/internal/models"

	"gorm.io/gorm"
)

// ContactRepository handles database operations for Contact
type ContactRepository struct {
	db *gorm.DB
}

// NewContactRepository creates a new ContactRepository
func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// MigrateTable ensures the Contact table exists
func (r *ContactRepository) MigrateTable() error {
	return r.db.AutoMigrate(&models.Contact{})
}

// ListForOwner returns all contacts owned by a user
func (r *ContactRepository) ListForOwner(ownerID string) ([]models.Contact, error) {
	var contacts []models.Contact
	result := r.db.Where("owner_id = ?", ownerID).Order("created_at ASC").Find(&contacts)
	return contacts, result.Error
}

// GetByOwnerAndPeer returns the directed contact row, if any
func (r *ContactRepository) GetByOwnerAndPeer(ownerID, peerID string) (*models.Contact, error) {
	var contact models.Contact
	result := r.db.Where("owner_id = ? AND peer_id = ?", ownerID, peerID).First(&contact)
	if result.Error != nil {
		return nil, result.Error
	}
	return &contact, nil
}

// DeleteRelationship removes both directed edges between the two users
func (r *ContactRepository) DeleteRelationship(ownerID, peerID string) error {
	return r.db.
		Where("(owner_id = ? AND peer_id = ?) OR (owner_id = ? AND peer_id = ?)",
			ownerID, peerID, peerID, ownerID).
		Delete(&models.Contact{}).Error
}

// SetVerification updates the verification fields on the owning direction
// only. Returns gorm.ErrRecordNotFound when no such row exists.
func (r *ContactRepository) SetVerification(ownerID, peerID string, isVerified bool, safetyNumber string) error {
	result := r.db.Model(&models.Contact{}).
		Where("owner_id = ? AND peer_id = ?", ownerID, peerID).
		Updates(map[string]interface{}{"is_verified": isVerified, "safety_number": safetyNumber})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
