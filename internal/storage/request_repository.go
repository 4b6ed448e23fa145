package storage

import (
	"time"

	"whisper-relay/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RequestRepository handles database operations for ContactRequest
type RequestRepository struct {
	db *gorm.DB
}

// NewRequestRepository creates a new RequestRepository
func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// MigrateTable ensures the ContactRequest table exists
func (r *RequestRepository) MigrateTable() error {
	return r.db.AutoMigrate(&models.ContactRequest{})
}

// Create inserts a pending ContactRequest unless one already exists for the
// ordered (from, to) pair. The check and the insert run in one transaction
// with the matching rows locked, so concurrent duplicates collapse to a
// single pending row. Returns gorm.ErrDuplicatedKey on a duplicate.
func (r *RequestRepository) Create(req *models.ContactRequest) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		result := tx.Model(&models.ContactRequest{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("from_user_id = ? AND to_user_id = ? AND status = ?",
				req.FromUserID, req.ToUserID, models.RequestPending).
			Count(&count)
		if result.Error != nil {
			return result.Error
		}
		if count > 0 {
			return gorm.ErrDuplicatedKey
		}
		return tx.Create(req).Error
	})
}

// GetByID returns the request with the given id
func (r *RequestRepository) GetByID(id uint) (*models.ContactRequest, error) {
	var req models.ContactRequest
	result := r.db.Where("id = ?", id).First(&req)
	if result.Error != nil {
		return nil, result.Error
	}
	return &req, nil
}

// Accept transitions the request to accepted and creates both directed
// Contact rows in a single transaction. A partial failure rolls everything
// back so neither direction is left dangling.
func (r *RequestRepository) Accept(requestID uint, accepterID, requesterID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		result := tx.Model(&models.ContactRequest{}).
			Where("id = ? AND status = ?", requestID, models.RequestPending).
			Updates(map[string]interface{}{"status": models.RequestAccepted, "responded_at": now})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		contacts := []models.Contact{
			{OwnerID: accepterID, PeerID: requesterID, Status: models.ContactAccepted},
			{OwnerID: requesterID, PeerID: accepterID, Status: models.ContactAccepted},
		}
		return tx.Create(&contacts).Error
	})
}

// Reject transitions the request to rejected. Terminal; no notification.
func (r *RequestRepository) Reject(requestID uint) error {
	now := time.Now()
	result := r.db.Model(&models.ContactRequest{}).
		Where("id = ? AND status = ?", requestID, models.RequestPending).
		Updates(map[string]interface{}{"status": models.RequestRejected, "responded_at": now})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListPendingForUser returns inbound pending requests for a user
func (r *RequestRepository) ListPendingForUser(toID string) ([]models.ContactRequest, error) {
	var reqs []models.ContactRequest
	result := r.db.Where("to_user_id = ? AND status = ?", toID, models.RequestPending).
		Order("created_at DESC").
		Find(&reqs)
	return reqs, result.Error
}
