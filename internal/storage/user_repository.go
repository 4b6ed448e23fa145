package storage

import (
	"strings"
	"time"

	"whisper-relay/internal/models"

	"gorm.io/gorm"
)

// UserRepository handles database operations for User
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// MigrateTable ensures the User table exists
func (r *UserRepository) MigrateTable() error {
	return r.db.AutoMigrate(&models.User{})
}

// Create inserts a new User
func (r *UserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID returns the user with the given id
func (r *UserRepository) GetByID(id string) (*models.User, error) {
	var user models.User
	result := r.db.Where("id = ?", id).First(&user)
	if result.Error != nil {
		return nil, result.Error
	}
	return &user, nil
}

// GetByHandle returns the user with the given handle
func (r *UserRepository) GetByHandle(handle string) (*models.User, error) {
	var user models.User
	result := r.db.Where("handle = ?", handle).First(&user)
	if result.Error != nil {
		return nil, result.Error
	}
	return &user, nil
}

// GetByPairingCode matches the pairing code case-insensitively. Codes are
// stored upper-case at registration.
func (r *UserRepository) GetByPairingCode(code string) (*models.User, error) {
	var user models.User
	result := r.db.Where("pairing_code = ?", strings.ToUpper(code)).First(&user)
	if result.Error != nil {
		return nil, result.Error
	}
	return &user, nil
}

// SetOnlineStatus persists the online flag and refreshes last-seen
func (r *UserRepository) SetOnlineStatus(id string, online bool, lastSeen time.Time) error {
	result := r.db.Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_online": online, "last_seen": lastSeen})
	return result.Error
}
