package service

import (
	"time"

	"whisper-relay/internal/models"
)

// Store interfaces consumed by the services. The gorm repositories in
// internal/storage satisfy them; tests use the in-memory implementations
// from internal/storage/storagetest.

// UserStore persists and queries users.
type UserStore interface {
	Create(user *models.User) error
	GetByID(id string) (*models.User, error)
	GetByHandle(handle string) (*models.User, error)
	GetByPairingCode(code string) (*models.User, error)
	SetOnlineStatus(id string, online bool, lastSeen time.Time) error
}

// RequestStore persists and transitions contact requests. Create enforces
// at most one pending row per ordered (from, to) pair, returning
// gorm.ErrDuplicatedKey on a duplicate; Accept must be atomic with the
// creation of both directed contact rows.
type RequestStore interface {
	Create(req *models.ContactRequest) error
	GetByID(id uint) (*models.ContactRequest, error)
	Accept(requestID uint, accepterID, requesterID string) error
	Reject(requestID uint) error
	ListPendingForUser(toID string) ([]models.ContactRequest, error)
}

// ContactStore persists and queries directed contact edges.
type ContactStore interface {
	ListForOwner(ownerID string) ([]models.Contact, error)
	GetByOwnerAndPeer(ownerID, peerID string) (*models.Contact, error)
	DeleteRelationship(ownerID, peerID string) error
	SetVerification(ownerID, peerID string, isVerified bool, safetyNumber string) error
}

// MessageStore persists and queries messages.
type MessageStore interface {
	Create(msg *models.Message) error
	GetByID(id string) (*models.Message, error)
	MarkDelivered(id string) error
	MarkRead(id string) error
	SoftDelete(id string, at time.Time) error
	ListConversation(userID, counterpartID string) ([]models.Message, error)
	ListExpired(now time.Time) ([]models.Message, error)
}
