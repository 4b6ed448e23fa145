package models

import "time"

// Contact statuses.
const (
	ContactPending  = "pending"
	ContactAccepted = "accepted"
)

// Contact is a directed edge from the owning user to a peer. Accepted
// relationships are stored as two rows, one per direction, so "my contacts"
// is a single directed lookup. Verification is local to the owning
// direction and is not mirrored on the peer's row.
type Contact struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerID      string    `gorm:"index:idx_owner_peer,unique;type:char(36);not null" json:"ownerId"`
	PeerID       string    `gorm:"index:idx_owner_peer,unique;type:char(36);not null" json:"peerId"`
	Status       string    `gorm:"size:16;default:pending" json:"status"`
	IsVerified   bool      `gorm:"default:false" json:"isVerified"`
	SafetyNumber string    `gorm:"size:128" json:"safetyNumber"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"-"`
}
