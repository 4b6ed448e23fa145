package models

import "time"

// ContactRequest statuses. Accept/reject are one-way and terminal.
const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
	RequestRejected = "rejected"
)

// ContactRequest is a directed handshake from one user to another. At most
// one pending row may exist per ordered (from, to) pair.
type ContactRequest struct {
	ID          uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	FromUserID  string     `gorm:"index:idx_from_to;type:char(36);not null" json:"fromUserId"`
	ToUserID    string     `gorm:"index:idx_from_to;type:char(36);not null" json:"toUserId"`
	Status      string     `gorm:"size:16;default:pending" json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	RespondedAt *time.Time `json:"respondedAt,omitempty"`
}
