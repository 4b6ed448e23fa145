package models

import "time"

// Message carries an opaque ciphertext blob between two users. The relay
// never decrypts; IsEncrypted records whether the client encrypted at all
// (plaintext mode is tolerated). DeletedAt is a soft-delete tombstone
// managed explicitly, never cleared once set.
type Message struct {
	ID                  string     `gorm:"primaryKey;type:char(36)" json:"id"`
	SenderID            string     `gorm:"index;type:char(36);not null" json:"senderId"`
	RecipientID         string     `gorm:"index;type:char(36);not null" json:"recipientId"`
	Ciphertext          string     `gorm:"type:mediumtext" json:"ciphertext"`
	Nonce               string     `gorm:"size:64" json:"nonce"`
	IsEncrypted         bool       `gorm:"default:true" json:"isEncrypted"`
	IsDelivered         bool       `gorm:"default:false" json:"isDelivered"`
	IsRead              bool       `gorm:"default:false" json:"isRead"`
	SelfDestructSeconds *int       `json:"selfDestructSeconds,omitempty"`
	SelfDestructAt      *time.Time `gorm:"index" json:"selfDestructAt,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	DeletedAt           *time.Time `gorm:"index" json:"-"`
}
