package models

import "time"

// User is a registered identity. The relay never sees private keys; the
// public key material is stored verbatim so peers can fetch it when a
// contact is established.
type User struct {
	ID           string    `gorm:"primaryKey;type:char(36)" json:"id"`
	Handle       string    `gorm:"uniqueIndex;size:64;not null" json:"handle"`
	PublicKey    string    `gorm:"type:text" json:"publicKey"`
	IdentityKey  string    `gorm:"type:text" json:"identityKey"`
	SignedPreKey string    `gorm:"type:text" json:"signedPreKey"`
	PairingCode  string    `gorm:"uniqueIndex;size:8;not null" json:"pairingCode"`
	IsOnline     bool      `gorm:"default:false" json:"isOnline"`
	LastSeen     time.Time `json:"lastSeen"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"-"`
}

// Profile is the subset of User shared with other clients.
type Profile struct {
	ID           string `json:"id"`
	Handle       string `json:"handle"`
	PublicKey    string `json:"publicKey"`
	IdentityKey  string `json:"identityKey"`
	SignedPreKey string `json:"signedPreKey"`
	IsOnline     bool   `json:"isOnline"`
}

// PublicProfile strips the fields not meant for other users.
func (u *User) PublicProfile() Profile {
	return Profile{
		ID:           u.ID,
		Handle:       u.Handle,
		PublicKey:    u.PublicKey,
		IdentityKey:  u.IdentityKey,
		SignedPreKey: u.SignedPreKey,
		IsOnline:     u.IsOnline,
	}
}
