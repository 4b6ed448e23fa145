// Package presence tracks which users currently hold a live transport
// session and fans presence transitions out to every connected session.
package presence

import (
	"sync"
	"time"

	"whisper-relay/internal/logger"
)

// Session is one live transport connection. Implementations must be safe
// for concurrent Send calls.
type Session interface {
	ID() string
	Send(event string, payload interface{}) error
}

// EventUserStatus is broadcast on every online/offline transition.
const EventUserStatus = "user-status"

// StatusUpdate is the user-status payload.
type StatusUpdate struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

// UserStatusStore persists presence transitions.
type UserStatusStore interface {
	SetOnlineStatus(userID string, online bool, lastSeen time.Time) error
}

// Directory is the single source of truth for "is this user reachable".
// It maps a user id to its live session and is safe for concurrent use.
type Directory struct {
	mu       sync.RWMutex
	sessions map[string]Session

	broadcaster *Broadcaster
	store       UserStatusStore
}

// NewDirectory creates an empty directory.
func NewDirectory(broadcaster *Broadcaster, store UserStatusStore) *Directory {
	return &Directory{
		sessions:    make(map[string]Session),
		broadcaster: broadcaster,
		store:       store,
	}
}

// SetOnline records or overwrites the mapping for a user. Idempotent under
// reconnect: a newer session simply replaces the older one. The in-memory
// update and the broadcast happen before the store write, so presence
// visibility is never gated on store latency; a failed store write is
// logged and not rolled back.
func (d *Directory) SetOnline(userID string, sess Session) {
	d.mu.Lock()
	d.sessions[userID] = sess
	d.mu.Unlock()

	logger.Infof("presence: user %s online (session %s)", userID, sess.ID())
	d.broadcaster.Publish(EventUserStatus, StatusUpdate{UserID: userID, IsOnline: true})

	if err := d.store.SetOnlineStatus(userID, true, time.Now()); err != nil {
		logger.Warningf("presence: failed to persist online status for %s: %v", userID, err)
	}
}

// Get returns the live session for a user, if any.
func (d *Directory) Get(userID string) (Session, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	sess, ok := d.sessions[userID]
	return sess, ok
}

// Clear removes the entry whose session matches. The disconnect event only
// carries the transport session, so this is a scan over current entries;
// the directory is small enough that O(n) is fine. If the user already
// reconnected with a different session the stale clear is a no-op, which
// keeps the offline transition exactly-once under concurrent reconnects.
func (d *Directory) Clear(sess Session) (string, bool) {
	d.mu.Lock()
	var userID string
	found := false
	for id, s := range d.sessions {
		if s.ID() == sess.ID() {
			userID = id
			found = true
			break
		}
	}
	if found {
		delete(d.sessions, userID)
	}
	d.mu.Unlock()

	if !found {
		return "", false
	}

	logger.Infof("presence: user %s offline (session %s)", userID, sess.ID())
	d.broadcaster.Publish(EventUserStatus, StatusUpdate{UserID: userID, IsOnline: false})

	if err := d.store.SetOnlineStatus(userID, false, time.Now()); err != nil {
		logger.Warningf("presence: failed to persist offline status for %s: %v", userID, err)
	}

	return userID, true
}
