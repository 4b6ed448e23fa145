// Package storagetest provides an in-memory implementation of the service
// store interfaces so service, relay and API tests run without a database.
package storagetest

import (
	"sort"
	"strings"
	"sync"
	"time"

	"whisper-relay/internal/models"

	"gorm.io/gorm"
)

// Store holds all four entity tables behind one mutex so cross-entity
// operations (request accept creating contact rows) stay atomic, the same
// guarantee the real layer gets from a transaction. Misses are reported as
// gorm.ErrRecordNotFound and duplicate pending requests as
// gorm.ErrDuplicatedKey, matching the gorm repositories.
type Store struct {
	mu sync.Mutex

	users    map[string]models.User
	requests map[uint]models.ContactRequest
	contacts map[uint]models.Contact
	messages map[string]models.Message

	nextRequestID uint
	nextContactID uint

	// Error injection for failure-path tests.
	FailMessageCreate error
	FailListExpired   error
}

// New creates an empty store.
func New() *Store {
	return &Store{
		users:         make(map[string]models.User),
		requests:      make(map[uint]models.ContactRequest),
		contacts:      make(map[uint]models.Contact),
		messages:      make(map[string]models.Message),
		nextRequestID: 1,
		nextContactID: 1,
	}
}

// Users returns the user table view.
func (s *Store) Users() *UserTable { return &UserTable{s} }

// Requests returns the contact-request table view.
func (s *Store) Requests() *RequestTable { return &RequestTable{s} }

// Contacts returns the contact table view.
func (s *Store) Contacts() *ContactTable { return &ContactTable{s} }

// Messages returns the message table view.
func (s *Store) Messages() *MessageTable { return &MessageTable{s} }

// UserTable implements service.UserStore and presence.UserStatusStore.
type UserTable struct{ s *Store }

func (t *UserTable) Create(user *models.User) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	t.s.users[user.ID] = *user
	return nil
}

func (t *UserTable) GetByID(id string) (*models.User, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	u, ok := t.s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (t *UserTable) GetByHandle(handle string) (*models.User, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, u := range t.s.users {
		if u.Handle == handle {
			u := u
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (t *UserTable) GetByPairingCode(code string) (*models.User, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, u := range t.s.users {
		if strings.EqualFold(u.PairingCode, code) {
			u := u
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (t *UserTable) SetOnlineStatus(id string, online bool, lastSeen time.Time) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	u, ok := t.s.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.IsOnline = online
	u.LastSeen = lastSeen
	t.s.users[id] = u
	return nil
}

// RequestTable implements service.RequestStore.
type RequestTable struct{ s *Store }

func (t *RequestTable) Create(req *models.ContactRequest) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, r := range t.s.requests {
		if r.FromUserID == req.FromUserID && r.ToUserID == req.ToUserID && r.Status == models.RequestPending {
			return gorm.ErrDuplicatedKey
		}
	}
	req.ID = t.s.nextRequestID
	t.s.nextRequestID++
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}
	t.s.requests[req.ID] = *req
	return nil
}

func (t *RequestTable) GetByID(id uint) (*models.ContactRequest, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	r, ok := t.s.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &r, nil
}

func (t *RequestTable) Accept(requestID uint, accepterID, requesterID string) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	r, ok := t.s.requests[requestID]
	if !ok || r.Status != models.RequestPending {
		return gorm.ErrRecordNotFound
	}
	now := time.Now()
	r.Status = models.RequestAccepted
	r.RespondedAt = &now
	t.s.requests[requestID] = r

	for _, pair := range [][2]string{{accepterID, requesterID}, {requesterID, accepterID}} {
		c := models.Contact{
			ID:        t.s.nextContactID,
			OwnerID:   pair[0],
			PeerID:    pair[1],
			Status:    models.ContactAccepted,
			CreatedAt: now,
		}
		t.s.nextContactID++
		t.s.contacts[c.ID] = c
	}
	return nil
}

func (t *RequestTable) Reject(requestID uint) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	r, ok := t.s.requests[requestID]
	if !ok || r.Status != models.RequestPending {
		return gorm.ErrRecordNotFound
	}
	now := time.Now()
	r.Status = models.RequestRejected
	r.RespondedAt = &now
	t.s.requests[requestID] = r
	return nil
}

func (t *RequestTable) ListPendingForUser(toID string) ([]models.ContactRequest, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	var out []models.ContactRequest
	for _, r := range t.s.requests {
		if r.ToUserID == toID && r.Status == models.RequestPending {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ContactTable implements service.ContactStore.
type ContactTable struct{ s *Store }

func (t *ContactTable) ListForOwner(ownerID string) ([]models.Contact, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	var out []models.Contact
	for _, c := range t.s.contacts {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *ContactTable) GetByOwnerAndPeer(ownerID, peerID string) (*models.Contact, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, c := range t.s.contacts {
		if c.OwnerID == ownerID && c.PeerID == peerID {
			c := c
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (t *ContactTable) DeleteRelationship(ownerID, peerID string) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for id, c := range t.s.contacts {
		if (c.OwnerID == ownerID && c.PeerID == peerID) || (c.OwnerID == peerID && c.PeerID == ownerID) {
			delete(t.s.contacts, id)
		}
	}
	return nil
}

func (t *ContactTable) SetVerification(ownerID, peerID string, isVerified bool, safetyNumber string) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for id, c := range t.s.contacts {
		if c.OwnerID == ownerID && c.PeerID == peerID {
			c.IsVerified = isVerified
			c.SafetyNumber = safetyNumber
			t.s.contacts[id] = c
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// MessageTable implements service.MessageStore.
type MessageTable struct{ s *Store }

func (t *MessageTable) Create(msg *models.Message) error {
	if t.s.FailMessageCreate != nil {
		return t.s.FailMessageCreate
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	t.s.messages[msg.ID] = *msg
	return nil
}

func (t *MessageTable) GetByID(id string) (*models.Message, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	m, ok := t.s.messages[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &m, nil
}

func (t *MessageTable) MarkDelivered(id string) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	m, ok := t.s.messages[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	m.IsDelivered = true
	t.s.messages[id] = m
	return nil
}

func (t *MessageTable) MarkRead(id string) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	m, ok := t.s.messages[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	m.IsRead = true
	t.s.messages[id] = m
	return nil
}

func (t *MessageTable) SoftDelete(id string, at time.Time) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	m, ok := t.s.messages[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if m.DeletedAt == nil {
		m.DeletedAt = &at
		t.s.messages[id] = m
	}
	return nil
}

func (t *MessageTable) ListConversation(userID, counterpartID string) ([]models.Message, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	var out []models.Message
	for _, m := range t.s.messages {
		if m.DeletedAt != nil {
			continue
		}
		if (m.SenderID == userID && m.RecipientID == counterpartID) ||
			(m.SenderID == counterpartID && m.RecipientID == userID) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (t *MessageTable) ListExpired(now time.Time) ([]models.Message, error) {
	if t.s.FailListExpired != nil {
		return nil, t.s.FailListExpired
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	var out []models.Message
	for _, m := range t.s.messages {
		if m.DeletedAt == nil && m.IsRead && m.SelfDestructAt != nil && !m.SelfDestructAt.After(now) {
			out = append(out, m)
		}
	}
	return out, nil
}
