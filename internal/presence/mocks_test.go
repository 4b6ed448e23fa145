package presence

import (
	"sync"
	"time"
)

type sentEvent struct {
	Event   string
	Payload interface{}
}

// mockSession records every Send for assertions.
type mockSession struct {
	id string

	mu     sync.Mutex
	events []sentEvent
	fail   error
}

func newMockSession(id string) *mockSession {
	return &mockSession{id: id}
}

func (m *mockSession) ID() string { return m.id }

func (m *mockSession) Send(event string, payload interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.events = append(m.events, sentEvent{Event: event, Payload: payload})
	return nil
}

func (m *mockSession) sent() []sentEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sentEvent, len(m.events))
	copy(out, m.events)
	return out
}

// mockStatusStore records presence writes and can be made to fail.
type mockStatusStore struct {
	mu      sync.Mutex
	writes  []statusWrite
	failErr error
}

type statusWrite struct {
	UserID   string
	Online   bool
	LastSeen time.Time
}

func (m *mockStatusStore) SetOnlineStatus(userID string, online bool, lastSeen time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.writes = append(m.writes, statusWrite{UserID: userID, Online: online, LastSeen: lastSeen})
	return nil
}

func (m *mockStatusStore) recorded() []statusWrite {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]statusWrite, len(m.writes))
	copy(out, m.writes)
	return out
}
