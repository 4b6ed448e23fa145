package service

import (
	"sync"
	"time"

	"whisper-relay/internal/presence"
)

type sentEvent struct {
	Event   string
	Payload interface{}
}

// mockSession records every Send for assertions and can be made to fail.
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

// nullStatusStore satisfies presence.UserStatusStore for tests that do not
// care about persisted presence.
type nullStatusStore struct{}

func (nullStatusStore) SetOnlineStatus(string, bool, time.Time) error { return nil }

func newTestDirectory() (*presence.Directory, *presence.Broadcaster) {
	b := presence.NewBroadcaster()
	return presence.NewDirectory(b, nullStatusStore{}), b
}
