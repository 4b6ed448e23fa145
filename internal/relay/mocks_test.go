package relay

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"whisper-relay/internal/presence"
	"whisper-relay/internal/protocol"
	"whisper-relay/internal/service"
	"whisper-relay/internal/storage/storagetest"
)

type sentEvent struct {
	Event   string
	Payload interface{}
	Raw     json.RawMessage
}

// mockSession records every Send for assertions. Payloads are marshaled the
// way wsSession.Send marshals them, so tests can assert on the actual wire
// bytes and not just the in-memory value.
type mockSession struct {
	id string

	mu     sync.Mutex
	events []sentEvent
}

func newMockSession(id string) *mockSession {
	return &mockSession{id: id}
}

func (m *mockSession) ID() string { return m.id }

func (m *mockSession) Send(event string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, sentEvent{Event: event, Payload: payload, Raw: raw})
	return nil
}

func (m *mockSession) sent() []sentEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sentEvent, len(m.events))
	copy(out, m.events)
	return out
}

// sentOfType filters recorded events by type.
func (m *mockSession) sentOfType(event string) []sentEvent {
	var out []sentEvent
	for _, e := range m.sent() {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	store       *storagetest.Store
	broadcaster *presence.Broadcaster
	directory   *presence.Directory
	svcs        *service.Services
	handler     *Handler
	sessionSeq  int
}

func newFixture() *fixture {
	store := storagetest.New()
	broadcaster := presence.NewBroadcaster()
	dir := presence.NewDirectory(broadcaster, store.Users())

	svcs := &service.Services{
		Users:    service.NewUserService(store.Users()),
		Contacts: service.NewContactService(store.Users(), store.Requests(), store.Contacts(), dir),
		Messages: service.NewMessageService(store.Messages(), dir),
		Presence: dir,
	}

	return &fixture{
		store:       store,
		broadcaster: broadcaster,
		directory:   dir,
		svcs:        svcs,
		handler:     NewHandler(svcs, broadcaster),
	}
}

// connect subscribes a session and announces the user, mirroring the
// server's connect path followed by announce-online.
func (f *fixture) connect(t *testing.T, userID string) *mockSession {
	t.Helper()
	f.sessionSeq++
	sess := newMockSession(fmt.Sprintf("%s-sess-%d", userID, f.sessionSeq))
	f.broadcaster.Subscribe(sess)
	f.handler.HandleEvent(sess, envelope(t, protocol.EventAnnounceOnline, protocol.AnnounceOnline{UserID: userID}))
	return sess
}

func envelope(t *testing.T, event string, payload interface{}) protocol.Envelope {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return protocol.Envelope{Type: event, Payload: data}
}
