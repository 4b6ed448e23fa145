package presence

import (
	"sync"

	"whisper-relay/internal/logger"
)

// Broadcaster fans an event out to every subscribed session. Sessions
// subscribe when their connection opens and unsubscribe when it closes,
// decoupling status fan-out from the directory's internal structure.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]Session
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subscribers: make(map[string]Session)}
}

// Subscribe registers a session for broadcasts.
func (b *Broadcaster) Subscribe(sess Session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[sess.ID()] = sess
}

// Unsubscribe removes a session. Safe to call for a session that was never
// subscribed.
func (b *Broadcaster) Unsubscribe(sess Session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, sess.ID())
}

// Publish sends the event to every subscriber. A slow or dead subscriber
// only loses its own copy.
func (b *Broadcaster) Publish(event string, payload interface{}) {
	b.mu.RLock()
	subs := make([]Session, 0, len(b.subscribers))
	for _, s := range b.subscribers {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.Send(event, payload); err != nil {
			logger.Debugf("broadcast: dropping %s for session %s: %v", event, s.ID(), err)
		}
	}
}
