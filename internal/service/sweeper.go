package service

import (
	"time"

	"whisper-relay/internal/crash"
	"whisper-relay/internal/logger"
)

// Sweeper periodically tombstones self-destructing messages. A message is
// eligible once it has been read, opted into self-destruction, and its
// deadline has elapsed; eligibility is evaluated by the store query so no
// per-message timers exist. One failed sweep never blocks the next.
type Sweeper struct {
	messages MessageStore
	interval time.Duration
	stop     chan struct{}
}

// NewSweeper creates a sweeper with the given interval. A non-positive
// interval would panic the ticker, so it falls back to one minute.
func NewSweeper(messages MessageStore, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		messages: messages,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start launches the sweep loop in a recovered goroutine.
func (s *Sweeper) Start() {
	crash.SafeGoroutine("expiry-sweeper", s.run)
}

// Stop halts the schedule. Safe to call once.
func (s *Sweeper) Stop() {
	close(s.stop)
}

func (s *Sweeper) run() {
	logger.Infof("expiry sweeper started, interval %v", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.SweepOnce(time.Now())
		case <-s.stop:
			logger.Infof("expiry sweeper stopped")
			return
		}
	}
}

// SweepOnce tombstones every currently eligible message. Errors are logged
// and the rest of the batch still runs.
func (s *Sweeper) SweepOnce(now time.Time) {
	msgs, err := s.messages.ListExpired(now)
	if err != nil {
		logger.Warningf("sweep: listing expired messages failed: %v", err)
		return
	}

	for _, msg := range msgs {
		if err := s.messages.SoftDelete(msg.ID, now); err != nil {
			logger.Warningf("sweep: deleting message %s failed: %v", msg.ID, err)
			continue
		}
		logger.Debugf("sweep: message %s self-destructed", msg.ID)
	}

	if len(msgs) > 0 {
		logger.Infof("sweep: retired %d message(s)", len(msgs))
	}
}
