package purifier

import (
	"context"
	"sync"
	"time"
)

// session is the per-device aggregate. All mutable polling state lives
// here, scoped to one device: a session's failures never touch another's.
type session struct {
	cfg DeviceConfig

	// ctx is cancelled when the session is torn down, aborting any
	// in-flight gateway call.
	ctx    context.Context
	cancel context.CancelFunc

	// gate serialises gateway calls for this device. Capacity 1: holding
	// a token is the only way to talk to the device.
	gate chan struct{}

	// stop ends the poll loop; done closes when it has exited.
	stop chan struct{}
	done chan struct{}

	// resume wakes a suspended poll loop after a successful probe.
	resume chan struct{}

	mu                sync.Mutex
	lastKnown         StatusSnapshot
	exposed           StatusSnapshot
	consecutiveErrors int
	suspended         bool
	lastSuccess       time.Time
	lastError         string
	polls             uint64
	failures          uint64
}

func newSession(parent context.Context, cfg DeviceConfig, now time.Time) *session {
	ctx, cancel := context.WithCancel(parent)
	initial := SafeDefault(now)
	return &session{
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
		gate:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		resume:    make(chan struct{}, 1),
		lastKnown: initial,
		exposed:   initial,
	}
}

// snapshot returns a copy of the currently exposed snapshot.
func (s *session) snapshot() StatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exposed.Clone()
}

func (s *session) isSuspended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suspended
}

// info returns a point-in-time view of the session for health reporting.
func (s *session) info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionInfo{
		DeviceID:          s.cfg.ID,
		Name:              s.cfg.Name,
		Address:           s.cfg.Address,
		Transport:         s.cfg.Transport,
		PollInterval:      s.cfg.PollInterval,
		ConsecutiveErrors: s.consecutiveErrors,
		PollingSuspended:  s.suspended,
		InFlight:          len(s.gate) > 0,
		LastSuccess:       s.lastSuccess,
		LastError:         s.lastError,
	}
}

// teardown cancels in-flight work, stops the poll loop and waits for it
// to exit. No callback fires for this session afterwards.
func (s *session) teardown() {
	s.cancel()
	close(s.stop)
	<-s.done
}
