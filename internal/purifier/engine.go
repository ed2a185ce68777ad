package purifier

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/airlink-home/airlink-core/internal/gateway"
	"github.com/airlink-home/airlink-core/internal/retry"
)

// Raw field names the set script accepts.
const (
	fieldPower    = "pwr"
	fieldMode     = "mode"
	fieldFanSpeed = "om"
)

// suspendThreshold is the number of consecutive failed poll cycles after
// which a device with DisablePollingOnError set stops being polled.
const suspendThreshold = 3

// CommandGateway is the engine's view of the script gateway.
type CommandGateway interface {
	FetchStatus(ctx context.Context, address, transport string, timeout time.Duration) (*gateway.RawStatus, error)
	SetValue(ctx context.Context, address, transport, field, value string, timeout time.Duration) error
}

// Logger defines the logging interface for the engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// StatusFunc is called with every new snapshot a session installs.
type StatusFunc func(deviceID string, snap StatusSnapshot)

// Engine owns one session per registered device: it schedules polls,
// retries failed gateway calls, suspends broken devices and serves the
// normalized snapshots.
//
// Reads never fail past registration: an unreachable device presents its
// safe-default snapshot. Writes do propagate failure to the caller.
type Engine struct {
	gw       CommandGateway
	logger   Logger
	repo     Repository
	sleep    retry.SleepFunc
	now      func() time.Time
	onStatus StatusFunc

	baseCtx    context.Context
	cancelBase context.CancelFunc

	mu       sync.RWMutex
	sessions map[string]*session
	closed   bool
}

// NewEngine creates an engine using the given gateway. Logging is a noop
// and persistence is disabled until configured.
func NewEngine(gw CommandGateway) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		gw:         gw,
		logger:     noopLogger{},
		sleep:      retry.Sleep,
		now:        time.Now,
		baseCtx:    ctx,
		cancelBase: cancel,
		sessions:   make(map[string]*session),
	}
}

// SetLogger sets the logger for the engine.
func (e *Engine) SetLogger(logger Logger) {
	e.logger = logger
}

// SetRepository enables persistence of registrations and snapshots.
// Must be called before the first registration.
func (e *Engine) SetRepository(repo Repository) {
	e.repo = repo
}

// OnStatus registers a callback invoked with every newly installed
// snapshot. Must be set before the first registration; the callback runs
// on the calling session's goroutine and must not block.
func (e *Engine) OnStatus(fn StatusFunc) {
	e.onStatus = fn
}

// RegisterDevice validates the config, creates the device's session and
// starts its poll loop. Returns the device ID (generated when empty).
func (e *Engine) RegisterDevice(ctx context.Context, cfg DeviceConfig) (string, error) {
	if err := cfg.validate(); err != nil {
		return "", err
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return "", ErrEngineClosed
	}
	if _, exists := e.sessions[cfg.ID]; exists {
		e.mu.Unlock()
		return "", fmt.Errorf("%w: id %s", ErrAlreadyRegistered, cfg.ID)
	}
	for _, s := range e.sessions {
		if s.cfg.Address == cfg.Address {
			e.mu.Unlock()
			return "", fmt.Errorf("%w: address %s", ErrAlreadyRegistered, cfg.Address)
		}
	}

	s := newSession(e.baseCtx, cfg, e.now())
	e.sessions[cfg.ID] = s
	e.mu.Unlock()

	if e.repo != nil {
		if err := e.repo.Create(ctx, &cfg); err != nil && !errors.Is(err, ErrAlreadyRegistered) {
			e.mu.Lock()
			delete(e.sessions, cfg.ID)
			e.mu.Unlock()
			s.cancel()
			return "", fmt.Errorf("persisting device %s: %w", cfg.ID, err)
		}
	}

	e.logger.Info("device registered",
		"device_id", cfg.ID,
		"name", cfg.Name,
		"address", cfg.Address,
		"transport", cfg.Transport,
		"poll_interval", cfg.PollInterval,
	)

	go e.runSession(s)

	return cfg.ID, nil
}

// DeregisterDevice stops the device's poll loop and removes its session.
// It blocks until the loop has exited: no timer fires and no callback
// runs for this device afterwards.
func (e *Engine) DeregisterDevice(ctx context.Context, id string) error {
	e.mu.Lock()
	s, ok := e.sessions[id]
	if !ok {
		e.mu.Unlock()
		return ErrNotFound
	}
	delete(e.sessions, id)
	e.mu.Unlock()

	s.teardown()

	if e.repo != nil {
		if err := e.repo.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
			e.logger.Warn("removing persisted device failed", "device_id", id, "error", err)
		}
	}

	e.logger.Info("device deregistered", "device_id", id)
	return nil
}

// GetSnapshot returns the device's current snapshot. With forceRefresh it
// probes the device first; without, it serves the cached value. The only
// possible error is an unknown device ID.
func (e *Engine) GetSnapshot(ctx context.Context, id string, forceRefresh bool) (StatusSnapshot, error) {
	s, err := e.session(id)
	if err != nil {
		return StatusSnapshot{}, err
	}
	if !forceRefresh {
		return s.snapshot(), nil
	}
	return e.refresh(ctx, s), nil
}

// Refresh probes the device immediately and returns the resulting
// snapshot. The probe works while polling is suspended and is the only
// path back to active polling for a suspended device.
func (e *Engine) Refresh(ctx context.Context, id string) (StatusSnapshot, error) {
	s, err := e.session(id)
	if err != nil {
		return StatusSnapshot{}, err
	}
	return e.refresh(ctx, s), nil
}

// SetPower turns the device on or off.
func (e *Engine) SetPower(ctx context.Context, id string, on bool) error {
	s, err := e.session(id)
	if err != nil {
		return err
	}
	value := "0"
	if on {
		value = "1"
	}
	if err := e.setValue(ctx, s, fieldPower, value); err != nil {
		return err
	}
	e.refresh(ctx, s)
	return nil
}

// SetMode switches the device's operating mode.
func (e *Engine) SetMode(ctx context.Context, id string, mode Mode) error {
	s, err := e.session(id)
	if err != nil {
		return err
	}

	var value string
	switch mode {
	case ModeAuto:
		value = "A"
	case ModeManual:
		value = "M"
	case ModeSleep:
		value = "S"
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	if err := e.setValue(ctx, s, fieldMode, value); err != nil {
		return err
	}
	e.refresh(ctx, s)
	return nil
}

// SetFanPercent sets the fan speed as a percentage. 0 powers the device
// off; anything else selects the nearest manual step.
func (e *Engine) SetFanPercent(ctx context.Context, id string, percent int) error {
	if percent < 0 || percent > maxFanPercent {
		return fmt.Errorf("%w: %d", ErrInvalidFanPercent, percent)
	}
	if percent == 0 {
		return e.SetPower(ctx, id, false)
	}

	s, err := e.session(id)
	if err != nil {
		return err
	}

	var step string
	switch {
	case percent <= 33:
		step = "1"
	case percent <= 67:
		step = "2"
	default:
		step = "3"
	}

	if err := e.setValue(ctx, s, fieldFanSpeed, step); err != nil {
		return err
	}
	e.refresh(ctx, s)
	return nil
}

// SessionInfo returns health details for one device session.
func (e *Engine) SessionInfo(id string) (SessionInfo, error) {
	s, err := e.session(id)
	if err != nil {
		return SessionInfo{}, err
	}
	return s.info(), nil
}

// Sessions returns health details for every session, sorted by name.
func (e *Engine) Sessions() []SessionInfo {
	e.mu.RLock()
	sessions := make([]*session, 0, len(e.sessions))
	for _, s := range e.sessions {
		sessions = append(sessions, s)
	}
	e.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Stats aggregates counters across all sessions.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	sessions := make([]*session, 0, len(e.sessions))
	for _, s := range e.sessions {
		sessions = append(sessions, s)
	}
	e.mu.RUnlock()

	stats := Stats{Devices: len(sessions)}
	for _, s := range sessions {
		s.mu.Lock()
		if s.suspended {
			stats.Suspended++
		}
		stats.TotalPolls += s.polls
		stats.TotalFailures += s.failures
		s.mu.Unlock()
	}
	return stats
}

// Close stops every session and rejects further registrations.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	sessions := make([]*session, 0, len(e.sessions))
	for _, s := range e.sessions {
		sessions = append(sessions, s)
	}
	e.sessions = make(map[string]*session)
	e.mu.Unlock()

	e.cancelBase()
	for _, s := range sessions {
		close(s.stop)
		<-s.done
	}

	e.logger.Info("engine closed", "devices", len(sessions))
	return nil
}

// session looks up a registered session by device ID.
func (e *Engine) session(id string) (*session, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// runSession is the per-device poll loop. It performs an initial probe,
// then polls at the configured interval. When the session suspends, the
// ticker is stopped outright; only a successful on-demand probe restarts it.
func (e *Engine) runSession(s *session) {
	defer close(s.done)

	e.refresh(s.ctx, s)

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			e.refresh(s.ctx, s)
		}

		if s.isSuspended() {
			ticker.Stop()

			// A probe may have recovered the session and signalled resume
			// before we got here. Drop any stale token, then re-check: a
			// leftover token must never wake a later park.
			select {
			case <-s.resume:
			default:
			}
			if !s.isSuspended() {
				ticker.Reset(s.cfg.PollInterval)
				continue
			}

			select {
			case <-s.stop:
				return
			case <-s.resume:
				ticker.Reset(s.cfg.PollInterval)
			}
		}
	}
}

// refresh runs one retry-wrapped fetch+normalize cycle and returns the
// resulting snapshot. At most one gateway call per device is ever
// outstanding: if another call holds the gate, the cached snapshot is
// returned immediately.
func (e *Engine) refresh(ctx context.Context, s *session) StatusSnapshot {
	select {
	case s.gate <- struct{}{}:
	default:
		return s.snapshot()
	}
	defer func() { <-s.gate }()

	var raw *gateway.RawStatus
	op := func(ctx context.Context) error {
		r, err := e.gw.FetchStatus(ctx, s.cfg.Address, string(s.cfg.Transport), s.cfg.Timeout)
		if err != nil {
			return err
		}
		raw = r
		return nil
	}

	err := retry.Do(ctx, s.cfg.retries(), retryableFault, e.sleep, op)
	now := e.now()

	// A cancelled caller says nothing about the device. Leave the
	// breaker and the exposed snapshot alone.
	if err != nil && contextAborted(err) {
		return s.snapshot()
	}

	var snap StatusSnapshot
	if err != nil {
		snap = e.recordFailure(s, err, now)
	} else {
		snap = e.recordSuccess(s, raw, now)
	}

	e.persistSnapshot(ctx, s, snap, err == nil)
	if e.onStatus != nil {
		e.onStatus(s.cfg.ID, snap)
	}
	return snap
}

// setValue runs one retry-wrapped write. Writes share the device gate
// with polls; unlike refresh they wait for it rather than bailing out.
func (e *Engine) setValue(ctx context.Context, s *session, field, value string) error {
	select {
	case s.gate <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return ErrEngineClosed
	}
	defer func() { <-s.gate }()

	op := func(ctx context.Context) error {
		return e.gw.SetValue(ctx, s.cfg.Address, string(s.cfg.Transport), field, value, s.cfg.Timeout)
	}

	err := retry.Do(ctx, s.cfg.retries(), retryableFault, e.sleep, op)
	if err != nil {
		e.logger.Warn("write failed",
			"device_id", s.cfg.ID,
			"field", field,
			"value", value,
			"error", err,
		)
		return fmt.Errorf("setting %s on %s: %w", field, s.cfg.ID, err)
	}

	e.logger.Debug("write applied", "device_id", s.cfg.ID, "field", field, "value", value)
	return nil
}

// recordFailure installs the safe default after an exhausted poll cycle.
// The last known live snapshot is kept aside so recovery restores real
// values immediately.
func (e *Engine) recordFailure(s *session, err error, now time.Time) StatusSnapshot {
	s.mu.Lock()
	s.polls++
	s.failures++
	s.consecutiveErrors++
	s.lastError = err.Error()
	s.exposed = SafeDefault(now)
	consecutive := s.consecutiveErrors
	shouldSuspend := s.cfg.DisablePollingOnError && !s.suspended && consecutive >= suspendThreshold
	if shouldSuspend {
		s.suspended = true
	}
	snap := s.exposed.Clone()
	s.mu.Unlock()

	e.logger.Warn("poll failed",
		"device_id", s.cfg.ID,
		"consecutive_errors", consecutive,
		"error", err,
	)
	if shouldSuspend {
		e.logger.Error("polling suspended after repeated failures",
			"device_id", s.cfg.ID,
			"consecutive_errors", consecutive,
		)
	}
	return snap
}

// recordSuccess installs a freshly normalized snapshot and, if the
// session was suspended, wakes its poll loop.
func (e *Engine) recordSuccess(s *session, raw *gateway.RawStatus, now time.Time) StatusSnapshot {
	s.mu.Lock()
	normalized := Normalize(raw, s.lastKnown, now)
	s.polls++
	s.consecutiveErrors = 0
	s.lastError = ""
	s.lastSuccess = now
	s.lastKnown = normalized
	s.exposed = normalized
	wasSuspended := s.suspended
	s.suspended = false
	snap := normalized.Clone()
	s.mu.Unlock()

	if wasSuspended {
		select {
		case s.resume <- struct{}{}:
		default:
		}
		e.logger.Info("polling resumed after successful probe", "device_id", s.cfg.ID)
	}
	return snap
}

// persistSnapshot writes the snapshot and health state through the
// repository, when one is configured. Persistence failures are logged,
// never surfaced: the in-memory session is authoritative.
func (e *Engine) persistSnapshot(ctx context.Context, s *session, snap StatusSnapshot, reachable bool) {
	if e.repo == nil {
		return
	}

	if err := e.repo.UpdateSnapshot(ctx, s.cfg.ID, snap); err != nil {
		e.logger.Warn("persisting snapshot failed", "device_id", s.cfg.ID, "error", err)
	}

	health := HealthOffline
	if reachable {
		health = HealthOnline
	}
	if err := e.repo.UpdateHealth(ctx, s.cfg.ID, health, snap.UpdatedAt); err != nil {
		e.logger.Warn("persisting health failed", "device_id", s.cfg.ID, "error", err)
	}
}

// retryableFault retries only faults the gateway marks transient.
// Context errors and anything that is not a *Fault stop the loop.
func retryableFault(err error) bool {
	var fault *gateway.Fault
	if errors.As(err, &fault) {
		return fault.Retryable()
	}
	return false
}

// contextAborted reports whether err is the caller's context ending
// rather than a device fault. A gateway timeout is a *Fault and is never
// treated as an abort.
func contextAborted(err error) bool {
	var fault *gateway.Fault
	if errors.As(err, &fault) {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
