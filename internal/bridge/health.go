package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/airlink-home/airlink-core/internal/infrastructure/mqtt"
	"github.com/airlink-home/airlink-core/internal/purifier"
)

// defaultHealthInterval is how often health is published when no
// interval is configured.
const defaultHealthInterval = 30 * time.Second

// HealthReporter publishes periodic bridge health to MQTT. The message
// aggregates engine stats: device count, suspended sessions, poll and
// failure totals.
type HealthReporter struct {
	bridgeID  string
	version   string
	startTime time.Time
	interval  time.Duration
	publisher HealthPublisher
	engine    StatsSource
	topics    mqtt.Topics

	// Shutdown coordination
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// HealthPublisher is the interface for publishing health messages.
// This is typically implemented by an MQTT client.
type HealthPublisher interface {
	// Publish sends a message to a topic with the specified QoS and retention.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// IsConnected returns true if the publisher is connected.
	IsConnected() bool
}

// StatsSource provides the session stats included in health messages.
type StatsSource interface {
	Stats() purifier.Stats
	Sessions() []purifier.SessionInfo
}

// HealthReporterConfig holds configuration for the health reporter.
type HealthReporterConfig struct {
	// BridgeID is the bridge identifier for health messages.
	BridgeID string

	// Version is the bridge software version.
	Version string

	// Interval is how often to publish health status.
	// Default: 30 seconds.
	Interval time.Duration

	// Publisher is the MQTT client for publishing messages.
	Publisher HealthPublisher

	// Engine provides session statistics.
	Engine StatsSource
}

// NewHealthReporter creates a new health reporter.
// Call Start to begin reporting.
func NewHealthReporter(cfg HealthReporterConfig) *HealthReporter {
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultHealthInterval
	}

	return &HealthReporter{
		bridgeID:  cfg.BridgeID,
		version:   cfg.Version,
		startTime: time.Now(),
		interval:  interval,
		publisher: cfg.Publisher,
		engine:    cfg.Engine,
		done:      make(chan struct{}),
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for this reporter.
func (h *HealthReporter) SetLogger(logger Logger) {
	h.loggerMu.Lock()
	h.logger = logger
	h.loggerMu.Unlock()
}

// Start begins periodic health reporting. An initial "starting" status is
// published immediately, then a full report every interval.
func (h *HealthReporter) Start(ctx context.Context) {
	if err := h.publishStatus(StatusStarting, ""); err != nil {
		h.log().Warn("publishing starting status failed", "error", err)
	}

	h.wg.Add(1)
	go h.reportLoop(ctx)
}

// Stop gracefully stops health reporting.
// Publishes a final "stopping" status before returning.
// Safe to call multiple times.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()

		// Best-effort during shutdown, nothing we can do if it fails.
		_ = h.publishStatus(StatusStopping, "")
	})
}

// PublishNow publishes a health report immediately.
func (h *HealthReporter) PublishNow() error {
	status, reason := h.currentStatus()
	return h.publishStatus(status, reason)
}

// reportLoop publishes health at the configured interval.
func (h *HealthReporter) reportLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.PublishNow(); err != nil {
				h.log().Warn("publishing health failed", "error", err)
			}
		}
	}
}

// currentStatus derives the bridge status from session health.
func (h *HealthReporter) currentStatus() (BridgeStatus, string) {
	stats := h.engine.Stats()
	if stats.Suspended > 0 {
		return StatusDegraded, fmt.Sprintf("%d of %d devices suspended", stats.Suspended, stats.Devices)
	}
	return StatusHealthy, ""
}

// publishStatus builds and publishes one health message.
func (h *HealthReporter) publishStatus(status BridgeStatus, reason string) error {
	if !h.publisher.IsConnected() {
		return fmt.Errorf("bridge: publisher not connected")
	}

	stats := h.engine.Stats()
	msg := HealthMessage{
		Bridge:           h.bridgeID,
		Timestamp:        time.Now().UTC(),
		Status:           status,
		Version:          h.version,
		UptimeSeconds:    int64(time.Since(h.startTime).Seconds()),
		DevicesManaged:   stats.Devices,
		DevicesSuspended: stats.Suspended,
		TotalPolls:       stats.TotalPolls,
		TotalFailures:    stats.TotalFailures,
		Reason:           reason,
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshalling health message: %w", err)
	}

	return h.publisher.Publish(h.topics.BridgeHealth(), payload, 1, true)
}

func (h *HealthReporter) log() Logger {
	h.loggerMu.RLock()
	defer h.loggerMu.RUnlock()
	return h.logger
}
