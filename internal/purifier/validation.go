package purifier

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Configuration bounds and defaults applied at registration.
const (
	// MinPollInterval is the floor for per-device poll intervals.
	MinPollInterval = 5 * time.Second

	// DefaultPollInterval is used when no interval is configured.
	DefaultPollInterval = 30 * time.Second

	// DefaultTimeout bounds each gateway call when none is configured.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the extra attempt budget when none is configured.
	DefaultMaxRetries = 2

	// maxFanPercent is the upper bound for SetFanPercent.
	maxFanPercent = 100
)

// validate checks a device config and applies documented defaults to zero
// values. Out-of-range values are errors, never silently clamped: a config
// is either accepted as-is at registration time or rejected.
func (c *DeviceConfig) validate() error {
	if c.Address == "" {
		return fmt.Errorf("%w: address is required", ErrInvalidConfig)
	}

	switch c.Transport {
	case TransportCoAP, TransportCoAPS:
	case "":
		c.Transport = TransportCoAP
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTransport, c.Transport)
	}

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Name == "" {
		c.Name = c.Address
	}

	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.PollInterval < MinPollInterval {
		return fmt.Errorf("%w: poll interval %s below minimum %s",
			ErrInvalidConfig, c.PollInterval, MinPollInterval)
	}

	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout", ErrInvalidConfig)
	}

	if c.MaxRetries == nil {
		n := DefaultMaxRetries
		c.MaxRetries = &n
	}
	if *c.MaxRetries < 0 {
		return fmt.Errorf("%w: negative max retries", ErrInvalidConfig)
	}

	return nil
}

// retries returns the resolved extra attempt budget.
func (c *DeviceConfig) retries() int {
	if c.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return *c.MaxRetries
}
