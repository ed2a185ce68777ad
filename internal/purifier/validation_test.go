package purifier

import (
	"errors"
	"testing"
	"time"
)

func TestDeviceConfig_Validate_Defaults(t *testing.T) {
	cfg := DeviceConfig{Address: "192.168.1.50"}

	if err := cfg.validate(); err != nil {
		t.Fatalf("validate() error = %v", err)
	}

	if cfg.ID == "" {
		t.Error("ID not generated")
	}
	if cfg.Name != "192.168.1.50" {
		t.Errorf("Name = %q, want address fallback", cfg.Name)
	}
	if cfg.Transport != TransportCoAP {
		t.Errorf("Transport = %v, want %v", cfg.Transport, TransportCoAP)
	}
	if cfg.PollInterval != DefaultPollInterval {
		t.Errorf("PollInterval = %v, want %v", cfg.PollInterval, DefaultPollInterval)
	}
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", cfg.Timeout, DefaultTimeout)
	}
	if cfg.retries() != DefaultMaxRetries {
		t.Errorf("retries() = %d, want %d", cfg.retries(), DefaultMaxRetries)
	}
}

func TestDeviceConfig_Validate(t *testing.T) {
	negative := -1
	zero := 0

	tests := []struct {
		name    string
		cfg     DeviceConfig
		wantErr error
	}{
		{
			name: "valid full config",
			cfg: DeviceConfig{
				ID:           "living-room",
				Name:         "Living Room",
				Address:      "192.168.1.50",
				Transport:    TransportCoAPS,
				PollInterval: 10 * time.Second,
				Timeout:      15 * time.Second,
				MaxRetries:   &zero,
			},
		},
		{
			name:    "missing address",
			cfg:     DeviceConfig{},
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "unknown transport",
			cfg:     DeviceConfig{Address: "192.168.1.50", Transport: "http"},
			wantErr: ErrInvalidTransport,
		},
		{
			name:    "poll interval below floor",
			cfg:     DeviceConfig{Address: "192.168.1.50", PollInterval: 2 * time.Second},
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "poll interval at floor",
			cfg:     DeviceConfig{Address: "192.168.1.50", PollInterval: MinPollInterval},
			wantErr: nil,
		},
		{
			name:    "negative timeout",
			cfg:     DeviceConfig{Address: "192.168.1.50", Timeout: -time.Second},
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "negative max retries",
			cfg:     DeviceConfig{Address: "192.168.1.50", MaxRetries: &negative},
			wantErr: ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDeviceConfig_Validate_ExplicitValuesKept(t *testing.T) {
	one := 1
	cfg := DeviceConfig{
		ID:           "bedroom",
		Address:      "192.168.1.60",
		Transport:    TransportCoAPS,
		PollInterval: time.Minute,
		Timeout:      5 * time.Second,
		MaxRetries:   &one,
	}

	if err := cfg.validate(); err != nil {
		t.Fatalf("validate() error = %v", err)
	}

	if cfg.ID != "bedroom" {
		t.Errorf("ID = %q, want bedroom", cfg.ID)
	}
	if cfg.PollInterval != time.Minute {
		t.Errorf("PollInterval = %v, want 1m", cfg.PollInterval)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Timeout)
	}
	if cfg.retries() != 1 {
		t.Errorf("retries() = %d, want 1", cfg.retries())
	}
}
