package mqtt

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/airlink-home/airlink-core/internal/infrastructure/config"
)

// Broker-free tests for validation, option building, and handler
// wrapping. End-to-end broker behaviour lives in integration_test.go.

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "airlink-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func TestPublish_Validation(t *testing.T) {
	c := &Client{}

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{
			name:    "empty topic",
			payload: []byte("{}"),
			qos:     1,
			wantErr: ErrInvalidTopic,
		},
		{
			name:    "qos out of range",
			topic:   "airlink/state/purifier/bedroom",
			payload: []byte("{}"),
			qos:     3,
			wantErr: ErrInvalidQoS,
		},
		{
			name:    "oversized payload",
			topic:   "airlink/state/purifier/bedroom",
			payload: make([]byte, maxPayloadSize+1),
			qos:     1,
			wantErr: ErrPublishFailed,
		},
		{
			name:    "not connected",
			topic:   "airlink/state/purifier/bedroom",
			payload: []byte("{}"),
			qos:     1,
			wantErr: ErrNotConnected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubscribe_Validation(t *testing.T) {
	c := &Client{}
	handler := func(string, []byte) error { return nil }

	if err := c.Subscribe("", 1, handler); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic: error = %v, want ErrInvalidTopic", err)
	}
	if err := c.Subscribe("airlink/command/purifier/+", 3, handler); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("qos 3: error = %v, want ErrInvalidQoS", err)
	}
	if err := c.Subscribe("airlink/command/purifier/+", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("nil handler: error = %v, want ErrSubscribeFailed", err)
	}
	if err := c.Subscribe("airlink/command/purifier/+", 1, handler); !errors.Is(err, ErrNotConnected) {
		t.Errorf("disconnected: error = %v, want ErrNotConnected", err)
	}
}

func TestUnsubscribe_Validation(t *testing.T) {
	c := &Client{}

	if err := c.Unsubscribe(""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic: error = %v, want ErrInvalidTopic", err)
	}
	if err := c.Unsubscribe("airlink/command/purifier/+"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("disconnected: error = %v, want ErrNotConnected", err)
	}
}

func TestClose_NoSession(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close() without a session error = %v", err)
	}
}

func TestIsConnected_ZeroValue(t *testing.T) {
	c := &Client{}
	if c.IsConnected() {
		t.Error("zero-value client reports connected")
	}
}

func TestClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "airlink"
	cfg.Auth.Password = "secret"

	opts := clientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("broker servers = %v, want tcp://127.0.0.1:1883", opts.Servers)
	}
	if opts.ClientID != "airlink-test" {
		t.Errorf("client ID = %q, want airlink-test", opts.ClientID)
	}
	if opts.Username != "airlink" {
		t.Errorf("username = %q, want airlink", opts.Username)
	}
	if !opts.CleanSession {
		t.Error("clean session disabled")
	}
	if !opts.AutoReconnect || !opts.ConnectRetry {
		t.Error("auto-reconnect not fully enabled")
	}
	if opts.TLSConfig != nil {
		t.Error("TLS config set without TLS enabled")
	}

	if opts.WillTopic != (Topics{}).SystemStatus() {
		t.Errorf("will topic = %q, want %q", opts.WillTopic, Topics{}.SystemStatus())
	}
	if !opts.WillRetained {
		t.Error("last-will not retained")
	}
	if !strings.Contains(string(opts.WillPayload), "unexpected_disconnect") {
		t.Errorf("will payload = %s, missing unexpected_disconnect", opts.WillPayload)
	}
}

func TestClientOptions_TLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883

	opts := clientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].Scheme != "ssl" {
		t.Errorf("broker servers = %v, want ssl scheme", opts.Servers)
	}
	if opts.TLSConfig == nil {
		t.Fatal("TLS config missing with TLS enabled")
	}
}

func TestPresencePayloads(t *testing.T) {
	tests := []struct {
		name       string
		payload    string
		wantStatus string
		wantReason string
	}{
		{"online", presenceOnline("airlink-core"), "online", ""},
		{"graceful offline", presenceOffline("airlink-core"), "offline", "graceful_shutdown"},
		{"lost", presenceLost("airlink-core"), "offline", "unexpected_disconnect"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got struct {
				Status    string `json:"status"`
				ClientID  string `json:"client_id"`
				Reason    string `json:"reason"`
				Timestamp string `json:"timestamp"`
			}
			if err := json.Unmarshal([]byte(tt.payload), &got); err != nil {
				t.Fatalf("payload is not valid JSON: %v", err)
			}
			if got.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", got.Status, tt.wantStatus)
			}
			if got.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", got.Reason, tt.wantReason)
			}
			if got.ClientID != "airlink-core" {
				t.Errorf("client_id = %q, want airlink-core", got.ClientID)
			}
			if got.Timestamp == "" {
				t.Error("timestamp missing")
			}
		})
	}
}

// fakeMessage satisfies paho's Message interface for handler tests.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

var _ pahomqtt.Message = fakeMessage{}

// captureLogger records log calls for assertions.
type captureLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *captureLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *captureLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func TestWrapHandler_RecoversPanic(t *testing.T) {
	logger := &captureLogger{}
	c := &Client{}
	c.SetLogger(logger)

	wrapped := c.wrapHandler(func(string, []byte) error {
		panic("malformed payload")
	})

	msg := fakeMessage{topic: "airlink/command/purifier/bedroom", payload: []byte("{")}
	wrapped(nil, msg) // must not propagate the panic

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.errors) != 1 {
		t.Fatalf("recovered panics logged = %d, want 1", len(logger.errors))
	}
}

func TestWrapHandler_LogsHandlerError(t *testing.T) {
	logger := &captureLogger{}
	c := &Client{}
	c.SetLogger(logger)

	wrapped := c.wrapHandler(func(string, []byte) error {
		return errors.New("unknown device")
	})
	wrapped(nil, fakeMessage{topic: "airlink/command/purifier/attic"})

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.warns) != 1 {
		t.Fatalf("handler errors logged = %d, want 1", len(logger.warns))
	}
}

func TestWrapHandler_NoLogger(t *testing.T) {
	c := &Client{}
	wrapped := c.wrapHandler(func(string, []byte) error {
		panic("still recovered")
	})
	wrapped(nil, fakeMessage{topic: "airlink/command/purifier/bedroom"})
}
