package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/airlink-home/airlink-core/internal/infrastructure/config"
)

const (
	// defaultConnectTimeout bounds the initial broker dial.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout bounds waiting for publish and subscribe
	// acknowledgements.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is how long Disconnect waits for pending
	// tokens, in milliseconds.
	defaultDisconnectQuiesce = 1000

	// defaultKeepAlive is the MQTT keepalive interval.
	defaultKeepAlive = 60 * time.Second

	// maxQoS is the highest QoS level the protocol defines.
	maxQoS = 2
)

// clientOptions translates the mqtt section of config.yaml into paho
// options: broker URL, credentials, reconnect pacing, and the retained
// last-will that marks the service offline if the process dies without
// a graceful Close.
func clientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port))
	opts.SetClientID(cfg.Broker.ClientID)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	// Fresh session each connect. Retained state topics mean a new
	// session still sees current device state immediately.
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second)
	opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)

	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)

	// The broker publishes this on our behalf if the connection dies
	// without Close running. QoS 1 retained, same as the graceful
	// announcements, so airlink/system/status always holds the truth.
	opts.SetWill(Topics{}.SystemStatus(), presenceLost(cfg.Broker.ClientID), 1, true)

	return opts
}

// Presence payloads for airlink/system/status. Raw JSON because the
// shape never varies and the will payload is rendered once at
// option-build time.

func presenceOnline(clientID string) string {
	return presence("online", clientID, "")
}

func presenceOffline(clientID string) string {
	return presence("offline", clientID, "graceful_shutdown")
}

func presenceLost(clientID string) string {
	return presence("offline", clientID, "unexpected_disconnect")
}

func presence(status, clientID, reason string) string {
	ts := time.Now().UTC().Format(time.RFC3339)
	if reason == "" {
		return fmt.Sprintf(`{"status":%q,"client_id":%q,"timestamp":%q}`, status, clientID, ts)
	}
	return fmt.Sprintf(`{"status":%q,"client_id":%q,"reason":%q,"timestamp":%q}`, status, clientID, reason, ts)
}
