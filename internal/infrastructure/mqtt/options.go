package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/mtdcr/hmqtt/internal/infrastructure/config"
)

const (
	// defaultConnectTimeout bounds the initial connect. The CCU callback
	// server is not registered until the broker link is up, so a hung
	// connect would stall the whole startup sequence.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout bounds waiting for a PUBACK/SUBACK.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce (ms) lets queued state publications drain
	// before the link closes during shutdown.
	defaultDisconnectQuiesce = 1000

	// defaultKeepAlive is the PINGREQ interval. A CCU that sends few
	// events leaves the link idle for long stretches; the keepalive is
	// what detects a silently dead broker in that case.
	defaultKeepAlive = 60 * time.Second

	maxQoS = 2

	tlsMinVersion = tls.VersionTLS12
)

// buildClientOptions maps the mqtt section of config.yaml onto paho options.
//
// Auto-reconnect is always on: the bridge keeps consuming CCU events while
// the broker is away and relies on the on-connect callback to republish
// retained state and discovery configs once the link returns. Clean session
// is deliberate for the same reason — the command filter subscription is
// restored from our own tracking, not from broker session state, so a stale
// persisted session buys nothing.
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(brokerURL(cfg))
	opts.SetClientID(cfg.Broker.ClientID)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second)
	opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)

	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)

	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tlsMinVersion})
	}

	return opts
}

// brokerURL renders the paho broker address, ssl:// when TLS is configured.
func brokerURL(cfg config.MQTTConfig) string {
	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port)
}

// configureLWT registers the testament the broker publishes if the bridge
// dies without a DISCONNECT. Discovery configs point Home Assistant at
// hmqtt/system/status, so the LWT is what flips every bridged entity to
// unavailable when the process crashes. Retained at QoS 1 so late
// subscribers see the last status.
func configureLWT(opts *pahomqtt.ClientOptions, clientID string) {
	opts.SetWill(Topics{}.SystemStatus(), statusPayload("offline", clientID, "unexpected_disconnect"), 1, true)
}

// statusPayload renders the system status JSON. An empty reason is omitted,
// which is the shape of the periodic online announcement.
func statusPayload(status, clientID, reason string) string {
	ts := time.Now().UTC().Format(time.RFC3339)
	if reason == "" {
		return fmt.Sprintf(`{"status":%q,"client_id":%q,"timestamp":%q}`, status, clientID, ts)
	}
	return fmt.Sprintf(`{"status":%q,"client_id":%q,"reason":%q,"timestamp":%q}`, status, clientID, reason, ts)
}
