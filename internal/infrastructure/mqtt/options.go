package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/testrig-core/internal/infrastructure/config"
)

const (
	connectTimeout    = 10 * time.Second
	ackTimeout        = 5 * time.Second
	disconnectQuiesce = 1000 // milliseconds
	keepAlive         = 60 * time.Second

	maxQoS = 2
)

// presence is the JSON body published on the system status topic. It
// is retained, so tooling that attaches later still sees whether the
// rig is up and how it last went down.
type presence struct {
	Status    string `json:"status"`
	ClientID  string `json:"client_id"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

func (p presence) encode() string {
	p.Timestamp = time.Now().UTC().Format(time.RFC3339)
	body, err := json.Marshal(p)
	if err != nil {
		// presence has no unmarshalable fields; keep the broker
		// informed even if that ever changes.
		return `{"status":"` + p.Status + `"}`
	}
	return string(body)
}

func onlinePresence(clientID string) string {
	return presence{Status: "online", ClientID: clientID}.encode()
}

func offlinePresence(clientID, reason string) string {
	return presence{Status: "offline", ClientID: clientID, Reason: reason}.encode()
}

// dialOptions builds the paho option set for a rig's broker link:
// broker URL, identity, credentials, auto-reconnect with backoff, and
// a last-will presence message so a crashed rig reports offline.
func dialOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
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

	// Start each session clean: subscriptions are re-established from
	// the client's own tracking on reconnect, not broker state.
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second)
	opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetKeepAlive(keepAlive)

	// The broker publishes this if the rig dies without saying goodbye.
	opts.SetWill(Topics{}.SystemStatus(),
		offlinePresence(cfg.Broker.ClientID, "unexpected_disconnect"), 1, true)

	return opts
}
