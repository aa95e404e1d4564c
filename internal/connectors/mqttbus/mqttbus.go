// Package mqttbus provides a connector carrying frames over an MQTT topic
// pair. It suits rigs where the device under test sits behind an MQTT
// gateway rather than on a directly reachable socket.
//
// Frames are msgpack-encoded envelopes. The connector publishes on its tx
// topic and buffers everything arriving on its rx topic; it is transparent
// to payload semantics like every other connector.
package mqttbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/nerrad567/testrig-core/internal/component"
	"github.com/nerrad567/testrig-core/internal/fifo"
	"github.com/nerrad567/testrig-core/internal/infrastructure/config"
	"github.com/nerrad567/testrig-core/internal/infrastructure/mqtt"
)

// Options configures an MQTT bus connector.
type Options struct {
	// Broker is the MQTT connection config (host, port, auth, QoS).
	Broker config.MQTTConfig

	// TxTopic is the topic frames are published to.
	TxTopic string

	// RxTopic is the topic subscribed for inbound frames.
	RxTopic string
}

// Connector carries frames over one MQTT client connection.
//
// All public methods are thread-safe.
type Connector struct {
	opts Options

	mu     sync.Mutex
	client *mqtt.Client
	in     *fifo.Queue
}

// New creates a connector that will connect to the broker on Open.
func New(opts Options) *Connector {
	return &Connector{opts: opts}
}

// Factory constructs an MQTT bus connector from its config map.
// Required keys: "host" (string), "tx_topic" (string), "rx_topic"
// (string). Optional: "port" (int, default 1883), "client_id" (string),
// "username"/"password" (string), "qos" (int, default 1).
func Factory(cfg map[string]any) (component.Connector, error) {
	opts := Options{
		Broker: config.MQTTConfig{
			Broker: config.MQTTBrokerConfig{
				Host:     stringKey(cfg, "host"),
				Port:     intKey(cfg, "port", 1883),
				ClientID: stringKey(cfg, "client_id"),
			},
			Auth: config.MQTTAuthConfig{
				Username: stringKey(cfg, "username"),
				Password: stringKey(cfg, "password"),
			},
			QoS: intKey(cfg, "qos", 1),
			Reconnect: config.MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		TxTopic: stringKey(cfg, "tx_topic"),
		RxTopic: stringKey(cfg, "rx_topic"),
	}

	if opts.Broker.Broker.Host == "" {
		return nil, fmt.Errorf("mqttbus: config key %q is required", "host")
	}
	if opts.TxTopic == "" || opts.RxTopic == "" {
		return nil, fmt.Errorf("mqttbus: config keys %q and %q are required", "tx_topic", "rx_topic")
	}
	if opts.Broker.Broker.ClientID == "" {
		opts.Broker.Broker.ClientID = "testrig-mqttbus"
	}
	return New(opts), nil
}

// Open connects to the broker and subscribes the rx topic.
func (c *Connector) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return fmt.Errorf("mqttbus: already connected to %s", c.opts.Broker.Broker.Host)
	}

	client, err := mqtt.Connect(c.opts.Broker)
	if err != nil {
		return fmt.Errorf("mqttbus: %w", err)
	}

	in := fifo.New()
	err = client.Subscribe(c.opts.RxTopic, byte(c.opts.Broker.QoS), func(_ string, payload []byte) error {
		var f component.Frame
		if err := msgpack.Unmarshal(payload, &f); err != nil {
			return fmt.Errorf("mqttbus: decoding inbound frame: %w", err)
		}
		in.Push(&f)
		return nil
	})
	if err != nil {
		_ = client.Close()
		return fmt.Errorf("mqttbus: subscribing %s: %w", c.opts.RxTopic, err)
	}

	c.client = client
	c.in = in
	return nil
}

// Close disconnects from the broker. Closing a closed connector is a
// no-op.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	c.in = nil
	return err
}

// Send publishes one frame on the tx topic.
func (c *Connector) Send(f *component.Frame) error {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()

	if client == nil {
		return mqtt.ErrNotConnected
	}

	payload, err := msgpack.Marshal(f)
	if err != nil {
		return fmt.Errorf("mqttbus: encoding frame: %w", err)
	}
	return client.Publish(c.opts.TxTopic, payload, byte(c.opts.Broker.QoS), false)
}

// Receive returns the oldest inbound frame, waiting up to timeout.
func (c *Connector) Receive(timeout time.Duration) (*component.Frame, error) {
	c.mu.Lock()
	in := c.in
	c.mu.Unlock()

	if in == nil {
		return nil, mqtt.ErrNotConnected
	}
	return in.Pop(timeout), nil
}

// stringKey reads an optional string config value.
func stringKey(cfg map[string]any, key string) string {
	v, _ := cfg[key].(string)
	return v
}

// intKey reads an optional int config value, tolerating the float64 and
// int forms YAML decoding produces.
func intKey(cfg map[string]any, key string, def int) int {
	switch v := cfg[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}
