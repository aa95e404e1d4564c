//go:build integration

package mqtt

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/testrig-core/internal/infrastructure/config"
)

// Integration tests for broker-backed behaviour. They require a
// running MQTT broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func integrationConfig(clientID string) config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: clientID,
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// TestIntegration_FrameBridge drives the topic scheme end to end: a
// rig publishes outbound frames on its tx topic and a watcher on the
// wildcard pattern sees them with the full topic expanded.
func TestIntegration_FrameBridge(t *testing.T) {
	rig, err := Connect(integrationConfig("rig-lab-01"))
	if err != nil {
		t.Fatalf("Connect() rig error = %v", err)
	}
	defer rig.Close()

	watcher, err := Connect(integrationConfig("testrig-int-watcher"))
	if err != nil {
		t.Fatalf("Connect() watcher error = %v", err)
	}
	defer watcher.Close()

	type observed struct {
		topic   string
		payload []byte
	}
	frames := make(chan observed, 4)

	err = watcher.Subscribe(Topics{}.AllRigTx(), 1, func(topic string, payload []byte) error {
		frames <- observed{topic: topic, payload: payload}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	frame := []byte{0x12, 0x34, 0x56}
	txTopic := Topics{}.RigTx("rig-lab-01", "dut")
	if err := rig.Publish(txTopic, frame, 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case got := <-frames:
		if got.topic != txTopic {
			t.Errorf("observed topic = %q, want %q", got.topic, txTopic)
		}
		if string(got.payload) != string(frame) {
			t.Errorf("observed payload = %v, want %v", got.payload, frame)
		}
	case <-time.After(5 * time.Second):
		t.Error("timeout waiting for bridged frame")
	}
}

// TestIntegration_PresenceRetained verifies a late subscriber still
// learns the rig is online from the retained status message.
func TestIntegration_PresenceRetained(t *testing.T) {
	rig, err := Connect(integrationConfig("testrig-int-presence"))
	if err != nil {
		t.Fatalf("Connect() rig error = %v", err)
	}
	defer rig.Close()

	// The online presence is published from the async on-connect
	// handler; give it a moment to land before attaching.
	time.Sleep(200 * time.Millisecond)

	late, err := Connect(integrationConfig("testrig-int-late"))
	if err != nil {
		t.Fatalf("Connect() late subscriber error = %v", err)
	}
	defer late.Close()

	statuses := make(chan []byte, 4)
	err = late.Subscribe(Topics{}.SystemStatus(), 1, func(_ string, payload []byte) error {
		statuses <- payload
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	select {
	case payload := <-statuses:
		var p struct {
			Status   string `json:"status"`
			ClientID string `json:"client_id"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			t.Fatalf("decoding presence: %v", err)
		}
		if p.Status != "online" {
			t.Errorf("retained presence status = %q, want %q", p.Status, "online")
		}
	case <-time.After(5 * time.Second):
		t.Error("timeout waiting for retained presence")
	}
}

// TestIntegration_SubscriptionTracking verifies per-connector topic
// subscriptions are tracked for restoration after a reconnect.
func TestIntegration_SubscriptionTracking(t *testing.T) {
	client, err := Connect(integrationConfig("testrig-int-sub-track"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	topics := []string{
		Topics{}.RigRx("rig-lab-01", "dut"),
		Topics{}.RigRx("rig-lab-01", "power"),
		Topics{}.RigStatus("rig-lab-01"),
	}
	handler := func(string, []byte) error { return nil }

	for _, topic := range topics {
		if err := client.Subscribe(topic, 1, handler); err != nil {
			t.Fatalf("Subscribe(%s) error = %v", topic, err)
		}
	}
	if client.SubscriptionCount() != len(topics) {
		t.Errorf("SubscriptionCount() = %d, want %d", client.SubscriptionCount(), len(topics))
	}

	if err := client.Unsubscribe(topics[0]); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if client.HasSubscription(topics[0]) {
		t.Errorf("HasSubscription(%s) = true after unsubscribe", topics[0])
	}
	if client.SubscriptionCount() != len(topics)-1 {
		t.Errorf("SubscriptionCount() = %d, want %d", client.SubscriptionCount(), len(topics)-1)
	}
}

// TestIntegration_LoggerSet verifies the handler-error logger can be
// swapped at runtime.
func TestIntegration_LoggerSet(t *testing.T) {
	client, err := Connect(integrationConfig("testrig-int-logger"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	logger := &recordingLogger{}
	client.SetLogger(logger)
	if client.getLogger() == nil {
		t.Error("getLogger() = nil after SetLogger()")
	}

	client.SetLogger(nil)
	if client.getLogger() != nil {
		t.Error("getLogger() != nil after SetLogger(nil)")
	}
}

// recordingLogger captures log calls for assertions.
type recordingLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *recordingLogger) Error(msg string, args ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) Warn(msg string, args ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}
