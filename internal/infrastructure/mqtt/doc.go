// Package mqtt provides MQTT client connectivity for Testrig Core.
//
// This package manages:
//   - Connection to Mosquitto broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// Testrig uses MQTT to bridge connector frame traffic between rigs and
// to remote tooling. The broker (Mosquitto) decouples the rig from
// whoever is observing or injecting traffic.
//
//	Testrig Core ↔ MQTT Broker ↔ Remote tooling / other rigs
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//   - Message throughput: Broker-limited (typically 10K+ msg/sec)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all rig outbound traffic
//	err = client.Subscribe(mqtt.Topics{}.AllRigTx(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Inject a frame into a rig
//	topic := mqtt.Topics{}.RigRx("rig-lab-01", "dut")
//	client.Publish(topic, payload, 1, false)
package mqtt
