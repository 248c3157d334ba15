// Package mqtt provides MQTT client connectivity for the cloud channel.
//
// This package manages:
//   - Connection to the cloud broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The engine uses MQTT as its cloud transport: commands are published to
// per-device topics and device reports arrive on the account topic. The
// command lifecycle coordinator is the only consumer of this package.
//
//	Engine ↔ Cloud Broker ↔ Devices
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Publish latency: <10ms for QoS 1 to a local broker
//   - Reconnect: Exponential backoff 1s-60s
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to account-level device reports
//	err = client.Subscribe(cfg.Account.Topic, 1,
//	    func(topic string, payload []byte) error {
//	        return coordinator.HandleMessage(topic, payload)
//	    })
package mqtt
