// Package mqtt is Airlink's connection to the broker that fronts the
// whole system. The bridge publishes normalised purifier state,
// availability, and command acks through it, and receives commands from
// it; any home-automation frontend integrates by speaking these topics
// rather than linking against the engine.
//
// The client wraps paho.mqtt.golang with the pieces Airlink needs:
//
//   - Subscriptions survive broker restarts. Subscribe records every
//     topic and handler, and the reconnect hook replays them.
//   - A retained last-will on airlink/system/status flips the service
//     to offline when the process dies; Close replaces it with a
//     graceful variant so consumers can tell the two apart.
//   - Handlers run behind panic recovery, so one malformed command
//     payload cannot take the process down with it.
//
// Topic construction lives on the Topics type so the
// airlink/<facet>/purifier/<device> layout is written down exactly
// once:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllDeviceCommands(), 1, handleCommand)
//
// TLS and broker credentials come from the mqtt section of config.yaml.
// Anonymous plaintext connections are for local development against a
// loopback Mosquitto only.
package mqtt
