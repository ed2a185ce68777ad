// Package bridge exposes the purifier engine over MQTT.
//
// The bridge subscribes to per-device command topics, dispatches commands
// to the engine, and acknowledges each one (accepted, then applied or
// failed). Snapshot updates flow the other way: wire Bridge.HandleStatus
// to the engine's status callback and the bridge publishes retained state
// and availability, suppressing unchanged republications.
//
// A HealthReporter publishes periodic bridge health derived from engine
// session stats; the bridge reports degraded while any session has
// polling suspended.
package bridge
