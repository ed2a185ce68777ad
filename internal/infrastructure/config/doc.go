// Package config loads and validates Airlink's configuration: the
// YAML file declaring the broker, the device store, the gateway script
// directory, and every registered purifier, with environment variable
// overrides layered on top.
//
// Loading happens once at startup and fails fast: a device entry with
// a bad address or a zero poll interval stops the process before any
// session starts, rather than surfacing later as a polling fault.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	for _, dev := range cfg.Devices {
//	    // register with the engine
//	}
//
// Broker credentials belong in AIRLINK_MQTT_USERNAME and
// AIRLINK_MQTT_PASSWORD rather than in the file, and the file itself
// should sit at 0600.
package config
