// Package logging configures structured logging for Airlink.
//
// Everything goes through log/slog. New stamps each record with the
// service name and build version, and child loggers add a component
// tag per subsystem, so a single grep isolates one purifier's poll
// loop from the rest of the stream:
//
//	log := logging.New(cfg.Logging, version)
//	log.With("component", "engine").Info("session started", "device_id", id)
//
// Format, level, and destination come from the logging section of
// config.yaml; JSON to stdout is the production default, text is for
// development. Device addresses are fine to log; broker credentials
// are not.
package logging
