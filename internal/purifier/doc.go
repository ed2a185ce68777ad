// Package purifier keeps a live, resilient view of every registered air
// purifier.
//
// The Engine owns one session per device. A session polls its device at a
// configured interval through the command gateway, normalizes the raw
// payload into an immutable StatusSnapshot, and tracks consecutive
// failures. Faults are absorbed at the session boundary: reads always
// return a snapshot (the safe default when the device is unreachable),
// while writes surface their errors to the caller.
//
// Resilience model:
//
//   - Every gateway call is retried with exponential backoff, bounded by
//     the device's max-retries budget.
//   - After an exhausted cycle the exposed snapshot becomes the safe
//     default; the last live snapshot is kept for instant recovery.
//   - With DisablePollingOnError set, three consecutive failed cycles
//     suspend the poll ticker entirely. The on-demand probe (Refresh or
//     GetSnapshot with forceRefresh) keeps working and is the only path
//     back: one success resets the counter and restarts polling.
//   - At most one gateway call per device is outstanding at any moment.
//     A refresh that finds one in flight returns the cached snapshot.
//
// Example usage:
//
//	engine := purifier.NewEngine(gw)
//	engine.SetLogger(logger)
//
//	id, err := engine.RegisterDevice(ctx, purifier.DeviceConfig{
//	    Name:      "Living Room",
//	    Address:   "192.168.1.50",
//	    Transport: purifier.TransportCoAP,
//	})
//	if err != nil {
//	    return err
//	}
//
//	snap, _ := engine.GetSnapshot(ctx, id, false)
package purifier
