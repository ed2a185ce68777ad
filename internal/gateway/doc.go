// Package gateway invokes the external purifier control scripts and turns
// their output into typed results.
//
// Each call spawns a short-lived interpreter process (get_status / set_value)
// with positional arguments, enforces an independent per-call timeout, and
// kills the whole process group on expiry so no child survives a hung
// transport. Stdout must carry exactly one JSON object; decoding happens
// once, here, at the process boundary.
//
// All failures are classified into a single *Fault error type:
//   - Timeout: the per-call deadline expired
//   - ConnectionFailure: the interpreter could not be launched
//   - DeviceReported: the script returned an {"error": ...} payload
//   - MalformedResponse: stdout was not a parseable JSON object
//
// Example usage:
//
//	gw, err := gateway.New(gateway.Config{
//	    Interpreter: "python3",
//	    ScriptDir:   "/opt/airlink/scripts",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	raw, err := gw.FetchStatus(ctx, "192.168.1.50", "coap", 30*time.Second)
package gateway
