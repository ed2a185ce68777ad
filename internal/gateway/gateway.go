package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// Config holds configuration for the command gateway.
type Config struct {
	// Interpreter is the executable that runs the control scripts,
	// e.g. "python3".
	Interpreter string

	// ScriptDir is the directory containing the control scripts.
	ScriptDir string

	// StatusScript is the filename of the status fetch script.
	// Defaults to "get_status.py".
	StatusScript string

	// SetScript is the filename of the value set script.
	// Defaults to "set_value.py".
	SetScript string
}

// Logger defines the logging interface for the gateway.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Gateway runs the external control scripts. It is stateless and safe for
// concurrent use; each call spawns an independent process.
type Gateway struct {
	cfg    Config
	logger Logger
}

// New creates a gateway with the given configuration.
func New(cfg Config) (*Gateway, error) {
	if cfg.Interpreter == "" {
		return nil, errors.New("gateway: interpreter is required")
	}
	if cfg.ScriptDir == "" {
		return nil, errors.New("gateway: script dir is required")
	}
	if cfg.StatusScript == "" {
		cfg.StatusScript = "get_status.py"
	}
	if cfg.SetScript == "" {
		cfg.SetScript = "set_value.py"
	}

	return &Gateway{
		cfg:    cfg,
		logger: noopLogger{},
	}, nil
}

// SetLogger sets the logger for the gateway.
func (g *Gateway) SetLogger(logger Logger) {
	g.logger = logger
}

// FetchStatus runs the status script against a device and decodes its
// output. The timeout applies to this call alone; on expiry the script's
// process group is killed and a Timeout fault is returned.
func (g *Gateway) FetchStatus(ctx context.Context, address, transport string, timeout time.Duration) (*RawStatus, error) {
	out, err := g.run(ctx, g.cfg.StatusScript, timeout, address, transport)
	if err != nil {
		return nil, classifyExit(out, err)
	}
	return decodeStatus(out)
}

// SetValue runs the set script to write a single raw field on a device.
// The value is passed as its string form; the script coerces types.
func (g *Gateway) SetValue(ctx context.Context, address, transport, field, value string, timeout time.Duration) error {
	out, err := g.run(ctx, g.cfg.SetScript, timeout, address, transport, field, value)
	if err != nil {
		return classifyExit(out, err)
	}

	// Success contract is {"success": true}; an error payload or garbage
	// at exit 0 is still a failure.
	if _, err := decodeObject(out); err != nil {
		return err
	}
	return nil
}

// run executes one script invocation and returns its stdout.
//
// The returned error is either a *Fault (timeout, launch failure), the
// parent context's error, or an *exec.ExitError when the script exited
// non-zero. In the exit-error case stdout is still returned so the caller
// can decode the script's error payload.
func (g *Gateway) run(ctx context.Context, script string, timeout time.Duration, args ...string) ([]byte, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	scriptPath := filepath.Join(g.cfg.ScriptDir, script)
	argv := append([]string{scriptPath}, args...)
	cmd := exec.CommandContext(runCtx, g.cfg.Interpreter, argv...) //nolint:gosec // Interpreter and script dir come from validated config

	// Run the script in its own process group so the whole tree can be
	// killed on timeout. The interpreter may spawn transport helpers.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 2 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if stderr.Len() > 0 {
		g.logger.Warn("script wrote to stderr",
			"script", script,
			"args", args,
			"stderr", strings.TrimSpace(stderr.String()),
		)
	}

	g.logger.Debug("script finished",
		"script", script,
		"args", args,
		"duration_ms", elapsed.Milliseconds(),
		"failed", err != nil,
	)

	if err == nil {
		return stdout.Bytes(), nil
	}

	// Distinguish our per-call deadline from the caller tearing down.
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, &Fault{
			Kind:    FaultTimeout,
			Message: fmt.Sprintf("no response within %s", timeout),
		}
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("gateway: %s: %w", script, ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stdout.Bytes(), exitErr
	}

	return nil, &Fault{
		Kind:    FaultConnectionFailure,
		Message: "launching " + script,
		Err:     err,
	}
}

// classifyExit turns a run() error into the fault the caller should see.
// A non-zero exit with an {"error": ...} payload on stdout is the script's
// documented failure contract; anything else non-zero is malformed.
func classifyExit(stdout []byte, err error) error {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return err
	}

	if _, derr := decodeObject(stdout); derr != nil {
		return derr
	}

	return &Fault{
		Kind:    FaultMalformedResponse,
		Message: "non-zero exit without error payload",
		Err:     exitErr,
	}
}
