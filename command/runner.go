package command

import (
	"context"
	"fmt"
	"os/exec"
)

// Runner executes external commands. Detection probes, frame captures and
// power actions all go through this interface so they can be tested without
// a real device.
type Runner interface {
	// Run executes name with args and returns combined stdout/stderr.
	// When ctx is cancelled or times out the process is killed and the
	// returned error wraps ctx.Err().
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands via os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	return out, classifyRunError(name, err, ctx.Err())
}

// classifyRunError maps an exec error to the Runner contract. A run that
// finished cleanly stays a success even if the context expired just after
// the process exited; a failed run under an expired context reports the
// cancellation rather than the opaque "signal: killed" from exec.
func classifyRunError(name string, runErr, ctxErr error) error {
	if runErr == nil {
		return nil
	}
	if ctxErr != nil {
		return fmt.Errorf("command %s killed: %w", name, ctxErr)
	}
	return fmt.Errorf("command %s failed: %v", name, runErr)
}
