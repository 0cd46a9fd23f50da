package connection

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"example.com/netadapter/pkg"
)

// LocalRunner runs commands on the local host through /bin/sh.
type LocalRunner struct {
	Shell   string
	Timeout time.Duration
}

// NewLocalRunner returns a LocalRunner with the given per-command timeout.
// A zero timeout disables it.
func NewLocalRunner(timeout time.Duration) *LocalRunner {
	return &LocalRunner{Shell: "/bin/sh", Timeout: timeout}
}

func (r *LocalRunner) Run(ctx context.Context, command string) (Result, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	ex := exec.CommandContext(ctx, r.Shell, "-c", command)
	ex.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	ex.Stdout = &stdout
	ex.Stderr = &stderr

	pkg.WithField("command", command).Debug("executing locally")

	err := ex.Run()
	res := Result{Stdout: stdout.String(), Stderr: truncateStderr(stderr.String())}
	if err == nil {
		return res, nil
	}

	if ctx.Err() != nil {
		return res, fmt.Errorf("%s: %w", command, ctx.Err())
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, fmt.Errorf("%s: %w (stderr: %s)", command, err, res.Stderr)
}

func (r *LocalRunner) IP() string {
	return ""
}
