// Package connection provides the command sources the discovery engine
// runs its probes through.
package connection

import (
	"context"
	"strings"

	"example.com/netadapter/pkg/types"
)

// stderrLimit caps the amount of stderr kept on a Result.
const stderrLimit = 8 << 10 // 8 KiB

// Result is the outcome of a finished command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success reports whether the command exited with status 0.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Runner executes a shell command on a target host. A non-zero exit status is
// reported through Result; the error return is reserved for transport
// failures (connection lost, context cancelled, binary missing).
//
// A Runner must not be shared by two concurrent discovery runs.
type Runner interface {
	Run(ctx context.Context, command string) (Result, error)
}

// IPReporter is implemented by runners that know the address they use to
// reach the target host.
type IPReporter interface {
	IP() string
}

// InNamespace qualifies a command so it runs inside the given network
// namespace. An empty namespace leaves the command untouched.
func InNamespace(namespace, command string) string {
	if namespace == "" {
		return command
	}
	return "ip netns exec " + namespace + " " + command
}

func truncateStderr(s string) string {
	if len(s) > stderrLimit {
		s = s[:stderrLimit] + "... (truncated)"
	}
	return strings.TrimSpace(s)
}

// RunChecked runs command and converts a non-zero exit status into a
// *types.CommandFailedError. It returns stdout on success.
func RunChecked(ctx context.Context, r Runner, command string) (string, error) {
	res, err := r.Run(ctx, command)
	if err != nil {
		return "", err
	}
	if !res.Success() {
		return "", &types.CommandFailedError{Command: command, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	return res.Stdout, nil
}
