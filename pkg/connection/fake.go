package connection

import (
	"context"
	"fmt"
	"sync"
)

// FakeRunner is a scripted Runner for tests. Commands are matched exactly.
type FakeRunner struct {
	mu       sync.Mutex
	results  map[string]Result
	errs     map[string]error
	calls    []string
	Address  string
	Fallback *Result
}

// NewFakeRunner returns an empty FakeRunner. Unscripted commands fail with
// an error unless Fallback is set.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		results: make(map[string]Result),
		errs:    make(map[string]error),
	}
}

// On scripts a successful command with the given stdout.
func (f *FakeRunner) On(command, stdout string) *FakeRunner {
	return f.OnResult(command, Result{Stdout: stdout})
}

// OnResult scripts a command with a full result.
func (f *FakeRunner) OnResult(command string, res Result) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[command] = res
	return f
}

// OnError scripts a transport error for a command.
func (f *FakeRunner) OnError(command string, err error) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[command] = err
	return f
}

func (f *FakeRunner) Run(_ context.Context, command string) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, command)
	if err, ok := f.errs[command]; ok {
		return Result{}, err
	}
	if res, ok := f.results[command]; ok {
		return res, nil
	}
	if f.Fallback != nil {
		return *f.Fallback, nil
	}
	return Result{}, fmt.Errorf("unexpected command: %s", command)
}

// Calls returns the commands run so far, in order.
func (f *FakeRunner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *FakeRunner) IP() string {
	return f.Address
}
