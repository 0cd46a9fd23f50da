package types

import "fmt"

// NotFoundError is returned when a lookup yields no match.
type NotFoundError struct {
	What string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.What, e.Key)
}

// CommandFailedError is returned when a command that is expected to succeed
// exits non-zero.
type CommandFailedError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *CommandFailedError) Error() string {
	return fmt.Sprintf("command %q failed with exit code %d: %s", e.Command, e.ExitCode, e.Stderr)
}

// PreconditionError is returned before any command is issued when an
// operation is called on an interface of the wrong type.
type PreconditionError struct {
	Interface string
	Type      InterfaceType
	Want      []InterfaceType
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("interface %s is %s, operation requires one of %v", e.Interface, e.Type, e.Want)
}

// RequireType returns a PreconditionError unless rec has one of the wanted types.
func RequireType(rec InterfaceRecord, want ...InterfaceType) error {
	for _, t := range want {
		if rec.Type == t {
			return nil
		}
	}
	return &PreconditionError{Interface: rec.ID(), Type: rec.Type, Want: want}
}
