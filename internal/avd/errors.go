// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

package avd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/containerd/errdefs"
)

var (
	// ErrCatalogUnavailable means the device catalog could not be read, as
	// opposed to being read and found empty.
	ErrCatalogUnavailable = fmt.Errorf("device catalog unavailable: %w", errdefs.ErrUnavailable)
	// ErrNoDevices means adb reported no attached devices or emulators.
	ErrNoDevices = fmt.Errorf("no devices/emulators attached: %w", errdefs.ErrNotFound)
)

// ToolNotFoundError reports an SDK binary that is neither on PATH nor under the SDK root.
type ToolNotFoundError struct {
	Tool string
}

func (e *ToolNotFoundError) Error() string { return e.Tool + " not found" }

func (e *ToolNotFoundError) Unwrap() error { return errdefs.ErrNotFound }

// CommandError is a child process that failed to start or exited non-zero.
type CommandError struct {
	Argv     []string
	ExitCode int // -1 when the process never ran
	Stdout   []byte
	Stderr   []byte
	Err      error
}

func (e *CommandError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s failed: %v", strings.Join(e.Argv, " "), e.Err)
	if out := strings.TrimSpace(string(e.Stdout)); out != "" {
		b.WriteString("\n" + out)
	}
	if out := strings.TrimSpace(string(e.Stderr)); out != "" {
		b.WriteString("\n" + out)
	}
	return b.String()
}

func (e *CommandError) Unwrap() []error { return []error{e.Err, errdefs.ErrUnknown} }

// InputError is an answer to a prompt that cannot be used.
type InputError struct {
	Input  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid choice %q: %s", e.Input, e.Reason)
}

func (e *InputError) Unwrap() error { return errdefs.ErrInvalidArgument }

// DumpError wraps a failed dump step with the hint shown to the user.
type DumpError struct {
	Method DumpMethod
	Hint   string
	Err    error
}

func (e *DumpError) Error() string {
	return fmt.Sprintf("%s dump failed: %v\n%s", e.Method, e.Err, e.Hint)
}

func (e *DumpError) Unwrap() []error { return []error{e.Err, errdefs.ErrFailedPrecondition} }

// IsToolNotFound reports whether err (or anything it wraps) is a ToolNotFoundError.
func IsToolNotFound(err error) bool {
	var tnf *ToolNotFoundError
	return errors.As(err, &tnf)
}
