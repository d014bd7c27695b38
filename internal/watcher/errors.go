package watcher

import (
	"errors"
	"fmt"
	"syscall"
)

// ExitCodeFatal is used when a fatal error carries no usable system code.
const ExitCodeFatal = 2

type ErrorKind string

const (
	KindPathResolution ErrorKind = "path_resolution"
	KindRegistration   ErrorKind = "registration"
	KindRearm          ErrorKind = "rearm"
	KindWait           ErrorKind = "wait"
	KindOutput         ErrorKind = "output"
)

var (
	ErrPathRequired        = errors.New("directory path is required")
	ErrUnknownBackend      = errors.New("unknown watch backend")
	ErrUnhandledWaitStatus = errors.New("unhandled wait status")
	ErrHandleClosed        = errors.New("watch handle is closed")
)

// FatalError ends a watch session.
type FatalError struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *FatalError) Error() string {
	if e == nil {
		return ""
	}
	switch e.Kind {
	case KindPathResolution:
		return fmt.Sprintf("cannot resolve directory %q, is it valid?: %v", e.Path, e.Err)
	case KindRegistration:
		return fmt.Sprintf("change notification registration failed for %q: %v", e.Path, e.Err)
	case KindRearm:
		return fmt.Sprintf("change notification re-arm failed for %q: %v", e.Path, e.Err)
	case KindWait:
		return fmt.Sprintf("wait for changes in %q failed: %v", e.Path, e.Err)
	case KindOutput:
		return fmt.Sprintf("write notification for %q: %v", e.Path, e.Err)
	default:
		return fmt.Sprintf("watch %q: %v", e.Path, e.Err)
	}
}

func (e *FatalError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// exitCodeUsage is reserved for argument errors, so errno 1 (EPERM on
// unix) cannot pass through.
const exitCodeUsage = 1

// ExitCode maps a session error to a process exit status. System error
// numbers that fit in an exit status are passed through, except those that
// would read as a usage error.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var errno syscall.Errno
	if errors.As(err, &errno) && errno > exitCodeUsage && errno < 256 {
		return int(errno)
	}
	return ExitCodeFatal
}
