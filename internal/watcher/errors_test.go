package watcher

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"syscall"
	"testing"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: 0},
		{name: "errno", err: &FatalError{Kind: KindRegistration, Err: syscall.ENOENT}, want: int(syscall.ENOENT)},
		{name: "path error", err: &FatalError{Kind: KindRegistration, Err: &os.PathError{Op: "stat", Path: "x", Err: syscall.ENOTDIR}}, want: int(syscall.ENOTDIR)},
		{name: "wrapped", err: fmt.Errorf("outer: %w", &FatalError{Kind: KindRearm, Err: syscall.EACCES}), want: int(syscall.EACCES)},
		{name: "errno one is not a usage error", err: &FatalError{Kind: KindRegistration, Err: &os.PathError{Op: "open", Path: "x", Err: syscall.Errno(1)}}, want: ExitCodeFatal},
		{name: "zero errno", err: &FatalError{Kind: KindWait, Err: syscall.Errno(0)}, want: ExitCodeFatal},
		{name: "large errno", err: &FatalError{Kind: KindWait, Err: syscall.Errno(1000)}, want: ExitCodeFatal},
		{name: "plain", err: &FatalError{Kind: KindWait, Err: ErrUnhandledWaitStatus}, want: ExitCodeFatal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExitCode(tc.err); got != tc.want {
				t.Fatalf("ExitCode(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func TestFatalErrorMessages(t *testing.T) {
	cases := map[ErrorKind]string{
		KindPathResolution: "cannot resolve directory",
		KindRegistration:   "registration failed",
		KindRearm:          "re-arm failed",
		KindWait:           "wait for changes",
		KindOutput:         "write notification",
	}
	for kind, fragment := range cases {
		err := &FatalError{Kind: kind, Path: "d", Err: syscall.ENOENT}
		if !strings.Contains(err.Error(), fragment) || !strings.Contains(err.Error(), `"d"`) {
			t.Fatalf("unexpected %s message %q", kind, err.Error())
		}
	}
}

func TestFatalErrorUnwraps(t *testing.T) {
	err := &FatalError{Kind: KindRegistration, Err: &os.PathError{Op: "stat", Path: "x", Err: syscall.ENOENT}}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
}
