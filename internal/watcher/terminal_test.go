//go:build !windows

package watcher

import (
	"bufio"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/creack/pty"
)

// Continuous mode must push each line to an interactive consumer before the
// next batch arrives, even when stdout is buffered.
func TestRunFlushesEachBatchToTerminal(t *testing.T) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	t.Cleanup(func() {
		tty.Close()
		ptmx.Close()
	})

	backend := &fakeBackend{script: signals(1)}
	session := newTestSession(t, Config{Path: "/srv/data"}, backend, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- session.Run(ctx, bufio.NewWriterSize(tty, 4096))
	}()

	lines := make(chan string, 1)
	go func() {
		reader := bufio.NewReader(ptmx)
		line, err := reader.ReadString('\n')
		if err == nil {
			lines <- line
		}
	}()

	select {
	case line := <-lines:
		if strings.TrimRight(line, "\r\n") != "Content of (/srv/data) directory has changed." {
			t.Fatalf("unexpected terminal line %q", line)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not flushed to the terminal")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run did not return after cancel")
	}
}
