package watcher

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dirwatch/internal/logging"
	"dirwatch/internal/metrics"
)

type flusher interface {
	Flush() error
}

// Session watches one directory tree and reports change batches.
type Session struct {
	config   Config
	resolved string
	mask     ChangeMask
	backend  Backend
	logger   *logging.Logger
	metrics  *metrics.Registry
	publish  func(Notification)
	sequence uint64
	now      func() time.Time
}

// NewSession resolves the configured path to an absolute one. The directory
// itself is not checked until Run registers the watch.
func NewSession(config Config, options Options) (*Session, error) {
	if strings.TrimSpace(config.Path) == "" {
		return nil, &FatalError{Kind: KindPathResolution, Err: ErrPathRequired}
	}
	resolved, err := filepath.Abs(config.Path)
	if err != nil {
		return nil, &FatalError{Kind: KindPathResolution, Path: config.Path, Err: err}
	}

	backend := options.Backend
	if backend == nil {
		backend, err = NewBackend(DefaultBackendName, options.Logger)
		if err != nil {
			return nil, err
		}
	}

	return &Session{
		config:   config,
		resolved: resolved,
		mask:     DefaultChangeMask,
		backend:  backend,
		logger: options.Logger.With(map[string]string{
			"path":    resolved,
			"backend": backend.Name(),
		}),
		metrics: options.Metrics,
		publish: options.Publish,
		now:     time.Now,
	}, nil
}

func (s *Session) ResolvedPath() string {
	return s.resolved
}

// Run registers the watch and reports change batches to out until the first
// batch in one-shot mode, a fatal error or ctx is done. The registration is
// released on every return path. Cancellation returns ctx.Err().
func (s *Session) Run(ctx context.Context, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	handle, err := s.backend.Register(s.resolved, true, s.mask)
	if err != nil {
		return s.fatal(KindRegistration, err)
	}
	defer func() {
		if closeErr := handle.Close(); closeErr != nil {
			s.logger.Warn("watch release failed", map[string]string{"error": closeErr.Error()})
		}
	}()
	s.metrics.IncRegistrations()
	s.logger.Info("watch registered", map[string]string{
		"mask":     s.mask.String(),
		"one_shot": strconv.FormatBool(s.config.ExitAfterFirstEvent),
	})

	for {
		status, waitErr := handle.Wait(ctx, s.config.Timeout)
		switch status {
		case WaitSignaled:
		case WaitTimeout:
			s.metrics.IncWaitTimeouts()
			s.logger.Info("no changes in the timeout period", map[string]string{
				"timeout": s.config.Timeout.String(),
			})
			continue
		default:
			if ctxErr := ctx.Err(); ctxErr != nil && (waitErr == nil || errors.Is(waitErr, ctxErr)) {
				s.logger.Debug("watch cancelled", nil)
				return ctxErr
			}
			if waitErr == nil {
				waitErr = ErrUnhandledWaitStatus
			}
			return s.fatal(KindWait, waitErr)
		}

		if err := s.emit(out); err != nil {
			return s.fatal(KindOutput, err)
		}
		if err := handle.Rearm(); err != nil {
			return s.fatal(KindRearm, err)
		}
		s.metrics.IncRearms()

		if err := flush(out); err != nil {
			return s.fatal(KindOutput, err)
		}
		if s.config.ExitAfterFirstEvent {
			return nil
		}
	}
}

func (s *Session) emit(out io.Writer) error {
	s.sequence++
	notification := Notification{
		Path:         s.config.Path,
		ResolvedPath: s.resolved,
		Sequence:     s.sequence,
		Backend:      s.backend.Name(),
		OccurredAt:   s.now().UTC(),
	}
	line := make([]byte, 0, len(s.config.Path)+40)
	line = append(line, notification.Message()...)
	line = append(line, s.config.Delimiter.Byte())
	if _, err := out.Write(line); err != nil {
		return err
	}
	s.metrics.IncNotifications()
	s.logger.Debug("change batch reported", map[string]string{
		"sequence": strconv.FormatUint(s.sequence, 10),
	})
	if s.publish != nil {
		s.publish(notification)
	}
	return nil
}

func (s *Session) fatal(kind ErrorKind, err error) error {
	s.metrics.IncFatalError(string(kind))
	s.logger.Debug("watch failed", map[string]string{
		"kind":  string(kind),
		"error": err.Error(),
	})
	return &FatalError{Kind: kind, Path: s.config.Path, Err: err}
}

func flush(out io.Writer) error {
	if f, ok := out.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// Watch runs a single session. It is the entry point used by the CLI.
func Watch(ctx context.Context, config Config, options Options, out io.Writer) error {
	session, err := NewSession(config, options)
	if err != nil {
		var fatalErr *FatalError
		if errors.As(err, &fatalErr) {
			options.Metrics.IncFatalError(string(fatalErr.Kind))
		}
		return err
	}
	return session.Run(ctx, out)
}
