package main

import (
	"context"
	"fmt"
	"time"

	"dirwatch/internal/logging"
	"dirwatch/internal/metrics"
	"dirwatch/internal/stream"
)

const streamShutdownTimeout = 5 * time.Second

type streamRunner struct {
	server *stream.Server
	served chan error
	logger *logging.Logger
}

// startStream binds cfg.Listen before returning so that a busy port fails the
// command before any watch is registered.
func startStream(ctx context.Context, cfg Config, logger *logging.Logger, registry *metrics.Registry) (*streamRunner, error) {
	server := stream.NewServer(ctx, stream.Options{
		Logger:         logger,
		Registry:       registry,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	if err := server.Listen(cfg.Listen); err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Listen, err)
	}
	runner := &streamRunner{
		server: server,
		served: make(chan error, 1),
		logger: logger,
	}
	go func() {
		runner.served <- server.Serve()
	}()
	return runner, nil
}

func (runner *streamRunner) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), streamShutdownTimeout)
	defer cancel()
	if err := runner.server.Shutdown(ctx); err != nil {
		runner.logger.Warn("event stream shutdown failed", map[string]string{
			"error": err.Error(),
		})
	}
	select {
	case err := <-runner.served:
		if err != nil {
			runner.logger.Error("event stream stopped", map[string]string{
				"error": err.Error(),
			})
		}
	case <-ctx.Done():
	}
}
