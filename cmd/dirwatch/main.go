package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"dirwatch/internal/logging"
	"dirwatch/internal/metrics"
	"dirwatch/internal/version"
	"dirwatch/internal/watcher"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type watchFunc func(ctx context.Context, cfg watcher.Config, opts watcher.Options, out io.Writer) error

func run(args []string, out io.Writer, errOut io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runWithWatcher(ctx, args, out, errOut, watcher.Watch)
}

func runWithWatcher(ctx context.Context, args []string, out io.Writer, errOut io.Writer, watch watchFunc) int {
	cfg, err := parseArgs(args)
	if err != nil {
		var usage *usageError
		if errors.As(err, &usage) && usage.message != "" {
			fmt.Fprintf(errOut, "ERROR: %s\n", usage.message)
		}
		printUsage(out)
		return exitCodeUsage
	}
	if cfg.ShowHelp {
		printUsage(out)
		return exitCodeSuccess
	}
	if cfg.ShowVersion {
		fmt.Fprintln(out, version.GetVersionInfo().String(programName))
		return exitCodeSuccess
	}

	logger := logging.NewLoggerWithOutput(nil, cfg.logLevel(), errOut)
	registry := &metrics.Registry{}
	backend, err := watcher.NewBackend(cfg.Backend, logger)
	if err != nil {
		return handleWatchError(err, errOut)
	}
	options := watcher.Options{
		Backend: backend,
		Logger:  logger,
		Metrics: registry,
	}

	if cfg.Listen != "" {
		runner, err := startStream(ctx, cfg, logger, registry)
		if err != nil {
			return handleWatchError(err, errOut)
		}
		defer runner.Stop()
		options.Publish = runner.server.Publish
	}

	writer := bufio.NewWriter(out)
	err = watch(ctx, cfg.Watch, options, writer)
	if flushErr := writer.Flush(); flushErr != nil && err == nil {
		err = flushErr
	}
	if err != nil {
		return handleWatchError(err, errOut)
	}
	return exitCodeSuccess
}

// handleWatchError is the single place where watch failures become exit
// codes. The watch handle has already been released when it runs.
func handleWatchError(err error, errOut io.Writer) int {
	if errors.Is(err, context.Canceled) {
		return exitCodeInterrupted
	}
	fmt.Fprintf(errOut, "ERROR: %v\n", err)
	return watcher.ExitCode(err)
}
