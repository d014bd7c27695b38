package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"dirwatch/internal/cli"
	"dirwatch/internal/logging"
	"dirwatch/internal/watcher"
)

const programName = "dirwatch"

type Config struct {
	Watch   watcher.Config
	Backend string
	Listen  string
	// AllowedOrigins restricts websocket clients of the --listen server.
	AllowedOrigins []string
	LogLevel       logging.Level
	Verbose        bool
	Debug          bool
	ShowHelp       bool
	ShowVersion    bool
}

func (cfg Config) logLevel() logging.Level {
	switch {
	case cfg.LogLevel != "":
		return cfg.LogLevel
	case cfg.Debug:
		return logging.LevelDebug
	case cfg.Verbose:
		return logging.LevelInfo
	default:
		return logging.LevelWarning
	}
}

type usageError struct {
	message string
}

func (e *usageError) Error() string {
	if e.message == "" {
		return "directory argument is required"
	}
	return e.message
}

func usageErr(format string, args ...any) error {
	return &usageError{message: fmt.Sprintf(format, args...)}
}

// parseArgs never consumes the token after an option, so every token that
// does not start with "-" is a directory candidate and the last one wins.
// Unknown options are ignored.
func parseArgs(args []string) (Config, error) {
	cfg := Config{Backend: watcher.DefaultBackendName}
	helpVersion := &cli.HelpVersionFlags{}
	var firstErr error

	for _, token := range args {
		if !cli.IsOption(token) {
			cfg.Watch.Path = token
			continue
		}
		if helpVersion.Match(token) {
			continue
		}
		switch token {
		case "-1", "--one-event":
			cfg.Watch.ExitAfterFirstEvent = true
			continue
		case "-0", "--print0":
			cfg.Watch.Delimiter = watcher.DelimiterNUL
			continue
		case "--verbose":
			cfg.Verbose = true
			continue
		case "--debug":
			cfg.Debug = true
			continue
		}

		name, value, hasValue := cli.SplitOption(token)
		if !hasValue {
			continue
		}
		if err := applyValueOption(&cfg, name, value); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	cfg.ShowHelp = helpVersion.Help
	cfg.ShowVersion = helpVersion.Version
	if cfg.ShowHelp || cfg.ShowVersion {
		return cfg, nil
	}
	if firstErr != nil {
		return Config{}, firstErr
	}
	if cfg.Watch.Path == "" {
		return Config{}, &usageError{}
	}
	return cfg, nil
}

func applyValueOption(cfg *Config, name, value string) error {
	switch name {
	case "--backend":
		backend := strings.ToLower(strings.TrimSpace(value))
		for _, known := range watcher.BackendNames() {
			if backend == known {
				cfg.Backend = backend
				return nil
			}
		}
		return usageErr("unknown backend %q (want one of %s)", value, strings.Join(watcher.BackendNames(), ", "))
	case "--timeout":
		timeout, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil || timeout < 0 {
			return usageErr("invalid --timeout value %q", value)
		}
		cfg.Watch.Timeout = timeout
	case "--log-level":
		level, ok := logging.ParseLevel(value)
		if !ok {
			return usageErr("unknown --log-level %q", value)
		}
		cfg.LogLevel = level
	case "--listen":
		addr := strings.TrimSpace(value)
		if addr == "" {
			return usageErr("--listen requires an address")
		}
		cfg.Listen = addr
	case "--allow-origin":
		for _, origin := range strings.Split(value, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	}
	return nil
}

func printUsage(out io.Writer) {
	fmt.Fprintln(out, "Watches for any changes in a directory and its subdirectories.")
	fmt.Fprintln(out, "")
	fmt.Fprintf(out, "Usage: %s [options] <dir to watch for changes>\n", programName)
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Options:")
	cli.WriteOption(out, "-0, --print0", "Use NUL ('\\0') to split output instead of newline ('\\n')")
	cli.WriteOption(out, "-1, --one-event", "Stop watching and exit after the first detected change")
	cli.WriteOption(out, "--backend=NAME", "Watch backend: notify (default), fsnotify, poll")
	cli.WriteOption(out, "--timeout=DURATION", "Log a notice when nothing changes for DURATION (e.g. 30s)")
	cli.WriteOption(out, "--listen=ADDR", "Serve /events (websocket), /metrics and /logs on ADDR")
	cli.WriteOption(out, "--allow-origin=LIST", "Comma-separated browser origins allowed on /events (default: same host)")
	cli.WriteOption(out, "--verbose", "Log watch activity to stderr")
	cli.WriteOption(out, "--debug", "Debug logging (implies --verbose)")
	cli.WriteOption(out, "--log-level=LEVEL", "debug, info, warning or error; overrides --verbose and --debug")
	cli.WriteOption(out, "-h, --help", "Show this help message")
	cli.WriteOption(out, "--version", "Print version and exit")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Unknown options are ignored. If several directories are given, the last one is watched.")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Exit codes:")
	fmt.Fprintln(out, "  0    Stopped after the first change (--one-event)")
	fmt.Fprintln(out, "  1    Usage error")
	fmt.Fprintln(out, "  130  Interrupted")
	fmt.Fprintln(out, "  *    System error code of a failed watch; 2 when there is none or it is 1")
}
