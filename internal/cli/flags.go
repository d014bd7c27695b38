// Package cli holds token helpers for command lines that need looser rules
// than the flag package allows.
package cli

import (
	"fmt"
	"io"
	"strings"
)

// IsOption reports whether token is written as an option. A lone "-" counts.
func IsOption(token string) bool {
	return strings.HasPrefix(token, "-")
}

// SplitOption splits "--name=value" into its parts. Tokens without "=" are
// returned whole with hasValue false.
func SplitOption(token string) (name, value string, hasValue bool) {
	name, value, hasValue = strings.Cut(token, "=")
	return name, value, hasValue
}

// HelpVersionFlags records the help and version switches seen on a command line.
type HelpVersionFlags struct {
	Help    bool
	Version bool
}

// Match sets the matching field and reports whether token was a help or
// version switch.
func (flags *HelpVersionFlags) Match(token string) bool {
	switch token {
	case "-h", "--help":
		flags.Help = true
	case "--version":
		flags.Version = true
	default:
		return false
	}
	return true
}

// WriteOption prints one aligned line of an option table.
func WriteOption(out io.Writer, name, desc string) {
	fmt.Fprintf(out, "  %-22s %s\n", name, desc)
}
