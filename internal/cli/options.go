// Package cli implements the db-catalogue command line.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/electwix/db-catalogue/internal/config"
)

// Version is reported by the version command and --version.
var Version = "0.1.0"

// Options holds the flags shared by every command.
type Options struct {
	ConfigPath   string
	StrictConfig bool
	Strict       bool
	Verbose      bool
	JSONLogs     bool
}

// BindFlags registers the global flags on fs.
func (o *Options) BindFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.ConfigPath, "config", "c", config.DefaultPath, "Path to configuration file")
	fs.BoolVar(&o.StrictConfig, "strict-config", false, "Treat configuration warnings as errors")
	fs.BoolVar(&o.Strict, "strict", false, "Reject nullable and repeated primary keys")
	fs.BoolVarP(&o.Verbose, "verbose", "v", false, "Enable verbose logging")
	fs.BoolVar(&o.JSONLogs, "log-json", false, "Write logs as JSON lines")
}

// ExitError carries a process exit code. An empty Message means the failure
// has already been reported.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Message
}

// ExitCode maps err onto a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exit *ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	return 1
}
