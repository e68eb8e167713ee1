// Package cli implements the stratum-mcp command tree: the default
// server loop plus the offline validate and setup commands.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/stratumhq/stratum/internal/controller"
	"github.com/stratumhq/stratum/internal/server"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	LogLevel string // "debug" | "info" | "warn" | "error"
	Format   string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command. Running it without a
// subcommand starts the MCP server loop on stdio.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "stratum-mcp",
		Short: "Deterministic controller for contract-checked agent workflows",
		Long: `stratum-mcp serves workflow specs over MCP stdio: it plans flows,
dispatches steps one at a time, and checks every reported result against
its output contract and ensure postconditions.

Without a subcommand it starts the server loop. stdout carries the
protocol stream; logs go to stderr.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(opts.LogLevel)
			ctrl := controller.New(controller.WithLogger(log))
			if err := server.New(ctrl, log).Run(); err != nil {
				return WrapExitError(ExitCommandError, "mcp server stopped", err)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewSetupCommand(opts))

	return cmd
}

func newLogger(level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(level),
	}))
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
