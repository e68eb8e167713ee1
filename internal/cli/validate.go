package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stratumhq/stratum/internal/protocol"
	"github.com/stratumhq/stratum/internal/spec"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <spec>",
		Short: "Validate a workflow spec without executing it",
		Long: `Validate a workflow spec offline: YAML syntax, structural schema,
and semantic cross-references.

The argument is treated as a file path when a file exists at that path,
otherwise as inline YAML text.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, arg string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
	}

	text, err := specText(arg)
	if err != nil {
		return WrapExitError(ExitCommandError, "reading spec", err)
	}

	if _, err := spec.Parse(text); err != nil {
		env := protocol.Translate(err)
		if err := formatter.Error(env); err != nil {
			return WrapExitError(ExitCommandError, "writing output", err)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %s", env.ErrorType, env.Message))
	}

	if err := formatter.Success("OK"); err != nil {
		return WrapExitError(ExitCommandError, "writing output", err)
	}
	return nil
}

// specText resolves the validate argument: file contents when a file
// exists at that path, the argument itself otherwise.
func specText(arg string) (string, error) {
	info, err := os.Stat(arg)
	if err != nil || info.IsDir() {
		return arg, nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
