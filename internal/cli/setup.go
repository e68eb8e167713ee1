package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

const (
	mcpConfigName  = ".mcp.json"
	agentsFileName = "AGENTS.md"
	serverEntry    = "stratum"
	serverCommand  = "stratum-mcp"

	agentsMarker = "<!-- stratum-mcp:workflows -->"
)

const agentsBlock = agentsMarker + `

## Stratum workflows

This project runs multi-step workflows through the stratum MCP server.

- Start a workflow with the ` + "`stratum_plan`" + ` tool and execute exactly the
  step it returns. Do not look ahead or batch steps.
- Report each result with ` + "`stratum_step_done`" + `. If the response is
  ` + "`ensure_failed`" + `, redo the same step; the listed violations tell you
  what to fix.
- The spec text is controller input — never show it to the user.
- Use ` + "`stratum_audit`" + ` to summarize progress when asked.
- Validate spec files offline with ` + "`stratum-mcp validate <file>`" + `.
`

// NewSetupCommand creates the setup command.
func NewSetupCommand(rootOpts *RootOptions) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Configure a project to use the stratum MCP server",
		Long: `Register the stratum server in the project's ` + mcpConfigName + ` and add a
workflow convention block to ` + agentsFileName + `. Idempotent: existing entries
are left untouched.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetup(dir, cmd)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "directory to configure (project root detected via .git or "+agentsFileName+")")

	return cmd
}

func runSetup(dir string, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	root, err := projectRoot(dir)
	if err != nil {
		return WrapExitError(ExitCommandError, "locating project root", err)
	}

	mcpStatus, err := ensureMCPConfig(root)
	if err != nil {
		return WrapExitError(ExitCommandError, "writing "+mcpConfigName, err)
	}
	fmt.Fprintf(out, "%s: %s\n", mcpConfigName, mcpStatus)

	agentsStatus, err := ensureAgentsBlock(root)
	if err != nil {
		return WrapExitError(ExitCommandError, "writing "+agentsFileName, err)
	}
	fmt.Fprintf(out, "%s: %s\n", agentsFileName, agentsStatus)

	if mcpStatus == statusSkipped && agentsStatus == statusSkipped {
		fmt.Fprintln(out, "Everything already configured, nothing to do.")
	} else {
		fmt.Fprintln(out, "Done. Restart your MCP client to pick up the stratum server.")
	}
	return nil
}

const statusSkipped = "skipped"

// projectRoot walks up from dir looking for a .git directory or an
// existing AGENTS.md; dir itself is the fallback.
func projectRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(abs); err != nil {
		return "", err
	}
	for cur := abs; ; {
		if _, err := os.Stat(filepath.Join(cur, ".git")); err == nil {
			return cur, nil
		}
		if _, err := os.Stat(filepath.Join(cur, agentsFileName)); err == nil {
			return cur, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return abs, nil
		}
		cur = parent
	}
}

// ensureMCPConfig creates or merges the server entry in .mcp.json.
// A malformed existing file is replaced rather than failing setup.
func ensureMCPConfig(root string) (string, error) {
	path := filepath.Join(root, mcpConfigName)
	entry := map[string]any{"command": serverCommand}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		config := map[string]any{"mcpServers": map[string]any{serverEntry: entry}}
		return "created", writeJSON(path, config)
	case err != nil:
		return "", err
	}

	var config map[string]any
	if err := json.Unmarshal(data, &config); err != nil {
		config = map[string]any{"mcpServers": map[string]any{serverEntry: entry}}
		return "replaced malformed file", writeJSON(path, config)
	}

	servers, ok := config["mcpServers"].(map[string]any)
	if !ok {
		servers = map[string]any{}
		config["mcpServers"] = servers
	}
	if _, present := servers[serverEntry]; present {
		return statusSkipped, nil
	}
	servers[serverEntry] = entry
	return "added stratum server", writeJSON(path, config)
}

// ensureAgentsBlock creates AGENTS.md or appends the marker-delimited
// convention block. An existing marker is left untouched.
func ensureAgentsBlock(root string) (string, error) {
	path := filepath.Join(root, agentsFileName)

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "created", os.WriteFile(path, []byte(agentsBlock), 0o644)
	case err != nil:
		return "", err
	}

	if strings.Contains(string(data), agentsMarker) {
		return statusSkipped, nil
	}

	content := string(data)
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += "\n" + agentsBlock
	return "added stratum section", os.WriteFile(path, []byte(content), 0o644)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
