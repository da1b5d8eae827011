package builtin

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/bazelment/miniagent/tool"
)

const defaultBashTimeout = 120 * time.Second

type bashParams struct {
	Command    string `json:"command" jsonschema:"required,description=The command to execute"`
	Timeout    int    `json:"timeout,omitempty" jsonschema:"description=Timeout in seconds (default 120)"`
	WorkingDir string `json:"working_dir,omitempty" jsonschema:"description=Working directory (default: current directory)"`
}

// RegisterBash adds the bash tool to a registry.
func RegisterBash(registry *tool.Registry) error {
	return tool.Add(registry, "bash",
		"Execute a bash command in the shell. Commands run in the working directory. Output may be truncated for large outputs. Use timeout to limit execution time.",
		runBash)
}

func runBash(ctx context.Context, params bashParams) (string, error) {
	if params.Command == "" {
		return "", fmt.Errorf("command is required")
	}

	if params.WorkingDir != "" {
		info, err := os.Stat(params.WorkingDir)
		if err != nil {
			return "", fmt.Errorf("working directory does not exist: %s", params.WorkingDir)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("not a directory: %s", params.WorkingDir)
		}
	}

	timeout := defaultBashTimeout
	if params.Timeout > 0 {
		timeout = time.Duration(params.Timeout) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", params.Command)
	cmd.Dir = params.WorkingDir

	out, err := cmd.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("command timed out after %s\nCommand: %s", timeout, params.Command)
	}

	var parts []string
	if len(out) > 0 {
		parts = append(parts, string(out))
	}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			parts = append(parts, fmt.Sprintf("[exit code: %d]", exitErr.ExitCode()))
		} else {
			return "", fmt.Errorf("execute command: %w", err)
		}
	}

	output := strings.Join(parts, "\n")
	result := truncateTail(output, maxOutputLines, maxOutputBytes)
	if result.wasTruncated {
		return result.content + truncationNotice(result, "tail"), nil
	}
	if output == "" {
		return "[Command completed with no output]", nil
	}
	return output, nil
}
