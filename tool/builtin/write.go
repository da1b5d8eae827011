package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bazelment/miniagent/tool"
)

type writeParams struct {
	FilePath string `json:"file_path" jsonschema:"required,description=The absolute path to the file to write"`
	Content  string `json:"content" jsonschema:"required,description=The content to write to the file"`
}

// RegisterWrite adds the write tool to a registry.
func RegisterWrite(registry *tool.Registry) error {
	return tool.Add(registry, "write",
		"Write content to a file. Creates the file if it doesn't exist, overwrites if it does. Automatically creates parent directories.",
		writeFile)
}

func writeFile(_ context.Context, params writeParams) (string, error) {
	if params.FilePath == "" {
		return "", fmt.Errorf("file_path is required")
	}
	if !filepath.IsAbs(params.FilePath) {
		return "", fmt.Errorf("file_path must be absolute, got: %s", params.FilePath)
	}

	if err := os.MkdirAll(filepath.Dir(params.FilePath), 0o755); err != nil {
		return "", fmt.Errorf("create directories: %w", err)
	}

	_, statErr := os.Stat(params.FilePath)
	existed := statErr == nil

	if err := os.WriteFile(params.FilePath, []byte(params.Content), 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	lines := 0
	if params.Content != "" {
		lines = strings.Count(params.Content, "\n") + 1
	}
	action := "Created"
	if existed {
		action = "Updated"
	}
	return fmt.Sprintf("%s file: %s\nLines: %d\nBytes: %d", action, params.FilePath, lines, len(params.Content)), nil
}
