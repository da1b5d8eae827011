package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bazelment/miniagent/tool"
)

type editParams struct {
	FilePath   string `json:"file_path" jsonschema:"required,description=The absolute path to the file to edit"`
	OldString  string `json:"old_string" jsonschema:"required,description=The text to find and replace (must be unique in the file)"`
	NewString  string `json:"new_string" jsonschema:"required,description=The text to replace old_string with"`
	ReplaceAll bool   `json:"replace_all,omitempty" jsonschema:"description=Replace all occurrences (default false)"`
}

// RegisterEdit adds the edit tool to a registry.
func RegisterEdit(registry *tool.Registry) error {
	return tool.Add(registry, "edit",
		"Edit a file by replacing specific text. The old_string must appear exactly once in the file. Use this for targeted edits rather than rewriting entire files.",
		editFile)
}

func editFile(_ context.Context, params editParams) (string, error) {
	if params.FilePath == "" {
		return "", fmt.Errorf("file_path is required")
	}
	if params.OldString == "" {
		return "", fmt.Errorf("old_string is required")
	}
	if !filepath.IsAbs(params.FilePath) {
		return "", fmt.Errorf("file_path must be absolute, got: %s", params.FilePath)
	}

	raw, err := os.ReadFile(params.FilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", params.FilePath)
		}
		return "", fmt.Errorf("read file: %w", err)
	}
	content := string(raw)

	count := strings.Count(content, params.OldString)
	if count == 0 {
		return "", fmt.Errorf("old_string not found in file")
	}
	if !params.ReplaceAll && count > 1 {
		return "", fmt.Errorf("old_string appears %d times in the file; provide a more specific string or set replace_all=true", count)
	}

	var updated string
	replaced := 1
	if params.ReplaceAll {
		updated = strings.ReplaceAll(content, params.OldString, params.NewString)
		replaced = count
	} else {
		updated = strings.Replace(content, params.OldString, params.NewString, 1)
	}

	if err := os.WriteFile(params.FilePath, []byte(updated), 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	return fmt.Sprintf("Edited %s\nReplaced %d occurrence(s)", params.FilePath, replaced), nil
}
