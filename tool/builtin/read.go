// Package builtin provides the concrete side-effecting capabilities an
// agent uses to work on a filesystem: reading, writing, and editing
// files, running shell commands, and searching.
package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bazelment/miniagent/tool"
)

const (
	defaultReadLimit = 2000
)

type readParams struct {
	FilePath string `json:"file_path" jsonschema:"required,description=The absolute path to the file to read"`
	Offset   int    `json:"offset,omitempty" jsonschema:"description=Line number to start reading from (1-based; default 1)"`
	Limit    int    `json:"limit,omitempty" jsonschema:"description=Maximum number of lines to read (default 2000)"`
}

// RegisterRead adds the read tool to a registry.
func RegisterRead(registry *tool.Registry) error {
	return tool.Add(registry, "read",
		"Read the contents of a file. Returns file content with line numbers. For large files, content may be truncated.",
		readFile)
}

func readFile(_ context.Context, params readParams) (string, error) {
	if params.FilePath == "" {
		return "", fmt.Errorf("file_path is required")
	}
	if !filepath.IsAbs(params.FilePath) {
		return "", fmt.Errorf("file_path must be absolute, got: %s", params.FilePath)
	}

	info, err := os.Stat(params.FilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", params.FilePath)
		}
		return "", fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("not a file: %s", params.FilePath)
	}

	raw, err := os.ReadFile(params.FilePath)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}

	offset := params.Offset
	if offset < 1 {
		offset = 1
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultReadLimit
	}

	lines := strings.Split(strings.TrimSuffix(string(raw), "\n"), "\n")
	totalLines := len(lines)

	start := offset - 1
	if start > totalLines {
		start = totalLines
	}
	end := start + limit
	if end > totalLines {
		end = totalLines
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		if i > start {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%6d\t%s", i+1, lines[i])
	}

	result := truncateTail(b.String(), maxOutputLines, maxOutputBytes)
	output := result.content
	if result.wasTruncated {
		output += truncationNotice(result, "tail")
	}
	if end < totalLines {
		output += fmt.Sprintf("\n\n[File has %d total lines. Use offset=%d to read more.]", totalLines, end+1)
	}
	return output, nil
}
