package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bazelment/miniagent/tool"
)

type lsParams struct {
	Path string `json:"path" jsonschema:"required,description=Directory path to list (absolute)"`
	All  bool   `json:"all,omitempty" jsonschema:"description=Show hidden files (default false)"`
	Long bool   `json:"long,omitempty" jsonschema:"description=Show detailed information (default false)"`
}

// RegisterLs adds the ls tool to a registry.
func RegisterLs(registry *tool.Registry) error {
	return tool.Add(registry, "ls",
		"List contents of a directory. Shows files and subdirectories sorted by name.",
		listDir)
}

func listDir(_ context.Context, params lsParams) (string, error) {
	if params.Path == "" {
		return "", fmt.Errorf("path is required")
	}
	if !filepath.IsAbs(params.Path) {
		return "", fmt.Errorf("path must be absolute, got: %s", params.Path)
	}

	entries, err := os.ReadDir(params.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("directory not found: %s", params.Path)
		}
		return "", fmt.Errorf("list directory: %w", err)
	}

	filtered := entries[:0]
	for _, entry := range entries {
		if !params.All && strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		filtered = append(filtered, entry)
	}
	sort.Slice(filtered, func(i, j int) bool {
		return strings.ToLower(filtered[i].Name()) < strings.ToLower(filtered[j].Name())
	})

	var lines []string
	for _, entry := range filtered {
		if params.Long {
			lines = append(lines, formatLong(entry))
			continue
		}
		prefix := "-"
		if entry.IsDir() {
			prefix = "d"
		}
		lines = append(lines, fmt.Sprintf("%s %s", prefix, entry.Name()))
	}

	if len(lines) == 0 {
		return fmt.Sprintf("Directory %s is empty", params.Path), nil
	}
	return strings.Join(lines, "\n"), nil
}

func formatLong(entry os.DirEntry) string {
	prefix := "-"
	if entry.IsDir() {
		prefix = "d"
	}
	info, err := entry.Info()
	if err != nil {
		return fmt.Sprintf("%s %8s %s %s", prefix, "?", "?", entry.Name())
	}
	return fmt.Sprintf("%s %8s %s %s",
		prefix, formatSize(info.Size()), info.ModTime().Format("2006-01-02 15:04"), entry.Name())
}

func formatSize(size int64) string {
	switch {
	case size >= 1024*1024:
		return fmt.Sprintf("%.1fM", float64(size)/(1024*1024))
	case size >= 1024:
		return fmt.Sprintf("%.1fK", float64(size)/1024)
	default:
		return fmt.Sprintf("%d", size)
	}
}
