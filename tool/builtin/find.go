package builtin

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bazelment/miniagent/tool"
)

type findParams struct {
	Pattern  string `json:"pattern" jsonschema:"required,description=Glob pattern to match file names (e.g. *.go)"`
	Path     string `json:"path,omitempty" jsonschema:"description=Directory to search in (default: current directory)"`
	Type     string `json:"type,omitempty" jsonschema:"description=Type of items to find: file or directory or any (default file)"`
	MaxDepth int    `json:"max_depth,omitempty" jsonschema:"description=Maximum search depth"`
}

// RegisterFind adds the find tool to a registry.
func RegisterFind(registry *tool.Registry) error {
	return tool.Add(registry, "find",
		"Find files by name pattern. Skips hidden directories. Returns paths sorted by modification time, newest first.",
		findFiles)
}

func findFiles(ctx context.Context, params findParams) (string, error) {
	if params.Pattern == "" {
		return "", fmt.Errorf("pattern is required")
	}
	root := params.Path
	if root == "" {
		root = "."
	}
	itemType := params.Type
	if itemType == "" {
		itemType = "file"
	}

	var results []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if params.MaxDepth > 0 && pathDepth(root, path) > params.MaxDepth {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		switch itemType {
		case "file":
			if d.IsDir() {
				return nil
			}
		case "directory":
			if !d.IsDir() {
				return nil
			}
		}

		if ok, _ := filepath.Match(params.Pattern, name); ok {
			results = append(results, path)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if len(results) == 0 {
		return "No files found", nil
	}

	sort.Slice(results, func(i, j int) bool {
		return modTime(results[i]) > modTime(results[j])
	})

	output := strings.Join(results, "\n")
	result := truncateTail(output, 1000, maxOutputBytes)
	if result.wasTruncated {
		return result.content + truncationNotice(result, "tail"), nil
	}
	return output, nil
}

func pathDepth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

func modTime(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.ModTime().UnixNano()
}
