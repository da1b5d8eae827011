package builtin

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bazelment/miniagent/tool"
)

type grepParams struct {
	Pattern         string `json:"pattern" jsonschema:"required,description=The regex pattern to search for"`
	Path            string `json:"path,omitempty" jsonschema:"description=Directory or file to search in (default: current directory)"`
	Glob            string `json:"glob,omitempty" jsonschema:"description=Glob pattern to filter files (e.g. *.go)"`
	CaseInsensitive bool   `json:"case_insensitive,omitempty" jsonschema:"description=Case insensitive search"`
	HeadLimit       int    `json:"head_limit,omitempty" jsonschema:"description=Maximum number of matching lines"`
}

// RegisterGrep adds the grep tool to a registry.
func RegisterGrep(registry *tool.Registry) error {
	return tool.Add(registry, "grep",
		"Search for a regex pattern in file contents. Returns matching lines as path:line:text.",
		grepFiles)
}

func grepFiles(ctx context.Context, params grepParams) (string, error) {
	if params.Pattern == "" {
		return "", fmt.Errorf("pattern is required")
	}
	root := params.Path
	if root == "" {
		root = "."
	}

	pattern := params.Pattern
	if params.CaseInsensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid regex pattern: %w", err)
	}

	var matches []string
	limit := params.HeadLimit

	searchFile := func(path string) error {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		for i, line := range strings.Split(string(raw), "\n") {
			if re.MatchString(line) {
				matches = append(matches, fmt.Sprintf("%s:%d:\t%s", path, i+1, strings.TrimRight(line, "\r")))
				if limit > 0 && len(matches) >= limit {
					return filepath.SkipAll
				}
			}
		}
		return nil
	}

	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("stat path: %w", err)
	}

	if !info.IsDir() {
		if err := searchFile(root); err != nil && err != filepath.SkipAll {
			return "", err
		}
	} else {
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			name := d.Name()
			if d.IsDir() {
				if strings.HasPrefix(name, ".") && path != root {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasPrefix(name, ".") {
				return nil
			}
			if params.Glob != "" {
				if ok, _ := filepath.Match(params.Glob, name); !ok {
					return nil
				}
			}
			return searchFile(path)
		})
		if err != nil && err != filepath.SkipAll {
			return "", err
		}
	}

	if len(matches) == 0 {
		return "No matches found", nil
	}

	output := strings.Join(matches, "\n")
	result := truncateTail(output, maxOutputLines, maxOutputBytes)
	if result.wasTruncated {
		return result.content + truncationNotice(result, "tail"), nil
	}
	return output, nil
}
