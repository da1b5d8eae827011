package builtin

import (
	"fmt"
	"strings"
)

const (
	maxOutputLines = 2000
	maxOutputBytes = 256000
)

// truncationResult describes one truncation pass over tool output.
type truncationResult struct {
	content       string
	wasTruncated  bool
	originalLines int
	originalBytes int
	finalLines    int
	finalBytes    int
}

func (r truncationResult) linesRemoved() int {
	return r.originalLines - r.finalLines
}

// truncateTail keeps the head of content, dropping lines and bytes past
// the limits.
func truncateTail(content string, maxLines, maxBytes int) truncationResult {
	r := truncationResult{
		content:       content,
		originalLines: countLines(content),
		originalBytes: len(content),
	}
	if r.originalLines <= maxLines && r.originalBytes <= maxBytes {
		r.finalLines = r.originalLines
		r.finalBytes = r.originalBytes
		return r
	}

	lines := strings.Split(content, "\n")
	if len(lines) > maxLines {
		content = strings.Join(lines[:maxLines], "\n")
	}
	if len(content) > maxBytes {
		content = content[:maxBytes]
		if idx := strings.LastIndexByte(content, '\n'); idx != -1 {
			content = content[:idx]
		}
	}

	r.content = content
	r.wasTruncated = true
	r.finalLines = countLines(content)
	r.finalBytes = len(content)
	return r
}

// truncateHead keeps the tail of content, dropping lines and bytes from
// the front.
func truncateHead(content string, maxLines, maxBytes int) truncationResult {
	r := truncationResult{
		content:       content,
		originalLines: countLines(content),
		originalBytes: len(content),
	}
	if r.originalLines <= maxLines && r.originalBytes <= maxBytes {
		r.finalLines = r.originalLines
		r.finalBytes = r.originalBytes
		return r
	}

	lines := strings.Split(content, "\n")
	if len(lines) > maxLines {
		content = strings.Join(lines[len(lines)-maxLines:], "\n")
	}
	if len(content) > maxBytes {
		content = content[len(content)-maxBytes:]
		if idx := strings.IndexByte(content, '\n'); idx != -1 {
			content = content[idx+1:]
		}
	}

	r.content = content
	r.wasTruncated = true
	r.finalLines = countLines(content)
	r.finalBytes = len(content)
	return r
}

func truncationNotice(r truncationResult, direction string) string {
	if !r.wasTruncated {
		return ""
	}
	return fmt.Sprintf(
		"\n[Output truncated: removed %d lines from %s]\n[Original: %d lines, %d bytes]\n[Showing: %d lines, %d bytes]",
		r.linesRemoved(), direction, r.originalLines, r.originalBytes, r.finalLines, r.finalBytes,
	)
}

func countLines(content string) int {
	if content == "" {
		return 0
	}
	return strings.Count(content, "\n") + 1
}
