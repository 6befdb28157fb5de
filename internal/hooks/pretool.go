package hooks

import (
	"fmt"
	"os"
)

// largeFileThreshold is the size beyond which reading a file whole mostly
// wastes context window; the chunker reads it progressively instead.
const largeFileThreshold = 256 * 1024

// PreToolUse may return an advisory message when the host is about to read a
// very large file. Advisory only: it never rejects or rewrites the tool call.
func PreToolUse(event *Event) string {
	if event.ToolName != "Read" {
		return ""
	}
	path := event.ToolInput.FilePath
	if path == "" {
		path = event.ToolInput.Path
	}
	if path == "" || isExcludedPath(path) {
		return ""
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return ""
	}
	if info.Size() <= largeFileThreshold {
		return ""
	}

	return fmt.Sprintf(
		"Note: %s is %d KB. Consider the progressive reader (AST chunker) instead of reading it whole.",
		path, info.Size()/1024)
}
