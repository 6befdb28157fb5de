// Package hooks implements the context capture and retrieval hook handlers
// invoked by the host agent runtime.
//
// Every handler follows the same contract: read a JSON event from stdin,
// optionally write context to stdout, and never fail - a hook that breaks
// the host is worse than a hook that does nothing.
package hooks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// maxStdinBytes caps stdin reads. Hook payloads are small JSON objects;
// 1 MB is generous headroom that prevents unbounded allocation.
const maxStdinBytes = 1 << 20

// ToolInput carries the tool parameters the core consumes.
type ToolInput struct {
	FilePath     string `json:"file_path"`
	Path         string `json:"path"`
	SubagentType string `json:"subagent_type"`
	Prompt       string `json:"prompt"`
}

// Event is the JSON the host sends on stdin to hooks.
type Event struct {
	SessionID    string          `json:"session_id"`
	SessionIDOld string          `json:"sessionId"` // older hosts sent camelCase
	CWD          string          `json:"cwd"`
	ToolName     string          `json:"tool_name"`
	ToolInput    ToolInput       `json:"tool_input"`
	ToolResult   json.RawMessage `json:"tool_result"`
}

// Session returns the session id, tolerating the legacy field name.
func (e *Event) Session() string {
	if e.SessionID != "" {
		return e.SessionID
	}
	return e.SessionIDOld
}

// ResultText flattens the tool result to text for heuristic scanning. The
// result may be a plain string or a structured object; anything else is
// scanned in its raw JSON form.
func (e *Event) ResultText() string {
	if len(e.ToolResult) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.ToolResult, &s); err == nil {
		return s
	}
	return string(e.ToolResult)
}

// ReadEvent parses an event from a reader, typically stdin.
func ReadEvent(r io.Reader) (*Event, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxStdinBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read event: %w", err)
	}
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("failed to parse event: %w", err)
	}
	if event.CWD == "" {
		event.CWD, _ = os.Getwd()
	}
	return &event, nil
}

// sessionStartOutput is the JSON shape the host expects from session-start.
type sessionStartOutput struct {
	HookSpecificOutput hookSpecific `json:"hookSpecificOutput"`
}

type hookSpecific struct {
	HookEventName     string `json:"hookEventName"`
	AdditionalContext string `json:"additionalContext"`
}

// WriteSessionStartOutput emits the additionalContext envelope, or nothing
// when there is no context to inject.
func WriteSessionStartOutput(w io.Writer, context string) {
	if strings.TrimSpace(context) == "" {
		return
	}
	out := sessionStartOutput{
		HookSpecificOutput: hookSpecific{
			HookEventName:     "SessionStart",
			AdditionalContext: context,
		},
	}
	data, err := json.Marshal(out)
	if err != nil {
		return
	}
	fmt.Fprintln(w, string(data))
}
