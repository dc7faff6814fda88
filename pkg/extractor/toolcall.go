// Package extractor pulls structured tool calls out of model-generated text.
//
// Qwen3-style output embeds tool calls in one of two tagged forms inside
// <tool_call>...</tool_call> regions: a JSON payload
// {"name": ..., "arguments": ...} or attribute-style markup
// <function=name><parameter=key>value</parameter></function>.
// The extractor decodes both, sanitizes the surrounding text for display,
// and classifies partially streamed tails so callers know when to keep
// buffering.
package extractor

import (
	"fmt"
	"sync/atomic"
)

// ToolCall represents a parsed tool call in OpenAI wire shape.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction represents the function part of a tool call.
// Arguments always holds a JSON document serialized to a string.
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Sequence generates sequential tool call IDs with a fixed prefix.
// It is safe for concurrent use; each caller that needs its own ID scope
// (per request, per session) owns its own Sequence instead of sharing
// hidden global state.
type Sequence struct {
	prefix string
	n      atomic.Int64
}

// NewSequence creates a sequence producing prefix1, prefix2, ...
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

// Next returns the next ID in the sequence.
func (s *Sequence) Next() string {
	return fmt.Sprintf("%s%d", s.prefix, s.n.Add(1))
}

// DiagnosticKind classifies why a tool call candidate was skipped.
type DiagnosticKind string

const (
	// DiagInvalid marks a candidate that can never become a valid call.
	DiagInvalid DiagnosticKind = "invalid"
	// DiagIncomplete marks a candidate that may complete with more
	// streamed text.
	DiagIncomplete DiagnosticKind = "incomplete"
)

// Diagnostic reports a skipped tool call candidate.
type Diagnostic struct {
	Kind   DiagnosticKind `json:"kind"`
	Format string         `json:"format"` // "json" or "attr"
	Offset int            `json:"offset"` // byte offset of the region opener
	Reason string         `json:"reason"`
}
