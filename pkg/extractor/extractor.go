package extractor

import (
	"log"
	"strings"
)

// Extractor parses tool calls out of model output.
//
// The JSON payload form is tried first; when it yields nothing the
// attribute-style XML form is the only fallback. Malformed candidates are
// skipped and scanning continues; skipped candidates are reported as
// Diagnostics rather than silently discarded.
type Extractor struct {
	debug  bool
	strict bool
	seq    *Sequence
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithDebug enables debug logging of the scan.
func WithDebug(debug bool) Option {
	return func(e *Extractor) { e.debug = debug }
}

// WithStrict controls how a region whose function section never closes is
// classified. Strict treats it as permanently invalid; the default lenient
// mode treats it as incomplete, so a streaming caller keeps buffering.
func WithStrict(strict bool) Option {
	return func(e *Extractor) { e.strict = strict }
}

// WithSequence injects the ID sequence used for attribute-style calls.
// The sequence persists across Extract invocations for as long as the
// caller keeps the Extractor, which makes ID scope an explicit choice:
// one Extractor per session gives per-session IDs, a shared Extractor
// gives process-wide IDs.
func WithSequence(seq *Sequence) Option {
	return func(e *Extractor) { e.seq = seq }
}

// NewExtractor creates an extractor. Unless WithSequence is given, the
// extractor owns a fresh call_universal_N sequence.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{}
	for _, opt := range opts {
		opt(e)
	}
	if e.seq == nil {
		e.seq = NewSequence("call_universal_")
	}
	return e
}

// Extract returns every tool call embedded in text, in order of appearance.
func (e *Extractor) Extract(text string) []ToolCall {
	calls, _ := e.ExtractWithDiagnostics(text)
	return calls
}

// ExtractWithDiagnostics returns the tool calls plus one Diagnostic per
// skipped candidate.
func (e *Extractor) ExtractWithDiagnostics(text string) ([]ToolCall, []Diagnostic) {
	if !strings.Contains(text, openTag) {
		return nil, nil
	}

	calls, diags := e.extractJSONCalls(text)
	if len(calls) == 0 {
		xmlCalls, xmlDiags := e.extractAttrCalls(text)
		calls = xmlCalls
		diags = append(diags, xmlDiags...)
	}

	if e.debug {
		log.Printf("[EXTRACTOR] Parsed %d tool calls (%d skipped) from content (length: %d)",
			len(calls), len(diags), len(text))
	}
	return calls, diags
}

// defaultExtractor backs the package-level convenience functions. Its
// call_universal_N sequence lives for the lifetime of the process.
var defaultExtractor = NewExtractor()

// Extract parses tool calls using a shared process-wide extractor.
func Extract(text string) []ToolCall {
	return defaultExtractor.Extract(text)
}
