package extractor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"strings"
)

// jsonPayload is the JSON form of a tool call:
// {"name": "...", "arguments": {...} | "..."}.
type jsonPayload struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// extractJSONCalls parses the JSON payload form. A region qualifies as a
// JSON candidate when its content is a single brace-delimited value with
// nothing but whitespace around it; the value is consumed with a balanced
// decoder, so nested objects and braces inside strings are handled exactly.
// Candidates that fail to decode or validate are skipped and the scan
// continues. IDs restart at 1 on every invocation.
func (e *Extractor) extractJSONCalls(text string) ([]ToolCall, []Diagnostic) {
	var calls []ToolCall
	var diags []Diagnostic

	sc := newRegionScanner(text)
	for {
		r, ok := sc.next()
		if !ok {
			break
		}

		inner := r.inner(text)
		braceIdx := strings.IndexByte(inner, '{')
		if braceIdx == -1 || strings.TrimSpace(inner[:braceIdx]) != "" {
			// Not a JSON-form region; the attribute-style fallback
			// may still claim it.
			continue
		}

		payload, end, err := decodePayload(inner[braceIdx:])
		if err != nil {
			if e.debug {
				log.Printf("[EXTRACTOR] Skipping malformed JSON candidate at offset %d: %v", r.start, err)
			}
			diags = append(diags, Diagnostic{
				Kind:   DiagInvalid,
				Format: "json",
				Offset: r.start,
				Reason: err.Error(),
			})
			continue
		}
		if trailing := inner[braceIdx+end:]; strings.TrimSpace(trailing) != "" {
			diags = append(diags, Diagnostic{
				Kind:   DiagInvalid,
				Format: "json",
				Offset: r.start,
				Reason: "trailing content after JSON object",
			})
			continue
		}
		if payload.Name == "" {
			diags = append(diags, Diagnostic{
				Kind:   DiagInvalid,
				Format: "json",
				Offset: r.start,
				Reason: "missing or empty function name",
			})
			continue
		}

		arguments, err := normalizeArguments(payload.Arguments)
		if err != nil {
			diags = append(diags, Diagnostic{
				Kind:   DiagInvalid,
				Format: "json",
				Offset: r.start,
				Reason: err.Error(),
			})
			continue
		}

		calls = append(calls, ToolCall{
			ID:   fmt.Sprintf("qwen3_call_%d", len(calls)+1),
			Type: "function",
			Function: ToolCallFunction{
				Name:      payload.Name,
				Arguments: arguments,
			},
		})
	}

	return calls, diags
}

// decodePayload consumes exactly one balanced JSON value from the start of
// s and reports the byte offset just past it.
func decodePayload(s string) (jsonPayload, int, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	var payload jsonPayload
	if err := dec.Decode(&payload); err != nil {
		return jsonPayload{}, 0, err
	}
	return payload, int(dec.InputOffset()), nil
}

// normalizeArguments turns the decoded arguments value into a JSON string:
// a string value passes through verbatim, a structured value is compacted
// back to JSON text, an absent value becomes "{}".
func normalizeArguments(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "{}", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("invalid arguments string: %w", err)
		}
		return s, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", fmt.Errorf("invalid arguments value: %w", err)
	}
	return buf.String(), nil
}
