package extractor

import (
	"encoding/json"
	"log"
	"strings"
)

// valueCutset is what gets trimmed from parameter values.
const valueCutset = " \t\r\n"

// extractAttrCalls parses the attribute-style form:
// <tool_call><function=name><parameter=key>value</parameter>...</function></tool_call>.
// Invoked only when the JSON form yields no calls. Region scanning is a
// literal substring walk; a region missing its function marker or closer is
// skipped and scanning resumes after the region. IDs come from the
// extractor's sequence and keep counting across invocations.
func (e *Extractor) extractAttrCalls(text string) ([]ToolCall, []Diagnostic) {
	var calls []ToolCall
	var diags []Diagnostic

	incompleteKind := DiagIncomplete
	if e.strict {
		incompleteKind = DiagInvalid
	}

	sc := newRegionScanner(text)
	for {
		r, ok := sc.next()
		if !ok {
			break
		}
		content := r.inner(text)

		funcStart := strings.Index(content, functionOpen)
		if funcStart == -1 {
			continue
		}

		nameStart := funcStart + len(functionOpen)
		nameLen := strings.Index(content[nameStart:], ">")
		if nameLen == -1 {
			diags = append(diags, Diagnostic{
				Kind:   DiagInvalid,
				Format: "attr",
				Offset: r.start,
				Reason: "function marker never closes",
			})
			continue
		}
		funcName := content[nameStart : nameStart+nameLen]
		if funcName == "" {
			diags = append(diags, Diagnostic{
				Kind:   DiagInvalid,
				Format: "attr",
				Offset: r.start,
				Reason: "empty function name",
			})
			continue
		}

		funcEnd := strings.Index(content, functionClose)
		if funcEnd == -1 {
			// The function name parsed but its section never closed.
			// Lenient mode reports it as incomplete so a streaming
			// caller can wait for more text.
			diags = append(diags, Diagnostic{
				Kind:   incompleteKind,
				Format: "attr",
				Offset: r.start,
				Reason: "function section never closes",
			})
			continue
		}
		paramsStart := nameStart + nameLen + 1
		if funcEnd < paramsStart {
			diags = append(diags, Diagnostic{
				Kind:   DiagInvalid,
				Format: "attr",
				Offset: r.start,
				Reason: "function closer precedes function marker",
			})
			continue
		}

		args := parseParameters(content[paramsStart:funcEnd])
		argsJSON, err := json.Marshal(args)
		if err != nil {
			diags = append(diags, Diagnostic{
				Kind:   DiagInvalid,
				Format: "attr",
				Offset: r.start,
				Reason: err.Error(),
			})
			continue
		}

		call := ToolCall{
			ID:   e.seq.Next(),
			Type: "function",
			Function: ToolCallFunction{
				Name:      funcName,
				Arguments: string(argsJSON),
			},
		}
		if e.debug {
			log.Printf("[EXTRACTOR] Parsed attribute-style tool call: name=%s, args=%s", funcName, argsJSON)
		}
		calls = append(calls, call)
	}

	return calls, diags
}

// parseParameters collects <parameter=key>value</parameter> pairs. The
// first pair missing its opening or closing marker stops collection;
// earlier pairs are kept. Values are trimmed of surrounding whitespace and
// a repeated key overwrites the earlier value.
func parseParameters(section string) map[string]string {
	params := make(map[string]string)

	pos := 0
	for {
		rel := strings.Index(section[pos:], parameterOpen)
		if rel == -1 {
			break
		}
		nameStart := pos + rel + len(parameterOpen)

		nameLen := strings.Index(section[nameStart:], ">")
		if nameLen == -1 {
			break
		}
		key := section[nameStart : nameStart+nameLen]

		valueStart := nameStart + nameLen + 1
		valueLen := strings.Index(section[valueStart:], parameterClose)
		if valueLen == -1 {
			break
		}

		params[key] = strings.Trim(section[valueStart:valueStart+valueLen], valueCutset)
		pos = valueStart + valueLen + len(parameterClose)
	}

	return params
}
