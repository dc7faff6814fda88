package extractor

import "strings"

// tailState classifies what construct is still open at the end of a text
// fragment. stateComplete means nothing is pending.
type tailState int

const (
	stateComplete tailState = iota
	stateOpenCall
	stateOpenJSON
	stateOpenFunction
	stateOpenParameter
)

// IsPartialToolCall reports whether the tail of a streaming buffer is a
// syntactically incomplete tool call, meaning the caller should keep
// buffering before finalizing. It is a pure predicate with no side effects.
func IsPartialToolCall(text string) bool {
	return classifyTail(text) != stateComplete
}

// classifyTail walks the fragment's literal delimiters and reports which
// construct, if any, is still open at end of input:
//
//   - a <tool_call> opener with no closer anywhere after it;
//   - a tool-call region opening onto a JSON object whose brace never
//     closes before the fragment ends;
//   - a <function= marker with no </function> after it, or a <parameter=
//     after that point with no </parameter> after it.
func classifyTail(text string) tailState {
	if text == "" {
		return stateComplete
	}

	pos := 0
	for {
		rel := strings.Index(text[pos:], openTag)
		if rel == -1 {
			break
		}
		open := pos + rel
		closeRel := strings.Index(text[open:], closeTag)
		if closeRel == -1 {
			return stateOpenCall
		}
		pos = open + closeRel + len(closeTag)
	}

	if last := strings.LastIndex(text, openTag); last != -1 {
		j := last + len(openTag)
		for j < len(text) && strings.IndexByte(valueCutset, text[j]) != -1 {
			j++
		}
		if j < len(text) && text[j] == '{' && !strings.Contains(text[j:], "}") {
			return stateOpenJSON
		}
	}

	if f := strings.LastIndex(text, functionOpen); f != -1 {
		tail := text[f:]
		if !strings.Contains(tail, functionClose) {
			return stateOpenFunction
		}
		if p := strings.LastIndex(tail, parameterOpen); p != -1 &&
			!strings.Contains(tail[p:], parameterClose) {
			return stateOpenParameter
		}
	}

	return stateComplete
}
