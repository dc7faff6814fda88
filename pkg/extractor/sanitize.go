package extractor

import "strings"

// SanitizeContent strips every tool-call region from text, regardless of
// which inner format it held, and returns the remaining prose for display.
// When partial is true the output is additionally truncated at the first
// unterminated <tool_call> opener, so an in-progress call is never shown
// while streaming. Only leading and trailing whitespace is trimmed.
//
// The display path must never break: on any processing failure the
// original text is returned unchanged.
func SanitizeContent(text string, partial bool) (display string) {
	defer func() {
		if r := recover(); r != nil {
			display = text
		}
	}()

	var b strings.Builder
	pos := 0
	sc := newRegionScanner(text)
	for {
		r, ok := sc.next()
		if !ok {
			break
		}
		b.WriteString(text[pos:r.start])
		pos = r.end
	}
	b.WriteString(text[pos:])

	out := b.String()
	if partial {
		if idx := strings.Index(out, openTag); idx != -1 {
			out = out[:idx]
		}
	}
	return strings.TrimSpace(out)
}
