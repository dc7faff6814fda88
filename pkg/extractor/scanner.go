package extractor

import "strings"

// Literal tag grammar. Case-sensitive, no escaping, no namespacing.
const (
	openTag  = "<tool_call>"
	closeTag = "</tool_call>"

	functionOpen  = "<function="
	functionClose = "</function>"

	parameterOpen  = "<parameter="
	parameterClose = "</parameter>"
)

// region is one <tool_call>...</tool_call> occurrence.
// start/end span the tags, innerStart/innerEnd the content between them.
type region struct {
	start, innerStart, innerEnd, end int
}

// inner returns the region content between the tags.
func (r region) inner(text string) string {
	return text[r.innerStart:r.innerEnd]
}

// regionScanner walks a text buffer yielding non-overlapping tool-call
// regions in order of appearance. An opening tag with no matching closer
// is skipped and the cursor advances past the opener, so unterminated
// input cannot loop.
type regionScanner struct {
	text string
	pos  int
}

func newRegionScanner(text string) *regionScanner {
	return &regionScanner{text: text}
}

// next returns the next complete region, or ok=false when the scan is done.
func (s *regionScanner) next() (region, bool) {
	for s.pos < len(s.text) {
		rel := strings.Index(s.text[s.pos:], openTag)
		if rel == -1 {
			s.pos = len(s.text)
			return region{}, false
		}
		start := s.pos + rel

		closeRel := strings.Index(s.text[start:], closeTag)
		if closeRel == -1 {
			s.pos = start + len(openTag)
			continue
		}

		r := region{
			start:      start,
			innerStart: start + len(openTag),
			innerEnd:   start + closeRel,
			end:        start + closeRel + len(closeTag),
		}
		s.pos = r.end
		return r, true
	}
	return region{}, false
}
