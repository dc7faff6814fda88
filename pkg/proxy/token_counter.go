package proxy

// EstimateTokens provides a rough estimate of token count for text.
// This is a simple heuristic - for accurate counts, use a proper tokenizer.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}

	// ~1 token per 4 characters, a workable approximation for English
	// text, code and mixed content.
	estimate := len(text) / 4
	if estimate == 0 {
		estimate = 1
	}
	return estimate
}
