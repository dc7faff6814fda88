package proxy

import (
	"log"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// TiktokenCounter provides accurate token counting using tiktoken.
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenCounter creates a new tiktoken-based counter for the model.
func NewTiktokenCounter(model string) (*TiktokenCounter, error) {
	encodingName := getEncodingForModel(model)

	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		// Fallback to cl100k_base
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			log.Printf("Failed to get tiktoken encoding: %v", err)
			return nil, err
		}
	}

	return &TiktokenCounter{encoding: enc}, nil
}

// getEncodingForModel returns the appropriate encoding for a model.
func getEncodingForModel(model string) string {
	// Qwen and most chat models tokenize close enough to cl100k_base
	// for usage accounting.
	if strings.Contains(model, "gpt-4o") {
		return "o200k_base"
	}
	return "cl100k_base"
}

// CountTokens returns the token count for text.
func (tc *TiktokenCounter) CountTokens(text string) int {
	if tc == nil || tc.encoding == nil {
		// Fallback to estimation if encoding failed
		return EstimateTokens(text)
	}
	return len(tc.encoding.Encode(text, nil, nil))
}
