package summarize

import (
	"strings"
	"unicode/utf8"
)

// charsPerToken approximates BPE tokenization for English prose. The budget
// only has to keep prompts under the context window, not match the model's
// tokenizer exactly, so a conservative estimate is enough.
const charsPerToken = 4

// EstimateTokens approximates the token count of a text
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	n := len(text) / charsPerToken
	if n == 0 {
		n = 1
	}
	return n
}

// AvailableTokensForDoc returns the token budget left for document text
// after the largest prompt template and a safety margin are accounted for
func AvailableTokensForDoc(prompts []string, maxTokens, safetyMargin int) int {
	overhead := 0
	for _, p := range prompts {
		if n := EstimateTokens(p); n > overhead {
			overhead = n
		}
	}
	budget := maxTokens - overhead - safetyMargin
	if budget < 0 {
		budget = 0
	}
	return budget
}

// TruncateToTokenLimit cuts text so its estimated token count fits the
// limit, breaking on a word boundary
func TruncateToTokenLimit(text string, maxTokens int) string {
	if EstimateTokens(text) <= maxTokens {
		return text
	}

	limit := maxTokens * charsPerToken
	if limit >= len(text) {
		return text
	}
	// Never cut inside a multi-byte rune
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}

	cut := text[:limit]
	if idx := strings.LastIndexAny(cut, " \t\n"); idx > 0 {
		cut = cut[:idx]
	}
	return cut
}
