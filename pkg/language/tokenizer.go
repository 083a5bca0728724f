package language

import (
	"regexp"
	"strings"
)

var (
	// Chinese uses different punctuation: 。(period), ！(exclamation),
	// ？(question mark), ；(semicolon). English-style marks show up in
	// mixed text too.
	chinesePunct = regexp.MustCompile(`([。！？!?；])`)

	// Latin-script sentence ends: terminal punctuation followed by space
	latinSentenceEnd = regexp.MustCompile(`([.!?])\s+`)
)

// SplitSentences tokenizes text into sentences based on language. Chinese
// variants use the Chinese punctuation splitter; everything else uses the
// Latin-script splitter.
func SplitSentences(text, lang string) []string {
	if strings.HasPrefix(strings.ToLower(lang), "zh") {
		return splitChineseSentences(text)
	}
	return splitLatinSentences(text)
}

// splitLatinSentences splits on terminal punctuation followed by whitespace
func splitLatinSentences(text string) []string {
	marked := latinSentenceEnd.ReplaceAllString(text, "$1\n")

	var sentences []string
	for _, s := range strings.Split(marked, "\n") {
		s = strings.TrimSpace(s)
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// splitChineseSentences splits on Chinese sentence punctuation and drops
// fragments short enough to be headers or page numbers
func splitChineseSentences(text string) []string {
	marked := chinesePunct.ReplaceAllString(text, "$1\n")

	var sentences []string
	for _, s := range strings.Split(marked, "\n") {
		s = strings.TrimSpace(s)
		if len([]rune(s)) > 3 {
			sentences = append(sentences, s)
		}
	}
	return sentences
}
