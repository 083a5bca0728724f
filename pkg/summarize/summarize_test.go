package summarize

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policypipe/pkg/logger"
)

type stubLLM struct {
	calls  []string
	failOn string
}

func (s *stubLLM) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	s.calls = append(s.calls, userPrompt)
	if s.failOn != "" && strings.Contains(userPrompt, s.failOn) {
		return "", errors.New("generation failed")
	}
	return "summary of: " + userPrompt[:min(40, len(userPrompt))], nil
}

func (s *stubLLM) Close() error { return nil }

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("hi"))
	assert.Equal(t, 25, EstimateTokens(strings.Repeat("a", 100)))
}

func TestAvailableTokensForDoc(t *testing.T) {
	prompts := []string{strings.Repeat("x", 400), strings.Repeat("x", 4000)}
	// Largest prompt is 1000 tokens
	assert.Equal(t, 128000-1000-1024, AvailableTokensForDoc(prompts, 128000, 1024))
	assert.Equal(t, 0, AvailableTokensForDoc(prompts, 100, 1024))
}

func TestTruncateToTokenLimit(t *testing.T) {
	text := strings.Repeat("word ", 1000)
	short := TruncateToTokenLimit(text, 10)
	assert.LessOrEqual(t, EstimateTokens(short), 10)
	assert.False(t, strings.HasSuffix(short, " "), "should cut on a word boundary")

	assert.Equal(t, "small", TruncateToTokenLimit("small", 100))
}

func TestTruncateToTokenLimitMultiByte(t *testing.T) {
	// CJK text with no whitespace: the cut cannot rely on a word
	// boundary and must stay on a rune boundary
	text := strings.Repeat("条款规定", 500)
	short := TruncateToTokenLimit(text, 10)
	assert.True(t, utf8.ValidString(short), "truncation split a rune")
	assert.LessOrEqual(t, len(short), 10*charsPerToken)
	assert.NotEmpty(t, short)
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("What sectors?", "doc body")
	assert.Contains(t, p, "Question: What sectors?")
	assert.Contains(t, p, "doc body")
}

func TestSummarizeDocument(t *testing.T) {
	dir := t.TempDir()
	llm := &stubLLM{}
	s := New(llm, Options{
		Questions: []string{"q one", "q two"},
		Logger:    logger.NewNopLogger(),
	})

	require.NoError(t, s.SummarizeDocument(context.Background(), "policy-a", "the document text", dir))

	for _, name := range []string{"question_2_summary.txt", "question_3_summary.txt"} {
		data, err := os.ReadFile(filepath.Join(dir, "policy-a", name))
		require.NoError(t, err)
		assert.NotEmpty(t, data)
	}
	assert.Len(t, llm.calls, 2)
}

func TestSummarizeDocumentEmptyText(t *testing.T) {
	s := New(&stubLLM{}, Options{Logger: logger.NewNopLogger()})
	err := s.SummarizeDocument(context.Background(), "empty", "  ", t.TempDir())
	assert.Error(t, err)
}

func TestRunSkipsExisting(t *testing.T) {
	dir := t.TempDir()
	llm := &stubLLM{}
	s := New(llm, Options{
		Questions: []string{"q one"},
		Logger:    logger.NewNopLogger(),
	})

	docs := map[string]string{"a": "text a", "b": "text b"}
	done, err := s.Run(context.Background(), docs, dir, false)
	require.NoError(t, err)
	assert.Equal(t, 2, done)

	// Second run finds all summaries on disk
	llm.calls = nil
	done, err = s.Run(context.Background(), docs, dir, false)
	require.NoError(t, err)
	assert.Equal(t, 0, done)
	assert.Empty(t, llm.calls)

	// Force regenerates
	done, err = s.Run(context.Background(), docs, dir, true)
	require.NoError(t, err)
	assert.Equal(t, 2, done)
}

func TestRunFailureNotFatal(t *testing.T) {
	dir := t.TempDir()
	llm := &stubLLM{failOn: "bad text"}
	s := New(llm, Options{
		Questions: []string{"q one"},
		Logger:    logger.NewNopLogger(),
	})

	docs := map[string]string{"bad": "bad text", "good": "good text"}
	done, err := s.Run(context.Background(), docs, dir, false)
	require.NoError(t, err)
	assert.Equal(t, 1, done)
	assert.False(t, s.HasSummaries("bad", dir))
	assert.True(t, s.HasSummaries("good", dir))
}
