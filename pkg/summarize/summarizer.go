// Package summarize generates question-focused summaries of policy
// documents. Each document gets one summary file per question, written
// under a per-document subdirectory.
package summarize

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"policypipe/pkg/logger"
)

// SystemPrompt frames every summarization request
const SystemPrompt = "You are a policy analyst. Answer strictly from the " +
	"document provided; if the document does not address the question, say so. " +
	"Write concise, well-structured prose."

// DefaultQuestions are the aspects each document is summarized against.
// Numbering starts at 2 to match the question sheet the summaries feed into.
var DefaultQuestions = []string{
	"What sectors or industries does this document focus on, and what priorities does it set for them?",
	"What market failures or policy problems does the document identify, and what evidence does it cite?",
	"What concrete policy instruments, programs, or funding mechanisms does the document propose or describe?",
}

const firstQuestionNumber = 2

// Summarizer drives per-document, per-question summarization
type Summarizer struct {
	llm          LLM
	questions    []string
	maxDocTokens int
	safetyMargin int
	log          logger.Logger
}

// Options configures a Summarizer
type Options struct {
	Questions    []string
	MaxDocTokens int
	SafetyMargin int
	Logger       logger.Logger
}

// New creates a summarizer
func New(llm LLM, opts Options) *Summarizer {
	if len(opts.Questions) == 0 {
		opts.Questions = DefaultQuestions
	}
	if opts.MaxDocTokens <= 0 {
		opts.MaxDocTokens = 128000
	}
	if opts.SafetyMargin <= 0 {
		opts.SafetyMargin = 1024
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}
	return &Summarizer{
		llm:          llm,
		questions:    opts.Questions,
		maxDocTokens: opts.MaxDocTokens,
		safetyMargin: opts.SafetyMargin,
		log:          opts.Logger,
	}
}

// BuildPrompt renders the prompt for one question over a document
func BuildPrompt(question, docText string) string {
	return fmt.Sprintf("Question: %s\n\nDocument:\n%s", question, docText)
}

// SummarizeDocument generates all question summaries for one document and
// writes them under outputDir/<docName>/question_N_summary.txt
func (s *Summarizer) SummarizeDocument(ctx context.Context, docName, docText string, outputDir string) error {
	if strings.TrimSpace(docText) == "" {
		return fmt.Errorf("document %s has no text", docName)
	}

	// Budget the document so prompt plus document fits the context window
	fullPrompts := make([]string, len(s.questions))
	for i, q := range s.questions {
		fullPrompts[i] = BuildPrompt(q, "")
	}
	budget := AvailableTokensForDoc(fullPrompts, s.maxDocTokens, s.safetyMargin)
	trimmed := TruncateToTokenLimit(docText, budget)
	if len(trimmed) < len(docText) {
		s.log.WarnWithFields("document truncated to fit context window", map[string]interface{}{
			"document": docName,
			"tokens":   budget,
		})
	}

	docDir := filepath.Join(outputDir, docName)
	if err := os.MkdirAll(docDir, 0755); err != nil {
		return fmt.Errorf("failed to create summary directory: %w", err)
	}

	for i, question := range s.questions {
		if err := ctx.Err(); err != nil {
			return err
		}

		summary, err := s.llm.Generate(ctx, SystemPrompt, BuildPrompt(question, trimmed))
		if err != nil {
			return fmt.Errorf("summarize %s question %d: %w", docName, firstQuestionNumber+i, err)
		}

		path := filepath.Join(docDir, fmt.Sprintf("question_%d_summary.txt", firstQuestionNumber+i))
		if err := os.WriteFile(path, []byte(summary), 0644); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}

	s.log.InfoWithFields("document summarized", map[string]interface{}{
		"document":  docName,
		"questions": len(s.questions),
	})

	return nil
}

// HasSummaries reports whether a document already has all its summary files
func (s *Summarizer) HasSummaries(docName, outputDir string) bool {
	for i := range s.questions {
		path := filepath.Join(outputDir, docName, fmt.Sprintf("question_%d_summary.txt", firstQuestionNumber+i))
		if _, err := os.Stat(path); err != nil {
			return false
		}
	}
	return true
}

// Run summarizes every document in the folder, skipping documents that
// already have a full summary set unless force is set. Per-document
// failures are logged and counted, never fatal.
func (s *Summarizer) Run(ctx context.Context, docs map[string]string, outputDir string, force bool) (int, error) {
	done := 0
	for _, name := range sortedKeys(docs) {
		if err := ctx.Err(); err != nil {
			return done, err
		}

		if !force && s.HasSummaries(name, outputDir) {
			s.log.DebugWithFields("summaries exist, skipping", map[string]interface{}{
				"document": name,
			})
			continue
		}

		if err := s.SummarizeDocument(ctx, name, docs[name], outputDir); err != nil {
			s.log.ErrorWithFields("failed to summarize document", map[string]interface{}{
				"document": name,
				"error":    err.Error(),
			})
			continue
		}
		done++
	}
	return done, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
