package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"policypipe/pkg/logger"
	"policypipe/pkg/summarize"
)

var (
	summarizeInputDir  string
	summarizeOutputDir string
	summarizeForce     bool
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Generate question-focused summaries of documents",
	Long: `Generate one summary per analysis question for every text document in
a folder, writing each summary to its own file under a per-document
subdirectory.

Documents are truncated to fit the model's context window. Documents that
already have a full summary set are skipped unless --force is given.`,
	Example: `  # Summarize a folder of documents
  policypipe summarize --input ./documents --output ./summaries

  # Regenerate summaries that already exist
  policypipe summarize --input ./documents --output ./summaries --force`,
	RunE: runSummarize,
}

func init() {
	rootCmd.AddCommand(summarizeCmd)

	summarizeCmd.Flags().StringVarP(&summarizeInputDir, "input", "i", "", "folder of text documents (required)")
	summarizeCmd.Flags().StringVarP(&summarizeOutputDir, "output", "o", "", "folder to write summaries into (required)")
	summarizeCmd.Flags().BoolVar(&summarizeForce, "force", false, "regenerate summaries that already exist")

	_ = summarizeCmd.MarkFlagRequired("input")
	_ = summarizeCmd.MarkFlagRequired("output")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	apiKey, err := resolveGeminiKey(cfg)
	if err != nil {
		return err
	}

	docs, err := loadTextDocuments(summarizeInputDir)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no text documents found in %s", summarizeInputDir)
	}

	ctx := cmd.Context()

	llm, err := summarize.NewGeminiLLM(ctx, apiKey, cfg.Summarize.Model)
	if err != nil {
		return err
	}
	defer llm.Close()

	s := summarize.New(llm, summarize.Options{
		MaxDocTokens: cfg.Summarize.MaxDocTokens,
		SafetyMargin: cfg.Summarize.SafetyMargin,
		Logger:       logger.GetLogger(),
	})

	done, err := s.Run(ctx, docs, summarizeOutputDir, summarizeForce)
	if err != nil {
		return err
	}

	fmt.Printf("summarized %d of %d documents\n", done, len(docs))
	return nil
}

// loadTextDocuments reads every .txt and .md file in a folder, keyed by
// base name without extension
func loadTextDocuments(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read folder: %w", err)
	}

	docs := make(map[string]string)
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".txt" && ext != ".md" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		docs[strings.TrimSuffix(name, filepath.Ext(name))] = string(data)
	}

	return docs, nil
}
