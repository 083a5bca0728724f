package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"policypipe/pkg/dataset"
	"policypipe/pkg/language"
	"policypipe/pkg/logger"
	"policypipe/pkg/processor"
	"policypipe/pkg/ratelimit"
	"policypipe/pkg/retry"
)

var (
	processInput       string
	processOutput      string
	processMode        string
	processTextColumn  string
	processIDColumn    string
	processRetryFailed bool
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Detect languages and translate or filter dataset text",
	Long: `Process a CSV dataset row by row: detect each text's language, then
translate or filter it according to the selected mode.

Modes:
  auto         translate only rows not already in the target language
  translate    translate every row
  filter       keep only English sentences
  detect_only  record the language, leave the text untouched

The output file is written after every row and doubles as the checkpoint:
rerunning the command skips rows whose outputs are already present, so an
interrupted run resumes where it stopped. Rows that failed carry an "error"
language marker and are skipped on rerun unless --retry-failed is set.`,
	Example: `  # Process with defaults (auto mode)
  policypipe process --input extracted.csv --output processed.csv

  # Detect languages only
  policypipe process --input docs.csv --output docs_lang.csv --mode detect_only

  # Retry rows that failed in a previous run
  policypipe process --input docs.csv --output processed.csv --retry-failed

  # Custom column names
  policypipe process --input data.csv --output out.csv --text-column body --id-column name`,
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVarP(&processInput, "input", "i", "", "input CSV file (required)")
	processCmd.Flags().StringVarP(&processOutput, "output", "o", "", "output CSV file, also the checkpoint (required)")
	processCmd.Flags().StringVarP(&processMode, "mode", "m", "", "processing mode (auto, translate, filter, detect_only)")
	processCmd.Flags().StringVar(&processTextColumn, "text-column", "", "name of the text column (default: text)")
	processCmd.Flags().StringVar(&processIDColumn, "id-column", "", "name of the identity column (default: file)")
	processCmd.Flags().BoolVar(&processRetryFailed, "retry-failed", false, "re-process rows that failed in a previous run")

	_ = processCmd.MarkFlagRequired("input")
	_ = processCmd.MarkFlagRequired("output")
}

func runProcess(cmd *cobra.Command, args []string) error {
	flags := map[string]interface{}{}
	if processMode != "" {
		flags["mode"] = processMode
	}
	if processTextColumn != "" {
		flags["text-column"] = processTextColumn
	}
	if processIDColumn != "" {
		flags["id-column"] = processIDColumn
	}
	if cmd.Flags().Changed("retry-failed") {
		flags["retry-failed"] = processRetryFailed
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	mode, err := processor.ParseMode(cfg.Process.Mode)
	if err != nil {
		return err
	}

	ds, err := dataset.Load(processInput, cfg.Process.IDColumn, cfg.Process.TextColumn)
	if err != nil {
		return fmt.Errorf("failed to load input: %w", err)
	}

	detector := language.NewDetector(cfg.Translate.SampleSize)
	translator := language.NewHTTPTranslator(language.TranslatorOptions{
		Endpoint: cfg.Translate.Endpoint,
		Timeout:  30 * time.Second,
		Limiter:  ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.BurstSize),
		Retry:    retry.FromRetryConfig(&cfg.Retry, log),
		Logger:   log,
	})
	transform := language.NewProcessor(detector, translator, cfg.Translate.TargetLanguage, log)

	proc, err := processor.New(transform, processor.Options{
		SavePath:    processOutput,
		Mode:        mode,
		RetryFailed: cfg.Process.RetryFailed,
		Logger:      log,
	})
	if err != nil {
		return err
	}

	summary, err := proc.Run(cmd.Context(), ds)
	if err != nil {
		return err
	}

	// Row failures are per-row data, not a command failure
	fmt.Println(summary.String())
	return nil
}
