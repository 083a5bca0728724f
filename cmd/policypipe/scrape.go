package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"policypipe/pkg/logger"
	"policypipe/pkg/scraper"
)

var (
	scrapeURLsFile  string
	scrapeOutputDir string
	scrapeRateLimit int
	scrapeOverwrite bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Download policy documents from a URL list",
	Long: `Download documents from a text file of URLs, one per line.

PDFs are stored as-is; HTML pages are reduced to their main content and
stored as markdown. Each document gets a metadata sidecar with its source
URL, content type, fetch time, and size. Documents already on disk are
skipped, so reruns only fetch what is missing. Blank lines and placeholder
values (n/a, none, null) in the URL list are ignored.`,
	Example: `  # Download documents listed in urls.txt
  policypipe scrape --urls urls.txt --output ./documents

  # Refetch everything, overwriting local copies
  policypipe scrape --urls urls.txt --output ./documents --overwrite`,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().StringVarP(&scrapeURLsFile, "urls", "u", "", "text file with one URL per line (required)")
	scrapeCmd.Flags().StringVarP(&scrapeOutputDir, "output", "o", "", "output directory for documents")
	scrapeCmd.Flags().IntVar(&scrapeRateLimit, "rate-limit", 0, "requests per minute")
	scrapeCmd.Flags().BoolVar(&scrapeOverwrite, "overwrite", false, "refetch documents that already exist locally")

	_ = scrapeCmd.MarkFlagRequired("urls")
}

func runScrape(cmd *cobra.Command, args []string) error {
	flags := map[string]interface{}{}
	if scrapeOutputDir != "" {
		flags["output-dir"] = scrapeOutputDir
	}
	if scrapeRateLimit > 0 {
		flags["rate-limit"] = scrapeRateLimit
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	cfg.Scrape.OverwriteLocal = scrapeOverwrite

	data, err := os.ReadFile(scrapeURLsFile)
	if err != nil {
		return fmt.Errorf("failed to read url list: %w", err)
	}
	urls := scraper.ReadURLList(data)
	if len(urls) == 0 {
		return fmt.Errorf("no usable URLs in %s", scrapeURLsFile)
	}

	s, err := scraper.New(cfg, logger.GetLogger())
	if err != nil {
		return err
	}

	result, err := s.Run(cmd.Context(), urls)
	if err != nil {
		return err
	}

	fmt.Printf("saved=%d skipped=%d failed=%d\n", result.Saved, result.Skipped, result.Failed)
	return nil
}
