package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"policypipe/pkg/dataset"
	"policypipe/pkg/embed"
	"policypipe/pkg/logger"
)

var (
	embedInput        string
	embedDatabaseURL  string
	embedChunkSize    int
	embedChunkOverlap int
)

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Chunk documents and store vector embeddings in Postgres",
	Long: `Split each document in a CSV dataset into overlapping word chunks,
generate embeddings for the chunks in batches, and store them in a
pgvector-backed Postgres table for similarity search.

Re-embedding a document replaces its existing chunks, so the command is
safe to rerun after documents change.`,
	Example: `  # Embed a processed dataset
  policypipe embed --input processed.csv --database-url postgres://localhost/policies

  # Custom chunking
  policypipe embed --input processed.csv --chunk-size 300 --chunk-overlap 100`,
	RunE: runEmbed,
}

func init() {
	rootCmd.AddCommand(embedCmd)

	embedCmd.Flags().StringVarP(&embedInput, "input", "i", "", "input CSV dataset (required)")
	embedCmd.Flags().StringVar(&embedDatabaseURL, "database-url", "", "Postgres connection URL")
	embedCmd.Flags().IntVar(&embedChunkSize, "chunk-size", 0, "words per chunk")
	embedCmd.Flags().IntVar(&embedChunkOverlap, "chunk-overlap", -1, "words shared between consecutive chunks")

	_ = embedCmd.MarkFlagRequired("input")
}

func runEmbed(cmd *cobra.Command, args []string) error {
	flags := map[string]interface{}{}
	if embedDatabaseURL != "" {
		flags["database-url"] = embedDatabaseURL
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	if embedChunkSize > 0 {
		cfg.Embed.ChunkSize = embedChunkSize
	}
	if embedChunkOverlap >= 0 {
		cfg.Embed.ChunkOverlap = embedChunkOverlap
	}
	if cfg.Embed.DatabaseURL == "" {
		return fmt.Errorf("database url is required (--database-url or POLICYPIPE_DATABASE_URL)")
	}

	apiKey, err := resolveGeminiKey(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	ds, err := dataset.Load(embedInput, cfg.Process.IDColumn, cfg.Process.TextColumn)
	if err != nil {
		return fmt.Errorf("failed to load input: %w", err)
	}

	embedder, err := embed.NewGeminiEmbedder(ctx, apiKey, cfg.Embed.Model)
	if err != nil {
		return err
	}
	defer embedder.Close()

	store, err := embed.NewStore(ctx, cfg.Embed.DatabaseURL, cfg.Embed.Dimension)
	if err != nil {
		return err
	}
	defer store.Close()

	ing := embed.NewIngestor(embedder, store, embed.IngestorOptions{
		ChunkSize:    cfg.Embed.ChunkSize,
		ChunkOverlap: cfg.Embed.ChunkOverlap,
		BatchSize:    cfg.Embed.BatchSize,
		Logger:       logger.GetLogger(),
	})

	total, err := ing.Run(ctx, ds)
	if err != nil {
		return err
	}

	fmt.Printf("embedded %d chunks from %d documents\n", total, ds.Len())
	return nil
}
