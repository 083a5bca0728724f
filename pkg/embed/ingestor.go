// Package embed chunks documents into overlapping word windows, embeds the
// chunks in batches, and persists them to a pgvector-backed store for
// retrieval.
package embed

import (
	"context"
	"fmt"

	"policypipe/pkg/dataset"
	"policypipe/pkg/logger"
)

// ChunkStore persists embedded chunks
type ChunkStore interface {
	InsertChunks(ctx context.Context, chunks []StoredChunk) error
}

// Ingestor drives the chunk-embed-persist pipeline over a dataset
type Ingestor struct {
	embedder  Embedder
	store     ChunkStore
	chunkSize int
	overlap   int
	batchSize int
	log       logger.Logger
}

// IngestorOptions configures an Ingestor
type IngestorOptions struct {
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
	Logger       logger.Logger
}

// NewIngestor creates an ingestor over the given embedder and store
func NewIngestor(embedder Embedder, store ChunkStore, opts IngestorOptions) *Ingestor {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 200
	}
	if opts.ChunkOverlap < 0 {
		opts.ChunkOverlap = 0
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 64
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}
	return &Ingestor{
		embedder:  embedder,
		store:     store,
		chunkSize: opts.ChunkSize,
		overlap:   opts.ChunkOverlap,
		batchSize: opts.BatchSize,
		log:       opts.Logger,
	}
}

// Run chunks every non-empty row in the dataset, embeds the chunks in
// batches, and writes them to the store. Rows with empty text are skipped.
func (i *Ingestor) Run(ctx context.Context, ds *dataset.Dataset) (int, error) {
	var pending []Chunk
	total := 0

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}

		texts := make([]string, len(pending))
		for k := range pending {
			texts[k] = pending[k].Text
		}

		vecs, err := i.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch: %w", err)
		}

		rows := make([]StoredChunk, len(pending))
		for k := range pending {
			rows[k] = StoredChunk{
				Document:  pending[k].Document,
				Position:  pending[k].Index,
				Text:      pending[k].Text,
				Embedding: vecs[k],
			}
		}
		if err := i.store.InsertChunks(ctx, rows); err != nil {
			return fmt.Errorf("persist batch: %w", err)
		}

		total += len(pending)
		pending = pending[:0]
		return nil
	}

	for _, rec := range ds.Records {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		if rec.Text == "" {
			continue
		}

		for _, chunk := range ChunkDocument(rec.File, rec.Text, i.chunkSize, i.overlap) {
			pending = append(pending, chunk)
			if len(pending) == i.batchSize {
				if err := flush(); err != nil {
					return total, err
				}
			}
		}
	}

	if err := flush(); err != nil {
		return total, err
	}

	i.log.InfoWithFields("embedding complete", map[string]interface{}{
		"documents": ds.Len(),
		"chunks":    total,
	})

	return total, nil
}
