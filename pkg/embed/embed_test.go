package embed

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policypipe/pkg/dataset"
	"policypipe/pkg/logger"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(parts, " ")
}

func TestChunkWordsShortText(t *testing.T) {
	chunks := ChunkWords("just a few words", 200, 75)
	require.Len(t, chunks, 1)
	assert.Equal(t, "just a few words", chunks[0])
}

func TestChunkWordsEmpty(t *testing.T) {
	assert.Nil(t, ChunkWords("", 200, 75))
	assert.Nil(t, ChunkWords("   \n  ", 200, 75))
}

func TestChunkWordsOverlap(t *testing.T) {
	chunks := ChunkWords(words(300), 200, 75)

	// Step is 125 words: chunks start at 0 and 125
	require.Len(t, chunks, 2)
	first := strings.Fields(chunks[0])
	second := strings.Fields(chunks[1])
	assert.Len(t, first, 200)
	assert.Equal(t, "w125", second[0])

	// The last 75 words of the first chunk open the second
	assert.Equal(t, first[125:], second[:75])
}

func TestChunkWordsFinalChunkShort(t *testing.T) {
	chunks := ChunkWords(words(210), 200, 75)
	require.Len(t, chunks, 2)
	assert.Len(t, strings.Fields(chunks[1]), 85)
}

func TestChunkWordsOverlapAtLeastAdvances(t *testing.T) {
	chunks := ChunkWords(words(5), 3, 10)
	// Degenerate overlap still advances one word per step
	require.Len(t, chunks, 3)
	assert.Equal(t, "w0 w1 w2", chunks[0])
	assert.Equal(t, "w1 w2 w3", chunks[1])
}

func TestChunkDocument(t *testing.T) {
	chunks := ChunkDocument("policy.pdf", words(300), 200, 75)
	require.Len(t, chunks, 2)
	assert.Equal(t, "policy.pdf", chunks[0].Document)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 1, chunks[1].Index)
}

type stubEmbedder struct {
	batches [][]string
}

func (s *stubEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	s.batches = append(s.batches, texts)
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{float32(len(texts[i])), 0, 0}
	}
	return out, nil
}

func (s *stubEmbedder) Close() error { return nil }

type memStore struct {
	chunks []StoredChunk
}

func (m *memStore) InsertChunks(ctx context.Context, chunks []StoredChunk) error {
	m.chunks = append(m.chunks, chunks...)
	return nil
}

func TestVectorColumnType(t *testing.T) {
	// An unset dimension must not render a vector(0) column, which
	// Postgres rejects
	assert.Equal(t, "vector", vectorColumnType(0))
	assert.Equal(t, "vector", vectorColumnType(-1))
	assert.Equal(t, "vector(768)", vectorColumnType(768))
}

func TestIngestorRun(t *testing.T) {
	ds := dataset.New("file", "text")
	ds.Append("a.pdf", words(300))
	ds.Append("empty.pdf", "")
	ds.Append("b.pdf", words(50))

	emb := &stubEmbedder{}
	store := &memStore{}
	ing := NewIngestor(emb, store, IngestorOptions{
		ChunkSize:    200,
		ChunkOverlap: 75,
		BatchSize:    2,
		Logger:       logger.NewNopLogger(),
	})

	total, err := ing.Run(context.Background(), ds)
	require.NoError(t, err)

	// a.pdf yields 2 chunks, b.pdf yields 1, empty.pdf none
	assert.Equal(t, 3, total)
	require.Len(t, store.chunks, 3)
	assert.Equal(t, "a.pdf", store.chunks[0].Document)
	assert.Equal(t, "b.pdf", store.chunks[2].Document)
	assert.Equal(t, 0, store.chunks[2].Position)

	// Batch size 2 means two full batches
	for _, batch := range emb.batches {
		assert.LessOrEqual(t, len(batch), 2)
	}
}

func TestIngestorRunCancelled(t *testing.T) {
	ds := dataset.New("file", "text")
	ds.Append("a.pdf", words(10))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ing := NewIngestor(&stubEmbedder{}, &memStore{}, IngestorOptions{Logger: logger.NewNopLogger()})
	_, err := ing.Run(ctx, ds)
	assert.ErrorIs(t, err, context.Canceled)
}
