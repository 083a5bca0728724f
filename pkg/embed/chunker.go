package embed

import "strings"

// Chunk is one embeddable slice of a document
type Chunk struct {
	Document string
	Index    int
	Text     string
}

// ChunkWords splits text into overlapping word windows. The window advances
// by size-overlap words each step, so consecutive chunks share context; the
// step is clamped to 1 when overlap >= size.
func ChunkWords(text string, size, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if size <= 0 {
		size = 1
	}

	step := size - overlap
	if step < 1 {
		step = 1
	}

	var chunks []string
	for start := 0; start < len(words); start += step {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end >= len(words) {
			break
		}
	}
	return chunks
}

// ChunkDocument produces indexed chunks for a named document
func ChunkDocument(name, text string, size, overlap int) []Chunk {
	pieces := ChunkWords(text, size, overlap)
	chunks := make([]Chunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, Chunk{Document: name, Index: i, Text: piece})
	}
	return chunks
}
