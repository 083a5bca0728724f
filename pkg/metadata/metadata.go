// Package metadata persists per-document provenance alongside the stored
// document as a .meta.json sidecar.
package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Document records where a stored document came from and when it was fetched
type Document struct {
	URL         string    `json:"url"`
	ContentType string    `json:"content_type"`
	FetchedAt   time.Time `json:"fetched_at"`
	Size        int64     `json:"size"`
}

// SidecarPath returns the metadata path for a document path
func SidecarPath(documentPath string) string {
	return documentPath + ".meta.json"
}

// Save writes the metadata sidecar next to the document
func Save(documentPath string, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if err := os.WriteFile(SidecarPath(documentPath), data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	return nil
}

// Load reads the metadata sidecar for a document, if one exists
func Load(documentPath string) (*Document, error) {
	data, err := os.ReadFile(SidecarPath(documentPath))
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}

	return &doc, nil
}
