// Package extract turns a folder of documents into a dataset of (file, text)
// rows. PDFs go through the embedded text layer; anything else is read as
// UTF-8 text. A file that fails to extract still gets a row, with empty
// text, so downstream stages see the full document inventory.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"policypipe/pkg/dataset"
	"policypipe/pkg/logger"
)

// Extractor reads documents from a folder
type Extractor struct {
	log logger.Logger
}

// New creates an extractor
func New(log logger.Logger) *Extractor {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Extractor{log: log}
}

// LoadFolder extracts text from every regular file in folder, in sorted
// order so the dataset's row order is stable across runs
func (e *Extractor) LoadFolder(folder, idColumn, textColumn string) (*dataset.Dataset, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("failed to read folder: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		// Metadata sidecars travel with documents but are not documents
		if strings.HasSuffix(name, ".meta.json") {
			continue
		}
		files = append(files, name)
	}
	sort.Strings(files)

	ds := dataset.New(idColumn, textColumn)
	failed := 0
	for _, name := range files {
		text, err := ExtractFile(filepath.Join(folder, name))
		if err != nil {
			e.log.WarnWithFields("failed to extract text", map[string]interface{}{
				"file":  name,
				"error": err.Error(),
			})
			text = ""
			failed++
		}
		ds.Append(name, text)
	}

	e.log.InfoWithFields("extraction complete", map[string]interface{}{
		"files":  len(files),
		"failed": failed,
	})

	return ds, nil
}

// ExtractFile returns the text content of a single document
func ExtractFile(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return extractPDF(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return string(data), nil
}

// extractPDF pulls the embedded text layer out of a PDF. Scanned image-only
// PDFs have no text layer and yield an empty string.
func extractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer func() { _ = f.Close() }()

	numPages := r.NumPage()
	fonts := make(map[string]*pdf.Font)
	var parts []string

	for i := 1; i <= numPages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}

		// Font descriptors repeat across pages; cache them once
		for _, name := range p.Fonts() {
			if _, ok := fonts[name]; !ok {
				font := p.Font(name)
				fonts[name] = &font
			}
		}

		text, pageErr := p.GetPlainText(fonts)
		if pageErr != nil {
			// A single bad page does not discard the document
			continue
		}
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}

	return strings.Join(parts, "\n\n"), nil
}
