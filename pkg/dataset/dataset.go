package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// Well-known output column names. Input columns (identity and text) are
// configurable because upstream CSVs vary.
const (
	ColProcessed        = "processed"
	ColDetectedLanguage = "detected_language"
)

// Record is one unit of work: a source document's text plus its derived
// outputs. Extra carries any columns the pipeline does not interpret.
type Record struct {
	File             string
	Text             string
	Processed        string
	DetectedLanguage string
	Extra            map[string]string
}

// HasOutput reports whether the record carries any processing output,
// including the failure sentinel.
func (r *Record) HasOutput() bool {
	return r.Processed != "" || r.DetectedLanguage != ""
}

// IsFailed reports whether the record carries the failure sentinel written
// when the transform errored on it.
func (r *Record) IsFailed() bool {
	return r.Processed == "" && r.DetectedLanguage == "error"
}

// Dataset is an ordered sequence of records backed by a CSV file with a
// header row. Column order is stable: appending output columns never
// reorders or drops rows or existing columns.
type Dataset struct {
	// IDColumn is the name of the identity column (default "file")
	IDColumn string
	// TextColumn is the name of the raw text column (default "text")
	TextColumn string
	// Columns is the header in persisted order
	Columns []string
	// Records in input order
	Records []*Record
}

// New creates an empty dataset with the given identity and text column names
func New(idColumn, textColumn string) *Dataset {
	return &Dataset{
		IDColumn:   idColumn,
		TextColumn: textColumn,
		Columns:    []string{idColumn, textColumn},
	}
}

// Append adds a new record with the given identity and text
func (d *Dataset) Append(file, text string) *Record {
	rec := &Record{File: file, Text: text}
	d.Records = append(d.Records, rec)
	return rec
}

// Len returns the number of records
func (d *Dataset) Len() int {
	return len(d.Records)
}

// hasColumn reports whether the header contains the given column
func (d *Dataset) hasColumn(name string) bool {
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// EnsureOutputColumns appends the processed and detected_language columns
// to the header if they are not present yet
func (d *Dataset) EnsureOutputColumns() {
	if !d.hasColumn(ColProcessed) {
		d.Columns = append(d.Columns, ColProcessed)
	}
	if !d.hasColumn(ColDetectedLanguage) {
		d.Columns = append(d.Columns, ColDetectedLanguage)
	}
}

// Load reads a dataset from a CSV file. The identity and text columns are
// looked up by the given names; unknown columns are preserved in Extra.
// A missing identity column falls back to the row index.
func Load(path, idColumn, textColumn string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // handled below; ragged checkpoints are padded

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse dataset %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("dataset %s has no header row", path)
	}

	header := rows[0]
	d := &Dataset{
		IDColumn:   idColumn,
		TextColumn: textColumn,
		Columns:    append([]string(nil), header...),
	}

	colIndex := make(map[string]int, len(header))
	for i, name := range header {
		colIndex[name] = i
	}

	idIdx, hasID := colIndex[idColumn]
	textIdx, hasText := colIndex[textColumn]
	if !hasText {
		return nil, fmt.Errorf("column %q not found in dataset %s (columns: %v)", textColumn, path, header)
	}

	cell := func(row []string, idx int) string {
		if idx < len(row) {
			return row[idx]
		}
		return ""
	}

	for rowNum, row := range rows[1:] {
		rec := &Record{Text: cell(row, textIdx)}
		if hasID {
			rec.File = cell(row, idIdx)
		} else {
			rec.File = fmt.Sprintf("%d", rowNum)
		}
		for name, idx := range colIndex {
			switch name {
			case idColumn, textColumn:
			case ColProcessed:
				rec.Processed = cell(row, idx)
			case ColDetectedLanguage:
				rec.DetectedLanguage = cell(row, idx)
			default:
				if rec.Extra == nil {
					rec.Extra = make(map[string]string)
				}
				rec.Extra[name] = cell(row, idx)
			}
		}
		d.Records = append(d.Records, rec)
	}

	// A header without the identity column means identities were synthesized;
	// record that so Save round-trips them.
	if !hasID {
		d.Columns = append([]string{idColumn}, d.Columns...)
	}

	return d, nil
}

// LoadCheckpoint reads a prior partial run from path. A missing or empty
// file is not an error: it returns (nil, nil), meaning a fresh start.
func LoadCheckpoint(path, idColumn, textColumn string) (*Dataset, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat checkpoint: %w", err)
	}
	if info.Size() == 0 {
		return nil, nil
	}
	return Load(path, idColumn, textColumn)
}

// MergeCheckpoint carries completed outputs from a prior run into this
// dataset, matching rows by identity. Rows present here but absent from the
// checkpoint stay untouched (new work). Columns the checkpoint had beyond
// this dataset's schema are preserved.
func (d *Dataset) MergeCheckpoint(cp *Dataset) {
	if cp == nil {
		return
	}

	byID := make(map[string]*Record, len(cp.Records))
	for _, rec := range cp.Records {
		byID[rec.File] = rec
	}

	for _, rec := range d.Records {
		prev, ok := byID[rec.File]
		if !ok {
			continue
		}
		rec.Processed = prev.Processed
		rec.DetectedLanguage = prev.DetectedLanguage
		for k, v := range prev.Extra {
			if rec.Extra == nil {
				rec.Extra = make(map[string]string)
			}
			if _, exists := rec.Extra[k]; !exists {
				rec.Extra[k] = v
			}
		}
	}

	// Keep checkpoint-only columns in the header
	for _, col := range cp.Columns {
		if !d.hasColumn(col) {
			d.Columns = append(d.Columns, col)
		}
	}
}

// Save persists the dataset to path atomically: the snapshot is written to
// a temporary file, synced, then renamed over the target, so a crash
// mid-write cannot corrupt the previous checkpoint.
func (d *Dataset) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	tempPath := path + ".tmp"
	f, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary dataset file: %w", err)
	}

	writer := csv.NewWriter(f)
	if err := writer.Write(d.Columns); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := make([]string, len(d.Columns))
	for _, rec := range d.Records {
		for i, col := range d.Columns {
			switch col {
			case d.IDColumn:
				row[i] = rec.File
			case d.TextColumn:
				row[i] = rec.Text
			case ColProcessed:
				row[i] = rec.Processed
			case ColDetectedLanguage:
				row[i] = rec.DetectedLanguage
			default:
				row[i] = rec.Extra[col]
			}
		}
		if err := writer.Write(row); err != nil {
			f.Close()
			os.Remove(tempPath)
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to flush dataset: %w", err)
	}

	// Ensure data is on disk before the rename
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync dataset file: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close dataset file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace dataset file: %w", err)
	}

	return nil
}
