package processor

import (
	"context"
	"fmt"
	"strings"

	"policypipe/pkg/dataset"
	"policypipe/pkg/logger"
)

// FailedLanguage is the sentinel written to the detected_language column of
// a row whose transform call failed. It distinguishes a failed row from a
// successfully empty one (which has an empty language).
const FailedLanguage = "error"

// Transform is the external collaborator applied to each row. Any error it
// returns is row-local: the processor records the failure sentinel and
// moves on, never aborting the run.
type Transform interface {
	Process(ctx context.Context, text string, mode Mode) (processed, detectedLanguage string, err error)
}

// TransformFunc adapts a plain function to the Transform interface
type TransformFunc func(ctx context.Context, text string, mode Mode) (string, string, error)

func (f TransformFunc) Process(ctx context.Context, text string, mode Mode) (string, string, error) {
	return f(ctx, text, mode)
}

// Summary reports what a run did
type Summary struct {
	Processed int
	Skipped   int
	Errors    int
	Total     int
}

func (s Summary) String() string {
	return fmt.Sprintf("processed=%d skipped=%d errors=%d total=%d",
		s.Processed, s.Skipped, s.Errors, s.Total)
}

// Options configures a Processor
type Options struct {
	// SavePath is where the dataset is persisted after every row; if the
	// file already exists and is non-empty it is also the resume source
	SavePath string
	// Mode selects the transform branch
	Mode Mode
	// RetryFailed re-runs rows that carry the failure sentinel from a
	// prior run instead of treating them as done
	RetryFailed bool
	// Logger defaults to the global logger
	Logger logger.Logger
}

// Processor runs a transform over a dataset row by row, persisting the
// whole dataset after each row so an interrupted run loses at most the
// in-flight row. Execution is strictly sequential: the transform typically
// calls rate-limited network APIs, and per-row checkpointing plus one
// worker is the simplest crash-resume story.
type Processor struct {
	transform   Transform
	savePath    string
	mode        Mode
	retryFailed bool
	log         logger.Logger
}

// New creates a Processor for the given transform
func New(transform Transform, opts Options) (*Processor, error) {
	if transform == nil {
		return nil, fmt.Errorf("transform is required")
	}
	if opts.SavePath == "" {
		return nil, fmt.Errorf("save path is required")
	}
	if _, err := ParseMode(string(opts.Mode)); err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	return &Processor{
		transform:   transform,
		savePath:    opts.SavePath,
		mode:        opts.Mode,
		retryFailed: opts.RetryFailed,
		log:         log,
	}, nil
}

// Run processes every row of ds, resuming from the checkpoint at SavePath
// if one exists. The returned dataset is ds itself, mutated in place; row
// order is always preserved. Transform failures are recorded per row and
// never returned; only dataset I/O errors are fatal.
func (p *Processor) Run(ctx context.Context, ds *dataset.Dataset) (*Summary, error) {
	// Resume: carry over outputs from a prior partial run, matched by identity
	cp, err := dataset.LoadCheckpoint(p.savePath, ds.IDColumn, ds.TextColumn)
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if cp != nil {
		p.log.InfoWithFields("checkpoint loaded", map[string]interface{}{
			"path": p.savePath,
			"rows": cp.Len(),
		})
		ds.MergeCheckpoint(cp)
	} else {
		p.log.WithField("path", p.savePath).Info("starting fresh (no checkpoint found)")
	}

	ds.EnsureOutputColumns()

	summary := &Summary{Total: ds.Len()}

	// An empty dataset still leaves a valid (header-only) file behind
	if ds.Len() == 0 {
		if err := ds.Save(p.savePath); err != nil {
			return nil, fmt.Errorf("failed to save dataset: %w", err)
		}
		return summary, nil
	}

	for i, rec := range ds.Records {
		if err := ctx.Err(); err != nil {
			// The checkpoint already reflects every completed row; a
			// cancelled run resumes where it stopped.
			return summary, err
		}

		if p.shouldSkip(rec) {
			summary.Skipped++
			continue
		}

		if strings.TrimSpace(rec.Text) == "" {
			// No text to transform: record an empty result, not a failure
			rec.Processed = ""
			rec.DetectedLanguage = ""
			summary.Skipped++
		} else {
			processed, lang, err := p.transform.Process(ctx, rec.Text, p.mode)
			if err != nil {
				p.log.WarnWithFields("row failed", map[string]interface{}{
					"file":  rec.File,
					"row":   i,
					"error": err.Error(),
				})
				rec.Processed = ""
				rec.DetectedLanguage = FailedLanguage
				summary.Errors++
			} else {
				rec.Processed = processed
				rec.DetectedLanguage = lang
				summary.Processed++
				p.log.DebugWithFields("row processed", map[string]interface{}{
					"file":     rec.File,
					"language": lang,
				})
			}
		}

		// Persist after every row so a crash loses at most the row in flight
		if err := ds.Save(p.savePath); err != nil {
			return nil, fmt.Errorf("failed to save checkpoint after row %d: %w", i, err)
		}
	}

	// The loop only saves rows it touched; a run where every row was
	// already done must still leave the output file behind.
	if err := ds.Save(p.savePath); err != nil {
		return nil, fmt.Errorf("failed to save dataset: %w", err)
	}

	p.log.InfoWithFields("processing complete", map[string]interface{}{
		"processed": summary.Processed,
		"skipped":   summary.Skipped,
		"errors":    summary.Errors,
		"total":     summary.Total,
	})

	return summary, nil
}

// shouldSkip reports whether a row already carries output from a prior run.
// Sentinel-failed rows count as done unless RetryFailed is set.
func (p *Processor) shouldSkip(rec *dataset.Record) bool {
	if !rec.HasOutput() {
		return false
	}
	if rec.IsFailed() {
		return !p.retryFailed
	}
	return true
}
