// Package processor provides the checkpointed row processor at the heart
// of the pipeline. It walks an ordered dataset, applies a pluggable
// transform (language detection, translation, or filtering) to each row,
// and persists the whole dataset after every row so an interrupted run can
// be restarted without reprocessing completed rows.
//
// The persisted CSV file is both the output and the resume state: a row is
// considered done when its output columns are populated. Transform errors
// are recorded as a per-row failure sentinel and never abort the run.
package processor
