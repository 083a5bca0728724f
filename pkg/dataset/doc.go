// Package dataset provides the CSV-backed tabular dataset that doubles as
// the pipeline's checkpoint: the processor re-reads the persisted file on
// start and skips rows whose output columns are already populated.
//
// Snapshots are written atomically (temp file, fsync, rename) so an
// interrupted run never corrupts the last good checkpoint.
package dataset
