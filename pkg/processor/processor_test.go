package processor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policypipe/pkg/dataset"
	"policypipe/pkg/logger"
)

// countingTransform is a deterministic stub that uppercases text and
// counts how often each input was transformed
type countingTransform struct {
	calls   map[string]int
	failOn  map[string]bool
	perCall func(text string)
}

func newCountingTransform() *countingTransform {
	return &countingTransform{
		calls:  make(map[string]int),
		failOn: make(map[string]bool),
	}
}

func (c *countingTransform) Process(ctx context.Context, text string, mode Mode) (string, string, error) {
	c.calls[text]++
	if c.perCall != nil {
		c.perCall(text)
	}
	if c.failOn[text] {
		return "", "", errors.New("transform failed")
	}
	return strings.ToUpper(text), "en", nil
}

func (c *countingTransform) totalCalls() int {
	total := 0
	for _, n := range c.calls {
		total += n
	}
	return total
}

func newTestDataset(texts ...string) *dataset.Dataset {
	ds := dataset.New("file", "text")
	for i, text := range texts {
		ds.Append(fmt.Sprintf("doc%d.pdf", i), text)
	}
	return ds
}

func newProcessor(t *testing.T, transform Transform, savePath string, opts ...func(*Options)) *Processor {
	t.Helper()
	o := Options{
		SavePath: savePath,
		Mode:     ModeAuto,
		Logger:   logger.NewNopLogger(),
	}
	for _, fn := range opts {
		fn(&o)
	}
	p, err := New(transform, o)
	require.NoError(t, err)
	return p
}

func TestParseMode(t *testing.T) {
	for _, valid := range []string{"auto", "translate", "filter", "detect_only"} {
		m, err := ParseMode(valid)
		assert.NoError(t, err)
		assert.Equal(t, valid, m.String())
	}

	for _, invalid := range []string{"", "AUTO", "detect", "everything"} {
		_, err := ParseMode(invalid)
		assert.Error(t, err, "mode %q should be rejected", invalid)
	}
}

func TestNewValidation(t *testing.T) {
	tr := newCountingTransform()

	_, err := New(nil, Options{SavePath: "x.csv", Mode: ModeAuto})
	assert.Error(t, err)

	_, err = New(tr, Options{Mode: ModeAuto})
	assert.Error(t, err)

	_, err = New(tr, Options{SavePath: "x.csv", Mode: "bogus"})
	assert.Error(t, err)
}

func TestRunBasic(t *testing.T) {
	savePath := filepath.Join(t.TempDir(), "out.csv")
	tr := newCountingTransform()
	ds := newTestDataset("bonjour", "hello")

	summary, err := newProcessor(t, tr, savePath).Run(context.Background(), ds)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 0, summary.Errors)
	assert.Equal(t, "BONJOUR", ds.Records[0].Processed)
	assert.Equal(t, "en", ds.Records[0].DetectedLanguage)

	// Output file reflects the final state
	saved, err := dataset.Load(savePath, "file", "text")
	require.NoError(t, err)
	assert.Equal(t, "BONJOUR", saved.Records[0].Processed)
	assert.Equal(t, "HELLO", saved.Records[1].Processed)
}

func TestRunEmptyDataset(t *testing.T) {
	savePath := filepath.Join(t.TempDir(), "out.csv")
	tr := newCountingTransform()

	summary, err := newProcessor(t, tr, savePath).Run(context.Background(), newTestDataset())
	require.NoError(t, err)

	assert.Equal(t, Summary{}, *summary)
	assert.Equal(t, 0, tr.totalCalls())

	// An empty persisted file with a header still exists
	saved, err := dataset.Load(savePath, "file", "text")
	require.NoError(t, err)
	assert.Equal(t, 0, saved.Len())
}

func TestRunEmptyTextRowsSkipped(t *testing.T) {
	// Three rows, the middle one empty
	savePath := filepath.Join(t.TempDir(), "out.csv")
	tr := newCountingTransform()
	ds := newTestDataset("Bonjour le monde", "", "Hello world")

	summary, err := newProcessor(t, tr, savePath).Run(context.Background(), ds)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Errors)
	assert.Equal(t, 0, tr.calls[""])
	assert.Equal(t, "", ds.Records[1].Processed)
	assert.Equal(t, "", ds.Records[1].DetectedLanguage)
	assert.False(t, ds.Records[1].IsFailed())
}

func TestIdempotence(t *testing.T) {
	savePath := filepath.Join(t.TempDir(), "out.csv")
	tr := newCountingTransform()

	_, err := newProcessor(t, tr, savePath).Run(context.Background(), newTestDataset("a", "b", "c"))
	require.NoError(t, err)
	require.Equal(t, 3, tr.totalCalls())

	// Second run over the same input and save path: all rows skipped,
	// zero transform calls, identical output
	summary, err := newProcessor(t, tr, savePath).Run(context.Background(), newTestDataset("a", "b", "c"))
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Processed)
	assert.Equal(t, 3, summary.Skipped)
	assert.Equal(t, 3, tr.totalCalls(), "second run must not call the transform")

	saved, err := dataset.Load(savePath, "file", "text")
	require.NoError(t, err)
	assert.Equal(t, "A", saved.Records[0].Processed)
	assert.Equal(t, "C", saved.Records[2].Processed)
}

func TestResumeAfterInterruption(t *testing.T) {
	savePath := filepath.Join(t.TempDir(), "out.csv")

	// First run is cancelled after two rows complete
	ctx, cancel := context.WithCancel(context.Background())
	tr := newCountingTransform()
	tr.perCall = func(text string) {
		if text == "b" {
			cancel()
		}
	}

	_, err := newProcessor(t, tr, savePath).Run(ctx, newTestDataset("a", "b", "c", "d"))
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 2, tr.totalCalls())

	// Restart with the same input: completed rows are not reprocessed
	tr2 := newCountingTransform()
	summary, err := newProcessor(t, tr2, savePath).Run(context.Background(), newTestDataset("a", "b", "c", "d"))
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 0, tr2.calls["a"])
	assert.Equal(t, 0, tr2.calls["b"])
	assert.Equal(t, 1, tr2.calls["c"])
	assert.Equal(t, 1, tr2.calls["d"])
}

func TestRowFailureIsolation(t *testing.T) {
	savePath := filepath.Join(t.TempDir(), "out.csv")
	tr := newCountingTransform()
	tr.failOn["b"] = true
	ds := newTestDataset("a", "b", "c")

	summary, err := newProcessor(t, tr, savePath).Run(context.Background(), ds)
	require.NoError(t, err, "a row failure must never fail the run")

	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, "A", ds.Records[0].Processed)
	assert.True(t, ds.Records[1].IsFailed())
	assert.Equal(t, FailedLanguage, ds.Records[1].DetectedLanguage)
	assert.Equal(t, "C", ds.Records[2].Processed)
}

func TestFailedRowsNotRetriedByDefault(t *testing.T) {
	savePath := filepath.Join(t.TempDir(), "out.csv")
	tr := newCountingTransform()
	tr.failOn["b"] = true

	_, err := newProcessor(t, tr, savePath).Run(context.Background(), newTestDataset("a", "b"))
	require.NoError(t, err)

	tr2 := newCountingTransform()
	summary, err := newProcessor(t, tr2, savePath).Run(context.Background(), newTestDataset("a", "b"))
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 0, tr2.totalCalls())
}

func TestFailedRowsRetriedWhenConfigured(t *testing.T) {
	savePath := filepath.Join(t.TempDir(), "out.csv")
	tr := newCountingTransform()
	tr.failOn["b"] = true

	_, err := newProcessor(t, tr, savePath).Run(context.Background(), newTestDataset("a", "b"))
	require.NoError(t, err)

	// The transform recovered; only the sentinel row is re-run
	tr2 := newCountingTransform()
	p := newProcessor(t, tr2, savePath, func(o *Options) { o.RetryFailed = true })
	summary, err := p.Run(context.Background(), newTestDataset("a", "b"))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 0, tr2.calls["a"])
	assert.Equal(t, 1, tr2.calls["b"])

	saved, err := dataset.Load(savePath, "file", "text")
	require.NoError(t, err)
	assert.Equal(t, "B", saved.Records[1].Processed)
	assert.False(t, saved.Records[1].IsFailed())
}

func TestOrderPreservation(t *testing.T) {
	savePath := filepath.Join(t.TempDir(), "out.csv")
	tr := newCountingTransform()
	tr.failOn["c"] = true
	ds := newTestDataset("a", "", "c", "d")

	_, err := newProcessor(t, tr, savePath).Run(context.Background(), ds)
	require.NoError(t, err)

	saved, err := dataset.Load(savePath, "file", "text")
	require.NoError(t, err)
	require.Equal(t, 4, saved.Len())
	for i, want := range []string{"doc0.pdf", "doc1.pdf", "doc2.pdf", "doc3.pdf"} {
		assert.Equal(t, want, saved.Records[i].File)
	}
}

func TestDurabilityAfterEveryRow(t *testing.T) {
	savePath := filepath.Join(t.TempDir(), "out.csv")

	// While row "c" is in flight the checkpoint must already contain the
	// outputs of rows "a" and "b" and nothing for "c"
	tr := newCountingTransform()
	var observed *dataset.Dataset
	tr.perCall = func(text string) {
		if text == "c" {
			snapshot, err := dataset.Load(savePath, "file", "text")
			if err == nil {
				observed = snapshot
			}
		}
	}

	_, err := newProcessor(t, tr, savePath).Run(context.Background(), newTestDataset("a", "b", "c"))
	require.NoError(t, err)

	require.NotNil(t, observed, "checkpoint must exist before the last row is transformed")
	require.Equal(t, 3, observed.Len())
	assert.Equal(t, "A", observed.Records[0].Processed)
	assert.Equal(t, "B", observed.Records[1].Processed)
	assert.Equal(t, "", observed.Records[2].Processed)
	assert.Equal(t, "", observed.Records[2].DetectedLanguage)
}

func TestCheckpointWithExtraAndMissingColumns(t *testing.T) {
	dir := t.TempDir()
	savePath := filepath.Join(dir, "out.csv")

	// Prior checkpoint has an extra column and lacks detected_language
	cp := dataset.New("file", "text")
	cp.Columns = append(cp.Columns, "processed", "notes")
	rec := cp.Append("doc0.pdf", "a")
	rec.Processed = "A"
	rec.Extra = map[string]string{"notes": "reviewed"}
	require.NoError(t, cp.Save(savePath))

	tr := newCountingTransform()
	ds := newTestDataset("a", "b")
	summary, err := newProcessor(t, tr, savePath).Run(context.Background(), ds)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Processed)

	saved, err := dataset.Load(savePath, "file", "text")
	require.NoError(t, err)
	assert.Contains(t, saved.Columns, "notes")
	assert.Contains(t, saved.Columns, "detected_language")
	assert.Equal(t, "reviewed", saved.Records[0].Extra["notes"])
}

func TestRunAllRowsDoneStillWritesOutput(t *testing.T) {
	// Input rows already carry outputs and no file exists at the save
	// path yet; the run must still leave one behind
	savePath := filepath.Join(t.TempDir(), "out.csv")
	tr := newCountingTransform()

	ds := dataset.New("file", "text")
	for i, text := range []string{"Hello world", "Bonjour le monde"} {
		rec := ds.Append(fmt.Sprintf("doc%d.pdf", i), text)
		rec.Processed = strings.ToUpper(text)
		rec.DetectedLanguage = "en"
	}

	summary, err := newProcessor(t, tr, savePath).Run(context.Background(), ds)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 0, tr.totalCalls())

	saved, err := dataset.Load(savePath, "file", "text")
	require.NoError(t, err)
	assert.Equal(t, 2, saved.Len())
	assert.Equal(t, "HELLO WORLD", saved.Records[0].Processed)
}

func TestTransformFunc(t *testing.T) {
	fn := TransformFunc(func(ctx context.Context, text string, mode Mode) (string, string, error) {
		return text, "en", nil
	})
	processed, lang, err := fn.Process(context.Background(), "hi", ModeDetectOnly)
	require.NoError(t, err)
	assert.Equal(t, "hi", processed)
	assert.Equal(t, "en", lang)
}
