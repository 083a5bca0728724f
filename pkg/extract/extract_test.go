package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policypipe/pkg/logger"
)

func TestLoadFolderTextFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("second document"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("first document"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt.meta.json"), []byte("{}"), 0644))

	e := New(logger.NewNopLogger())
	ds, err := e.LoadFolder(dir, "file", "text")
	require.NoError(t, err)

	require.Equal(t, 2, ds.Len())
	assert.Equal(t, "a.txt", ds.Records[0].File)
	assert.Equal(t, "first document", ds.Records[0].Text)
	assert.Equal(t, "b.txt", ds.Records[1].File)
	assert.Equal(t, "second document", ds.Records[1].Text)
}

func TestLoadFolderSkipsSubdirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc.md"), []byte("body"), 0644))

	e := New(logger.NewNopLogger())
	ds, err := e.LoadFolder(dir, "file", "text")
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len())
}

func TestLoadFolderMissing(t *testing.T) {
	e := New(logger.NewNopLogger())
	_, err := e.LoadFolder(filepath.Join(t.TempDir(), "nowhere"), "file", "text")
	assert.Error(t, err)
}

func TestLoadFolderBadPDFGetsEmptyRow(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.pdf"), []byte("not a pdf"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ok.txt"), []byte("fine"), 0644))

	e := New(logger.NewNopLogger())
	ds, err := e.LoadFolder(dir, "file", "text")
	require.NoError(t, err)

	require.Equal(t, 2, ds.Len())
	assert.Equal(t, "broken.pdf", ds.Records[0].File)
	assert.Empty(t, ds.Records[0].Text)
	assert.Equal(t, "fine", ds.Records[1].Text)
}

func TestExtractFilePlainText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	text, err := ExtractFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestExtractFileMissing(t *testing.T) {
	_, err := ExtractFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
