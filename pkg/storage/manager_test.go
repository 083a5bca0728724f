package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveDocument(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	require.NoError(t, err)

	path, err := m.SaveDocument(strings.NewReader("document body"), "privacy-policy", ".pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "privacy-policy.pdf"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "document body", string(data))

	assert.True(t, m.IsSaved("privacy-policy"))
	assert.Equal(t, 1, m.GetSavedCount())
}

func TestSaveDocumentExtensionWithoutDot(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	require.NoError(t, err)

	path, err := m.SaveDocument(strings.NewReader("hi"), "doc", "txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "doc.txt"), path)
}

func TestScanExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "existing.pdf"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "existing.pdf.meta.json"), []byte("{}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "partial.pdf.tmp"), []byte("x"), 0644))

	m, err := NewManager(dir)
	require.NoError(t, err)

	assert.True(t, m.IsSaved("existing"))
	assert.False(t, m.IsSaved("partial.pdf"))
	assert.Equal(t, 1, m.GetSavedCount())
}

func TestNoTempFileLeftAfterSave(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	require.NoError(t, err)

	_, err = m.SaveDocument(strings.NewReader("x"), "doc", ".html")
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"))
	}
}

func TestCreatesOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "docs")
	_, err := NewManager(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
