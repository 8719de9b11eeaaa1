package library

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "zonerama/pkg/errors"
	"zonerama/pkg/normalize"
)

func touch(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0644))
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "Zima.zip"), 2048)
	touch(t, filepath.Join(dir, "Jaro.ZIP"), 10)
	touch(t, filepath.Join(dir, "Podzim.zip.crdownload"), 10)
	touch(t, filepath.Join(dir, "notes.txt"), 10)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "Léto 2020"), 0755))
	require.NoError(t, os.Mkdir(filepath.Join(dir, WorkDirPrefix+"Zima-123"), 0755))

	idx, err := Scan(dir, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 2, idx.Len(KindArchive))
	assert.Equal(t, 1, idx.Len(KindExtractedFolder))

	assert.True(t, idx.Contains("zima", KindArchive))
	assert.True(t, idx.Contains("JARO", KindArchive))
	assert.False(t, idx.Contains("Podzim"))
	assert.False(t, idx.Contains("notes"))
	assert.True(t, idx.Contains("leto 2020", KindExtractedFolder))
	assert.False(t, idx.Contains("leto 2020", KindArchive))
	assert.True(t, idx.Contains("Leto 2020"))

	e, ok := idx.Lookup(normalize.Normalize("Zima"), KindArchive)
	require.True(t, ok)
	assert.Equal(t, int64(2048), e.Size)
	assert.Equal(t, filepath.Join(dir, "Zima.zip"), e.Path)
}

func TestScanKeepsKeysUniquePerKind(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "Léto.zip"), 1)
	touch(t, filepath.Join(dir, "leto.zip"), 1)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "Leto"), 0755))

	idx, err := Scan(dir, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 1, idx.Len(KindArchive))
	assert.Equal(t, 1, idx.Len(KindExtractedFolder))
	assert.Equal(t, 1, idx.Collisions())

	shadowed := idx.Shadowed(KindArchive)
	require.Len(t, shadowed, 1)
	assert.Equal(t, filepath.Join(dir, "leto.zip"), shadowed[0].Path)
	winner, ok := idx.Lookup(shadowed[0].Key, KindArchive)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "Léto.zip"), winner.Path)
	assert.Empty(t, idx.Shadowed(KindExtractedFolder))
}

func TestScanIsReadOnlyAndRepeatable(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "A.zip"), 5)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "B"), 0755))

	before, err := os.ReadDir(dir)
	require.NoError(t, err)

	first, err := Scan(dir, DefaultOptions())
	require.NoError(t, err)
	second, err := Scan(dir, DefaultOptions())
	require.NoError(t, err)

	after, err := os.ReadDir(dir)
	require.NoError(t, err)

	assert.Equal(t, first.Entries(KindArchive), second.Entries(KindArchive))
	assert.Equal(t, first.Entries(KindExtractedFolder), second.Entries(KindExtractedFolder))
	assert.Equal(t, len(before), len(after))
}

func TestScanMissingDirectory(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "missing"), DefaultOptions())
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeConfiguration))
}

func TestScanFileInsteadOfDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.zip")
	touch(t, file, 1)

	_, err := Scan(file, DefaultOptions())
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeConfiguration))
}

func TestEntriesSorted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"c.zip", "a.zip", "b.zip"} {
		touch(t, filepath.Join(dir, name), 1)
	}

	idx, err := Scan(dir, Options{ArchiveExt: ".zip"})
	require.NoError(t, err)

	entries := idx.Entries(KindArchive)
	require.Len(t, entries, 3)
	assert.Equal(t, "a.zip", filepath.Base(entries[0].Path))
	assert.Equal(t, "c.zip", filepath.Base(entries[2].Path))
}
