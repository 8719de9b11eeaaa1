package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "zonerama/pkg/errors"
	"zonerama/pkg/logger"
)

var payload = bytes.Repeat([]byte("photo"), 400)

func writeZip(t *testing.T, path string, files map[string][]byte) {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, data := range files {
		// stored, so the archive is at least as large as its contents
		fw, err := w.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func newPipeline(opts Options) *Pipeline {
	opts.Logger = logger.NewNopLogger()
	return New(opts)
}

func leftoverWorkDirs(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var out []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".extract-") {
			out = append(out, e.Name())
		}
	}
	return out
}

func TestRunExtractsAndDeletes(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "Dovolená 2023.zip")
	writeZip(t, archive, map[string][]byte{
		"IMG_0001.jpg":       payload,
		"videa/VID_0001.mp4": payload,
	})

	results, err := newPipeline(Options{}).Run(context.Background(), dir, true)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, Extracted, r.Outcome)
	assert.True(t, r.Deleted)
	assert.NoError(t, r.Reason)
	assert.Equal(t, filepath.Join(dir, "Dovolená 2023"), r.Folder)

	got, err := os.ReadFile(filepath.Join(dir, "Dovolená 2023", "videa", "VID_0001.mp4"))
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	assert.NoFileExists(t, archive)
	assert.Empty(t, leftoverWorkDirs(t, dir))
}

func TestRunKeepsArchiveWithoutDelete(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "Hory.zip")
	writeZip(t, archive, map[string][]byte{"a.jpg": payload})

	results, err := newPipeline(Options{}).Run(context.Background(), dir, false)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, Extracted, results[0].Outcome)
	assert.False(t, results[0].Deleted)
	assert.FileExists(t, archive)
	assert.DirExists(t, filepath.Join(dir, "Hory"))
}

func TestRunSkipsTooSmall(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "placeholder.zip")
	require.NoError(t, os.WriteFile(archive, []byte("tiny"), 0644))

	results, err := newPipeline(Options{}).Run(context.Background(), dir, true)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, SkippedTooSmall, results[0].Outcome)
	assert.False(t, results[0].Deleted)
	assert.FileExists(t, archive)
	assert.NoDirExists(t, filepath.Join(dir, "placeholder"))
}

func TestRunSkipsAlreadyExtracted(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "Léto"), 0755))
	archive := filepath.Join(dir, "leto.zip")
	writeZip(t, archive, map[string][]byte{"a.jpg": payload})

	results, err := newPipeline(Options{}).Run(context.Background(), dir, true)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, SkippedAlreadyExtracted, results[0].Outcome)
	assert.Equal(t, filepath.Join(dir, "Léto"), results[0].Folder)
	assert.False(t, results[0].Deleted)
	assert.FileExists(t, archive)
}

func TestRunReportsArchivesSharingAnAlbumName(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "Leto.zip")
	accented := filepath.Join(dir, "Léto.zip")
	writeZip(t, plain, map[string][]byte{"a.jpg": payload})
	writeZip(t, accented, map[string][]byte{"b.jpg": payload})

	results, err := newPipeline(Options{}).Run(context.Background(), dir, true)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, plain, results[0].Archive)
	assert.Equal(t, Extracted, results[0].Outcome)
	assert.True(t, results[0].Deleted)

	assert.Equal(t, accented, results[1].Archive)
	assert.Equal(t, SkippedAlreadyExtracted, results[1].Outcome)
	assert.Equal(t, filepath.Join(dir, "Leto"), results[1].Folder)
	assert.False(t, results[1].Deleted)
	assert.FileExists(t, accented)
	assert.FileExists(t, filepath.Join(dir, "Leto", "a.jpg"))
}

type failingExtractor struct{ calls int }

func (f *failingExtractor) Extract(_ context.Context, _, dest string) error {
	f.calls++
	// leave something behind to check the work dir is cleaned
	_ = os.WriteFile(filepath.Join(dest, "partial.jpg"), []byte("x"), 0644)
	return errors.New("disk full")
}

func TestRunFailureKeepsArchive(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "Svatba.zip")
	writeZip(t, archive, map[string][]byte{"a.jpg": payload})

	fx := &failingExtractor{}
	results, err := newPipeline(Options{Extractor: fx}).Run(context.Background(), dir, true)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, 1, fx.calls)
	assert.Equal(t, ExtractionFailed, r.Outcome)
	assert.True(t, errs.Is(r.Reason, errs.ErrorTypeData))
	assert.Contains(t, r.Reason.Error(), "disk full")
	assert.False(t, r.Deleted)
	assert.FileExists(t, archive)
	assert.NoDirExists(t, filepath.Join(dir, "Svatba"))
	assert.Empty(t, leftoverWorkDirs(t, dir))
}

func TestRunCorruptArchive(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "broken.zip")
	require.NoError(t, os.WriteFile(archive, bytes.Repeat([]byte{0xAB}, 4096), 0644))

	results, err := newPipeline(Options{}).Run(context.Background(), dir, true)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, ExtractionFailed, results[0].Outcome)
	assert.FileExists(t, archive)
	assert.NoDirExists(t, filepath.Join(dir, "broken"))
	assert.Empty(t, leftoverWorkDirs(t, dir))
}

func TestRunRejectsZipSlip(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "downloads")
	require.NoError(t, os.Mkdir(dir, 0755))
	archive := filepath.Join(dir, "evil.zip")
	writeZip(t, archive, map[string][]byte{"../../escaped.txt": payload})

	results, err := newPipeline(Options{}).Run(context.Background(), dir, true)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, ExtractionFailed, results[0].Outcome)
	assert.Contains(t, results[0].Reason.Error(), "escapes")
	assert.NoFileExists(t, filepath.Join(parent, "escaped.txt"))
	assert.FileExists(t, archive)
}

func TestRunTargetOccupiedByFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Album"), []byte("not a folder"), 0644))
	archive := filepath.Join(dir, "Album.zip")
	writeZip(t, archive, map[string][]byte{"a.jpg": payload})

	results, err := newPipeline(Options{}).Run(context.Background(), dir, true)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, ExtractionFailed, results[0].Outcome)
	assert.FileExists(t, archive)
}

func TestRunResultsInArchiveOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"c.zip", "a.zip", "b.zip"} {
		writeZip(t, filepath.Join(dir, name), map[string][]byte{"x.jpg": payload})
	}

	var seen int
	results, err := newPipeline(Options{Workers: 3, OnResult: func(Result) { seen++ }}).
		Run(context.Background(), dir, false)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, want := range []string{"a.zip", "b.zip", "c.zip"} {
		assert.Equal(t, want, filepath.Base(results[i].Archive))
		assert.Equal(t, Extracted, results[i].Outcome)
	}
	assert.Equal(t, 3, seen)
}

func TestRunCancelled(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "a.zip")
	writeZip(t, archive, map[string][]byte{"x.jpg": payload})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := newPipeline(Options{}).Run(ctx, dir, true)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, ExtractionFailed, results[0].Outcome)
	assert.ErrorIs(t, results[0].Reason, errs.ErrCancelled)
	assert.FileExists(t, archive)
}

func TestRunMissingDirectory(t *testing.T) {
	_, err := newPipeline(Options{}).Run(context.Background(), filepath.Join(t.TempDir(), "nope"), false)
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeConfiguration, errs.TypeOf(err))
}

func TestSummarize(t *testing.T) {
	totals := Summarize([]Result{
		{Outcome: Extracted, Deleted: true},
		{Outcome: Extracted},
		{Outcome: SkippedTooSmall},
		{Outcome: SkippedAlreadyExtracted},
		{Outcome: ExtractionFailed},
	})
	assert.Equal(t, Totals{Extracted: 2, Skipped: 2, Failed: 1, Deleted: 1}, totals)
}
