package main

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "zonerama/pkg/errors"
)

func TestExpandShorthands(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"combined", []string{"-d", "alba", "-ud"}, []string{"-d", "alba", "-u", "--delete"}},
		{"download dir cluster", []string{"-du"}, []string{"-du"}},
		{"untouched", []string{"-u", "--delete", "--headless"}, []string{"-u", "--delete", "--headless"}},
		{"after terminator", []string{"--", "-ud"}, []string{"--", "-ud"}},
		{"empty", nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, expandShorthands(tt.in))
		})
	}
}

func TestExitCode(t *testing.T) {
	live := context.Background()
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, exitOK, exitCode(live, nil))
	assert.Equal(t, exitFailure, exitCode(live, errors.New("unknown flag")))
	assert.Equal(t, exitFailure, exitCode(live, fail(errors.New("bad directory"))))
	assert.Equal(t, exitInterrupted, exitCode(live, interrupted()))
	assert.Equal(t, exitInterrupted, exitCode(live, errs.Wrap(errs.ErrorTypeCancelled, "op", context.Canceled)))
	assert.Equal(t, exitInterrupted, exitCode(cancelled, nil))
}

func TestExecute_DeleteWithoutUnzipIsRejected(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()

	code := Execute([]string{"download", "-d", dir, "--delete", "--log-level", "error"})
	assert.Equal(t, exitFailure, code)
}

func TestExecute_ExtractCommand(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()

	archive := filepath.Join(dir, "Léto 2020.zip")
	f, err := os.Create(archive)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.CreateHeader(&zip.FileHeader{Name: "IMG_0001.jpg", Method: zip.Store})
	require.NoError(t, err)
	_, err = w.Write([]byte(strings.Repeat("jpeg", 1000)))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	code := Execute([]string{"extract", dir, "--delete", "--log-level", "error"})
	assert.Equal(t, exitOK, code)
	assert.FileExists(t, filepath.Join(dir, "Léto 2020", "IMG_0001.jpg"))
	assert.NoFileExists(t, archive)
}

func TestReleaseOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	released := make(chan struct{})
	releaseOnCancel(ctx, func() { close(released) })

	select {
	case <-released:
		t.Fatal("released before cancel")
	case <-time.After(20 * time.Millisecond):
	}

	cancel()
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("signal handling not released after cancel")
	}
}
