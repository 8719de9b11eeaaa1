package monitor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "zonerama/pkg/errors"
	"zonerama/pkg/logger"
)

// scriptedLister returns one snapshot per poll and repeats the last one
type scriptedLister struct {
	mu    sync.Mutex
	steps [][]FileInfo
	calls int
}

func (s *scriptedLister) list(string) ([]FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	s.calls++
	return s.steps[i], nil
}

func (s *scriptedLister) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newMonitor(interval time.Duration, lister Lister) *Monitor {
	return New(Options{
		PollInterval:  interval,
		PartialSuffix: ".crdownload",
		Lister:        lister,
		Logger:        logger.NewNopLogger(),
	})
}

var zip = Pattern{Name: "Léto 2020", Ext: ".zip"}

func TestAwaitTimesOutWithinOnePollOfDeadline(t *testing.T) {
	dir := t.TempDir()
	interval := 20 * time.Millisecond
	deadline := 150 * time.Millisecond
	m := newMonitor(interval, nil)

	start := time.Now()
	out := m.Await(context.Background(), dir, zip, deadline, nil)
	elapsed := time.Since(start)

	assert.Equal(t, KindTimedOut, out.Kind)
	assert.GreaterOrEqual(t, elapsed, deadline)
	// generous scheduling slack on top of the one-interval bound
	assert.Less(t, elapsed, deadline+interval+100*time.Millisecond)
}

func TestAwaitRequiresTwoUnchangedPolls(t *testing.T) {
	mod := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	file := func(size int64) []FileInfo {
		return []FileInfo{{Name: "Léto 2020.zip", Size: size, ModTime: mod.Add(time.Duration(size))}}
	}
	lister := &scriptedLister{steps: [][]FileInfo{
		file(100),
		file(200),
		file(300),
		file(300),
	}}
	m := newMonitor(5*time.Millisecond, lister.list)

	out := m.Await(context.Background(), "/downloads", zip, 5*time.Second, nil)

	require.Equal(t, KindCompleted, out.Kind)
	assert.Equal(t, filepath.Join("/downloads", "Léto 2020.zip"), out.Path)
	assert.Equal(t, 4, lister.Calls())
}

func TestAwaitIgnoresPartialFiles(t *testing.T) {
	mod := time.Now()
	lister := &scriptedLister{steps: [][]FileInfo{
		{{Name: "Léto 2020.zip.crdownload", Size: 10, ModTime: mod}},
		{{Name: "Léto 2020.zip.crdownload", Size: 10, ModTime: mod}},
		{{Name: "Léto 2020.zip", Size: 10, ModTime: mod}},
		{{Name: "Léto 2020.zip", Size: 10, ModTime: mod}},
	}}
	m := newMonitor(5*time.Millisecond, lister.list)

	out := m.Await(context.Background(), "/d", zip, 5*time.Second, nil)

	require.Equal(t, KindCompleted, out.Kind)
	assert.Equal(t, 4, lister.Calls())
}

func TestAwaitOnRealDirectory(t *testing.T) {
	dir := t.TempDir()
	m := newMonitor(10*time.Millisecond, nil)

	go func() {
		partial := filepath.Join(dir, "Leto 2020.zip.crdownload")
		_ = os.WriteFile(partial, make([]byte, 512), 0644)
		time.Sleep(30 * time.Millisecond)
		_ = os.Rename(partial, filepath.Join(dir, "Leto 2020.zip"))
	}()

	out := m.Await(context.Background(), dir, zip, 2*time.Second, nil)
	require.Equal(t, KindCompleted, out.Kind)
	assert.Equal(t, filepath.Join(dir, "Leto 2020.zip"), out.Path)
}

func TestAwaitReturnsFailureImmediately(t *testing.T) {
	m := newMonitor(10*time.Millisecond, nil)
	failures := make(chan error, 1)
	failures <- errors.New("download canceled by browser")

	start := time.Now()
	out := m.Await(context.Background(), t.TempDir(), zip, 10*time.Second, failures)

	assert.Equal(t, KindFailed, out.Kind)
	assert.EqualError(t, out.Reason, "download canceled by browser")
	assert.Less(t, time.Since(start), time.Second)
}

func TestAwaitClosedFailureChannelKeepsWaiting(t *testing.T) {
	m := newMonitor(10*time.Millisecond, nil)
	failures := make(chan error)
	close(failures)

	out := m.Await(context.Background(), t.TempDir(), zip, 60*time.Millisecond, failures)
	assert.Equal(t, KindTimedOut, out.Kind)
}

func TestAwaitCancelled(t *testing.T) {
	m := newMonitor(10*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	out := m.Await(ctx, t.TempDir(), zip, 10*time.Second, nil)

	require.Equal(t, KindFailed, out.Kind)
	assert.ErrorIs(t, out.Reason, errs.ErrCancelled)
}

func TestPatternMatch(t *testing.T) {
	tests := []struct {
		pattern Pattern
		file    string
		want    bool
	}{
		{Pattern{"Léto 2020", ".zip"}, "Léto 2020.zip", true},
		{Pattern{"Léto 2020", ".zip"}, "leto 2020.ZIP", true},
		{Pattern{"Léto 2020", ".zip"}, "Léto 2020 (1).zip", true},
		{Pattern{"Léto 2020", ".zip"}, "Léto 2020.rar", false},
		{Pattern{"Léto 2020", ".zip"}, "Léto 2021.zip", false},
		{Pattern{"Zima", ".zip"}, "Zima 2020.zip", false},
		{Pattern{"Výlet: Praha/Brno", ".zip"}, "Výlet_ Praha_Brno.zip", true},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pattern.Match(tt.file))
		})
	}
}
