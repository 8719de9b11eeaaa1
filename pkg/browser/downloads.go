package browser

import (
	"sync"
	"time"
)

// canceler is the part of playwright.Download the tracker needs
type canceler interface {
	Cancel() error
}

// transfers tracks downloads that are still being saved so Close can abort
// them instead of waiting for the browser to finish.
type transfers struct {
	mu     sync.Mutex
	next   int
	active map[int]canceler
	wg     sync.WaitGroup
}

// start registers d and returns the func to call once its save returns
func (t *transfers) start(d canceler) func() {
	t.mu.Lock()
	if t.active == nil {
		t.active = make(map[int]canceler)
	}
	id := t.next
	t.next++
	t.active[id] = d
	t.wg.Add(1)
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.active, id)
		t.mu.Unlock()
		t.wg.Done()
	}
}

// cancelAll asks every in-flight download to stop and returns how many there were
func (t *transfers) cancelAll() int {
	t.mu.Lock()
	pending := make([]canceler, 0, len(t.active))
	for _, d := range t.active {
		pending = append(pending, d)
	}
	t.mu.Unlock()

	for _, d := range pending {
		_ = d.Cancel()
	}
	return len(pending)
}

// wait blocks until every save has returned or timeout passes. It reports
// whether all saves finished.
func (t *transfers) wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
