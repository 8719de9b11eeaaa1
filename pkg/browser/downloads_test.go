package browser

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// stuckDownload blocks its save until cancelled
type stuckDownload struct {
	once      sync.Once
	cancelled chan struct{}
}

func newStuckDownload() *stuckDownload {
	return &stuckDownload{cancelled: make(chan struct{})}
}

func (d *stuckDownload) Cancel() error {
	d.once.Do(func() { close(d.cancelled) })
	return nil
}

func TestTransfersCancelUnblocksSaves(t *testing.T) {
	var tr transfers
	d := newStuckDownload()
	done := tr.start(d)
	go func() {
		defer done()
		<-d.cancelled
	}()

	assert.False(t, tr.wait(20*time.Millisecond))
	assert.Equal(t, 1, tr.cancelAll())
	assert.True(t, tr.wait(time.Second))
	assert.Equal(t, 0, tr.cancelAll())
}

func TestTransfersWaitIsBounded(t *testing.T) {
	var tr transfers
	tr.start(newStuckDownload())

	start := time.Now()
	assert.False(t, tr.wait(30*time.Millisecond))
	assert.Less(t, time.Since(start), time.Second)
}

func TestTransfersWaitWithNothingInFlight(t *testing.T) {
	var tr transfers
	assert.True(t, tr.wait(time.Millisecond))
}
