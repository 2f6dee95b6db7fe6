package worker

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolRunsSubmittedWork(t *testing.T) {
	p := NewPool(4, 100)
	var n atomic.Int32
	for i := 0; i < 50; i++ {
		assert.True(t, p.TrySubmit(func() { n.Add(1) }))
	}
	p.Stop()
	assert.Equal(t, int32(50), n.Load())
}

func TestTrySubmitAfterStop(t *testing.T) {
	p := NewPool(1, 1)
	p.Stop()
	assert.False(t, p.TrySubmit(func() {}))
	p.Stop() // idempotent
}

func TestTrySubmitWhenFull(t *testing.T) {
	p := NewPool(1, 1)
	block := make(chan struct{})
	started := make(chan struct{})
	assert.True(t, p.TrySubmit(func() { close(started); <-block }))
	<-started
	assert.True(t, p.TrySubmit(func() {}))  // fills the queue
	assert.False(t, p.TrySubmit(func() {})) // dropped
	close(block)
	p.Stop()
}

func TestPanicDoesNotKillWorker(t *testing.T) {
	p := NewPool(1, 10)
	var ran atomic.Bool
	p.TrySubmit(func() { panic("boom") })
	p.TrySubmit(func() { ran.Store(true) })
	p.Stop()
	assert.True(t, ran.Load())
}
