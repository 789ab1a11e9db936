// Package batch turns a rapid sequence of locally generated operations
// into infrequent, deduplicated network sends.
package batch

import (
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/padsync/padsync/internal/op"
)

type Settings struct {
	FlushDelay    time.Duration
	DedupCapacity int
}

func DefaultSettings() *Settings {
	return &Settings{
		FlushDelay:    200 * time.Millisecond,
		DedupCapacity: 10000,
	}
}

// SendFunc ships one batch as a single network message. It reports false
// when the transport is not connected; the batch stays buffered and a
// later Flush retries it.
type SendFunc func(ops []op.Operation) bool

// Batcher buffers outbound operations and flushes them on a timer. One
// network message per flush cycle, however many operations were queued
// during the window. Queuing never fails; a flush while disconnected is
// deferred silently.
type Batcher struct {
	send     SendFunc
	settings *Settings

	mu      sync.Mutex
	pending []op.Operation
	window  *dedupWindow
	timer   *time.Timer
	closed  bool
}

func NewBatcher(send SendFunc, settings *Settings) *Batcher {
	if settings == nil {
		settings = DefaultSettings()
	}
	capacity := settings.DedupCapacity
	if capacity <= 0 {
		capacity = DefaultSettings().DedupCapacity
	}
	return &Batcher{
		send:     send,
		settings: settings,
		window:   newDedupWindow(capacity),
	}
}

// Queue adds an operation to the pending batch unless its identity was
// already handed to the network, and arms the flush timer if idle.
func (b *Batcher) Queue(o op.Operation) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	if b.window.Seen(o.ID()) {
		glog.V(2).Infof("[batch]dedup %v", o.ID())
		return
	}

	b.window.Add(o.ID())
	b.pending = append(b.pending, o)

	if b.timer == nil {
		b.timer = time.AfterFunc(b.settings.FlushDelay, b.onTimer)
	}
}

func (b *Batcher) onTimer() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()
	b.Flush()
}

// Flush sends the pending batch as one message. With nothing pending, or
// with the transport not connected, it only clears the timer handle; the
// next Queue or reconnect re-triggers it.
func (b *Batcher) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if b.closed || len(b.pending) == 0 {
		return
	}
	if !b.send(b.pending) {
		// not connected, keep buffering
		return
	}

	glog.V(2).Infof("[batch]flush n=%d", len(b.pending))
	b.pending = nil
}

// Pending reports how many operations are buffered.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Close stops the timer and drops the batcher. It does not flush; the
// owner flushes first when it wants the buffer drained.
func (b *Batcher) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}
