// Package results holds the latest detection result and fans emitted results
// out to subscribers.
package results

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/codefinder/backend/platform/internal/geometry"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/syncx"
)

// Result is one cycle's detections in normalized preview space.
type Result struct {
	Quads     []geometry.Quad `json:"quads"`
	Timestamp time.Time       `json:"timestamp"`
	Query     string          `json:"query,omitempty"`
	Cached    bool            `json:"cached,omitempty"` // re-emitted from cache rather than freshly recognized
}

// Empty reports whether the result carries no quads.
func (r Result) Empty() bool { return len(r.Quads) == 0 }

// Cache keeps only the most recent result. Set is called from the detection
// driver alone; Get is safe from any goroutine.
type Cache struct {
	snap *syncx.Snapshot[Result]
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{snap: syncx.NewSnapshot(Result{})}
}

// Get returns the cached result.
func (c *Cache) Get() Result { return c.snap.Load() }

// Set replaces the cached result.
func (c *Cache) Set(r Result) { c.snap.Store(r) }

// Reset empties the cache.
func (c *Cache) Reset() { c.snap.Store(Result{}) }

// Broadcaster delivers results to subscribers without blocking the
// publisher. A subscriber that falls behind loses its oldest undelivered
// results.
type Broadcaster struct {
	mu      sync.RWMutex
	subs    map[chan Result]struct{}
	buffer  int
	history []Result
	maxHist int
	closed  bool
}

// NewBroadcaster creates a broadcaster with the given per-subscriber buffer and
// history length.
func NewBroadcaster(buffer, history int) *Broadcaster {
	if buffer <= 0 {
		buffer = 1
	}
	return &Broadcaster{
		subs:    make(map[chan Result]struct{}),
		buffer:  buffer,
		history: make([]Result, 0, history),
		maxHist: history,
	}
}

// Subscribe registers a subscriber. The returned cancel func unregisters it
// and closes its channel.
func (b *Broadcaster) Subscribe() (<-chan Result, func()) {
	ch := make(chan Result, b.buffer)
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if _, ok := b.subs[ch]; ok {
				delete(b.subs, ch)
				close(ch)
			}
			b.mu.Unlock()
		})
	}
}

// Publish sends r to every subscriber (non-blocking) and records it in
// history.
func (b *Broadcaster) Publish(r Result) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	if b.maxHist > 0 {
		b.history = append(b.history, r)
		if len(b.history) > b.maxHist {
			b.history = b.history[len(b.history)-b.maxHist:]
		}
	}

	for ch := range b.subs {
		select {
		case ch <- r:
			continue
		default:
		}
		// Full: drop the oldest and retry once.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- r:
		default:
		}
	}
}

// Recent returns up to n of the most recently published results, oldest
// first.
func (b *Broadcaster) Recent(n int) []Result {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n <= 0 || n > len(b.history) {
		n = len(b.history)
	}
	out := make([]Result, n)
	copy(out, b.history[len(b.history)-n:])
	return out
}

// Subscribers returns the number of active subscribers.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close unregisters and closes every subscriber.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}
