package results

import (
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/codefinder/backend/platform/internal/geometry"
)

func result(n int) Result {
	return Result{Quads: make([]geometry.Quad, n), Timestamp: time.Unix(int64(n), 0)}
}

func TestCacheMostRecent(t *testing.T) {
	c := NewCache()
	if !c.Get().Empty() {
		t.Fatal("new cache should be empty")
	}

	c.Set(result(1))
	c.Set(result(3))
	if got := len(c.Get().Quads); got != 3 {
		t.Errorf("cached quads = %d, want 3", got)
	}

	c.Reset()
	if !c.Get().Empty() {
		t.Error("reset cache should be empty")
	}
}

func TestCacheConcurrentReads(t *testing.T) {
	c := NewCache()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Get()
		}()
	}
	for i := 0; i < 50; i++ {
		c.Set(result(i % 5))
	}
	wg.Wait()
}

func TestBroadcastDelivers(t *testing.T) {
	b := NewBroadcaster(4, 10)
	ch, cancel := b.Subscribe()
	defer cancel()

	b.Publish(result(2))

	select {
	case r := <-ch:
		if len(r.Quads) != 2 {
			t.Errorf("quads = %d, want 2", len(r.Quads))
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for result")
	}
}

func TestBroadcastDropsOldestWhenFull(t *testing.T) {
	b := NewBroadcaster(2, 0)
	ch, cancel := b.Subscribe()
	defer cancel()

	for i := 1; i <= 4; i++ {
		b.Publish(result(i))
	}

	first, second := <-ch, <-ch
	if len(first.Quads) != 3 || len(second.Quads) != 4 {
		t.Errorf("got %d,%d, want the two newest (3,4)", len(first.Quads), len(second.Quads))
	}
}

func TestSubscribeCancel(t *testing.T) {
	b := NewBroadcaster(1, 0)
	ch, cancel := b.Subscribe()
	if b.Subscribers() != 1 {
		t.Fatalf("subscribers = %d, want 1", b.Subscribers())
	}
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after cancel")
	}
	if b.Subscribers() != 0 {
		t.Errorf("subscribers = %d, want 0", b.Subscribers())
	}
	b.Publish(result(1))
}

func TestRecentHistory(t *testing.T) {
	b := NewBroadcaster(1, 3)
	for i := 1; i <= 5; i++ {
		b.Publish(result(i))
	}

	got := b.Recent(0)
	if len(got) != 3 {
		t.Fatalf("history = %d, want 3", len(got))
	}
	if len(got[0].Quads) != 3 || len(got[2].Quads) != 5 {
		t.Errorf("history not oldest-first: %d..%d", len(got[0].Quads), len(got[2].Quads))
	}
	if len(b.Recent(2)) != 2 {
		t.Error("Recent(2) should return two entries")
	}
}

func TestClose(t *testing.T) {
	b := NewBroadcaster(1, 0)
	ch, cancel := b.Subscribe()
	b.Close()
	if _, ok := <-ch; ok {
		t.Error("channel should be closed")
	}
	cancel()
	b.Publish(result(1))

	late, _ := b.Subscribe()
	if _, ok := <-late; ok {
		t.Error("subscribe after close should return a closed channel")
	}
}
