package dispatch

import (
	"context"
	"sync"
	"testing"
)

func TestDispatcherDeliversAndDrainsOnClose(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []int
	)
	d := New(Config{BufferSize: 16}, func(_ context.Context, v int) {
		mu.Lock()
		seen = append(seen, v)
		mu.Unlock()
	})

	for i := 0; i < 10; i++ {
		if !d.Emit(context.Background(), i) {
			t.Fatalf("expected item %d to be accepted", i)
		}
	}
	d.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 10 {
		t.Fatalf("expected 10 delivered items, got %d", len(seen))
	}
	for i, v := range seen {
		if v != i {
			t.Fatalf("expected in-order delivery, got %v", seen)
		}
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{}, 1)
	d := New(Config{BufferSize: 1, DropIfFull: true}, func(_ context.Context, _ int) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
	})

	d.Emit(context.Background(), 1)
	<-started
	d.Emit(context.Background(), 2)
	if d.Emit(context.Background(), 3) {
		t.Fatal("expected third item to be dropped")
	}
	if got := d.Dropped(); got != 1 {
		t.Fatalf("expected 1 dropped item, got %d", got)
	}

	close(block)
	d.Close()
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	d := New[int](Config{BufferSize: 1}, nil)
	d.Close()
	if d.Emit(context.Background(), 1) {
		t.Fatal("expected emit after close to be rejected")
	}
}

func TestNilDispatcherIsSafe(t *testing.T) {
	var d *Dispatcher[int]
	if d.Emit(context.Background(), 1) {
		t.Fatal("expected nil dispatcher to reject")
	}
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("expected zero drops on nil dispatcher")
	}
}
