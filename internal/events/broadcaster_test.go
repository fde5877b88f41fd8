package events

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroadcaster()
	if b.ListenerCount() != 0 {
		t.Errorf("Initial ListenerCount = %d, want 0", b.ListenerCount())
	}

	l1 := b.Subscribe()
	l2 := b.Subscribe()
	if b.ListenerCount() != 2 {
		t.Errorf("After 2 subscribes: ListenerCount = %d, want 2", b.ListenerCount())
	}

	b.Unsubscribe(l1)
	if b.ListenerCount() != 1 {
		t.Errorf("After 1 unsubscribe: ListenerCount = %d, want 1", b.ListenerCount())
	}
	select {
	case <-l1.Done():
	default:
		t.Error("Listener done channel not closed after unsubscribe")
	}

	b.Unsubscribe(l2)
	if b.ListenerCount() != 0 {
		t.Errorf("After all unsubscribed: ListenerCount = %d, want 0", b.ListenerCount())
	}
}

func TestPublishMultipleListeners(t *testing.T) {
	b := NewBroadcaster()
	listeners := make([]*Listener, 5)
	for i := range listeners {
		listeners[i] = b.Subscribe()
	}

	b.Publish(Event{RunID: "r", Stage: StageRender, Done: 3, Total: 10})

	for i, l := range listeners {
		select {
		case got := <-l.C:
			if got.Stage != StageRender || got.Done != 3 {
				t.Errorf("Listener %d got %+v", i, got)
			}
		default:
			t.Errorf("Listener %d got nothing", i)
		}
		b.Unsubscribe(l)
	}
}

func TestPublishDropsForSlowListener(t *testing.T) {
	b := NewBroadcaster()
	slow := b.Subscribe()
	defer b.Unsubscribe(slow)

	for i := 0; i < 200; i++ {
		b.Publish(Event{Done: i})
	}

	if n := len(slow.C); n != cap(slow.C) {
		t.Errorf("slow listener buffered %d events, want %d", n, cap(slow.C))
	}
	if first := <-slow.C; first.Done != 0 {
		t.Errorf("first buffered event = %d, want 0", first.Done)
	}
}

func TestRunDelivers(t *testing.T) {
	b := NewBroadcaster()
	l := b.Subscribe()
	defer b.Unsubscribe(l)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	source := make(chan Event, 1)
	go b.Run(ctx, source)

	source <- Event{Stage: StageDone}
	select {
	case got := <-l.C:
		if got.Stage != StageDone {
			t.Errorf("got %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for event")
	}
}

func TestRunStops(t *testing.T) {
	for _, name := range []string{"cancel", "close"} {
		b := NewBroadcaster()
		ctx, cancel := context.WithCancel(context.Background())
		source := make(chan Event)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Run(ctx, source)
		}()

		if name == "cancel" {
			cancel()
		} else {
			close(source)
		}

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("Broadcaster did not stop after %s", name)
		}
		cancel()
	}
}
