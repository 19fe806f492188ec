package bus

import (
	"sync"
	"testing"
	"time"
)

func TestNewNotificationBus(t *testing.T) {
	b := NewNotificationBus(10)
	if b == nil {
		t.Fatal("expected non-nil bus")
	}
	if b.closed {
		t.Fatal("expected new bus to not be closed")
	}
	if b.SubscriberCount() != 0 {
		t.Fatal("expected no subscribers")
	}
}

func TestNewNotificationBus_DefaultBuffer(t *testing.T) {
	b := NewNotificationBus(0)
	if b.buffer != 100 {
		t.Errorf("buffer = %d, want 100", b.buffer)
	}
}

func TestPublishAndReceive(t *testing.T) {
	b := NewNotificationBus(10)
	defer b.Close()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	delivered := b.Publish(Notification{
		Method: "notifications/tools/call_completed",
		Params: map[string]any{"tool": "compile_solidity"},
	})
	if delivered != 1 {
		t.Fatalf("delivered = %d, want 1", delivered)
	}

	select {
	case n := <-sub.C():
		if n.JSONRPC != "2.0" {
			t.Errorf("jsonrpc = %q, want 2.0 (filled by Publish)", n.JSONRPC)
		}
		if n.Method != "notifications/tools/call_completed" {
			t.Errorf("method = %q", n.Method)
		}
	case <-time.After(time.Second):
		t.Fatal("notification not delivered")
	}
}

func TestPublish_NoSubscribersDrops(t *testing.T) {
	b := NewNotificationBus(10)
	defer b.Close()

	if delivered := b.Publish(Notification{Method: "m"}); delivered != 0 {
		t.Fatalf("delivered = %d, want 0", delivered)
	}
	if b.Dropped() != 1 {
		t.Errorf("dropped = %d, want 1", b.Dropped())
	}
}

func TestPublish_FullBufferDropsWithoutBlocking(t *testing.T) {
	b := NewNotificationBus(2)
	defer b.Close()

	b.Subscribe() // never drained

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			b.Publish(Notification{Method: "m"})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full buffer")
	}

	if b.Dropped() != 3 {
		t.Errorf("dropped = %d, want 3", b.Dropped())
	}
}

func TestPublish_FanOut(t *testing.T) {
	b := NewNotificationBus(10)
	defer b.Close()

	s1 := b.Subscribe()
	s2 := b.Subscribe()

	if delivered := b.Publish(Notification{Method: "m"}); delivered != 2 {
		t.Fatalf("delivered = %d, want 2", delivered)
	}

	for _, sub := range []*Subscriber{s1, s2} {
		select {
		case <-sub.C():
		case <-time.After(time.Second):
			t.Fatal("subscriber missed fan-out")
		}
	}
}

func TestUnsubscribe_ClosesChannel(t *testing.T) {
	b := NewNotificationBus(10)
	defer b.Close()

	sub := b.Subscribe()
	if b.SubscriberCount() != 1 {
		t.Fatalf("count = %d, want 1", b.SubscriberCount())
	}

	b.Unsubscribe(sub)
	if b.SubscriberCount() != 0 {
		t.Fatalf("count = %d, want 0", b.SubscriberCount())
	}

	if _, open := <-sub.C(); open {
		t.Fatal("channel should be closed")
	}

	// Double unsubscribe is a no-op, not a double close.
	b.Unsubscribe(sub)
}

func TestClose(t *testing.T) {
	b := NewNotificationBus(10)
	sub := b.Subscribe()

	b.Close()
	b.Close() // idempotent

	if _, open := <-sub.C(); open {
		t.Fatal("channel should be closed after bus shutdown")
	}
	if delivered := b.Publish(Notification{Method: "m"}); delivered != 0 {
		t.Errorf("delivered = %d after close, want 0", delivered)
	}

	// Subscribing to a closed bus yields an already-closed channel.
	late := b.Subscribe()
	if _, open := <-late.C(); open {
		t.Fatal("late subscriber channel should be closed")
	}
}

func TestPublish_ConcurrentProducers(t *testing.T) {
	b := NewNotificationBus(1000)
	defer b.Close()

	sub := b.Subscribe()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				b.Publish(Notification{Method: "m"})
			}
		}()
	}
	wg.Wait()

	received := 0
	for {
		select {
		case <-sub.C():
			received++
		default:
			if received != 500 {
				t.Errorf("received = %d, want 500", received)
			}
			return
		}
	}
}
