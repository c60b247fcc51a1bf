package bus

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestUtteranceQueueIsFIFO(t *testing.T) {
	b := NewMessageBus()
	b.PublishUtterance(&Utterance{TraceID: "1", Text: "first"})
	b.PublishUtterance(&Utterance{TraceID: "2", Text: "second"})

	if b.PendingInput() != 2 {
		t.Fatalf("expected 2 pending, got %d", b.PendingInput())
	}

	ctx := context.Background()
	u1, err := b.ConsumeUtterance(ctx)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	u2, _ := b.ConsumeUtterance(ctx)
	if u1.TraceID != "1" || u2.TraceID != "2" {
		t.Fatalf("order lost: %s, %s", u1.TraceID, u2.TraceID)
	}
	if u1.Timestamp.IsZero() {
		t.Fatal("publish must stamp the utterance")
	}
}

func TestConsumeHonorsCancellation(t *testing.T) {
	b := NewMessageBus()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := b.ConsumeUtterance(ctx); err == nil {
		t.Fatal("expected context error on empty queue")
	}
}

func TestDispatchFansOutToSubscribers(t *testing.T) {
	b := NewMessageBus()

	var (
		mu   sync.Mutex
		seen []string
	)
	done := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		b.Subscribe(func(e *Event) {
			mu.Lock()
			seen = append(seen, e.Kind)
			mu.Unlock()
			done <- struct{}{}
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.DispatchEvents(ctx)

	b.PublishEvent(&Event{Kind: KindReply, Content: "hello"})

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("subscriber not invoked")
		}
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 {
		t.Fatalf("expected both subscribers, got %d", len(seen))
	}
}
