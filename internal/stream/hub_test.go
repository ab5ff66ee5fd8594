package stream

import (
	"testing"
	"time"
)

func TestHub_PublishReachesSubscribers(t *testing.T) {
	h := NewHub(4, nil)
	id1, ch1 := h.Subscribe()
	_, ch2 := h.Subscribe()

	h.Publish(AlertEvent{Type: "alert", Address: "MintA", Tier: "real_gem"})

	for _, ch := range []<-chan AlertEvent{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.Address != "MintA" {
				t.Fatalf("address=%q want=MintA", ev.Address)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}

	h.Unsubscribe(id1)
	if _, open := <-ch1; open {
		t.Fatal("unsubscribed channel not closed")
	}
	if s := h.Stats(); s.Subscribers != 1 {
		t.Fatalf("subscribers=%d want=1", s.Subscribers)
	}
}

func TestHub_SlowSubscriberDropsNotBlocks(t *testing.T) {
	h := NewHub(1, nil)
	_, ch := h.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			h.Publish(AlertEvent{Type: "alert", Address: "MintA"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on slow subscriber")
	}

	if s := h.Stats(); s.Dropped != 4 {
		t.Fatalf("dropped=%d want=4", s.Dropped)
	}
	<-ch // the single buffered event is still there
}
