package events

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(TypeSignal, 4)
	defer unsub()

	bus.Publish(New(TypeSignal, "RELIANCE", "payload"))

	select {
	case ev := <-ch:
		if ev.Symbol != "RELIANCE" {
			t.Fatalf("symbol = %q, want RELIANCE", ev.Symbol)
		}
		if ev.Type != TypeSignal {
			t.Fatalf("type = %q, want signal", ev.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	bus := NewBus()
	_, unsub := bus.Subscribe(TypeOrderUpdate, 1)
	defer unsub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.Publish(New(TypeOrderUpdate, "", i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber channel")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(TypeAlert, 1)
	unsub()

	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after unsubscribe")
	}
}
