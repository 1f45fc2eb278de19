package events

import (
	"sync"
)

// Bus is a lightweight pub/sub broker using channels.
type Bus struct {
	mu   sync.RWMutex
	subs map[Type][]chan Event
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Type][]chan Event)}
}

// Subscribe registers a listener for an event type and returns the channel
// and an unsubscribe function.
func (b *Bus) Subscribe(t Type, buffer int) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, buffer)
	b.subs[t] = append(b.subs[t], ch)

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[t]
		for i, c := range subs {
			if c == ch {
				close(c)
				b.subs[t] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}

	return ch, unsub
}

// SubscribeAll registers a listener for every event type.
func (b *Bus) SubscribeAll(buffer int) (<-chan Event, func()) {
	types := []Type{TypeSignal, TypeOrderUpdate, TypePositionChange, TypeStrategyLog, TypeAlert, TypeSession}

	out := make(chan Event, buffer)
	unsubs := make([]func(), 0, len(types))
	var wg sync.WaitGroup
	for _, t := range types {
		ch, unsub := b.Subscribe(t, buffer)
		unsubs = append(unsubs, unsub)
		wg.Add(1)
		go func(ch <-chan Event) {
			defer wg.Done()
			for ev := range ch {
				select {
				case out <- ev:
				default:
				}
			}
		}(ch)
	}

	cancel := func() {
		for _, u := range unsubs {
			u()
		}
		go func() {
			wg.Wait()
			close(out)
		}()
	}
	return out, cancel
}

// Publish fan-outs the event to subscribers without blocking.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[ev.Type] {
		select {
		case ch <- ev:
		default:
			// drop if subscriber is slow; keep broker non-blocking
		}
	}
}
