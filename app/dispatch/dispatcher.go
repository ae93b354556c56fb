package dispatch

import (
	"sync"

	"github.com/google/uuid"
)

// Dispatcher is an in-process, named-signal broadcast bus. Signals carry no
// payload; subscribers re-read whatever state they need after being woken.
// Emission is fire-and-forget: handlers run on their own goroutines and the
// emitter never waits for receipt.
type Dispatcher struct {
	mu   sync.RWMutex
	subs map[string][]*Subscription
}

// Subscription ties one handler to one signal name. Unsubscribe detaches it;
// handlers already in flight are not interrupted.
type Subscription struct {
	id         string
	signal     string
	handler    func()
	dispatcher *Dispatcher
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		subs: make(map[string][]*Subscription),
	}
}

// Subscribe registers a handler for the given signal name.
func (d *Dispatcher) Subscribe(signal string, handler func()) *Subscription {
	sub := &Subscription{
		id:         uuid.New().String(),
		signal:     signal,
		handler:    handler,
		dispatcher: d,
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs[signal] = append(d.subs[signal], sub)

	return sub
}

// Emit asynchronously invokes every handler subscribed to the signal.
func (d *Dispatcher) Emit(signal string) {
	d.mu.RLock()
	subs := make([]*Subscription, len(d.subs[signal]))
	copy(subs, d.subs[signal])
	d.mu.RUnlock()

	for _, sub := range subs {
		go sub.handler()
	}
}

// SubscriberCount returns the number of handlers attached to a signal.
func (d *Dispatcher) SubscriberCount(signal string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs[signal])
}

// Unsubscribe detaches the subscription from its dispatcher. Safe to call
// more than once.
func (s *Subscription) Unsubscribe() {
	d := s.dispatcher

	d.mu.Lock()
	defer d.mu.Unlock()

	subs := d.subs[s.signal]
	for i, sub := range subs {
		if sub.id == s.id {
			d.subs[s.signal] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(d.subs[s.signal]) == 0 {
		delete(d.subs, s.signal)
	}
}
