// Package event provides the push-notify / pull-value observer mechanism used
// between the simulator and its observers.
//
// A Notifier only tells observers that something happened. Events carry at
// most an identification of what changed; observers re-read whatever state
// they care about after being signalled.
package event

import (
	"sync"
)

// Notifier delivers events of type E to subscribed listeners and watching
// channels. The zero value is ready to use.
type Notifier[E any] struct {
	mutex     sync.RWMutex
	nextId    int
	listeners map[int]func(E)
	watchers  map[int]chan<- E
}

// Subscribe registers a listener, called synchronously on the notifying
// goroutine for every event. The returned function cancels the subscription.
func (n *Notifier[E]) Subscribe(listener func(E)) (cancel func()) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	if n.listeners == nil {
		n.listeners = make(map[int]func(E))
	}

	id := n.nextId
	n.nextId++
	n.listeners[id] = listener

	return func() {
		n.mutex.Lock()
		defer n.mutex.Unlock()
		delete(n.listeners, id)
	}
}

// Watch registers a channel for events. Delivery never blocks the notifier:
// if the channel is not ready the event is dropped, so a channel with a
// buffer of one coalesces bursts into a single pending signal.
func (n *Notifier[E]) Watch(ch chan<- E) (cancel func()) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	if n.watchers == nil {
		n.watchers = make(map[int]chan<- E)
	}

	id := n.nextId
	n.nextId++
	n.watchers[id] = ch

	return func() {
		n.mutex.Lock()
		defer n.mutex.Unlock()
		delete(n.watchers, id)
	}
}

// Notify delivers an event to all listeners and watchers.
func (n *Notifier[E]) Notify(ev E) {
	n.mutex.RLock()
	listeners := make([]func(E), 0, len(n.listeners))
	for _, listener := range n.listeners {
		listeners = append(listeners, listener)
	}
	for _, ch := range n.watchers {
		select {
		case ch <- ev:
		default:
		}
	}
	n.mutex.RUnlock()

	// Listeners may subscribe or cancel from inside the callback.
	for _, listener := range listeners {
		listener(ev)
	}
}

// Len returns the number of active listeners and watchers.
func (n *Notifier[E]) Len() int {
	n.mutex.RLock()
	defer n.mutex.RUnlock()
	return len(n.listeners) + len(n.watchers)
}
