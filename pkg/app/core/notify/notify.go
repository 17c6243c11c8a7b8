// Package notify keeps the observer lists behind price-change and fill events.
package notify

import "sync"

// Handle identifies one subscription. Subscribing the same function twice
// yields two handles and two deliveries per event.
type Handle uint64

// Registry is a set of callbacks for events of type T.
// Notify works on a snapshot, so callbacks may subscribe or unsubscribe
// (including themselves) without deadlocking.
type Registry[T any] struct {
	mu     sync.RWMutex
	nextID Handle
	subs   []subscriber[T] // registration order
}

type subscriber[T any] struct {
	id Handle
	fn func(T)
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{}
}

// Subscribe registers fn and returns its handle
func (r *Registry[T]) Subscribe(fn func(T)) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	r.subs = append(r.subs, subscriber[T]{id: r.nextID, fn: fn})
	return r.nextID
}

// Unsubscribe removes the subscription. Unknown handles are a no-op returning false.
func (r *Registry[T]) Unsubscribe(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, s := range r.subs {
		if s.id == h {
			r.subs = append(r.subs[:i:i], r.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Notify calls every subscriber registered at the time of the call, in
// registration order, on the caller's goroutine.
func (r *Registry[T]) Notify(v T) {
	r.mu.RLock()
	snapshot := make([]subscriber[T], len(r.subs))
	copy(snapshot, r.subs)
	r.mu.RUnlock()

	for _, s := range snapshot {
		s.fn(v)
	}
}

// Len returns the number of live subscriptions
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}
