// Package observable provides a replay-of-one state holder used by the cart
// and chat stores to push every state change to subscribers.
package observable

import "sync"

// Subject holds a current value and a set of observers. New observers are
// handed the current value immediately, then every later value in the order
// the mutations happened.
//
// Observers run synchronously on the mutating goroutine and must not call
// Update or Set on the same subject.
type Subject[T any] struct {
	deliverMu sync.Mutex

	mu        sync.RWMutex
	value     T
	observers map[uint64]func(T)
	nextID    uint64
}

// New returns a Subject seeded with initial.
func New[T any](initial T) *Subject[T] {
	return &Subject[T]{
		value:     initial,
		observers: make(map[uint64]func(T)),
	}
}

// Value returns the current value.
func (s *Subject[T]) Value() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Subscribe registers fn and replays the current value to it before
// returning. The returned func removes the observer; calling it more than
// once is harmless.
func (s *Subject[T]) Subscribe(fn func(T)) func() {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	current := s.value
	s.mu.Unlock()

	fn(current)

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// Set replaces the current value and notifies observers.
func (s *Subject[T]) Set(v T) {
	s.Update(func(T) T { return v })
}

// Update applies fn to the current value as one atomic read-modify-write,
// stores the result, notifies observers and returns the new value.
func (s *Subject[T]) Update(fn func(T) T) T {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	next := fn(s.value)
	s.value = next
	observers := make([]func(T), 0, len(s.observers))
	for _, obs := range s.observers {
		observers = append(observers, obs)
	}
	s.mu.Unlock()

	for _, obs := range observers {
		obs(next)
	}
	return next
}

// Len reports the number of registered observers.
func (s *Subject[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.observers)
}
