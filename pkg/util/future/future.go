// Package future provides a single-assignment container used to hand values
// from suite setup to test bodies that are constructed before setup runs.
package future

import "sync"

type Future[T any] struct {
	mu    sync.Mutex
	done  chan struct{}
	value T
}

func New[T any]() *Future[T] {
	return &Future[T]{
		done: make(chan struct{}),
	}
}

func NewFromValue[T any](value T) *Future[T] {
	f := New[T]()
	f.Set(value)
	return f
}

// Set assigns the value. Calling Set twice panics.
func (f *Future[T]) Set(value T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.done:
		panic("future: value already set")
	default:
	}
	f.value = value
	close(f.done)
}

// Get blocks until the value has been set.
func (f *Future[T]) Get() T {
	<-f.done
	return f.value
}

// IsSet reports whether the value has been assigned.
func (f *Future[T]) IsSet() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
