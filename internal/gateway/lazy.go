package gateway

import (
	"sync"
	"sync/atomic"
)

// lazy holds one value that is loaded at most once successfully. Concurrent
// callers block on the load in progress; a failed load is retried by the next caller.
type lazy[T any] struct {
	mu     sync.Mutex
	loaded atomic.Bool
	value  T
}

func (l *lazy[T]) get(load func() (T, error)) (T, error) {
	if l.loaded.Load() {
		return l.value, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded.Load() {
		return l.value, nil
	}
	v, err := load()
	if err != nil {
		var zero T
		return zero, err
	}
	l.value = v
	l.loaded.Store(true)
	return v, nil
}

func (l *lazy[T]) ready() bool {
	return l.loaded.Load()
}
