package richtext

import (
	"slices"
	"sync"
)

// listeners is an ordered set of callbacks that can be removed individually.
type listeners[E any] struct {
	mu     sync.Mutex
	nextID uint64
	fns    map[uint64]func(E)
}

func (l *listeners[E]) add(fn func(E)) func() {
	if fn == nil {
		return func() {}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fns == nil {
		l.fns = make(map[uint64]func(E))
	}
	id := l.nextID
	l.nextID++
	l.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.fns, id)
		})
	}
}

// emit calls every listener in registration order. The set is copied first
// so listeners may add or remove listeners while being called.
func (l *listeners[E]) emit(ev E) {
	l.mu.Lock()
	ids := make([]uint64, 0, len(l.fns))
	for id := range l.fns {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(E), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, l.fns[id])
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (l *listeners[E]) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.fns)
}

func (l *listeners[E]) clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fns = nil
}
