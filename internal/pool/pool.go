// Package pool keeps reusable objects in per-kind free lists.
//
// Unlike sync.Pool, objects are never dropped: a pool only grows, and every
// object it ever created is either free or borrowed.
package pool

// Stats describes the objects a pool has created.
type Stats struct {
	Created int
	Active  int
	Free    int
}

// Pool is a FIFO free list of objects of one kind. It is not safe for
// concurrent use.
type Pool[T any] struct {
	newFn   func() T
	release func(T)
	free    []T
	created int
	active  int
}

// New creates an empty pool. release is called when an object is returned and
// may be nil.
func New[T any](newFn func() T, release func(T)) *Pool[T] {
	return &Pool[T]{newFn: newFn, release: release}
}

// Warm creates free objects until the pool holds at least capacity objects.
func (p *Pool[T]) Warm(capacity int) {
	for p.created < capacity {
		p.free = append(p.free, p.newFn())
		p.created++
	}
}

// Get borrows a free object, creating one when none is free.
func (p *Pool[T]) Get() T {
	p.active++
	if len(p.free) == 0 {
		p.created++
		return p.newFn()
	}
	v := p.free[0]
	var zero T
	p.free[0] = zero
	p.free = p.free[1:]
	return v
}

// Put returns an object to the free list. Objects the pool did not create are
// adopted.
func (p *Pool[T]) Put(v T) {
	if p.release != nil {
		p.release(v)
	}
	if p.active > 0 {
		p.active--
	} else {
		p.created++
	}
	p.free = append(p.free, v)
}

func (p *Pool[T]) Stats() Stats {
	return Stats{Created: p.created, Active: p.active, Free: len(p.free)}
}

// Manager groups pools by key. Borrowed objects are routed back to their pool
// through the key function.
type Manager[K comparable, T any] struct {
	pools map[K]*Pool[T]
	keyOf func(T) K
}

func NewManager[K comparable, T any](keyOf func(T) K) *Manager[K, T] {
	return &Manager[K, T]{
		pools: make(map[K]*Pool[T]),
		keyOf: keyOf,
	}
}

// Create registers a pool for key, warmed to capacity. Creating an existing
// pool only warms it further.
func (m *Manager[K, T]) Create(key K, capacity int, newFn func() T, release func(T)) {
	p, ok := m.pools[key]
	if !ok {
		p = New(newFn, release)
		m.pools[key] = p
	}
	p.Warm(capacity)
}

// Get borrows from the pool registered for key.
func (m *Manager[K, T]) Get(key K) (T, bool) {
	p, ok := m.pools[key]
	if !ok {
		var zero T
		return zero, false
	}
	return p.Get(), true
}

// Return hands an object back to its pool. It reports false when no pool is
// registered for the object's key; the object is then dropped.
func (m *Manager[K, T]) Return(v T) bool {
	p, ok := m.pools[m.keyOf(v)]
	if !ok {
		return false
	}
	p.Put(v)
	return true
}

// ReturnAll returns every object in vs.
func (m *Manager[K, T]) ReturnAll(vs []T) {
	for _, v := range vs {
		m.Return(v)
	}
}

func (m *Manager[K, T]) Stats(key K) Stats {
	p, ok := m.pools[key]
	if !ok {
		return Stats{}
	}
	return p.Stats()
}
