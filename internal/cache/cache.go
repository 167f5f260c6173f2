// Package cache implements a name-keyed, reference-counted store for objects
// that are expensive to create and must be destroyed explicitly, such as GPU
// shaders, programs and textures.
//
// A Cache is owned by the render thread and is not safe for concurrent use.
// Handles carry the generation they were issued in; Clear starts a new
// generation, so every handle obtained before it reports itself stale.
package cache

import (
	"fmt"

	"scenefx/internal/utils"
)

// Factory creates the object stored under name.
type Factory[V any] func(name string) (V, error)

// Destroyer frees an object when its last reference is released or the
// cache is cleared.
type Destroyer[V any] func(name string, value V)

// Handle is a counted reference to a cached object.
type Handle[V any] struct {
	name  string
	gen   uint64
	entry *entry[V]
}

type entry[V any] struct {
	value V
	refs  int
	gen   uint64
	alive bool
}

// Stats reports cache activity since creation.
type Stats struct {
	Len      int
	Hits     uint64
	Misses   uint64
	Creates  uint64
	Destroys uint64
}

type Cache[V any] struct {
	create  Factory[V]
	destroy Destroyer[V]
	entries map[string]*entry[V]
	gen     uint64

	hits, misses, creates, destroys uint64
}

// New creates an empty cache. destroy may be nil.
func New[V any](create Factory[V], destroy Destroyer[V]) *Cache[V] {
	return &Cache[V]{
		create:  create,
		destroy: destroy,
		entries: make(map[string]*entry[V]),
		gen:     1,
	}
}

// Acquire returns the object stored under name and increments its reference
// count. Absent objects are created with the factory and start at one
// reference. Factory errors are returned unchanged and nothing is stored.
func (c *Cache[V]) Acquire(name string) (Handle[V], error) {
	if e, ok := c.entries[name]; ok {
		e.refs++
		c.hits++
		return Handle[V]{name: name, gen: e.gen, entry: e}, nil
	}

	c.misses++
	value, err := c.create(name)
	if err != nil {
		return Handle[V]{}, err
	}

	e := &entry[V]{value: value, refs: 1, gen: c.gen, alive: true}
	c.entries[name] = e
	c.creates++
	return Handle[V]{name: name, gen: e.gen, entry: e}, nil
}

// MustAcquire is Acquire for objects whose creation cannot fail at this point.
func (c *Cache[V]) MustAcquire(name string) Handle[V] {
	h, err := c.Acquire(name)
	if err != nil {
		panic(fmt.Sprintf("cache: acquire %q: %v", name, err))
	}
	return h
}

// Release drops one reference. The object is destroyed and removed when the
// count reaches zero. Stale handles are ignored.
func (c *Cache[V]) Release(h Handle[V]) {
	if !h.Valid() {
		if h.entry != nil {
			utils.Warn("Cache: Ignoring release of stale handle %q", h.name)
		}
		return
	}

	e := h.entry
	e.refs--
	if e.refs > 0 {
		return
	}
	c.kill(h.name, e)
	delete(c.entries, h.name)
}

// Clear destroys every object regardless of outstanding references and
// invalidates all handles issued so far.
func (c *Cache[V]) Clear() {
	for name, e := range c.entries {
		c.kill(name, e)
	}
	c.entries = make(map[string]*entry[V])
	c.gen++
}

func (c *Cache[V]) kill(name string, e *entry[V]) {
	e.alive = false
	e.refs = 0
	c.destroys++
	if c.destroy != nil {
		c.destroy(name, e.value)
	}
}

// RefCount returns the reference count stored under name, 0 when absent.
func (c *Cache[V]) RefCount(name string) int {
	if e, ok := c.entries[name]; ok {
		return e.refs
	}
	return 0
}

// Len returns the number of live entries.
func (c *Cache[V]) Len() int { return len(c.entries) }

// Names returns the keys of live entries in no particular order.
func (c *Cache[V]) Names() []string {
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	return names
}

func (c *Cache[V]) Stats() Stats {
	return Stats{
		Len:      len(c.entries),
		Hits:     c.hits,
		Misses:   c.misses,
		Creates:  c.creates,
		Destroys: c.destroys,
	}
}

// Name returns the key the handle was acquired with.
func (h Handle[V]) Name() string { return h.name }

// Valid reports whether the object behind h is still alive.
func (h Handle[V]) Valid() bool {
	return h.entry != nil && h.entry.alive && h.entry.gen == h.gen
}

// Value returns the cached object. ok is false for stale or zero handles,
// in which case the zero value is returned.
func (h Handle[V]) Value() (v V, ok bool) {
	if !h.Valid() {
		return v, false
	}
	return h.entry.value, true
}

// Get is Value without the validity flag. It panics on stale handles, which
// always indicates a use-after-clear bug in the caller.
func (h Handle[V]) Get() V {
	v, ok := h.Value()
	if !ok {
		panic(fmt.Sprintf("cache: use of stale handle %q", h.name))
	}
	return v
}
