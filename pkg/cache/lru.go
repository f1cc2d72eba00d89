package cache

import "container/list"

// Meter measures the weight an entry contributes toward a cache's
// capacity.
type Meter[V any] interface {
	Measure(v V) int
}

// Pinnable reports whether a value must never be evicted.
type Pinnable[V any] interface {
	IsPinned(v V) bool
}

// CountMeter measures every entry as weight 1, so capacity means "number
// of entries".
type CountMeter[V any] struct{}

func (CountMeter[V]) Measure(V) int { return 1 }

// NoPin never pins anything.
type NoPin[V any] struct{}

func (NoPin[V]) IsPinned(V) bool { return false }

type entry[K comparable, V any] struct {
	key   K
	value V
}

// LRU is a capacity-bounded cache that evicts least-recently-used,
// unpinned entries first.
type LRU[K comparable, V any] struct {
	capacity int
	used     int
	ll       *list.List
	items    map[K]*list.Element
	meter    Meter[V]
	pin      Pinnable[V]
}

// New builds an LRU with the given capacity (in Meter units), weight
// function, and pin checker.
func New[K comparable, V any](capacity int, meter Meter[V], pin Pinnable[V]) *LRU[K, V] {
	return &LRU[K, V]{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[K]*list.Element),
		meter:    meter,
		pin:      pin,
	}
}

// Insert adds or replaces the value for k, evicting unpinned
// least-recently-used entries until the cache is back under capacity.
// It returns the previous value, if any.
func (c *LRU[K, V]) Insert(k K, v V) (old V, hadOld bool) {
	delta := c.meter.Measure(v)

	if el, ok := c.items[k]; ok {
		e := el.Value.(*entry[K, V])
		old, hadOld = e.value, true
		delta -= c.meter.Measure(old)
		e.value = v
		c.ll.MoveToFront(el)
	} else {
		e := &entry[K, V]{key: k, value: v}
		c.items[k] = c.ll.PushFront(e)
	}

	c.used += delta
	for c.used > c.capacity {
		if _, ok := c.removeLRU(); !ok {
			break
		}
	}
	return old, hadOld
}

// ContainsKey reports whether k is present, without affecting recency.
func (c *LRU[K, V]) ContainsKey(k K) bool {
	_, ok := c.items[k]
	return ok
}

// GetRefresh returns a mutable pointer to the value for k, marking it
// most-recently-used. The pointer is valid until the entry is evicted or
// removed.
func (c *LRU[K, V]) GetRefresh(k K) (*V, bool) {
	el, ok := c.items[k]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	e := el.Value.(*entry[K, V])
	return &e.value, true
}

// GetMut returns a mutable pointer to the value for k without affecting
// recency.
func (c *LRU[K, V]) GetMut(k K) (*V, bool) {
	el, ok := c.items[k]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry[K, V])
	return &e.value, true
}

// Remove deletes k unconditionally, pinned or not, and returns its value.
func (c *LRU[K, V]) Remove(k K) (V, bool) {
	el, ok := c.items[k]
	if !ok {
		var zero V
		return zero, false
	}
	e := el.Value.(*entry[K, V])
	c.ll.Remove(el)
	delete(c.items, k)
	c.used -= c.meter.Measure(e.value)
	return e.value, true
}

// Len returns the number of entries currently cached.
func (c *LRU[K, V]) Len() int {
	return len(c.items)
}

// removeLRU evicts the least-recently-used unpinned entry, scanning from
// the back (oldest) of the list. If every entry is pinned, it evicts
// nothing and returns ok=false.
func (c *LRU[K, V]) removeLRU() (V, bool) {
	for el := c.ll.Back(); el != nil; el = el.Prev() {
		e := el.Value.(*entry[K, V])
		if !c.pin.IsPinned(e.value) {
			c.ll.Remove(el)
			delete(c.items, e.key)
			c.used -= c.meter.Measure(e.value)
			return e.value, true
		}
	}
	var zero V
	return zero, false
}
