package field

// lruCache is a small bounded cache with least-recently-used eviction.
// Fields use two of these (capacity 2) to hold the expensive-to-build
// spatial interpolators and time index lookups for the frames a particle
// population is currently straddling.
type lruCache[K comparable, V any] struct {
	capacity int
	// Recency order, least recently used first. With capacity 2 a slice
	// beats any linked structure.
	keys []K
	vals []V
}

func newLRUCache[K comparable, V any](capacity int) *lruCache[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &lruCache[K, V]{
		capacity: capacity,
		keys:     make([]K, 0, capacity),
		vals:     make([]V, 0, capacity),
	}
}

// get returns the cached value and refreshes its recency.
func (c *lruCache[K, V]) get(key K) (V, bool) {
	for i, k := range c.keys {
		if k == key {
			c.touch(i)
			return c.vals[len(c.vals)-1], true
		}
	}
	var zero V
	return zero, false
}

// put inserts or refreshes a key, evicting the least recently used entry
// when the cache is full.
func (c *lruCache[K, V]) put(key K, val V) {
	for i, k := range c.keys {
		if k == key {
			c.vals[i] = val
			c.touch(i)
			return
		}
	}
	if len(c.keys) == c.capacity {
		copy(c.keys, c.keys[1:])
		copy(c.vals, c.vals[1:])
		c.keys = c.keys[:len(c.keys)-1]
		c.vals = c.vals[:len(c.vals)-1]
	}
	c.keys = append(c.keys, key)
	c.vals = append(c.vals, val)
}

// touch moves entry i to the most recently used position.
func (c *lruCache[K, V]) touch(i int) {
	k, v := c.keys[i], c.vals[i]
	copy(c.keys[i:], c.keys[i+1:])
	copy(c.vals[i:], c.vals[i+1:])
	c.keys[len(c.keys)-1] = k
	c.vals[len(c.vals)-1] = v
}

func (c *lruCache[K, V]) len() int { return len(c.keys) }

func (c *lruCache[K, V]) contains(key K) bool {
	for _, k := range c.keys {
		if k == key {
			return true
		}
	}
	return false
}
