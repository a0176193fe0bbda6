package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/saetre/arx/internal/resource"
)

// EvictFunc is called with the key and value of an entry dropped to make
// room. It runs with the cache lock held and must not call back into the
// cache.
type EvictFunc func(key string, value []byte)

// LRU is a least-recently-used cache of byte slices bounded by total size.
type LRU struct {
	mu        sync.Mutex
	capacity  int64
	size      int64
	items     map[string]*list.Element
	evictList *list.List
	rc        *resource.Controller
	onEvict   EvictFunc

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

type entry struct {
	key   string
	value []byte
}

// NewLRU creates a cache holding at most capacity bytes. rc may be nil.
func NewLRU(capacity int64, rc *resource.Controller, onEvict EvictFunc) *LRU {
	return &LRU{
		capacity:  capacity,
		items:     make(map[string]*list.Element),
		evictList: list.New(),
		rc:        rc,
		onEvict:   onEvict,
	}
}

// Get returns a cached value and marks it recently used.
func (c *LRU) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(el)
		return el.Value.(*entry).value, true
	}
	c.misses.Add(1)
	return nil, false
}

// Set caches value under key and reports whether it was admitted. Values
// larger than the capacity, or denied by the resource controller after
// eviction, are not cached.
func (c *LRU) Set(key string, value []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeElement(el, false)
	}

	size := int64(len(value))
	if size > c.capacity {
		return false
	}

	for c.size+size > c.capacity {
		if !c.evictOldest() {
			break
		}
	}

	// the shared budget may be held by others; evict our own entries first
	for c.rc.Reserve(size) != nil {
		if !c.evictOldest() {
			return false
		}
	}

	el := c.evictList.PushFront(&entry{key: key, value: value})
	c.items[key] = el
	c.size += size
	return true
}

// Remove drops key without calling the eviction callback.
func (c *LRU) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if ok {
		c.removeElement(el, false)
	}
	return ok
}

// Purge drops every entry without calling the eviction callback.
func (c *LRU) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for el := c.evictList.Back(); el != nil; el = c.evictList.Back() {
		c.removeElement(el, false)
	}
}

// Len returns the number of cached entries.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

// Size returns the cached bytes.
func (c *LRU) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Stats returns hit, miss and eviction counters.
func (c *LRU) Stats() (hits, misses, evictions int64) {
	return c.hits.Load(), c.misses.Load(), c.evictions.Load()
}

func (c *LRU) evictOldest() bool {
	el := c.evictList.Back()
	if el == nil {
		return false
	}
	c.removeElement(el, true)
	return true
}

func (c *LRU) removeElement(el *list.Element, evicted bool) {
	c.evictList.Remove(el)
	kv := el.Value.(*entry)
	delete(c.items, kv.key)
	size := int64(len(kv.value))
	c.size -= size
	c.rc.Release(size)
	if evicted {
		c.evictions.Add(1)
		if c.onEvict != nil {
			c.onEvict(kv.key, kv.value)
		}
	}
}
