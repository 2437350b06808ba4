package ccache

import (
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
)

// Key identifies the content of a file by path, size and modification time,
// together with the digest algorithm.
type Key struct {
	Path      string
	Algorithm string
	Size      int64
	ModTime   int64
}

// NewKey builds the cache key of a file.
func NewKey(path, algorithm string, size int64, modTime time.Time) Key {
	return Key{Path: path, Algorithm: algorithm, Size: size, ModTime: modTime.UnixNano()}
}

// SumCache is a concurrent safe lru cache of finished digests.
type SumCache struct {
	l      sync.Mutex
	cache  *lru.Cache
	hits   uint64
	misses uint64
}

func NewSumCache(maxEntries int) *SumCache {
	return &SumCache{
		cache: lru.New(maxEntries),
	}
}

// Get returns a copy of the cached digest.
func (c *SumCache) Get(key Key) ([]byte, bool) {
	c.l.Lock()
	defer c.l.Unlock()
	v, ok := c.cache.Get(key)
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	return append([]byte(nil), v.([]byte)...), true
}

func (c *SumCache) Add(key Key, sum []byte) {
	c.l.Lock()
	c.cache.Add(key, append([]byte(nil), sum...))
	c.l.Unlock()
}

func (c *SumCache) Remove(key Key) {
	c.l.Lock()
	c.cache.Remove(key)
	c.l.Unlock()
}

func (c *SumCache) Clear() {
	c.l.Lock()
	c.cache.Clear()
	c.l.Unlock()
}

func (c *SumCache) Len() int {
	c.l.Lock()
	defer c.l.Unlock()
	return c.cache.Len()
}

// Stats returns the number of hits and misses since creation.
func (c *SumCache) Stats() (hits, misses uint64) {
	c.l.Lock()
	defer c.l.Unlock()
	return c.hits, c.misses
}
