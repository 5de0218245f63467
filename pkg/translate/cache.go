package translate

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the remote result cache.
const DefaultCacheSize = 10000

// Cache memoizes remote glosses for the lifetime of the process.
type Cache struct {
	lru *lru.Cache[string, string]
}

// NewCache returns a Cache holding at most size entries (DefaultCacheSize
// when size <= 0).
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, string](size)
	if err != nil {
		// only reachable with size <= 0
		panic(err)
	}
	return &Cache{lru: c}
}

func (c *Cache) Get(token string) (string, bool) { return c.lru.Get(token) }

func (c *Cache) Add(token, gloss string) { c.lru.Add(token, gloss) }

func (c *Cache) Len() int { return c.lru.Len() }

func (c *Cache) Purge() { c.lru.Purge() }
