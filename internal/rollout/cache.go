package rollout

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
)

const DefaultCacheSize = 32

// Cache memoizes Load results keyed by a SHA-256 of the raw content (and the
// schema mode, which changes the outcome). Bounded LRU: re-rendering a tab the
// user already opened never re-parses the file, while a long session cycling
// through many distinct files cannot grow without limit.
type Cache struct {
	mu    sync.Mutex
	max   int
	order *list.List
	items map[string]*list.Element
}

type cacheEntry struct {
	key string
	res Result
}

func NewCache(max int) *Cache {
	if max <= 0 {
		max = DefaultCacheSize
	}
	return &Cache{
		max:   max,
		order: list.New(),
		items: make(map[string]*list.Element, max),
	}
}

// Load returns the memoized result for raw, computing and storing it on a
// miss. Load errors are never cached.
func (c *Cache) Load(raw []byte, mode SchemaMode) (Result, error) {
	key := contentKey(raw, mode)

	c.mu.Lock()
	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		res := el.Value.(*cacheEntry).res
		c.mu.Unlock()
		return res, nil
	}
	c.mu.Unlock()

	res, err := Load(raw, mode)
	if err != nil {
		return Result{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		return el.Value.(*cacheEntry).res, nil
	}
	c.items[key] = c.order.PushFront(&cacheEntry{key: key, res: res})
	for c.order.Len() > c.max {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).key)
	}
	return res, nil
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func contentKey(raw []byte, mode SchemaMode) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]) + fmt.Sprintf("|m=%d", mode)
}
