package index

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	domidx "github.com/kailas-cloud/tickerdex/internal/domain/index"
	"github.com/kailas-cloud/tickerdex/internal/domain/ticker"
)

// cache is a bounded LRU of immutable per-ticker indexes. Size 0 disables it.
type cache struct {
	entries *lru.Cache[ticker.Symbol, domidx.Index]
}

func newCache(maxSize int) *cache {
	if maxSize <= 0 {
		return &cache{}
	}
	entries, err := lru.New[ticker.Symbol, domidx.Index](maxSize)
	if err != nil {
		return &cache{}
	}
	return &cache{entries: entries}
}

func (c *cache) get(sym ticker.Symbol) (domidx.Index, bool) {
	if c.entries == nil {
		return domidx.Index{}, false
	}
	return c.entries.Get(sym)
}

func (c *cache) put(sym ticker.Symbol, idx domidx.Index) {
	if c.entries == nil {
		return
	}
	c.entries.Add(sym, idx)
}

func (c *cache) remove(sym ticker.Symbol) {
	if c.entries == nil {
		return
	}
	c.entries.Remove(sym)
}

func (c *cache) len() int {
	if c.entries == nil {
		return 0
	}
	return c.entries.Len()
}

// lockTable hands out one RWMutex per ticker. Entries are never freed.
type lockTable struct {
	mu    sync.Mutex
	locks map[ticker.Symbol]*sync.RWMutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[ticker.Symbol]*sync.RWMutex)}
}

func (t *lockTable) get(sym ticker.Symbol) *sync.RWMutex {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.locks[sym]
	if !ok {
		l = &sync.RWMutex{}
		t.locks[sym] = l
	}
	return l
}
