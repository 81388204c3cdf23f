package menu

import (
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// Cache holds loaded menus keyed by source path. The driving process owns one
// and passes it to whoever needs an Index; a path is read at most once.
type Cache struct {
	loader  *Loader
	logger  *zap.Logger
	mu      sync.Mutex
	entries map[string]*Index
}

func NewCache(loader *Loader, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		loader:  loader,
		logger:  logger,
		entries: make(map[string]*Index),
	}
}

// Get returns the index for path, loading it on first use.
func (c *Cache) Get(path string) (*Index, error) {
	key := cacheKey(path)

	c.mu.Lock()
	defer c.mu.Unlock()

	if idx, ok := c.entries[key]; ok {
		c.logger.Debug("Menu cache hit", zap.String("path", key))
		return idx, nil
	}

	items, err := c.loader.Load(path)
	if err != nil {
		return nil, err
	}
	idx := NewIndex(items)
	c.entries[key] = idx
	return idx, nil
}

// Put registers an already-built index under path.
func (c *Cache) Put(path string, idx *Index) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(path)] = idx
}

func cacheKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
