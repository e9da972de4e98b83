package extract

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

const cacheVersion = 1

// CacheEntry records one PDF extraction, keyed externally by absolute path.
// The stored byte size is the change fingerprint: a same-size content edit is
// invisible to the cache, an accepted tradeoff against re-parsing.
type CacheEntry struct {
	PDFPath     string `json:"pdfPath"`
	PDFSize     int64  `json:"pdfSize"`
	ExtractedAt string `json:"extractedAt"`
	Text        string `json:"text"`
	PageCount   int    `json:"pageCount"`
}

type cacheFile struct {
	Version int                   `json:"version"`
	Entries map[string]CacheEntry `json:"entries"`
}

// Cache is the on-disk PDF extraction cache. A corrupt or missing cache file
// is treated as empty.
type Cache struct {
	path    string
	logger  *zap.Logger
	mu      sync.Mutex
	entries map[string]CacheEntry
}

// NewCache loads the cache at path. path may be empty (cache is memory-only).
func NewCache(path string, logger *zap.Logger) *Cache {
	c := &Cache{
		path:    path,
		logger:  logger,
		entries: make(map[string]CacheEntry),
	}
	if path == "" {
		return c
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return c
	}
	var f cacheFile
	if err := json.Unmarshal(data, &f); err != nil || f.Entries == nil {
		if logger != nil {
			logger.Warn("extraction cache unreadable, starting empty", zap.String("path", path))
		}
		return c
	}
	c.entries = f.Entries
	return c
}

// Get returns the entry for absPath when present and its stored size matches size.
func (c *Cache) Get(absPath string, size int64) (CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[absPath]
	if !ok || entry.PDFSize != size {
		return CacheEntry{}, false
	}
	return entry, true
}

// Put stores the entry for absPath and persists the cache. Write failures are
// logged, never fatal.
func (c *Cache) Put(absPath string, entry CacheEntry) {
	c.mu.Lock()
	c.entries[absPath] = entry
	c.mu.Unlock()
	c.save()
}

func (c *Cache) save() {
	if c.path == "" {
		return
	}
	c.mu.Lock()
	f := cacheFile{Version: cacheVersion, Entries: c.entries}
	data, err := json.Marshal(f)
	c.mu.Unlock()
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("extraction cache marshal failed", zap.Error(err))
		}
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		if c.logger != nil {
			c.logger.Warn("extraction cache dir create failed", zap.Error(err))
		}
		return
	}
	if err := os.WriteFile(c.path, data, 0600); err != nil && c.logger != nil {
		c.logger.Warn("extraction cache write failed", zap.String("path", c.path), zap.Error(err))
	}
}
