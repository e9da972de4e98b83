// Package extract provides per-file-type text acquisition for indexing.
package extract

import (
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Strategy converts a file into indexable text. Implementations return an
// error when the file cannot yield text; the indexer logs and skips such files.
type Strategy interface {
	Extract(absPath, relPath string, size int64) (string, error)
}

// Extractor dispatches to a per-extension Strategy, defaulting to a plain
// UTF-8 read. PDF extraction is cached by absolute path and byte size.
type Extractor struct {
	plain Strategy
	byExt map[string]Strategy
	cache *Cache
}

// NewExtractor creates an extractor whose PDF cache persists at cachePath.
// logger may be nil.
func NewExtractor(cachePath string, logger *zap.Logger) *Extractor {
	cache := NewCache(cachePath, logger)
	return &Extractor{
		plain: &PlainStrategy{},
		byExt: map[string]Strategy{
			".pdf":  &PDFStrategy{cache: cache},
			".docx": &DocxStrategy{},
			".xlsx": &ExcelStrategy{},
		},
		cache: cache,
	}
}

// Extract returns the text content of the file using the strategy for its
// extension, or the plain UTF-8 read when no specific strategy is registered.
func (e *Extractor) Extract(absPath, relPath string, size int64) (string, error) {
	if s, ok := e.byExt[ext(absPath)]; ok {
		return s.Extract(absPath, relPath, size)
	}
	return e.plain.Extract(absPath, relPath, size)
}

// CacheServed reports whether reads of this path are answered from the
// extraction cache rather than the raw file bytes.
func (e *Extractor) CacheServed(path string) bool {
	return ext(path) == ".pdf"
}

// CachedText returns the cached extraction for absPath if present and still
// matching the current file size.
func (e *Extractor) CachedText(absPath string, size int64) (string, bool) {
	entry, ok := e.cache.Get(absPath, size)
	if !ok {
		return "", false
	}
	return entry.Text, true
}

func ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
