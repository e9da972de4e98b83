package index

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/tansaku/internal/config"
	"github.com/hyperjump/tansaku/internal/embedding"
	"github.com/hyperjump/tansaku/internal/extract"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/pkg/utils"
)

// Index owns the in-memory corpus for one indexed root and orchestrates
// discovery, chunking, embedding, change detection, and persistence.
// Build and search may run concurrently: builds take the write lock only to
// swap the corpus, searches take read locks.
type Index struct {
	root         string
	storePath    string
	extensions   []string
	excludes     []string
	chunkSize    int
	chunkOverlap int
	modelName    string
	embedder     embedding.Embedder
	extractor    *extract.Extractor
	status       *Status
	logger       *zap.Logger

	// buildMu serializes build/update passes; mu guards docs and nextID.
	buildMu sync.Mutex
	mu      sync.RWMutex
	docs    []*models.Doc
	nextID  int
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets a logger for build and search events.
func WithLogger(l *zap.Logger) Option {
	return func(ix *Index) { ix.logger = l }
}

// New creates an Index over cfg.Root. An overlap >= chunk size is clamped to
// floor(size*0.15) so chunking always makes forward progress.
func New(cfg *config.IndexConfig, modelName string, embedder embedding.Embedder, extractor *extract.Extractor, status *Status, opts ...Option) *Index {
	ix := &Index{
		root:         cfg.Root,
		storePath:    cfg.StorePath,
		extensions:   cfg.Extensions,
		excludes:     cfg.Excludes,
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: effectiveOverlap(cfg.ChunkSize, cfg.ChunkOverlap),
		modelName:    modelName,
		embedder:     embedder,
		extractor:    extractor,
		status:       status,
	}
	for _, opt := range opts {
		opt(ix)
	}
	if ix.chunkOverlap != cfg.ChunkOverlap && ix.logger != nil {
		ix.logger.Warn("chunk overlap >= chunk size, clamped",
			zap.Int("configured", cfg.ChunkOverlap),
			zap.Int("effective", ix.chunkOverlap))
	}
	return ix
}

// Build indexes the root: a warm start reconciles the persisted corpus
// against the current filesystem state, otherwise a cold build runs from
// scratch. Calling Build again performs a fresh reindex pass.
func (ix *Index) Build(ctx context.Context) error {
	ix.buildMu.Lock()
	defer ix.buildMu.Unlock()
	loaded := LoadStore(ix.storePath, ix.chunkSize, ix.chunkOverlap, ix.modelName, ix.logger)
	if loaded == nil {
		return ix.coldBuild(ctx)
	}
	return ix.incrementalUpdate(ctx, loaded)
}

func (ix *Index) coldBuild(ctx context.Context) error {
	files, err := discoverFiles(ix.root, ix.extensions, ix.excludes, ix.logger)
	if err != nil {
		return fmt.Errorf("discover files: %w", err)
	}
	ix.status.setDiscovered(len(files))

	var docs []*models.Doc
	id := 0
	for _, f := range files {
		text, err := ix.extractor.Extract(f.abs, f.rel, f.size)
		if err != nil {
			if ix.logger != nil {
				ix.logger.Debug("extraction failed, file skipped", zap.String("path", f.rel), zap.Error(err))
			}
			continue
		}
		chunks := SplitText(text, ix.chunkSize, ix.chunkOverlap)
		if len(chunks) == 0 {
			continue
		}
		lines := utils.CountLines(text)
		for ci, c := range chunks {
			docs = append(docs, &models.Doc{
				ID:        strconv.Itoa(id),
				Path:      f.rel,
				Chunk:     ci,
				Text:      c,
				FileSize:  f.size,
				LineCount: lines,
			})
			id++
		}
	}
	ix.status.setChunksTotal(len(docs))

	// Sequential by design: one embedding call at a time keeps resource use
	// predictable on constrained machines.
	for _, d := range docs {
		emb, err := ix.embedder.Embed(ctx, d.Text)
		if err != nil {
			return fmt.Errorf("embed chunk %s: %w", d.ID, err)
		}
		d.Embedding = emb
		ix.status.addEmbedded(1)
	}

	ix.mu.Lock()
	ix.docs = docs
	ix.nextID = id
	ix.mu.Unlock()
	ix.status.markReady()
	SaveStore(ix.storePath, docs, ix.chunkSize, ix.chunkOverlap, ix.modelName, ix.logger)
	if ix.logger != nil {
		ix.logger.Info("cold build complete", zap.Int("files", len(files)), zap.Int("chunks", len(docs)))
	}
	return nil
}

func (ix *Index) incrementalUpdate(ctx context.Context, loaded []*models.Doc) error {
	// The loaded corpus replaces the in-memory one wholesale before
	// reconciliation so queries during the pass see the persisted state.
	nextID := 0
	for _, d := range loaded {
		if n, err := strconv.Atoi(d.ID); err == nil && n+1 > nextID {
			nextID = n + 1
		}
	}
	ix.mu.Lock()
	ix.docs = loaded
	ix.nextID = nextID
	ix.mu.Unlock()

	files, err := discoverFiles(ix.root, ix.extensions, ix.excludes, ix.logger)
	if err != nil {
		return fmt.Errorf("discover files: %w", err)
	}
	ix.status.setDiscovered(len(files))

	priorSize := make(map[string]int64)
	for _, d := range loaded {
		if _, ok := priorSize[d.Path]; !ok {
			priorSize[d.Path] = d.FileSize
		}
	}
	current := make(map[string]int64, len(files))
	for _, f := range files {
		current[f.rel] = f.size
	}

	stale := make(map[string]bool)
	for path := range priorSize {
		if _, ok := current[path]; !ok {
			stale[path] = true
		}
	}
	removed := len(stale)
	// Size is the whole change fingerprint: same-size edits go undetected.
	var changed []discoveredFile
	for _, f := range files {
		if size, ok := priorSize[f.rel]; !ok || size != f.size {
			changed = append(changed, f)
			stale[f.rel] = true
		}
	}

	if removed == 0 && len(changed) == 0 {
		// Fast path: nothing to embed, every loaded chunk counts as embedded.
		ix.status.setChunksTotal(len(loaded))
		ix.status.setEmbedded(len(loaded))
		ix.status.markReady()
		if ix.logger != nil {
			ix.logger.Info("incremental update: no changes", zap.Int("chunks", len(loaded)))
		}
		return nil
	}

	kept := make([]*models.Doc, 0, len(loaded))
	for _, d := range loaded {
		if !stale[d.Path] {
			kept = append(kept, d)
		}
	}

	var fresh []*models.Doc
	for _, f := range changed {
		text, err := ix.extractor.Extract(f.abs, f.rel, f.size)
		if err != nil {
			if ix.logger != nil {
				ix.logger.Debug("extraction failed, file skipped", zap.String("path", f.rel), zap.Error(err))
			}
			continue
		}
		chunks := SplitText(text, ix.chunkSize, ix.chunkOverlap)
		if len(chunks) == 0 {
			continue
		}
		lines := utils.CountLines(text)
		for ci, c := range chunks {
			fresh = append(fresh, &models.Doc{
				ID:        strconv.Itoa(nextID),
				Path:      f.rel,
				Chunk:     ci,
				Text:      c,
				FileSize:  f.size,
				LineCount: lines,
			})
			nextID++
		}
	}

	ix.status.setChunksTotal(len(kept) + len(fresh))
	// Carried-over chunks already hold embeddings from the store.
	ix.status.setEmbedded(len(kept))
	for _, d := range fresh {
		emb, err := ix.embedder.Embed(ctx, d.Text)
		if err != nil {
			return fmt.Errorf("embed chunk %s: %w", d.ID, err)
		}
		d.Embedding = emb
		ix.status.addEmbedded(1)
	}

	docs := append(kept, fresh...)
	ix.mu.Lock()
	ix.docs = docs
	ix.nextID = nextID
	ix.mu.Unlock()
	ix.status.markReady()
	SaveStore(ix.storePath, docs, ix.chunkSize, ix.chunkOverlap, ix.modelName, ix.logger)
	if ix.logger != nil {
		ix.logger.Info("incremental update complete",
			zap.Int("removed_files", removed),
			zap.Int("changed_files", len(changed)),
			zap.Int("chunks", len(docs)))
	}
	return nil
}

// Docs returns the current corpus for inspection. The returned slice is a
// copy; the Doc values are shared and must not be mutated.
func (ix *Index) Docs() []*models.Doc {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]*models.Doc, len(ix.docs))
	copy(out, ix.docs)
	return out
}

// Status returns the progress handle.
func (ix *Index) Status() *Status {
	return ix.status
}
