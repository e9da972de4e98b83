package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/hyperjump/tansaku/internal/config"
	"github.com/hyperjump/tansaku/internal/embedding"
	"github.com/hyperjump/tansaku/internal/extract"
)

// countingEmbedder counts Embed calls to verify incremental passes skip work.
type countingEmbedder struct {
	inner embedding.Embedder
	calls int
}

func (e *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	return e.inner.Embed(ctx, text)
}
func (e *countingEmbedder) Dimensions() int { return e.inner.Dimensions() }
func (e *countingEmbedder) Close() error    { return nil }

// failingEmbedder always errors.
type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("backend down")
}
func (failingEmbedder) Dimensions() int { return 0 }
func (failingEmbedder) Close() error    { return nil }

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func newTestIndex(root, storePath string, emb embedding.Embedder) *Index {
	cfg := &config.IndexConfig{
		Root:         root,
		StorePath:    storePath,
		Extensions:   []string{".txt", ".md"},
		Excludes:     []string{"node_modules", "*.gen.txt"},
		ChunkSize:    100,
		ChunkOverlap: 20,
	}
	return New(cfg, "test-model", emb, extract.NewExtractor("", nil), NewStatus())
}

func TestColdBuild(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "hello world\nsecond line")
	writeFile(t, root, "sub/b.md", "some markdown content")
	writeFile(t, root, "zero.txt", "")
	writeFile(t, root, ".hidden/c.txt", "hidden content")
	writeFile(t, root, "node_modules/d.txt", "dependency junk")
	writeFile(t, root, "skip.gen.txt", "generated")
	writeFile(t, root, "image.png", "not allowed ext")

	ix := newTestIndex(root, "", embedding.NewMockEmbedder(8))
	if err := ix.Build(context.Background()); err != nil {
		t.Fatalf("Build: %v", err)
	}

	docs := ix.Docs()
	paths := make(map[string]int)
	for _, d := range docs {
		paths[d.Path]++
		if d.Embedding == nil {
			t.Errorf("doc %s has no embedding after build", d.ID)
		}
	}
	if len(paths) != 2 || paths["a.txt"] == 0 || paths["sub/b.md"] == 0 {
		t.Errorf("indexed paths = %v, want a.txt and sub/b.md only", paths)
	}
	for i, d := range docs {
		if d.ID != strconv.Itoa(i) {
			t.Errorf("doc %d id = %q, want sequential", i, d.ID)
		}
	}
	snap := ix.Status().Snapshot()
	if !snap.Ready {
		t.Error("expected ready after build")
	}
	if snap.FilesDiscovered != 2 {
		t.Errorf("filesDiscovered = %d, want 2", snap.FilesDiscovered)
	}
	if snap.ChunksEmbedded != len(docs) || snap.ChunksTotal != len(docs) {
		t.Errorf("counters = %d/%d, want %d", snap.ChunksEmbedded, snap.ChunksTotal, len(docs))
	}
}

func TestColdBuildFileMetadata(t *testing.T) {
	root := t.TempDir()
	content := "line one\nline two\nline three"
	writeFile(t, root, "a.txt", content)

	ix := newTestIndex(root, "", embedding.NewMockEmbedder(8))
	if err := ix.Build(context.Background()); err != nil {
		t.Fatal(err)
	}
	docs := ix.Docs()
	if len(docs) != 1 {
		t.Fatalf("len = %d, want 1", len(docs))
	}
	if docs[0].FileSize != int64(len(content)) {
		t.Errorf("fileSize = %d, want %d", docs[0].FileSize, len(content))
	}
	if docs[0].LineCount != 3 {
		t.Errorf("lineCount = %d, want 3", docs[0].LineCount)
	}
	if docs[0].Chunk != 0 {
		t.Errorf("chunk = %d, want 0", docs[0].Chunk)
	}
}

func TestChunkIndexContiguous(t *testing.T) {
	root := t.TempDir()
	long := make([]byte, 0, 500)
	for i := 0; i < 500; i++ {
		long = append(long, byte('a'+i%26))
	}
	writeFile(t, root, "long.txt", string(long))

	ix := newTestIndex(root, "", embedding.NewMockEmbedder(8))
	if err := ix.Build(context.Background()); err != nil {
		t.Fatal(err)
	}
	docs := ix.Docs()
	if len(docs) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(docs))
	}
	for i, d := range docs {
		if d.Chunk != i {
			t.Errorf("chunk index %d = %d, want contiguous", i, d.Chunk)
		}
		if d.FileSize != docs[0].FileSize || d.LineCount != docs[0].LineCount {
			t.Error("file metadata must be identical across a file's chunks")
		}
	}
}

func TestIncrementalNoop(t *testing.T) {
	root := t.TempDir()
	store := filepath.Join(t.TempDir(), "index.json")
	writeFile(t, root, "a.txt", "hello world")
	writeFile(t, root, "b.txt", "more text here")

	first := newTestIndex(root, store, embedding.NewMockEmbedder(8))
	if err := first.Build(context.Background()); err != nil {
		t.Fatal(err)
	}
	wantDocs := len(first.Docs())

	counter := &countingEmbedder{inner: embedding.NewMockEmbedder(8)}
	second := newTestIndex(root, store, counter)
	if err := second.Build(context.Background()); err != nil {
		t.Fatal(err)
	}
	if counter.calls != 0 {
		t.Errorf("no-op rebuild made %d embedding calls, want 0", counter.calls)
	}
	snap := second.Status().Snapshot()
	if !snap.Ready {
		t.Error("expected ready after no-op update")
	}
	if snap.ChunksEmbedded != wantDocs || snap.ChunksTotal != wantDocs {
		t.Errorf("counters = %d/%d, want %d", snap.ChunksEmbedded, snap.ChunksTotal, wantDocs)
	}
	if len(second.Docs()) != wantDocs {
		t.Errorf("corpus size = %d, want %d", len(second.Docs()), wantDocs)
	}
}

func TestIncrementalDeletion(t *testing.T) {
	root := t.TempDir()
	store := filepath.Join(t.TempDir(), "index.json")
	writeFile(t, root, "keep.txt", "kept content")
	writeFile(t, root, "gone.txt", "doomed content")

	first := newTestIndex(root, store, embedding.NewMockEmbedder(8))
	if err := first.Build(context.Background()); err != nil {
		t.Fatal(err)
	}
	var keptIDs []string
	for _, d := range first.Docs() {
		if d.Path == "keep.txt" {
			keptIDs = append(keptIDs, d.ID)
		}
	}

	if err := os.Remove(filepath.Join(root, "gone.txt")); err != nil {
		t.Fatal(err)
	}
	counter := &countingEmbedder{inner: embedding.NewMockEmbedder(8)}
	second := newTestIndex(root, store, counter)
	if err := second.Build(context.Background()); err != nil {
		t.Fatal(err)
	}
	docs := second.Docs()
	for _, d := range docs {
		if d.Path == "gone.txt" {
			t.Error("chunks of removed file survived")
		}
	}
	if len(docs) != len(keptIDs) {
		t.Errorf("corpus size = %d, want %d", len(docs), len(keptIDs))
	}
	for i, d := range docs {
		if d.ID != keptIDs[i] {
			t.Errorf("kept doc id changed: %q -> %q", keptIDs[i], d.ID)
		}
	}
	if counter.calls != 0 {
		t.Errorf("deletion-only update made %d embedding calls, want 0", counter.calls)
	}
}

func TestIncrementalChangeAssignsNewIDs(t *testing.T) {
	root := t.TempDir()
	store := filepath.Join(t.TempDir(), "index.json")
	writeFile(t, root, "stable.txt", "unchanging")
	writeFile(t, root, "edit.txt", "original")

	first := newTestIndex(root, store, embedding.NewMockEmbedder(8))
	if err := first.Build(context.Background()); err != nil {
		t.Fatal(err)
	}
	maxID := 0
	for _, d := range first.Docs() {
		if n, _ := strconv.Atoi(d.ID); n > maxID {
			maxID = n
		}
	}

	// Different size marks the file changed.
	writeFile(t, root, "edit.txt", "edited and now longer")
	second := newTestIndex(root, store, embedding.NewMockEmbedder(8))
	if err := second.Build(context.Background()); err != nil {
		t.Fatal(err)
	}
	for _, d := range second.Docs() {
		if d.Path != "edit.txt" {
			continue
		}
		n, err := strconv.Atoi(d.ID)
		if err != nil {
			t.Fatalf("non-numeric id %q", d.ID)
		}
		if n <= maxID {
			t.Errorf("re-ingested chunk reused id %d (max was %d)", n, maxID)
		}
		if d.Text != "edited and now longer" {
			t.Errorf("text = %q", d.Text)
		}
	}
}

func TestSameSizeEditGoesUndetected(t *testing.T) {
	// Size is the only fingerprint; a same-size edit must not trigger reingestion.
	root := t.TempDir()
	store := filepath.Join(t.TempDir(), "index.json")
	writeFile(t, root, "a.txt", "aaaa")

	first := newTestIndex(root, store, embedding.NewMockEmbedder(8))
	if err := first.Build(context.Background()); err != nil {
		t.Fatal(err)
	}

	writeFile(t, root, "a.txt", "bbbb")
	counter := &countingEmbedder{inner: embedding.NewMockEmbedder(8)}
	second := newTestIndex(root, store, counter)
	if err := second.Build(context.Background()); err != nil {
		t.Fatal(err)
	}
	if counter.calls != 0 {
		t.Errorf("same-size edit triggered %d embedding calls, want 0", counter.calls)
	}
	if got := second.Docs()[0].Text; got != "aaaa" {
		t.Errorf("text = %q, want stale %q", got, "aaaa")
	}
}

func TestOverlapClamp(t *testing.T) {
	root := t.TempDir()
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	writeFile(t, root, "a.txt", string(long))

	cfg := &config.IndexConfig{
		Root:         root,
		Extensions:   []string{".txt"},
		ChunkSize:    100,
		ChunkOverlap: 150,
	}
	ix := New(cfg, "m", embedding.NewMockEmbedder(8), extract.NewExtractor("", nil), NewStatus())
	if ix.chunkOverlap != 15 {
		t.Fatalf("effective overlap = %d, want 15", ix.chunkOverlap)
	}
	// Must terminate and chunk at stride 85.
	if err := ix.Build(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(ix.Docs()) < 3 {
		t.Errorf("chunks = %d, want >= 3", len(ix.Docs()))
	}
}

func TestBuildEmbedErrorAborts(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "content")

	ix := newTestIndex(root, "", failingEmbedder{})
	if err := ix.Build(context.Background()); err == nil {
		t.Fatal("expected embedding failure to abort the build")
	}
	if ix.Status().Snapshot().Ready {
		t.Error("ready must not be set after an aborted build")
	}
}

func TestWarmStartKeepsEmbeddings(t *testing.T) {
	root := t.TempDir()
	store := filepath.Join(t.TempDir(), "index.json")
	writeFile(t, root, "a.txt", "hello")

	first := newTestIndex(root, store, embedding.NewMockEmbedder(8))
	if err := first.Build(context.Background()); err != nil {
		t.Fatal(err)
	}
	want := first.Docs()[0].Embedding

	second := newTestIndex(root, store, embedding.NewMockEmbedder(8))
	if err := second.Build(context.Background()); err != nil {
		t.Fatal(err)
	}
	got := second.Docs()[0].Embedding
	if len(got) != len(want) {
		t.Fatalf("embedding len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		diff := float64(got[i] - want[i])
		if diff > 1e-6 || diff < -1e-6 {
			t.Fatalf("embedding[%d] drifted: %f vs %f", i, got[i], want[i])
		}
	}
}
