package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, d time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestWatcherFiresOnWrite(t *testing.T) {
	root := t.TempDir()
	var fired atomic.Int32
	w := NewWatcher(root, []string{".txt"}, nil, func() { fired.Add(1) },
		WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0600); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, 3*time.Second, func() bool { return fired.Load() >= 1 }) {
		t.Fatal("change never fired")
	}
}

func TestWatcherCoalescesBurst(t *testing.T) {
	root := t.TempDir()
	var fired atomic.Int32
	w := NewWatcher(root, []string{".txt"}, nil, func() { fired.Add(1) },
		WithDebounce(150*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	for i := 0; i < 5; i++ {
		name := filepath.Join(root, "burst.txt")
		if err := os.WriteFile(name, []byte("v"), 0600); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !waitFor(t, 3*time.Second, func() bool { return fired.Load() >= 1 }) {
		t.Fatal("change never fired")
	}
	// Settle well past the debounce window; the burst must not fan out.
	time.Sleep(400 * time.Millisecond)
	if n := fired.Load(); n > 2 {
		t.Errorf("burst fired %d times, want coalesced", n)
	}
}

func TestWatcherIgnoresFilteredExtensions(t *testing.T) {
	root := t.TempDir()
	var fired atomic.Int32
	w := NewWatcher(root, []string{".txt"}, nil, func() { fired.Add(1) },
		WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(root, "image.png"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if fired.Load() != 0 {
		t.Error("filtered extension triggered a change")
	}
}

func TestWatcherPicksUpNewDirectory(t *testing.T) {
	root := t.TempDir()
	var fired atomic.Int32
	w := NewWatcher(root, []string{".txt"}, nil, func() { fired.Add(1) },
		WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	sub := filepath.Join(root, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	// The new directory itself counts as a change.
	if !waitFor(t, 3*time.Second, func() bool { return fired.Load() >= 1 }) {
		t.Fatal("directory creation never fired")
	}
	before := fired.Load()
	if err := os.WriteFile(filepath.Join(sub, "nested.txt"), []byte("inside"), 0600); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, 3*time.Second, func() bool { return fired.Load() > before }) {
		t.Fatal("write inside new directory never fired")
	}
}

func TestWatcherStartIdempotentAndStop(t *testing.T) {
	root := t.TempDir()
	w := NewWatcher(root, nil, nil, func() {})
	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	w.Stop()
}
