package index

import (
	"strings"
	"testing"
)

func TestSplitTextEmpty(t *testing.T) {
	if chunks := SplitText("", 800, 120); len(chunks) != 0 {
		t.Errorf("empty text should yield no chunks, got %d", len(chunks))
	}
}

func TestSplitTextShorterThanSize(t *testing.T) {
	chunks := SplitText("abc", 800, 120)
	if len(chunks) != 1 || chunks[0] != "abc" {
		t.Errorf("got %v, want [abc]", chunks)
	}
}

func TestSplitTextStride(t *testing.T) {
	text := strings.Repeat("a", 1000)
	chunks := SplitText(text, 100, 20)
	// Stride 80: windows start at 0, 80, 160, ... Every window but the last
	// must be exactly 100 characters.
	for i, c := range chunks[:len(chunks)-1] {
		if len(c) != 100 {
			t.Errorf("chunk %d len = %d, want 100", i, len(c))
		}
	}
	last := chunks[len(chunks)-1]
	if len(last) == 0 || len(last) > 100 {
		t.Errorf("last chunk len = %d", len(last))
	}
	// Start positions 80 apart until the text is covered.
	wantCount := 0
	for start := 0; start < 1000; start += 80 {
		wantCount++
		if start+100 >= 1000 {
			break
		}
	}
	if len(chunks) != wantCount {
		t.Errorf("chunk count = %d, want %d", len(chunks), wantCount)
	}
}

func TestSplitTextCoverage(t *testing.T) {
	// Concatenating windows at the defined stride must cover every character.
	text := "the quick brown fox jumps over the lazy dog and keeps going for a while"
	size, overlap := 10, 3
	chunks := SplitText(text, size, overlap)
	step := size - overlap
	covered := make([]bool, len(text))
	pos := 0
	for _, c := range chunks {
		for j := 0; j < len(c); j++ {
			covered[pos+j] = true
		}
		pos += step
	}
	for i, ok := range covered {
		if !ok {
			t.Fatalf("character %d not covered", i)
		}
	}
}

func TestSplitTextRunePositions(t *testing.T) {
	// Multibyte characters count as single positions.
	text := strings.Repeat("あ", 10)
	chunks := SplitText(text, 4, 1)
	for i, c := range chunks[:len(chunks)-1] {
		if n := len([]rune(c)); n != 4 {
			t.Errorf("chunk %d rune len = %d, want 4", i, n)
		}
	}
}

func TestEffectiveOverlap(t *testing.T) {
	if got := effectiveOverlap(100, 150); got != 15 {
		t.Errorf("clamped overlap = %d, want 15", got)
	}
	if got := effectiveOverlap(100, 100); got != 15 {
		t.Errorf("equal overlap clamps too, got %d", got)
	}
	if got := effectiveOverlap(800, 120); got != 120 {
		t.Errorf("valid overlap changed: %d", got)
	}
}
