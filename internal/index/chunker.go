// Package index implements the indexing and retrieval core: chunking,
// discovery, incremental building, persistence, and similarity search.
package index

// SplitText splits text into windows of up to size characters, each window
// starting size-overlap characters after the previous one. Positions are
// character (rune) positions, not bytes. Empty text yields no chunks; text
// shorter than size yields exactly one chunk.
func SplitText(text string, size, overlap int) []string {
	chars := []rune(text)
	if len(chars) == 0 {
		return nil
	}
	if len(chars) <= size {
		return []string{text}
	}
	step := size - overlap
	if step <= 0 {
		// Callers clamp overlap before reaching here; guard against a stall anyway.
		step = 1
	}
	var chunks []string
	for i := 0; i < len(chars); i += step {
		end := i + size
		if end > len(chars) {
			end = len(chars)
		}
		chunks = append(chunks, string(chars[i:end]))
		if end >= len(chars) {
			break
		}
	}
	return chunks
}

// effectiveOverlap returns overlap, or floor(size*0.15) when overlap >= size
// would prevent forward progress.
func effectiveOverlap(size, overlap int) int {
	if overlap >= size {
		return size * 15 / 100
	}
	return overlap
}
