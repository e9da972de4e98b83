package extract

import (
	"fmt"
	"os"
	"unicode/utf8"
)

// PlainStrategy reads the file as UTF-8 text. Files that are not valid UTF-8
// fail extraction and are skipped from indexing.
type PlainStrategy struct{}

// Extract reads and returns the file content.
func (s *PlainStrategy) Extract(absPath, _ string, _ int64) (string, error) {
	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	if !utf8.Valid(content) {
		return "", fmt.Errorf("not valid UTF-8: %s", absPath)
	}
	return string(content), nil
}
