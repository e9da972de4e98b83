// Package fsnav implements sandboxed filesystem navigation for the read and
// list operations. Every externally supplied path is resolved through
// ResolveWithinRoot before the filesystem is touched.
package fsnav

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutOfBounds marks a path that resolves outside the configured root.
var ErrOutOfBounds = errors.New("path resolves outside the root directory")

// ResolveWithinRoot resolves rel against root and returns the absolute path.
// The result must be the root itself or fall strictly under it; traversal
// escapes via ".." fail with ErrOutOfBounds. An empty or "." rel means the
// root itself.
func ResolveWithinRoot(root, rel string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	if rel == "" || rel == "." {
		return absRoot, nil
	}
	abs := filepath.Clean(filepath.Join(absRoot, rel))
	if abs == absRoot {
		return abs, nil
	}
	if !strings.HasPrefix(abs, absRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("%q: %w", rel, ErrOutOfBounds)
	}
	return abs, nil
}

// ReadRange returns the file's text, narrowed to the 1-based inclusive line
// range when either bound is set (non-zero). Out-of-range bounds clamp to the
// file extent instead of erroring.
func ReadRange(absPath string, startLine, endLine int) (string, error) {
	data, err := os.ReadFile(absPath)
	if err != nil {
		return "", err
	}
	return NarrowRange(string(data), startLine, endLine), nil
}

// NarrowRange applies ReadRange's line-range semantics to text already in
// memory, used for content served from the extraction cache.
func NarrowRange(text string, startLine, endLine int) string {
	if startLine == 0 && endLine == 0 {
		return text
	}
	lines := strings.Split(text, "\n")
	if startLine < 1 {
		startLine = 1
	}
	if endLine == 0 || endLine > len(lines) {
		endLine = len(lines)
	}
	if startLine > endLine {
		return ""
	}
	return strings.Join(lines[startLine-1:endLine], "\n")
}
