package fsnav

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hyperjump/tansaku/internal/models"
)

// hardMaxEntries caps a single listing regardless of the caller's limit.
const hardMaxEntries = 1000

// ListDirectory lists dir (relative to root) and returns entries ordered
// directories first, then files, alphabetical by path within each group.
// A maxDepth of 0 lists only the directory's immediate children; negative
// means unbounded. When an extension filter is given only matching files are
// returned and directories are suppressed from the output, though recursion
// still descends into them.
func ListDirectory(root, dir string, recursive bool, maxDepth int, includeExtensions []string, limit int) ([]models.Entry, error) {
	abs, err := ResolveWithinRoot(root, normalizeDir(dir))
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	if limit <= 0 || limit > hardMaxEntries {
		limit = hardMaxEntries
	}
	if !recursive {
		maxDepth = 0
	}

	var entries []models.Entry
	walkErr := filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == abs {
			return nil
		}
		rel, err := filepath.Rel(abs, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		depth := strings.Count(rel, "/")
		if d.IsDir() {
			if len(includeExtensions) == 0 && (maxDepth < 0 || depth <= maxDepth) {
				entries = append(entries, models.Entry{Path: rel, Type: models.EntryTypeDir})
			}
			if maxDepth >= 0 && depth >= maxDepth {
				return filepath.SkipDir
			}
			return nil
		}
		if maxDepth >= 0 && depth > maxDepth {
			return nil
		}
		if !matchExtension(d.Name(), includeExtensions) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		entries = append(entries, models.Entry{Path: rel, Type: models.EntryTypeFile, Size: info.Size()})
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Type != entries[j].Type {
			return entries[i].Type == models.EntryTypeDir
		}
		return entries[i].Path < entries[j].Path
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// normalizeDir maps "." and "./" to the root and strips a leading "./" or
// path separator; dot-prefixed names otherwise pass through so hidden folders
// stay listable by explicit name.
func normalizeDir(dir string) string {
	if dir == "" || dir == "." || dir == "./" {
		return ""
	}
	dir = strings.TrimPrefix(dir, "./")
	dir = strings.TrimPrefix(dir, "/")
	return dir
}

func matchExtension(name string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == ext {
			return true
		}
	}
	return false
}
