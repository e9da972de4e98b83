package index

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
)

// discoveredFile is one candidate file found under the root.
type discoveredFile struct {
	rel  string
	abs  string
	size int64
}

// discoverFiles walks root and returns regular, non-empty files whose
// extension is in exts and which are not excluded. Hidden (dot-prefixed)
// entries are skipped. Exclude entries containing wildcard characters are
// matched as globs against the relative path; plain entries exclude anything
// under a folder of that name. Unreadable entries are logged and skipped.
func discoverFiles(root string, exts, excludes []string, logger *zap.Logger) ([]discoveredFile, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	var globs, folders []string
	for _, e := range excludes {
		if strings.ContainsAny(e, "*?[") {
			globs = append(globs, e)
		} else {
			folders = append(folders, e)
		}
	}
	var files []discoveredFile
	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == absRoot {
				return err
			}
			if logger != nil {
				logger.Debug("discovery skipping unreadable entry", zap.String("path", path), zap.Error(err))
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == absRoot {
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			for _, f := range folders {
				if name == f {
					return filepath.SkipDir
				}
			}
			return nil
		}
		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		for _, g := range globs {
			if ok, _ := doublestar.Match(g, rel); ok {
				return nil
			}
		}
		if !extensionAllowed(filepath.Ext(name), exts) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if logger != nil {
				logger.Debug("discovery stat failed", zap.String("path", path), zap.Error(err))
			}
			return nil
		}
		if !info.Mode().IsRegular() || info.Size() == 0 {
			return nil
		}
		files = append(files, discoveredFile{rel: rel, abs: path, size: info.Size()})
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return files, nil
}

func extensionAllowed(ext string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	norm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == norm {
			return true
		}
	}
	return false
}
