// Package discovery scans configured source roots for first-party Python
// modules and packages. It answers two questions the later stages need:
// "does this top-level name exist as a root file/package?" (used by the
// import classifier, spec.md §4.1 rule i) and "which first-party files exist
// at all?" (used for diagnostics about modules that are parsed but never
// reached by the dependency graph).
package discovery

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// skipDirs lists directory names that are never treated as source, mirroring
// the teacher walker's skip list.
var skipDirs = map[string]bool{
	".git":          true,
	"node_modules":  true,
	"__pycache__":   true,
	"dist":          true,
	"build":         true,
	".venv":         true,
	"venv":          true,
	"env":           true,
	".mypy_cache":   true,
	".pytest_cache": true,
	".tox":          true,
}

// RootIndex records, per configured source root, the top-level names
// available directly under it (bare ".py" modules and package directories
// with an "__init__.py"), plus every first-party ".py" file discovered
// anywhere beneath the root.
type RootIndex struct {
	Root          string
	TopLevelNames map[string]bool
	AllFiles      []string // absolute paths to every discovered .py file
}

// Walker discovers first-party Python files under a set of source roots.
type Walker struct{}

// NewWalker creates a Walker.
func NewWalker() *Walker { return &Walker{} }

// IndexRoot walks a single source root and returns its RootIndex. A
// .gitignore at the root, if present, excludes matching paths from AllFiles
// (but never from TopLevelNames detection of non-ignored entries).
func (w *Walker) IndexRoot(root string) (*RootIndex, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "index", Path: root, Err: fs.ErrInvalid}
	}

	var gi *ignore.GitIgnore
	gitignorePath := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(gitignorePath); err == nil {
		gi, _ = ignore.CompileIgnoreFile(gitignorePath)
	}

	idx := &RootIndex{Root: root, TopLevelNames: make(map[string]bool)}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if e.IsDir() {
			if skipDirs[name] {
				continue
			}
			if _, err := os.Stat(filepath.Join(root, name, "__init__.py")); err == nil {
				idx.TopLevelNames[name] = true
			}
			continue
		}
		if strings.HasSuffix(name, ".py") {
			idx.TopLevelNames[strings.TrimSuffix(name, ".py")] = true
		}
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // best-effort walk, consistent with teacher's warn-and-continue policy
		}
		name := d.Name()
		if d.IsDir() {
			if name != "." && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if !strings.HasSuffix(name, ".py") {
			return nil
		}
		if gi != nil {
			if rel, relErr := filepath.Rel(root, path); relErr == nil && gi.MatchesPath(rel) {
				return nil
			}
		}
		idx.AllFiles = append(idx.AllFiles, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return idx, nil
}

// IndexRoots indexes every configured source root, in the order given.
func (w *Walker) IndexRoots(roots []string) ([]*RootIndex, error) {
	indexes := make([]*RootIndex, 0, len(roots))
	for _, r := range roots {
		idx, err := w.IndexRoot(r)
		if err != nil {
			return nil, err
		}
		indexes = append(indexes, idx)
	}
	return indexes, nil
}
