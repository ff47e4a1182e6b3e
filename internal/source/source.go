// Package source discovers analyzable files under a repository root.
//
// Discovery walks the tree once, honoring .gitignore when present, a fixed
// set of junk-directory exclusions, and caller-supplied doublestar
// include/exclude globs. Paths are returned slash-separated and relative to
// the root, sorted, so downstream stages see a deterministic file order on
// every platform.
package source

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/dshills/codemap-mcp/internal/lang"
	"github.com/dshills/codemap-mcp/pkg/types"
)

// DefaultMaxFileSize skips files larger than 2 MiB; generated bundles and
// minified blobs dominate above that and carry no useful symbols.
const DefaultMaxFileSize = 2 << 20

// skipDirs are never descended into, gitignore or not.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"target":       true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
	".idea":        true,
	".gradle":      true,
}

// File is one discovered source file.
type File struct {
	// Path is slash-separated and relative to the scan root.
	Path string
	Size int64
}

// Filters narrows the file set. Include and Exclude are doublestar globs
// matched against the relative path; an empty Include matches everything.
type Filters struct {
	Include     []string
	Exclude     []string
	MaxFileSize int64
}

// Validate rejects malformed glob patterns up front so a bad filter fails
// the request instead of silently matching nothing.
func (f Filters) Validate() error {
	for _, pat := range append(append([]string{}, f.Include...), f.Exclude...) {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("invalid glob pattern %q: %w", pat, types.ErrInvalidInput)
		}
	}
	return nil
}

// Scan walks root and returns the matching source files with a supported
// language extension, sorted by path. The root must be an existing
// directory.
func Scan(root string, filters Filters) ([]File, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("root %q: %w", root, types.ErrNotFound)
		}
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %q is not a directory: %w", root, types.ErrInvalidInput)
	}

	maxSize := filters.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	var gi *ignore.GitIgnore
	if compiled, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
		gi = compiled
	}

	var files []File
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal.
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if skipDirs[d.Name()] || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if gi != nil && gi.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if !lang.Supported(rel) {
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		if !matchGlobs(rel, filters) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		if fi.Size() > maxSize {
			return nil
		}
		files = append(files, File{Path: rel, Size: fi.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// Read loads one discovered file's content.
func Read(root, rel string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file %q: %w", rel, types.ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}
	return data, nil
}

// matchGlobs applies include then exclude patterns. Patterns were validated
// earlier, so match errors cannot occur here.
func matchGlobs(rel string, filters Filters) bool {
	if len(filters.Include) > 0 {
		matched := false
		for _, pat := range filters.Include {
			if ok, _ := doublestar.Match(pat, rel); ok {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	for _, pat := range filters.Exclude {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return false
		}
	}
	return true
}
