// Package fileset resolves schema source paths and writes output files.
package fileset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// Source resolves patterns to paths and reads them.
type Source interface {
	Resolve(patterns []string) ([]string, error)
	ReadFile(path string) ([]byte, error)
}

// ErrNoPatterns indicates that Resolve was invoked without any patterns.
var ErrNoPatterns = errors.New("fileset: no patterns provided")

// PatternError wraps syntax issues reported while evaluating a glob pattern.
type PatternError struct {
	Pattern string
	Err     error
}

// Error implements the error interface.
func (e PatternError) Error() string {
	return fmt.Sprintf("invalid glob pattern %q: %v", e.Pattern, e.Err)
}

// Unwrap returns the underlying error.
func (e PatternError) Unwrap() error { return e.Err }

// NoMatchError describes which patterns failed to yield any results.
type NoMatchError struct {
	Patterns []string
}

// Error implements the error interface.
func (e NoMatchError) Error() string {
	return "patterns matched no files: " + strings.Join(e.Patterns, ", ")
}

// Resolver expands glob patterns against an fs.FS. Patterns without glob
// metacharacters name a single file; on the OS resolver they may be absolute.
type Resolver struct {
	fsys fs.FS
	// join maps an fs.FS name onto the path reported to callers.
	join func(name string) string
	// read and stat accept the paths reported by join.
	read func(p string) ([]byte, error)
	stat func(p string) (fs.FileInfo, error)
}

// NewResolver constructs a Resolver over fsys that reports fs.FS names as-is.
func NewResolver(fsys fs.FS) Resolver {
	return Resolver{
		fsys: fsys,
		join: func(name string) string { return name },
		read: func(p string) ([]byte, error) { return fs.ReadFile(fsys, p) },
		stat: func(p string) (fs.FileInfo, error) { return fs.Stat(fsys, p) },
	}
}

// NewOSResolver constructs a Resolver rooted at base that reports absolute OS
// paths for each match.
func NewOSResolver(base string) (Resolver, error) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return Resolver{}, fmt.Errorf("resolve base %q: %w", base, err)
	}
	info, err := os.Stat(absBase)
	if err != nil {
		return Resolver{}, fmt.Errorf("stat base %q: %w", absBase, err)
	}
	if !info.IsDir() {
		return Resolver{}, fmt.Errorf("base %q is not a directory", absBase)
	}
	toOS := func(name string) string {
		if filepath.IsAbs(name) {
			return filepath.Clean(name)
		}
		return filepath.Join(absBase, filepath.FromSlash(name))
	}
	return Resolver{
		fsys: os.DirFS(absBase),
		join: toOS,
		read: func(p string) ([]byte, error) { return os.ReadFile(toOS(p)) },
		stat: func(p string) (fs.FileInfo, error) { return os.Stat(toOS(p)) },
	}, nil
}

// Resolve evaluates each pattern and returns the de-duplicated matches.
// Literal paths keep the order given; glob matches are sorted within their
// pattern. Every pattern must match at least one file.
func (r Resolver) Resolve(patterns []string) ([]string, error) {
	if r.fsys == nil {
		return nil, errors.New("fileset: resolver has no filesystem")
	}
	if len(patterns) == 0 {
		return nil, ErrNoPatterns
	}

	combined := make([]string, 0, len(patterns))
	missing := make([]string, 0)
	for _, pattern := range patterns {
		if !hasMeta(pattern) {
			info, err := r.stat(pattern)
			if err != nil || info.IsDir() {
				missing = append(missing, pattern)
				continue
			}
			combined = append(combined, r.join(filepath.ToSlash(pattern)))
			continue
		}

		globPattern := path.Clean(filepath.ToSlash(pattern))
		matches, err := fs.Glob(r.fsys, globPattern)
		if err != nil {
			return nil, PatternError{Pattern: pattern, Err: err}
		}
		if len(matches) == 0 {
			missing = append(missing, pattern)
			continue
		}
		slices.Sort(matches)
		for _, match := range matches {
			combined = append(combined, r.join(match))
		}
	}
	if len(missing) > 0 {
		return nil, NoMatchError{Patterns: missing}
	}
	return dedupePreserveOrder(combined), nil
}

// ReadFile reads a path returned by Resolve.
func (r Resolver) ReadFile(p string) ([]byte, error) {
	if r.read == nil {
		return nil, errors.New("fileset: resolver has no filesystem")
	}
	data, err := r.read(p)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return data, nil
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, `*?[\`)
}

func dedupePreserveOrder(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	result := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		result = append(result, p)
	}
	return result
}

var _ Source = Resolver{}
