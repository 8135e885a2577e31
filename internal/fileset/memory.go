package fileset

import (
	"fmt"
	"io/fs"
	"path"
	"slices"
	"sync"
)

// MemoryResolver is a Source over in-memory files.
type MemoryResolver struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemoryResolver returns a MemoryResolver holding files keyed by
// slash-separated path.
func NewMemoryResolver(files map[string][]byte) *MemoryResolver {
	copied := make(map[string][]byte, len(files))
	for name, data := range files {
		copied[name] = data
	}
	return &MemoryResolver{files: copied}
}

// Resolve matches patterns with path.Match semantics. Matches are sorted
// within each pattern and de-duplicated across patterns.
func (m *MemoryResolver) Resolve(patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return nil, ErrNoPatterns
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.files))
	for name := range m.files {
		names = append(names, name)
	}
	slices.Sort(names)

	var combined, missing []string
	for _, pattern := range patterns {
		if _, err := path.Match(pattern, ""); err != nil {
			return nil, PatternError{Pattern: pattern, Err: err}
		}
		matched := false
		for _, name := range names {
			if ok, _ := path.Match(pattern, name); ok {
				combined = append(combined, name)
				matched = true
			}
		}
		if !matched {
			missing = append(missing, pattern)
		}
	}
	if len(missing) > 0 {
		return nil, NoMatchError{Patterns: missing}
	}
	return dedupePreserveOrder(combined), nil
}

// ReadFile returns the content stored under name.
func (m *MemoryResolver) ReadFile(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[name]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", name, fs.ErrNotExist)
	}
	return data, nil
}

// AddFile stores content under name.
func (m *MemoryResolver) AddFile(name string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = content
}

var _ Source = (*MemoryResolver)(nil)
