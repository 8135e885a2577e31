package data

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/electwix/db-catalogue/internal/catalogue"
	"github.com/electwix/db-catalogue/internal/fileset"
)

// DefaultPath is where the file store keeps rows unless configured otherwise.
const DefaultPath = ".adaptivedb/data.json"

// TableRows holds the rows of one table.
type TableRows struct {
	Name string `json:"name" yaml:"name" toml:"name"`
	Rows []Row  `json:"rows" yaml:"rows" toml:"rows"`
}

// Store persists every table's rows. Save replaces whatever was stored
// before; Load on an empty store returns nothing and no error.
type Store interface {
	Load(ctx context.Context) ([]TableRows, error)
	Save(ctx context.Context, tables []TableRows) error
}

type document struct {
	Tables []TableRows `json:"tables" yaml:"tables" toml:"tables"`
}

// FileStore keeps the rows in one file, encoded by extension with the
// catalogue codecs, and replaces it atomically on every save.
type FileStore struct {
	path   string
	codec  catalogue.Codec
	writer fileset.Writer
}

// NewFileStore returns a FileStore for path. An empty path selects
// DefaultPath.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		path = DefaultPath
	}
	codec, err := catalogue.CodecFor(path)
	if err != nil {
		return nil, err
	}
	return &FileStore{path: path, codec: codec, writer: fileset.NewOSWriter()}, nil
}

// Path returns the data file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the data file. A missing or blank file holds no rows.
func (s *FileStore) Load(ctx context.Context) ([]TableRows, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var doc document
	if err := s.codec.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return doc.Tables, nil
}

// Save encodes tables and replaces the data file.
func (s *FileStore) Save(ctx context.Context, tables []TableRows) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tables == nil {
		tables = []TableRows{}
	}
	raw, err := s.codec.Marshal(document{Tables: tables})
	if err != nil {
		return fmt.Errorf("encode rows: %w", err)
	}
	if err := s.writer.WriteFile(s.path, raw); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

// MemoryStore keeps rows in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	tables []TableRows
}

// NewMemoryStore returns a MemoryStore holding tables.
func NewMemoryStore(tables ...TableRows) *MemoryStore {
	return &MemoryStore{tables: cloneTableRows(tables)}
}

// Load returns a copy of the stored rows.
func (s *MemoryStore) Load(_ context.Context) ([]TableRows, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTableRows(s.tables), nil
}

// Save replaces the stored rows.
func (s *MemoryStore) Save(ctx context.Context, tables []TableRows) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = cloneTableRows(tables)
	return nil
}

func cloneTableRows(tables []TableRows) []TableRows {
	if tables == nil {
		return nil
	}
	out := make([]TableRows, len(tables))
	for i, t := range tables {
		out[i] = TableRows{Name: t.Name, Rows: cloneRows(t.Rows)}
	}
	return out
}

func cloneRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
