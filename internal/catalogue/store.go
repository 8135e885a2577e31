package catalogue

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Store persists the full table list. Save replaces whatever was stored
// before; Load on an empty store returns no tables and no error.
type Store interface {
	Load(ctx context.Context) ([]Table, error)
	Save(ctx context.Context, tables []Table) error
}

// Backend names a Store implementation.
type Backend string

// Supported backends.
const (
	BackendFile     Backend = "file"
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
	BackendS3       Backend = "s3"
	BackendMemory   Backend = "memory"
)

// StoreOptions selects and configures a Store.
type StoreOptions struct {
	Backend Backend
	// Path is the catalogue file for the file backend.
	Path string
	// DSN is the database file for sqlite or the connection string for postgres.
	DSN string
	S3  S3Options
}

// NewStore opens the store described by opts. Stores that hold connections
// implement io.Closer; use CloseStore to release them.
func NewStore(ctx context.Context, opts StoreOptions) (Store, error) {
	switch opts.Backend {
	case BackendFile, "":
		return NewFileStore(opts.Path)
	case BackendSQLite:
		return OpenSQLite(ctx, opts.DSN)
	case BackendPostgres:
		return OpenPostgres(ctx, opts.DSN)
	case BackendS3:
		return NewS3Store(ctx, opts.S3)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}

// CloseStore closes store when it holds resources.
func CloseStore(store Store) error {
	if c, ok := store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// MemoryStore keeps the tables in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	tables []Table
	saves  int
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore(tables ...Table) *MemoryStore {
	return &MemoryStore{tables: cloneTables(tables)}
}

// Load returns a copy of the stored tables.
func (s *MemoryStore) Load(_ context.Context) ([]Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTables(s.tables), nil
}

// Save replaces the stored tables.
func (s *MemoryStore) Save(ctx context.Context, tables []Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = cloneTables(tables)
	s.saves++
	return nil
}

// Saves returns how many times Save succeeded.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
