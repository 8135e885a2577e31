package catalogue

import (
	"context"
	"fmt"
	"sync"

	"github.com/electwix/db-catalogue/internal/logging"
)

// Catalogue holds the accepted tables in memory and persists every change
// through its Store. It is safe for concurrent use; writes are serialised.
type Catalogue struct {
	mu     sync.RWMutex
	tables []Table
	index  map[string]int
	store  Store
	logger logging.Logger
}

// Open loads the tables held by store and returns a Catalogue over them.
func Open(ctx context.Context, store Store, logger logging.Logger) (*Catalogue, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	tables, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalogue: %w", err)
	}
	c := &Catalogue{
		tables: tables,
		index:  make(map[string]int, len(tables)),
		store:  store,
		logger: logger,
	}
	for i, t := range tables {
		if _, dup := c.index[t.Name]; dup {
			return nil, fmt.Errorf("load catalogue: %w", &TableExistsError{Name: t.Name})
		}
		c.index[t.Name] = i
	}
	logger.Debug("catalogue loaded", "tables", len(tables))
	return c, nil
}

// AddTables appends tables and saves the result. The batch is rejected as a
// whole when any name is already present or repeats within the batch; in that
// case nothing is added and the error wraps ErrTableExists. When the store
// fails the in-memory state is left unchanged.
func (c *Catalogue) AddTables(ctx context.Context, tables []Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	batch := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		if _, ok := c.index[t.Name]; ok {
			return &TableExistsError{Name: t.Name}
		}
		if _, ok := batch[t.Name]; ok {
			return &TableExistsError{Name: t.Name}
		}
		batch[t.Name] = struct{}{}
	}
	if len(tables) == 0 {
		return nil
	}

	next := make([]Table, 0, len(c.tables)+len(tables))
	next = append(next, c.tables...)
	next = append(next, cloneTables(tables)...)
	if err := c.store.Save(ctx, next); err != nil {
		return fmt.Errorf("save catalogue: %w", err)
	}

	for i := len(c.tables); i < len(next); i++ {
		c.index[next[i].Name] = i
	}
	c.tables = next
	c.logger.Info("tables added", "count", len(tables), "total", len(next))
	return nil
}

// Tables returns a copy of every table in insertion order.
func (c *Catalogue) Tables() []Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneTables(c.tables)
}

// Table returns the named table or an error wrapping ErrNotFound.
func (c *Catalogue) Table(name string) (Table, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.index[name]
	if !ok {
		return Table{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return c.tables[idx].Clone(), nil
}

// Exists reports whether a table with name is present.
func (c *Catalogue) Exists(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.index[name]
	return ok
}

// Len returns the number of tables.
func (c *Catalogue) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tables)
}
