package data

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/electwix/db-catalogue/internal/catalogue"
	"github.com/electwix/db-catalogue/internal/logging"
)

// Options tunes an Engine.
type Options struct {
	// WAL receives every accepted batch before it is saved. Nil disables
	// the log.
	WAL    *WAL
	Logger logging.Logger
}

// Result summarises an executed query.
type Result struct {
	// Inserted is the number of rows added.
	Inserted int
	// Tables lists the tables that received rows, in statement order.
	Tables []string
}

// Engine executes insert queries against the tables of a catalogue. It is
// safe for concurrent use; queries run one at a time and each is applied
// completely or not at all.
type Engine struct {
	mu        sync.Mutex
	catalogue *catalogue.Catalogue
	store     Store
	wal       *WAL
	logger    logging.Logger

	rows  map[string][]Row
	order []string
}

// Open loads the rows held by store and returns an Engine over cat.
func Open(ctx context.Context, cat *catalogue.Catalogue, store Store, opts Options) (*Engine, error) {
	if cat == nil {
		return nil, errors.New("data engine requires a catalogue")
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	tables, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rows: %w", err)
	}
	e := &Engine{
		catalogue: cat,
		store:     store,
		wal:       opts.WAL,
		logger:    opts.Logger,
		rows:      make(map[string][]Row, len(tables)),
	}
	total := 0
	for _, t := range tables {
		if _, dup := e.rows[t.Name]; dup {
			return nil, fmt.Errorf("load rows: table %s appears more than once", t.Name)
		}
		rows := cloneRows(t.Rows)
		if table, err := cat.Table(t.Name); err == nil {
			normalizeRows(table, rows)
		}
		e.rows[t.Name] = rows
		e.order = append(e.order, t.Name)
		total += len(rows)
	}
	e.logger.Debug("rows loaded", "tables", len(tables), "rows", total)
	return e, nil
}

func normalizeRows(t catalogue.Table, rows []Row) {
	for _, r := range rows {
		for _, c := range t.Columns {
			if v, ok := r[c.Name]; ok {
				if v == nil {
					delete(r, c.Name)
					continue
				}
				r[c.Name] = normalize(c, v)
			}
		}
	}
}

// Exec parses query and inserts its rows. Errors wrap *SyntaxError,
// *UnknownTableError, *RowError or *DuplicateKeyError; on any error no row
// is added.
func (e *Engine) Exec(ctx context.Context, query string) (Result, error) {
	inserts, err := Parse(query)
	if err != nil {
		return Result{}, err
	}
	return e.Insert(ctx, inserts)
}

// Insert applies parsed statements as one batch.
func (e *Engine) Insert(ctx context.Context, inserts []Insert) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	added := make(map[string][]Row)
	keys := make(map[string]map[string]struct{})
	var (
		batch  []walEntry
		result Result
	)
	for _, ins := range inserts {
		t, err := e.catalogue.Table(ins.Table)
		if err != nil {
			if errors.Is(err, catalogue.ErrNotFound) {
				return Result{}, &UnknownTableError{Name: ins.Table}
			}
			return Result{}, err
		}
		columns := ins.Columns
		if columns == nil {
			columns = make([]string, len(t.Columns))
			for i, c := range t.Columns {
				columns[i] = c.Name
			}
		}

		for _, values := range ins.Rows {
			row, err := BuildRow(t, columns, values)
			if err != nil {
				return Result{}, err
			}
			if pk, ok := t.PrimaryColumn(); ok {
				if key, ok := keyOf(row[pk.Name]); ok {
					taken, seen := keys[t.Name]
					if !seen {
						taken = e.primaryKeys(t, pk.Name)
						keys[t.Name] = taken
					}
					if _, dup := taken[key]; dup {
						return Result{}, &DuplicateKeyError{Table: t.Name, Column: pk.Name, Key: key}
					}
					taken[key] = struct{}{}
				}
			}
			if _, ok := added[t.Name]; !ok {
				result.Tables = append(result.Tables, t.Name)
			}
			added[t.Name] = append(added[t.Name], row)
			batch = append(batch, walEntry{table: t.Name, columns: columns, row: row})
			result.Inserted++
		}
	}

	if e.wal != nil {
		if err := e.wal.Append(batch); err != nil {
			return Result{}, fmt.Errorf("append wal: %w", err)
		}
	}

	order := e.order
	next := make(map[string][]Row, len(e.rows)+len(added))
	for name, rows := range e.rows {
		next[name] = rows
	}
	for _, name := range result.Tables {
		if _, ok := next[name]; !ok {
			order = append(order[:len(order):len(order)], name)
		}
		merged := make([]Row, 0, len(next[name])+len(added[name]))
		merged = append(merged, next[name]...)
		next[name] = append(merged, added[name]...)
	}
	if err := e.store.Save(ctx, snapshot(order, next)); err != nil {
		return Result{}, fmt.Errorf("save rows: %w", err)
	}
	e.rows = next
	e.order = order

	e.logger.Info("rows inserted", "rows", result.Inserted, "tables", result.Tables)
	return result, nil
}

// primaryKeys collects the keys already stored for t.
func (e *Engine) primaryKeys(t catalogue.Table, column string) map[string]struct{} {
	keys := make(map[string]struct{}, len(e.rows[t.Name]))
	for _, r := range e.rows[t.Name] {
		if key, ok := keyOf(r[column]); ok {
			keys[key] = struct{}{}
		}
	}
	return keys
}

// Rows returns a copy of the rows of the named catalogue table. Every column
// is present in each row, with nil for null values.
func (e *Engine) Rows(name string) ([]Row, error) {
	t, err := e.catalogue.Table(name)
	if err != nil {
		if errors.Is(err, catalogue.ErrNotFound) {
			return nil, &UnknownTableError{Name: name}
		}
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	stored := e.rows[name]
	out := make([]Row, len(stored))
	for i, r := range stored {
		row := make(Row, len(t.Columns))
		for _, c := range t.Columns {
			row[c.Name] = r[c.Name]
		}
		out[i] = row
	}
	return out, nil
}

// Count returns how many rows the named table holds.
func (e *Engine) Count(name string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.rows[name])
}

func snapshot(order []string, rows map[string][]Row) []TableRows {
	out := make([]TableRows, 0, len(order))
	for _, name := range order {
		out = append(out, TableRows{Name: name, Rows: rows[name]})
	}
	return out
}
