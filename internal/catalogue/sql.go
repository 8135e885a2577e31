package catalogue

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/electwix/db-catalogue/internal/schema/model"
)

//go:embed migrations/*.sql
var migrations embed.FS

// migrate applies the embedded migrations to db.
func migrate(ctx context.Context, dialect goose.Dialect, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// SQLiteStore keeps the catalogue in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at dsn and migrates it.
// An empty dsn opens a private in-memory database.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps in-memory databases alive and serialises writes.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := migrate(ctx, goose.DialectSQLite3, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load reads every table in position order.
func (s *SQLiteStore) Load(ctx context.Context) ([]Table, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, primary_key FROM catalogue_tables ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	var tables []Table
	index := make(map[string]int)
	for rows.Next() {
		var (
			t  Table
			pk sql.NullInt64
		)
		if err := rows.Scan(&t.Name, &pk); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan table: %w", err)
		}
		if pk.Valid {
			idx := int(pk.Int64)
			t.PrimaryKey = &idx
		}
		index[t.Name] = len(tables)
		tables = append(tables, t)
	}
	if err := errors.Join(rows.Err(), rows.Close()); err != nil {
		return nil, fmt.Errorf("read tables: %w", err)
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT table_name, name, type, nullable FROM catalogue_columns ORDER BY table_name, position`)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var tableName, typeName string
		var col Column
		if err := rows.Scan(&tableName, &col.Name, &typeName, &col.Nullable); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		if err := attachColumn(tables, index, tableName, typeName, col); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	return tables, nil
}

// Save replaces the stored tables in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, tables []Table) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM catalogue_columns`); err != nil {
		return fmt.Errorf("clear columns: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM catalogue_tables`); err != nil {
		return fmt.Errorf("clear tables: %w", err)
	}
	for pos, t := range tables {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO catalogue_tables (name, position, primary_key) VALUES (?, ?, ?)`,
			t.Name, pos, nullablePrimaryKey(t.PrimaryKey)); err != nil {
			return fmt.Errorf("insert table %s: %w", t.Name, err)
		}
		for i, col := range t.Columns {
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO catalogue_columns (table_name, position, name, type, nullable) VALUES (?, ?, ?, ?, ?)`,
				t.Name, i, col.Name, col.Type.String(), col.Nullable); err != nil {
				return fmt.Errorf("insert column %s.%s: %w", t.Name, col.Name, err)
			}
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func nullablePrimaryKey(pk *int) sql.NullInt64 {
	if pk == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*pk), Valid: true}
}

// attachColumn appends col to its table. Rows arrive in position order.
func attachColumn(tables []Table, index map[string]int, tableName, typeName string, col Column) error {
	idx, ok := index[tableName]
	if !ok {
		return fmt.Errorf("column %s references unknown table %s", col.Name, tableName)
	}
	var bt model.BasicType
	if err := bt.UnmarshalText([]byte(typeName)); err != nil {
		return fmt.Errorf("column %s.%s: %w", tableName, col.Name, err)
	}
	col.Type = bt
	tables[idx].Columns = append(tables[idx].Columns, col)
	return nil
}
