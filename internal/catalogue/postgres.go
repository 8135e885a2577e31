package catalogue

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresStore keeps the catalogue in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and migrates the catalogue tables.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres store requires a DSN")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	db := stdlib.OpenDBFromPool(pool)
	err = migrate(ctx, goose.DialectPostgres, db)
	_ = db.Close()
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Load reads every table in position order.
func (s *PostgresStore) Load(ctx context.Context) ([]Table, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name, primary_key FROM catalogue_tables ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	var tables []Table
	index := make(map[string]int)
	for rows.Next() {
		var (
			t  Table
			pk *int32
		)
		if err := rows.Scan(&t.Name, &pk); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan table: %w", err)
		}
		if pk != nil {
			idx := int(*pk)
			t.PrimaryKey = &idx
		}
		index[t.Name] = len(tables)
		tables = append(tables, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read tables: %w", err)
	}

	rows, err = s.pool.Query(ctx,
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
func (s *PostgresStore) Save(ctx context.Context, tables []Table) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM catalogue_columns`); err != nil {
			return fmt.Errorf("clear columns: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM catalogue_tables`); err != nil {
			return fmt.Errorf("clear tables: %w", err)
		}
		batch := &pgx.Batch{}
		for pos, t := range tables {
			var pk *int32
			if t.PrimaryKey != nil {
				v := int32(*t.PrimaryKey)
				pk = &v
			}
			batch.Queue(`INSERT INTO catalogue_tables (name, position, primary_key) VALUES ($1, $2, $3)`,
				t.Name, int32(pos), pk)
			for i, col := range t.Columns {
				batch.Queue(`INSERT INTO catalogue_columns (table_name, position, name, type, nullable) VALUES ($1, $2, $3, $4, $5)`,
					t.Name, int32(i), col.Name, col.Type.String(), col.Nullable)
			}
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert tables: %w", err)
		}
		return nil
	})
}
