package sql_test

import (
	"context"
	stdsql "database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/electwix/db-catalogue/internal/codegen/sql"
	"github.com/electwix/db-catalogue/internal/compiler"
	"github.com/electwix/db-catalogue/internal/schema/model"
)

const hrSchema = `
model Department {
  DepartmentID Int @id
  Name String
  ManagerID Int? @references(Employee, EmployeeID)
}
model Employee {
  EmployeeID Int @id
  Salary Float?
  Hired Date
  Photo Blob?
  DepartmentID Int @references(Department, DepartmentID)
}`

func generate(t *testing.T, opts sql.Options) string {
	t.Helper()
	return generateSchema(t, hrSchema, opts)
}

func generateSchema(t *testing.T, schema string, opts sql.Options) string {
	t.Helper()
	models, err := compiler.Compile(schema)
	require.NoError(t, err)
	g, err := sql.New(opts)
	require.NoError(t, err)
	files, err := g.Generate(context.Background(), models)
	require.NoError(t, err)
	require.Len(t, files, 1)
	want := opts.FileName
	if want == "" {
		want = sql.DefaultFileName
	}
	require.Equal(t, want, files[0].Path)
	return string(files[0].Content)
}

func TestGenerateSQLiteSchema(t *testing.T) {
	for _, strict := range []bool{false, true} {
		content := generate(t, sql.Options{Dialect: sql.DialectSQLite, SQLiteStrict: strict})

		require.Contains(t, content, `CREATE TABLE IF NOT EXISTS "Department"`)
		require.Contains(t, content, `"Salary" REAL,`)
		require.Contains(t, content, `"Hired" TEXT NOT NULL`)
		require.Contains(t, content, `PRIMARY KEY ("EmployeeID")`)
		require.Contains(t, content, `FOREIGN KEY ("DepartmentID") REFERENCES "Department" ("DepartmentID")`)
		require.Contains(t, content, `CREATE INDEX IF NOT EXISTS "idx_employee_department_id" ON "Employee" ("DepartmentID");`)
		require.NotContains(t, content, "ALTER TABLE")
		require.Equal(t, strict, strings.Contains(content, ") STRICT;"))

		db, err := stdsql.Open("sqlite", ":memory:")
		require.NoError(t, err)
		db.SetMaxOpenConns(1)
		t.Cleanup(func() { _ = db.Close() })

		_, err = db.Exec("PRAGMA foreign_keys = ON")
		require.NoError(t, err)
		_, err = db.Exec(content)
		require.NoError(t, err, content)
		_, err = db.Exec(`INSERT INTO "Department" ("DepartmentID", "Name") VALUES (1, 'Ops')`)
		require.NoError(t, err)
		_, err = db.Exec(`INSERT INTO "Employee" ("EmployeeID", "Hired", "DepartmentID") VALUES (1, '2024-01-01', 1)`)
		require.NoError(t, err)
		_, err = db.Exec(`INSERT INTO "Employee" ("EmployeeID", "Hired", "DepartmentID") VALUES (2, '2024-01-01', 99)`)
		require.Error(t, err, "foreign key must be enforced")
	}
}

func TestGeneratePostgresSchema(t *testing.T) {
	content := generate(t, sql.Options{Dialect: sql.DialectPostgres})

	require.Contains(t, content, `"Salary" DOUBLE PRECISION,`)
	require.Contains(t, content, `"Hired" DATE NOT NULL`)
	require.Contains(t, content, `"Photo" BYTEA`)
	require.Contains(t, content, `ALTER TABLE "Department" ADD CONSTRAINT "fk_department_manager_id" FOREIGN KEY ("ManagerID") REFERENCES "Employee" ("EmployeeID");`)
	require.Contains(t, content, `ALTER TABLE "Employee" ADD CONSTRAINT "fk_employee_department_id" FOREIGN KEY ("DepartmentID") REFERENCES "Department" ("DepartmentID");`)

	create := strings.Index(content, `CREATE TABLE IF NOT EXISTS "Employee"`)
	alter := strings.Index(content, "ALTER TABLE")
	require.Less(t, create, alter, "constraints follow every table")
}

func TestGenerateMySQLSchema(t *testing.T) {
	content := generate(t, sql.Options{Dialect: sql.DialectMySQL, FileName: "schema.sql"})

	require.Contains(t, content, "CREATE TABLE IF NOT EXISTS `Employee`")
	require.Contains(t, content, "`Photo` LONGBLOB")
	require.Contains(t, content, "ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;")
	require.Contains(t, content, "ALTER TABLE `Employee` ADD CONSTRAINT `fk_employee_department_id`")
	require.NotContains(t, content, "CREATE INDEX")
}

func TestGenerateMySQLKeyColumns(t *testing.T) {
	content := generateSchema(t, `
model Badge { code String @id hash Blob @id label String }
model Holder { id Int @id badge String @references(Badge, code) note String? }`,
		sql.Options{Dialect: sql.DialectMySQL})

	require.Contains(t, content, "`code` VARCHAR(255) NOT NULL")
	require.Contains(t, content, "`hash` VARBINARY(255) NOT NULL")
	require.Contains(t, content, "`label` TEXT NOT NULL")
	require.Contains(t, content, "`badge` VARCHAR(255) NOT NULL")
	require.Contains(t, content, "`note` TEXT")
	require.NotContains(t, content, "`code` TEXT")

	// Other dialects accept unbounded key columns.
	pg := generateSchema(t, "model Badge { code String @id }", sql.Options{Dialect: sql.DialectPostgres})
	require.Contains(t, pg, `"code" TEXT NOT NULL`)
}

func TestGenerateCompositeKeyAndQuoting(t *testing.T) {
	g, err := sql.New(sql.Options{Dialect: sql.DialectPostgres})
	require.NoError(t, err)
	files, err := g.Generate(context.Background(), []model.Model{{
		Name: `Odd"Name`,
		Fields: []model.Field{
			{Name: "a", Type: model.Int, Primary: true},
			{Name: "b", Type: model.String, Primary: true},
		},
	}})
	require.NoError(t, err)
	content := string(files[0].Content)
	require.Contains(t, content, `CREATE TABLE IF NOT EXISTS "Odd""Name"`)
	require.Contains(t, content, `PRIMARY KEY ("a", "b")`)
}

func TestGenerateErrors(t *testing.T) {
	_, err := sql.New(sql.Options{Dialect: "oracle"})
	require.ErrorContains(t, err, `unsupported SQL dialect "oracle"`)

	g, err := sql.New(sql.Options{Dialect: sql.DialectSQLite})
	require.NoError(t, err)

	files, err := g.Generate(context.Background(), nil)
	require.NoError(t, err)
	require.Nil(t, files)

	_, err = g.Generate(context.Background(), []model.Model{{Name: "A", Fields: []model.Field{{Name: "x", Type: model.BasicType(42)}}}})
	require.ErrorContains(t, err, "model A field x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Generate(ctx, []model.Model{{Name: "A"}})
	require.ErrorIs(t, err, context.Canceled)
}
