package data

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/electwix/db-catalogue/internal/catalogue"
	"github.com/electwix/db-catalogue/internal/compiler"
)

const hrSchema = `
model Department {
    DepartmentID Int @id
    Name String
    Budget Float?
}
model Employee {
    EmployeeID String @id
    FirstName String
    DepartmentID Int? @references(Department, DepartmentID)
    HireDate Date
    Photo Blob?
}`

type failingStore struct {
	MemoryStore
	err error
}

func (s *failingStore) Save(context.Context, []TableRows) error {
	return s.err
}

func openCatalogue(t *testing.T) *catalogue.Catalogue {
	t.Helper()
	models, err := compiler.Compile(hrSchema)
	require.NoError(t, err)
	cat, err := catalogue.Open(context.Background(), catalogue.NewMemoryStore(catalogue.FromModels(models)...), nil)
	require.NoError(t, err)
	return cat
}

func openEngine(t *testing.T, store Store, opts Options) *Engine {
	t.Helper()
	e, err := Open(context.Background(), openCatalogue(t), store, opts)
	require.NoError(t, err)
	return e
}

func TestExecInsertsRows(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()
	e := openEngine(t, store, Options{})
	ctx := context.Background()

	res, err := e.Exec(ctx, `insert into Department (DepartmentID, Name) values (1, 'Sales'), (2, 'Support');
insert into Employee values ('1', 'John', 1, '2021-01-01', null);
commit;`)
	require.NoError(t, err)
	require.Equal(t, Result{Inserted: 3, Tables: []string{"Department", "Employee"}}, res)

	rows, err := e.Rows("Department")
	require.NoError(t, err)
	require.Equal(t, []Row{
		{"DepartmentID": int64(1), "Name": "Sales", "Budget": nil},
		{"DepartmentID": int64(2), "Name": "Support", "Budget": nil},
	}, rows)

	saved, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, saved, 2)
	require.Equal(t, "Employee", saved[1].Name)
	require.Equal(t, Row{"EmployeeID": "1", "FirstName": "John", "DepartmentID": int64(1), "HireDate": "2021-01-01"}, saved[1].Rows[0])
}

func TestExecConvertsNumbers(t *testing.T) {
	t.Parallel()
	e := openEngine(t, NewMemoryStore(), Options{})
	_, err := e.Exec(context.Background(), "insert into Department values (3.0, 'Ops', 1.25e3)")
	require.NoError(t, err)

	rows, err := e.Rows("Department")
	require.NoError(t, err)
	require.Equal(t, int64(3), rows[0]["DepartmentID"])
	require.Equal(t, 1250.0, rows[0]["Budget"])
}

func TestExecRejectsInvalidRows(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		query  string
		column string
		reason string
	}{
		{"unknown column", "insert into Department (DepartmentID, Name, Floor) values (1, 'a', 2)", "Floor", "no such column"},
		{"repeated column", "insert into Department (DepartmentID, DepartmentID, Name) values (1, 1, 'a')", "DepartmentID", "column listed more than once"},
		{"value count", "insert into Department (DepartmentID, Name) values (1)", "", "1 values for 2 columns"},
		{"missing required", "insert into Department (DepartmentID) values (1)", "Name", "value required"},
		{"null required", "insert into Department values (1, null, null)", "Name", "value required"},
		{"fractional int", "insert into Department values (1.5, 'a', null)", "DepartmentID", "expected an integer, got number 1.5"},
		{"string for int", "insert into Department values ('1', 'a', null)", "DepartmentID", "expected an integer, got string '1'"},
		{"int out of range", "insert into Department values (9223372036854775808, 'a', null)", "DepartmentID", "integer 9223372036854775808 out of range"},
		{"string for float", "insert into Department values (1, 'a', 'lots')", "Budget", "expected a number, got string 'lots'"},
		{"number for string", "insert into Department values (1, 42, null)", "Name", "expected a string, got number 42"},
		{"bad date", "insert into Employee values ('1', 'a', null, '2021-13-01', null)", "HireDate", "expected a date as YYYY-MM-DD, got '2021-13-01'"},
		{"number for date", "insert into Employee values ('1', 'a', null, 20210101, null)", "HireDate", "expected a date, got number 20210101"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			store := NewMemoryStore()
			e := openEngine(t, store, Options{})
			_, err := e.Exec(context.Background(), tc.query)
			require.ErrorIs(t, err, ErrInvalidRow)
			var rowErr *RowError
			require.ErrorAs(t, err, &rowErr)
			require.Equal(t, tc.column, rowErr.Column)
			require.Equal(t, tc.reason, rowErr.Reason)

			saved, err := store.Load(context.Background())
			require.NoError(t, err)
			require.Empty(t, saved)
		})
	}
}

func TestExecUnknownTable(t *testing.T) {
	t.Parallel()
	e := openEngine(t, NewMemoryStore(), Options{})
	_, err := e.Exec(context.Background(), "insert into Salary values (1)")
	require.ErrorIs(t, err, catalogue.ErrNotFound)
	require.EqualError(t, err, "table Salary not found")

	_, err = e.Rows("Salary")
	require.ErrorIs(t, err, catalogue.ErrNotFound)
}

func TestExecDuplicateKeys(t *testing.T) {
	t.Parallel()
	e := openEngine(t, NewMemoryStore(), Options{})
	ctx := context.Background()

	_, err := e.Exec(ctx, "insert into Department values (1, 'Sales', null)")
	require.NoError(t, err)

	_, err = e.Exec(ctx, "insert into Department values (1.0, 'Again', null)")
	require.ErrorIs(t, err, ErrDuplicateKey)
	require.EqualError(t, err, "duplicate primary key Department.DepartmentID = 1")

	// A collision inside one query rejects the whole query.
	_, err = e.Exec(ctx, "insert into Department values (2, 'a', null); insert into Department values (2, 'b', null)")
	require.ErrorIs(t, err, ErrDuplicateKey)
	require.Equal(t, 1, e.Count("Department"))
}

func TestExecIsAtomic(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()
	e := openEngine(t, store, Options{})
	ctx := context.Background()

	_, err := e.Exec(ctx, "insert into Department values (1, 'Sales', null); insert into Employee values ('1', 'Ann', 1, 'soon', null)")
	require.ErrorIs(t, err, ErrInvalidRow)
	require.Zero(t, e.Count("Department"))

	failing := &failingStore{err: errors.New("disk full")}
	e = openEngine(t, failing, Options{})
	_, err = e.Exec(ctx, "insert into Department values (1, 'Sales', null)")
	require.ErrorContains(t, err, "disk full")
	require.Zero(t, e.Count("Department"))
}

func TestExecSyntaxError(t *testing.T) {
	t.Parallel()
	e := openEngine(t, NewMemoryStore(), Options{})
	_, err := e.Exec(context.Background(), "insert Department values (1)")
	var syntaxErr *SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	require.Equal(t, 8, syntaxErr.Column)
}

func TestExecConcurrent(t *testing.T) {
	t.Parallel()
	e := openEngine(t, NewMemoryStore(), Options{})
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := range workers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_, err := e.Exec(ctx, "insert into Department values ("+string(rune('0'+id))+", 'team', null)")
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, workers, e.Count("Department"))
}

func TestFileStoreAndWAL(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	ctx := context.Background()

	for _, name := range []string{"data.json", "data.yaml", "data.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			walPath := filepath.Join(dir, name+".wal")
			store, err := NewFileStore(path)
			require.NoError(t, err)
			require.Equal(t, path, store.Path())

			cat := openCatalogue(t)
			e, err := Open(ctx, cat, store, Options{WAL: NewWAL(walPath)})
			require.NoError(t, err)
			_, err = e.Exec(ctx, "insert into Department values (1, 'Sales', 2.5); insert into Employee values ('e1', 'Ann', 1, '2021-01-01', null)")
			require.NoError(t, err)

			reopened, err := Open(ctx, cat, store, Options{})
			require.NoError(t, err)
			rows, err := reopened.Rows("Department")
			require.NoError(t, err)
			require.Equal(t, []Row{{"DepartmentID": int64(1), "Name": "Sales", "Budget": 2.5}}, rows)

			_, err = reopened.Exec(ctx, "insert into Department values (1, 'Dup', null)")
			require.ErrorIs(t, err, ErrDuplicateKey, "keys survive a reload")

			log, err := os.ReadFile(walPath)
			require.NoError(t, err)
			require.Equal(t, strings.Join([]string{
				`w Department DepartmentID "1"`,
				`w Department Name "Sales"`,
				`w Department Budget "2.5"`,
				`w Employee EmployeeID "e1"`,
				`w Employee FirstName "Ann"`,
				`w Employee DepartmentID "1"`,
				`w Employee HireDate "2021-01-01"`,
				"c",
			}, "\n")+"\n", string(log))
		})
	}
}

func TestFileStoreMissingAndBadExtension(t *testing.T) {
	t.Parallel()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	tables, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, tables)

	_, err = NewFileStore("rows.csv")
	require.Error(t, err)

	def, err := NewFileStore("")
	require.NoError(t, err)
	require.Equal(t, DefaultPath, def.Path())
	require.Equal(t, DefaultWALPath, NewWAL("").Path())
}

func TestOpenRejectsRepeatedTables(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore(TableRows{Name: "Department"}, TableRows{Name: "Department"})
	_, err := Open(context.Background(), openCatalogue(t), store, Options{})
	require.ErrorContains(t, err, "appears more than once")
}
