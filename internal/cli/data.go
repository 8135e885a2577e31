package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/electwix/db-catalogue/internal/catalogue"
	"github.com/electwix/db-catalogue/internal/data"
)

func newInsertCommand(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "insert [QUERY...]",
		Short: "Insert rows into catalogue tables",
		Long: `Execute INSERT INTO statements against the tables of the catalogue.
The arguments are joined into one query; --file reads it from a file, or from
stdin when the name is "-". Every statement is checked before any row is
written, and a rejected query adds nothing.`,
		Example: `  db-catalogue insert "insert into Department values (1, 'Sales'); commit;"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := readQuery(cmd.InOrStdin(), file, args)
			if err != nil {
				return err
			}
			_, eng, closeStore, err := a.openData(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			res, err := eng.Exec(cmd.Context(), query)
			if err != nil {
				return insertError(err)
			}
			_, _ = fmt.Fprintf(a.stdout, "Rows inserted: %d (%s)\n", res.Inserted, strings.Join(res.Tables, ", "))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the query from a file (- for stdin)")
	return cmd
}

func readQuery(stdin io.Reader, file string, args []string) (string, error) {
	switch {
	case file != "" && len(args) > 0:
		return "", errors.New("give the query as arguments or with --file, not both")
	case file == "-":
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(raw), nil
	case file != "":
		raw, err := os.ReadFile(file)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	case len(args) == 0:
		return "", errors.New("no query given")
	default:
		return strings.Join(args, " "), nil
	}
}

// insertError maps rejected queries onto exit code 1 with their message.
func insertError(err error) error {
	var syntaxErr *data.SyntaxError
	if errors.As(err, &syntaxErr) {
		return &ExitError{Code: 1, Message: "Invalid query: " + syntaxErr.Error()}
	}
	if errors.Is(err, catalogue.ErrNotFound) || errors.Is(err, data.ErrInvalidRow) || errors.Is(err, data.ErrDuplicateKey) {
		return &ExitError{Code: 1, Message: "Aborted. " + err.Error()}
	}
	return err
}

func newRowsCommand(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "rows TABLE",
		Short: "Print the rows of a catalogue table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, eng, closeStore, err := a.openData(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			rows, err := eng.Rows(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			t, err := cat.Table(args[0])
			if err != nil {
				return err
			}
			return writeRows(a.stdout, t, rows)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the rows as JSON")
	return cmd
}

// writeRows prints a header of column names and one line per row.
func writeRows(w io.Writer, t catalogue.Table, rows []data.Row) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintf(w, "No rows in %s\n", t.Name)
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	_, _ = fmt.Fprintln(tw, strings.Join(names, "\t"))
	for _, r := range rows {
		cells := make([]string, len(names))
		for i, name := range names {
			if v := r[name]; v != nil {
				cells[i] = fmt.Sprint(v)
			} else {
				cells[i] = "NULL"
			}
		}
		_, _ = fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// openData opens the catalogue and the row engine over it. The memory backend
// keeps rows in memory as well. The returned func closes the catalogue store.
func (a *app) openData(ctx context.Context) (*catalogue.Catalogue, *data.Engine, func(), error) {
	cat, closeStore, err := a.openCatalogue(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	var (
		store data.Store
		opts  = data.Options{Logger: a.logger}
	)
	if a.cfg.Store.Backend == catalogue.BackendMemory {
		store = data.NewMemoryStore()
	} else {
		fileStore, err := data.NewFileStore(a.cfg.Data.Path)
		if err != nil {
			closeStore()
			return nil, nil, nil, fmt.Errorf("open data store: %w", err)
		}
		store = fileStore
		if a.cfg.Data.WAL != "" {
			opts.WAL = data.NewWAL(a.cfg.Data.WAL)
		}
	}
	eng, err := data.Open(ctx, cat, store, opts)
	if err != nil {
		closeStore()
		return nil, nil, nil, err
	}
	return cat, eng, closeStore, nil
}
