package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/electwix/db-catalogue/internal/catalogue"
)

func newTablesCommand(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "tables [NAME...]",
		Short: "List the tables held by the catalogue",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, closeStore, err := a.openCatalogue(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			tables := cat.Tables()
			if len(args) > 0 {
				tables = tables[:0]
				for _, name := range args {
					t, err := cat.Table(name)
					if err != nil {
						return err
					}
					tables = append(tables, t)
				}
			}
			if asJSON {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				if tables == nil {
					tables = []catalogue.Table{}
				}
				return enc.Encode(tables)
			}
			return writeTables(a.stdout, tables)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the tables as JSON")
	return cmd
}

// writeTables prints one block per table with a row per column.
func writeTables(w io.Writer, tables []catalogue.Table) error {
	if len(tables) == 0 {
		_, err := fmt.Fprintln(w, "No tables")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, t := range tables {
		if i > 0 {
			_, _ = fmt.Fprintln(tw)
		}
		_, _ = fmt.Fprintf(tw, "%s\n", t.Name)
		for j, c := range t.Columns {
			var notes []string
			if t.PrimaryKey != nil && *t.PrimaryKey == j {
				notes = append(notes, "primary key")
			}
			if c.Nullable {
				notes = append(notes, "nullable")
			}
			_, _ = fmt.Fprintf(tw, "  %s\t%s\t%s\n", c.Name, c.Type, strings.Join(notes, ", "))
		}
	}
	return tw.Flush()
}
