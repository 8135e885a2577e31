package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/electwix/db-catalogue/internal/codegen/sql"
	"github.com/electwix/db-catalogue/internal/fileset"
	"github.com/electwix/db-catalogue/internal/pipeline"
)

func newDDLCommand(a *app) *cobra.Command {
	var (
		report  reportOptions
		opts    sql.Options
		dialect string
		out     string
	)
	cmd := &cobra.Command{
		Use:   "ddl [FILE...]",
		Short: "Print CREATE TABLE statements for the models of schema files",
		Example: `  db-catalogue ddl --dialect postgres schema.ddl
  db-catalogue ddl --dialect sqlite --sqlite-strict --out schema.sql schema.ddl`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Dialect = sql.Dialect(dialect)
			g, err := sql.New(opts)
			if err != nil {
				return err
			}
			summary, err := a.compile(cmd, args, pipeline.RunOptions{}, report)
			if err != nil {
				return err
			}
			files, err := g.Generate(cmd.Context(), summary.Models)
			if err != nil {
				return err
			}
			for _, f := range files {
				if out == "" {
					if _, err := a.stdout.Write(f.Content); err != nil {
						return err
					}
					continue
				}
				if err := fileset.NewOSWriter().WriteFile(out, f.Content); err != nil {
					return &ExitError{Code: 2, Message: fmt.Sprintf("write %s: %v", out, err)}
				}
				_, _ = fmt.Fprintf(a.stdout, "wrote %s\n", out)
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&dialect, "dialect", string(sql.DialectSQLite), "SQL dialect: sqlite, postgres or mysql")
	flags.StringVarP(&out, "out", "o", "", "Write to this file instead of stdout")
	flags.BoolVar(&opts.SQLiteStrict, "sqlite-strict", false, "Emit STRICT tables for sqlite")
	report.bind(cmd)
	return cmd
}
