package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/electwix/db-catalogue/internal/catalogue"
	"github.com/electwix/db-catalogue/internal/diagnostics"
	"github.com/electwix/db-catalogue/internal/pipeline"
)

type reportOptions struct {
	context bool
	color   bool
}

func (r *reportOptions) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&r.context, "context", false, "Show the source lines around each diagnostic")
	cmd.Flags().BoolVar(&r.color, "color", false, "Colorize diagnostics")
}

func (r reportOptions) formatter() *diagnostics.Formatter {
	f := diagnostics.NewSimpleFormatter()
	if r.context {
		f = diagnostics.NewFormatter()
	}
	f.Colorize = r.color
	return f
}

func newCheckCommand(a *app) *cobra.Command {
	var report reportOptions
	cmd := &cobra.Command{
		Use:   "check [FILE...]",
		Short: "Compile schema files and report diagnostics",
		Long: `Compile each schema file and print every diagnostic as
path:line:column: [Stage] message. Without arguments the files listed under
gen.schemas in the configuration are checked. Exits 1 when any file fails.`,
		Example: `  db-catalogue check schema.ddl
  db-catalogue check --context --strict 'schemas/*.ddl'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := a.compile(cmd, args, pipeline.RunOptions{}, report)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(a.stdout, "No errors found: %d model(s) in %d file(s)\n", len(summary.Models), len(summary.Units))
			return nil
		},
	}
	report.bind(cmd)
	return cmd
}

func newApplyCommand(a *app) *cobra.Command {
	var report reportOptions
	cmd := &cobra.Command{
		Use:   "apply [FILE...]",
		Short: "Compile schema files and add their models to the catalogue",
		Long: `Compile the schema files and add every model as a table to the configured
catalogue store. The whole set is rejected when any table already exists.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := a.compile(cmd, args, pipeline.RunOptions{}, report)
			if err != nil {
				return err
			}
			cat, closeStore, err := a.openCatalogue(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			tables := catalogue.FromModels(summary.Models)
			if err := cat.AddTables(cmd.Context(), tables); err != nil {
				var exists *catalogue.TableExistsError
				if errors.As(err, &exists) {
					return &ExitError{Code: 1, Message: fmt.Sprintf("Aborted. Table %s already exists", exists.Name)}
				}
				return err
			}
			names := make([]string, len(tables))
			for i, t := range tables {
				names[i] = t.Name
			}
			_, _ = fmt.Fprintf(a.stdout, "Tables created: %s\n", strings.Join(names, ", "))
			return nil
		},
	}
	report.bind(cmd)
	return cmd
}

// compile runs the pipeline over args, or the configured schemas when args
// is empty, and prints any diagnostics to stderr.
func (a *app) compile(cmd *cobra.Command, args []string, opts pipeline.RunOptions, report reportOptions) (pipeline.Summary, error) {
	opts.Patterns = args
	if len(opts.Patterns) == 0 {
		opts.Patterns = a.cfg.Gen.Schemas
	}
	if len(opts.Patterns) == 0 {
		return pipeline.Summary{}, errors.New("no schema files given and gen.schemas is empty")
	}

	pipe := pipeline.Pipeline{Env: pipeline.Environment{
		Logger:   a.logger,
		Compiler: a.compiler(),
	}}
	summary, err := pipe.Run(cmd.Context(), opts)
	printDiagnostics(a.stderr, summary, report.formatter())
	if err != nil {
		var diagErr *pipeline.DiagnosticsError
		if errors.As(err, &diagErr) {
			return summary, &ExitError{Code: 1}
		}
		var writeErr *pipeline.WriteError
		if errors.As(err, &writeErr) {
			return summary, &ExitError{Code: 2, Message: writeErr.Error()}
		}
		return summary, err
	}
	return summary, nil
}

func printDiagnostics(w io.Writer, summary pipeline.Summary, f *diagnostics.Formatter) {
	if len(summary.Diagnostics) == 0 {
		return
	}
	c := diagnostics.NewCollection()
	c.Add(summary.Diagnostics...)
	_ = f.WriteAll(w, c, summary.Sources)
	f.PrintSummary(w, c)
}
