package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/electwix/db-catalogue/internal/catalogue"
	"github.com/electwix/db-catalogue/internal/compiler"
	"github.com/electwix/db-catalogue/internal/config"
	"github.com/electwix/db-catalogue/internal/logging"
)

// app is the state shared by the commands of one invocation.
type app struct {
	opts   Options
	stdout io.Writer
	stderr io.Writer

	cfg    config.Config
	logger logging.Logger
}

// NewRootCommand builds the command tree writing to stdout and stderr.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr, cfg: config.Default()}

	root := &cobra.Command{
		Use:   "db-catalogue",
		Short: "Compile schema definitions and manage the table catalogue",
		Long: `db-catalogue compiles model definitions written in the schema language,
reports lexical, syntactic and semantic errors with their positions, and
records accepted models as tables in a persistent catalogue.`,
		Version:           Version,
		PersistentPreRunE: a.setup,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate("{{.Name}} {{.Version}}\n")
	a.opts.BindFlags(root.PersistentFlags())

	root.AddCommand(
		newCheckCommand(a),
		newApplyCommand(a),
		newTablesCommand(a),
		newInsertCommand(a),
		newRowsCommand(a),
		newGenCommand(a),
		newDDLCommand(a),
		newServeCommand(a),
		newGrammarCommand(),
		newVersionCommand(),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCommand(stdout, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		var exit *ExitError
		if !errors.As(err, &exit) || exit.Message != "" {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		}
	}
	return ExitCode(err)
}

// setup loads configuration and builds the logger before any command runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	switch cmd.Name() {
	case "help", "version", "grammar", "completion", "__complete":
		return nil
	}

	res, err := config.Load(a.opts.ConfigPath, config.LoadOptions{
		Strict:   a.opts.StrictConfig,
		Required: cmd.Flags().Changed("config"),
	})
	if err != nil {
		return err
	}
	a.cfg = res.Config
	if a.opts.Strict {
		a.cfg.Check.Strict = true
	}

	a.logger = logging.NewSlogAdapter(logging.New(logging.Options{
		Verbose: a.opts.Verbose || a.cfg.Log.Verbose,
		JSON:    a.opts.JSONLogs || a.cfg.Log.JSON,
		Writer:  a.stderr,
	}))
	for _, w := range res.Warnings {
		a.logger.Warn(w)
	}
	if res.Found {
		a.logger.Debug("configuration loaded", "path", res.Path)
	}
	cmd.SetContext(logging.WithContext(cmd.Context(), a.logger))
	return nil
}

func (a *app) compiler() *compiler.Compiler {
	return compiler.New(compiler.Options{Strict: a.cfg.Check.Strict, Logger: a.logger})
}

// openCatalogue opens the configured store. The returned func closes it.
func (a *app) openCatalogue(ctx context.Context) (*catalogue.Catalogue, func(), error) {
	store, err := catalogue.NewStore(ctx, a.cfg.Store.Options())
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", a.cfg.Store.Backend, err)
	}
	closeStore := func() {
		if err := catalogue.CloseStore(store); err != nil {
			a.logger.Warn("close store", "error", err)
		}
	}
	cat, err := catalogue.Open(ctx, store, a.logger)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	return cat, closeStore, nil
}
