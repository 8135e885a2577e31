package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/electwix/db-catalogue/internal/codegen"
	"github.com/electwix/db-catalogue/internal/pipeline"
)

func newGenCommand(a *app) *cobra.Command {
	var (
		report reportOptions
		opts   pipeline.RunOptions
		lang   string
	)
	cmd := &cobra.Command{
		Use:   "gen [FILE...]",
		Short: "Generate model types for the models of schema files",
		Long: `Compile the schema files and write one type per model. Go output holds
structs with db tags naming the columns and a TableName method; typescript
and rust output hold one interface or serde struct per model plus an index
module. Files whose content is unchanged are not rewritten.`,
		Example: `  db-catalogue gen --out internal/models --package models schema.ddl
  db-catalogue gen --lang typescript --out web/src schema.ddl`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !flags.Changed("out") {
				opts.Out = a.cfg.Gen.Out
			}
			if !flags.Changed("package") {
				opts.Package = a.cfg.Gen.Package
			}
			if !flags.Changed("json-tags") {
				opts.EmitJSONTags = a.cfg.Gen.EmitJSONTags
			}
			if !flags.Changed("lang") {
				lang = string(a.cfg.Gen.Language)
			}
			language, err := codegen.ParseLanguage(lang)
			if err != nil {
				return err
			}
			opts.Language = language
			if opts.Out == "" {
				return errors.New("gen requires --out or gen.out")
			}

			summary, err := a.compile(cmd, args, opts, report)
			if err != nil {
				return err
			}
			if opts.DryRun {
				for _, f := range summary.Files {
					_, _ = fmt.Fprintln(a.stdout, f.Path)
				}
				return nil
			}
			for _, path := range summary.Written {
				_, _ = fmt.Fprintf(a.stdout, "wrote %s\n", path)
			}
			if len(summary.Written) == 0 {
				_, _ = fmt.Fprintln(a.stdout, "Generated files are up to date")
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.Out, "out", "o", "", "Output directory (default gen.out)")
	flags.StringVarP(&lang, "lang", "l", "", "Target language: go, typescript or rust (default gen.language)")
	flags.StringVarP(&opts.Package, "package", "p", "", "Go package name (default gen.package)")
	flags.StringVar(&opts.FileName, "file", "", "Generated file name (default models.go)")
	flags.BoolVar(&opts.EmitJSONTags, "json-tags", false, "Add json tags next to the db tags")
	flags.BoolVar(&opts.DryRun, "dry-run", false, "Print the files that would be written")
	report.bind(cmd)
	return cmd
}
