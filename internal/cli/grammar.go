package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/electwix/db-catalogue/internal/schema/grammar"
)

func newGrammarCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "grammar",
		Short: "Print the schema language grammar as EBNF",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := grammar.NewParser()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), p.String())
			return err
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "db-catalogue %s\n", Version)
		},
	}
}
