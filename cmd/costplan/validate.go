package main

import (
	"fmt"

	"github.com/metalagman/costplan/internal/kb"
	"github.com/spf13/cobra"
)

func validateCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <kb.yaml>",
		Short: "Check a knowledge base against the schema and for consistency",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := kb.Load(args[0])
			if err != nil {
				return err
			}
			bundle, err := doc.Build()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d variables, %d actions, %d targets\n",
				args[0], len(bundle.KB.Variables()), len(bundle.KB.Actions()), len(bundle.Targets))
			return nil
		},
	}
}
