package main

import (
	"fmt"

	"github.com/metalagman/costplan/internal/render"
	"github.com/spf13/cobra"
)

func explainCmd(a *app) *cobra.Command {
	var (
		flags searchFlags
		style string
		width int
		raw   bool
	)
	cmd := &cobra.Command{
		Use:   "explain <kb.yaml>",
		Short: "Run a search and explain how it arrived at the plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := flags.apply(cmd, a.cfg.Search)
			p, err := runSearch(cmd.Context(), args[0], cfg, flags.targets)
			if err != nil {
				return err
			}
			md, err := render.ExplanationMarkdown(p.astar, p.result)
			if err != nil {
				return err
			}
			if raw {
				fmt.Fprint(cmd.OutOrStdout(), md)
				return nil
			}
			out, err := render.Markdown(md, style, width)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&style, "style", "", "glamour style (default detects the terminal)")
	cmd.Flags().IntVar(&width, "width", 100, "word wrap width")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the markdown source")
	return cmd
}
