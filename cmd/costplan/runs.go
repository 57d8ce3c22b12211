package main

import (
	"fmt"

	"github.com/metalagman/costplan/internal/history"
	"github.com/metalagman/costplan/internal/render"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func runsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect and prune the plan history",
	}
	cmd.AddCommand(runsListCmd(a))
	cmd.AddCommand(runsShowCmd(a))
	cmd.AddCommand(runsPruneCmd(a))
	return cmd
}

func runsListCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closeFn, err := a.openHistory(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			records, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), render.Runs(records))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "show at most N runs (0 for all)")
	return cmd
}

func runsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a recorded run with its plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeFn, err := a.openHistory(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			rec, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), render.Run(rec))
			return nil
		},
	}
}

func runsPruneCmd(a *app) *cobra.Command {
	var (
		keepLast int
		keepDays int
		dryRun   bool
	)
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old runs from the history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			policy := history.RetentionPolicy{KeepLast: keepLast, KeepDays: keepDays}
			if policy.KeepLast <= 0 && policy.KeepDays <= 0 {
				policy = history.RetentionPolicy{
					KeepLast: a.cfg.History.KeepLast,
					KeepDays: a.cfg.History.KeepDays,
				}
			}
			if policy.KeepLast <= 0 && policy.KeepDays <= 0 {
				return fmt.Errorf("set --keep-last or --keep-days (or configure history retention in %s)", defaultConfigPath)
			}

			store, closeFn, err := a.openHistoryLocked(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer closeFn()
			res, err := store.Prune(cmd.Context(), policy, dryRun)
			if err != nil {
				return err
			}
			mode := "deleted"
			if dryRun {
				mode = "would delete"
			}
			log.Info().Msgf("%s %d runs (kept %d)", mode, res.Deleted, res.Kept)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d of %d runs\n", mode, res.Deleted, res.Considered)
			return nil
		},
	}
	cmd.Flags().IntVar(&keepLast, "keep-last", 0, "keep the newest N runs")
	cmd.Flags().IntVar(&keepDays, "keep-days", 0, "keep runs newer than N days")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be pruned without deleting")
	return cmd
}
