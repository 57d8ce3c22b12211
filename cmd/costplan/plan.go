package main

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/metalagman/costplan/internal/config"
	"github.com/metalagman/costplan/internal/history"
	"github.com/metalagman/costplan/internal/kb"
	"github.com/metalagman/costplan/internal/render"
	"github.com/metalagman/costplan/internal/search"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// recordTimeout bounds waiting for the history lock after the search.
const recordTimeout = 30 * time.Second

// searchFlags override the search section of the config.
type searchFlags struct {
	targets   []string
	workers   int
	heuristic string
	maxSteps  int
	timeout   time.Duration
}

func (f *searchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.targets, "target", nil, "plan only for these target ids (default all)")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "parallel expansion workers")
	cmd.Flags().StringVar(&f.heuristic, "heuristic", "", "heuristic: switching, transitive or divided")
	cmd.Flags().IntVar(&f.maxSteps, "max-steps", 0, "abort after this many expanded nodes")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "abort after this long")
}

// apply copies the flags set on cmd into cfg.
func (f *searchFlags) apply(cmd *cobra.Command, cfg config.Search) config.Search {
	if cmd.Flags().Changed("workers") {
		cfg.Workers = f.workers
	}
	if cmd.Flags().Changed("heuristic") {
		cfg.Heuristic = f.heuristic
	}
	if cmd.Flags().Changed("max-steps") {
		cfg.MaxSteps = f.maxSteps
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = f.timeout
	}
	return cfg
}

// planning is a finished search together with its inputs.
type planning struct {
	astar     *search.AStar
	result    search.Result
	heuristic string
}

func searchOptions(cfg config.Search, costs kb.CostFunction) search.Options {
	opts := search.DefaultOptions()
	opts.Heuristic = search.Kind(cfg.Heuristic)
	opts.SwitchThreshold = cfg.SwitchThreshold
	opts.PruneThreshold = cfg.PruneThreshold
	opts.Workers = cfg.Workers
	opts.Costs = costs

	var strategies []search.Abort
	if cfg.MaxSteps > 0 {
		strategies = append(strategies, &search.StepBudget{Max: cfg.MaxSteps, Factor: cfg.StepFactor})
	}
	if cfg.Timeout > 0 {
		strategies = append(strategies, search.NewDeadline(cfg.Timeout))
	}
	opts.Abort = search.AnyOf(strategies...)
	return opts
}

// selectGoals returns the targets of the document, restricted to ids if any
// are given.
func selectGoals(targets []kb.TargetDoc, ids []string) ([]search.Goal, error) {
	for _, id := range ids {
		if !slices.ContainsFunc(targets, func(t kb.TargetDoc) bool { return t.ID == id }) {
			return nil, fmt.Errorf("unknown target %q", id)
		}
	}
	var goals []search.Goal
	for _, t := range targets {
		if len(ids) > 0 && !slices.Contains(ids, t.ID) {
			continue
		}
		goals = append(goals, search.Goal{ID: t.ID, Actions: t.Actions, Benefit: t.Benefit})
	}
	return goals, nil
}

func runSearch(ctx context.Context, kbPath string, cfg config.Search, targetIDs []string) (planning, error) {
	doc, err := kb.Load(kbPath)
	if err != nil {
		return planning{}, err
	}
	bundle, err := doc.Build()
	if err != nil {
		return planning{}, err
	}
	goals, err := selectGoals(bundle.Targets, targetIDs)
	if err != nil {
		return planning{}, err
	}
	planner, err := search.NewPlanner(bundle.KB, searchOptions(cfg, bundle.Costs))
	if err != nil {
		return planning{}, err
	}
	a, r, err := planner.Search(ctx, bundle.State, goals)
	if err != nil {
		return planning{}, err
	}
	return planning{astar: a, result: r, heuristic: fmt.Sprint(planner.Heuristic())}, nil
}

func planCmd(a *app) *cobra.Command {
	var (
		flags      searchFlags
		metricsOut string
		noHistory  bool
	)
	cmd := &cobra.Command{
		Use:   "plan <kb.yaml>",
		Short: "Find the plan with the lowest cost/benefit ratio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := flags.apply(cmd, a.cfg.Search)
			p, err := runSearch(ctx, args[0], cfg, flags.targets)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), render.Plan(p.result, p.astar.Model().Ledger))

			if a.cfg.History.Enabled && !noHistory {
				// An interrupted search is still recorded.
				recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
				defer cancel()
				if err := a.record(recordCtx, args[0], p); err != nil {
					return err
				}
			}
			if metricsOut != "" {
				if err := search.WriteMetrics(metricsOut); err != nil {
					return err
				}
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&metricsOut, "metrics-out", "", "write prometheus metrics to this file")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record the run")
	return cmd
}

func (a *app) record(ctx context.Context, kbPath string, p planning) error {
	store, closeFn, err := a.openHistoryLocked(ctx, true)
	if err != nil {
		return err
	}
	defer closeFn()
	id, err := store.Record(ctx, history.FromResult(kbPath, p.heuristic, p.result))
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	log.Info().Str("run_id", id).Msg("run recorded")
	return nil
}
