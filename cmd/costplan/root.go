package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/metalagman/costplan/internal/config"
	"github.com/metalagman/costplan/internal/db"
	"github.com/metalagman/costplan/internal/logging"
	"github.com/spf13/cobra"
)

var defaultConfigPath = filepath.Join(".costplan", "config.json")

// app holds the global flags and the loaded configuration.
type app struct {
	cfgFile string
	dbPath  string
	debug   bool
	cfg     config.Config
}

// Execute runs the root command. An interrupt stops a running search after
// the node being expanded.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "costplan",
		Short:         "costplan finds the action sequence with the best cost/benefit ratio",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			logging.Init(a.debug)
			cfg, err := config.Load(a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", defaultConfigPath, "config file path")
	cmd.PersistentFlags().StringVar(&a.dbPath, "db", db.DefaultPath, "plan history database path")
	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")
	_ = cmd.PersistentFlags().MarkHidden("db")

	cmd.AddCommand(planCmd(a))
	cmd.AddCommand(explainCmd(a))
	cmd.AddCommand(validateCmd(a))
	cmd.AddCommand(runsCmd(a))
	return cmd
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
}
