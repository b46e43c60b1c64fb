package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/nemspd/config"
	"github.com/kilianp07/nemspd/core/casefile"
	"github.com/kilianp07/nemspd/core/dispatch"
	"github.com/kilianp07/nemspd/infra/logger"
	"github.com/kilianp07/nemspd/infra/metrics"
	"github.com/kilianp07/nemspd/infra/store"
)

var (
	solveModeFlag string
	solveOutPath  string
)

var solveCmd = &cobra.Command{
	Use:   "solve [case file]",
	Short: "Solve a single case file",
	Args:  cobra.ExactArgs(1),
	RunE:  solveCase,
}

func init() {
	solveCmd.Flags().StringVar(&solveModeFlag, "mode", "target", "run mode: target or pricing")
	solveCmd.Flags().StringVarP(&solveOutPath, "out", "o", "", "write the solution JSON to this file instead of stdout")
	rootCmd.AddCommand(solveCmd)
}

func solveCase(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	mode := casefile.RunMode(solveModeFlag)
	if mode != casefile.RunModeTarget && mode != casefile.RunModePricing {
		return fmt.Errorf("unknown run mode %q", solveModeFlag)
	}

	logg := logger.New("solve-command")
	sink, err := metrics.Build(cfg.Metrics)
	if err != nil {
		return err
	}
	st, err := store.Build(cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logg.Errorf("store close: %v", err)
		}
	}()
	engine, err := dispatch.New(cfg.Solver, logg, sink)
	if err != nil {
		return err
	}

	cf, err := casefile.Load(args[0])
	if err != nil {
		return fmt.Errorf("load case: %w", err)
	}
	sol, err := engine.Solve(ctx, cf, mode)
	if err != nil {
		return err
	}
	rec := store.RunRecord{
		Time:         time.Now(),
		RunID:        sol.RunID,
		CaseID:       sol.CaseID,
		Intervention: sol.Intervention,
		Mode:         string(mode),
		Solution:     sol,
	}
	if err := st.Append(ctx, rec); err != nil {
		logg.Errorf("store run %s: %v", sol.RunID, err)
	}

	b, err := json.MarshalIndent(sol, "", "  ")
	if err != nil {
		return err
	}
	if solveOutPath != "" {
		return os.WriteFile(solveOutPath, b, 0o644)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return nil
}
