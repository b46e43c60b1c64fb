package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/nemspd/config"
	"github.com/kilianp07/nemspd/core/casefile"
	"github.com/kilianp07/nemspd/core/dispatch"
	"github.com/kilianp07/nemspd/infra/logger"
	"github.com/kilianp07/nemspd/infra/metrics"
	"github.com/kilianp07/nemspd/infra/store"
)

var batchWorkers int

var batchCmd = &cobra.Command{
	Use:   "batch [directory]",
	Short: "Solve every case file in a directory",
	Args:  cobra.ExactArgs(1),
	RunE:  solveBatch,
}

func init() {
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 4, "concurrent solves")
	rootCmd.AddCommand(batchCmd)
}

func solveBatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if batchWorkers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}

	logg := logger.New("batch-command")
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

	entries, err := os.ReadDir(args[0])
	if err != nil {
		return fmt.Errorf("read case dir: %w", err)
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(batchWorkers)
	solved := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		solved++
		path := filepath.Join(args[0], entry.Name())
		g.Go(func() error {
			cf, err := casefile.Load(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			sol, err := engine.Solve(ctx, cf, casefile.RunModeTarget)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			rec := store.RunRecord{
				Time:         time.Now(),
				RunID:        sol.RunID,
				CaseID:       sol.CaseID,
				Intervention: sol.Intervention,
				Mode:         string(casefile.RunModeTarget),
				Solution:     sol,
			}
			if err := st.Append(ctx, rec); err != nil {
				logg.Errorf("store run %s: %v", sol.RunID, err)
			}
			logg.Infof("case %s objective %.2f violation %.3f MW", sol.CaseID, sol.Objective, sol.ViolationMW)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if solved == 0 {
		return fmt.Errorf("no case files in %s", args[0])
	}
	fmt.Fprintf(cmd.OutOrStdout(), "solved %d cases\n", solved)
	return nil
}
