// Package app wires the dispatch engine to its infrastructure: metric
// sinks, the run store, the result publisher and the spool loop.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kilianp07/nemspd/config"
	"github.com/kilianp07/nemspd/core/casefile"
	"github.com/kilianp07/nemspd/core/dispatch"
	"github.com/kilianp07/nemspd/infra/logger"
	"github.com/kilianp07/nemspd/infra/metrics"
	"github.com/kilianp07/nemspd/infra/mqtt"
	"github.com/kilianp07/nemspd/infra/store"
)

// Service watches the spool directory and solves incoming case files.
type Service struct {
	cfg    *config.Config
	engine *dispatch.Engine
	store  store.RunStore
	pub    mqtt.Publisher
	log    logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	sink, err := metrics.Build(cfg.Metrics)
	if err != nil {
		return nil, err
	}
	st, err := store.Build(cfg.Store)
	if err != nil {
		return nil, err
	}
	pub, err := mqtt.Build(cfg.Publisher)
	if err != nil {
		return nil, err
	}
	engine, err := dispatch.New(cfg.Solver, logg, sink)
	if err != nil {
		return nil, err
	}
	return &Service{cfg: cfg, engine: engine, store: st, pub: pub, log: logg}, nil
}

// Run starts the spool loop and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.cfg.Spool.Dir == "" {
		return fmt.Errorf("spool dir not configured")
	}
	for _, dir := range []string{s.cfg.Spool.Dir, s.cfg.Spool.ProcessedDir, s.cfg.Spool.FailedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	s.log.Infof("watching %s every %ds", s.cfg.Spool.Dir, s.cfg.Spool.PollIntervalSeconds)
	ticker := time.NewTicker(time.Duration(s.cfg.Spool.PollIntervalSeconds) * time.Second)
	defer ticker.Stop()
	for {
		s.sweep(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// sweep solves every case file currently in the spool directory. Solved
// cases move to the processed directory, failing ones to the failed
// directory so they do not wedge the loop.
func (s *Service) sweep(ctx context.Context) {
	entries, err := os.ReadDir(s.cfg.Spool.Dir)
	if err != nil {
		s.log.Errorf("read spool dir: %v", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		path := filepath.Join(s.cfg.Spool.Dir, entry.Name())
		if err := s.Process(ctx, path); err != nil {
			s.log.Errorf("case %s failed: %v", entry.Name(), err)
			s.move(path, s.cfg.Spool.FailedDir)
			continue
		}
		s.move(path, s.cfg.Spool.ProcessedDir)
	}
}

// Process solves a single case file, persists the run and publishes the
// results. Store and publish failures are logged only: the case solved,
// so it must not be retried.
func (s *Service) Process(ctx context.Context, path string) error {
	cf, err := casefile.Load(path)
	if err != nil {
		return fmt.Errorf("load case: %w", err)
	}
	mode := casefile.RunModeTarget
	sol, err := s.engine.Solve(ctx, cf, mode)
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
	if err := s.store.Append(ctx, rec); err != nil {
		s.log.Errorf("store run %s: %v", sol.RunID, err)
	}
	if err := s.pub.PublishSolution(sol); err != nil {
		s.log.Errorf("publish run %s: %v", sol.RunID, err)
	}
	return nil
}

func (s *Service) move(path, dir string) {
	dst := filepath.Join(dir, filepath.Base(path))
	if err := os.Rename(path, dst); err != nil {
		s.log.Errorf("move %s: %v", path, err)
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.pub.Disconnect()
	return s.store.Close()
}
