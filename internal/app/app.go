package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neox5/statbox/internal/config"
	"github.com/neox5/statbox/internal/ingest"
	"github.com/neox5/statbox/internal/monitor"
	"github.com/neox5/statbox/internal/stats"
	"golang.org/x/sync/errgroup"
)

// App holds initialized application components.
type App struct {
	Config  *config.Config
	Stats   stats.Stats
	Ingest  *ingest.Server
	Monitor *monitor.Monitor
}

// New initializes the application from a validated configuration.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	s, err := stats.New(ctx, &cfg.Stats)
	if err != nil {
		return nil, fmt.Errorf("failed to create stats backend: %w", err)
	}

	a := &App{
		Config: cfg,
		Stats:  s,
	}

	if cfg.Ingest.Enabled {
		a.Ingest = ingest.New(cfg.Ingest.Address, cfg.Ingest.MaxPacketSize, s)
	}

	if cfg.Monitor.Enabled {
		a.Monitor, err = monitor.New(cfg.Monitor.Interval, slog.Default(), s)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to create monitor: %w", err)
		}
	}

	return a, nil
}

// Run starts every component and blocks until ctx is cancelled or one of
// them fails. The stats backend is closed before Run returns.
func (a *App) Run(ctx context.Context) error {
	defer func() {
		if err := a.Stats.Close(); err != nil {
			slog.Warn("failed to close stats backend", "error", err)
		}
	}()

	g, ctx := errgroup.WithContext(ctx)

	if r, ok := a.Stats.(stats.Runner); ok {
		g.Go(func() error {
			if err := r.Start(ctx); err != nil {
				return fmt.Errorf("stats backend: %w", err)
			}
			return nil
		})
	}

	if a.Ingest != nil {
		g.Go(func() error {
			if err := a.Ingest.Start(ctx); err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			return nil
		})
	}

	if a.Monitor != nil {
		g.Go(func() error {
			return a.Monitor.Start(ctx)
		})
	}

	return g.Wait()
}
