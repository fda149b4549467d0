package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/neox5/statbox/internal/app"
	"github.com/neox5/statbox/internal/config"
	"github.com/neox5/statbox/internal/stats"
	"github.com/neox5/statbox/internal/version"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:    "statbox",
		Usage:   "Buffer process stats and publish them to a metrics backend",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.yaml",
				Usage:   "path to configuration file",
			},
			&cli.StringFlag{
				Name:  "process-type",
				Usage: "override stats.process_type from the configuration file",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Action: serve,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	logLevel := slog.LevelInfo
	if cmd.Bool("debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	slog.Info("starting statbox", "version", version.String(), "config", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if pt := cmd.String("process-type"); pt != "" {
		if strings.ContainsAny(pt, " \t\n") {
			return fmt.Errorf("process type %q cannot contain whitespace", pt)
		}
		cfg.Stats.ProcessType = pt
	}

	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(shutdownCtx, cfg)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	stats.SetDefault(application.Stats)

	slog.Info("stats backend selected",
		"backend", cfg.Stats.Backend,
		"process_type", cfg.Stats.ProcessType,
	)

	if err := application.Run(shutdownCtx); err != nil {
		return err
	}

	slog.Info("shutdown complete")
	return nil
}
