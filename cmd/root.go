package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/erdispatch/app"
	"github.com/kilianp07/erdispatch/config"
	coremon "github.com/kilianp07/erdispatch/core/monitoring"
	"github.com/kilianp07/erdispatch/infra/logger"
	inframon "github.com/kilianp07/erdispatch/infra/monitoring"
	"github.com/kilianp07/erdispatch/infra/tracing"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:          "erdispatch",
	Short:        "Emergency vehicle dispatch engine",
	RunE:         run,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the dispatch service and its autonomous loop",
	RunE:  run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.AddCommand(runCmd)
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// setup loads the configuration and installs error monitoring and tracing.
// The returned cleanup flushes both.
func setup(ctx context.Context) (*config.Config, func(), error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	mon, err := inframon.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, nil, err
	}
	coremon.Init(mon)
	shutdown, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		coremon.Init(nil)
		return nil, nil, fmt.Errorf("tracing: %w", err)
	}
	cleanup := func() {
		tracing.ShutdownWithTimeout(context.Background(), shutdown)
		mon.Flush(2 * time.Second)
		coremon.Init(nil)
	}
	return cfg, cleanup, nil
}

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	svc, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return svc.Run(ctx)
}
