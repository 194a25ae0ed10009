package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"hire-scout/config"
	"hire-scout/ledger"
	"hire-scout/notify"
	"hire-scout/poller"
	"hire-scout/scheduler"
)

// Version is overwritten at build time using -ldflags.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "hire-scout",
		Short:         "Watch Reddit hiring posts and reach out to their authors",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPoller(cmd, false)
		},
	}
	cmd.PersistentFlags().String("config", "", "path to config file (default $HIRE_SCOUT_CONFIG or ./config.yaml)")

	cmd.AddCommand(newRunCmd(), newOnceCmd(), newReportCmd(), newLedgerCmd())
	return cmd
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll feeds until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPoller(cmd, false)
		},
	}
}

func newOnceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single poll cycle and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPoller(cmd, true)
		},
	}
}

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Send the ledger report now",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			l, err := openLedger(ctx, cfg)
			if err != nil {
				return err
			}
			defer l.Close()

			sender, err := buildNotifier(cfg)
			if err != nil {
				return err
			}
			// A fresh report has no earlier baseline, so deltas equal the totals.
			stats := l.Stats()
			return sender.Notify(ctx, notify.FormatReport(time.Now(), ledger.Stats{}, stats), true)
		},
	}
}

// loadConfig resolves the config path, loads it and installs the JSON logger
// writing to logOut.
func loadConfig(cmd *cobra.Command, logOut io.Writer) (*config.Config, error) {
	flagPath, _ := cmd.Flags().GetString("config")
	path := config.GetConfigPath(flagPath)

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	slog.Info("config loaded", "path", path)
	return cfg, nil
}

func runPoller(cmd *cobra.Command, once bool) error {
	cfg, err := loadConfig(cmd, os.Stdout)
	if err != nil {
		return err
	}
	slog.Info("starting hire-scout", "version", Version, "feeds", cfg.Feeds, "dispatch_mode", cfg.DispatchMode)

	// Set up context for graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	l, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer l.Close()

	sender, err := buildNotifier(cfg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	runner, err := buildRunner(cfg, l, sender, poller.MustNewMetrics(reg))
	if err != nil {
		return err
	}

	if once {
		stats, err := runner.RunCycle(ctx)
		slog.Info("single cycle finished", "delivered", stats.Delivered, "rejected", stats.Rejected)
		return err
	}

	if cfg.MetricsAddr != "" {
		go serveMetrics(ctx, cfg.MetricsAddr, reg)
	}

	sched, err := scheduler.NewScheduler(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	report := notify.NewDailyReport(l, sender)
	if err := sched.Daily("ledger-report", cfg.ReportTime, func(jobCtx context.Context) {
		if err := report.Send(jobCtx, time.Now()); err != nil {
			slog.Error("daily report failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule report: %w", err)
	}
	sched.Start()
	defer sched.Stop()
	if next, ok := sched.Next("ledger-report"); ok {
		slog.Info("report scheduled", "time", cfg.ReportTime, "timezone", cfg.Timezone, "next", next)
	}

	err = runner.Run(ctx)
	slog.Info("hire-scout stopped", "messaged", l.Stats().Messaged, "no_chat", l.Stats().NoChat)
	return err
}
