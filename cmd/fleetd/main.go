// Command fleetd runs the fleet management core: it seeds the demo
// fleet, keeps it alive with the background simulator, and exposes the
// aggregated statistics through subcommands and an optional prometheus
// endpoint.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fleetcore/internal/config"
	"fleetcore/internal/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "fleetd",
		Short:         "Fleet management core for agricultural machines",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file")

	root.AddCommand(newRunCmd(&cfgPath))
	root.AddCommand(newStatsCmd(&cfgPath))
	root.AddCommand(newMachinesCmd())
	root.AddCommand(newCustomersCmd())
	return root
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	zcfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

// seedFleet builds the default store, service and stats engine over the
// demo dataset.
func seedFleet(ctx context.Context, logger *zap.Logger, opts ...core.ServiceOption) (*core.Service, *core.StatsEngine, error) {
	store := core.NewMemoryStore(core.NewDefaultRulesEngine())
	if err := core.SeedDemoFleet(ctx, store); err != nil {
		return nil, nil, fmt.Errorf("seed demo fleet: %w", err)
	}
	opts = append([]core.ServiceOption{core.WithLogger(logger)}, opts...)
	return core.NewService(store, opts...), core.NewStatsEngine(store), nil
}

func newRunCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the simulated fleet and log the dashboard rollup",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Log)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			metrics, err := core.NewPromMetricsRecorder(nil)
			if err != nil {
				return err
			}
			svc, stats, err := seedFleet(ctx, logger, core.WithMetrics(metrics))
			if err != nil {
				return err
			}
			if err := prometheus.DefaultRegisterer.Register(core.NewFleetCollector(stats)); err != nil {
				return err
			}

			if cfg.Metrics.Addr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.Handler())
				srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
				go func() {
					logger.Info("metrics listener started", zap.String("addr", cfg.Metrics.Addr))
					if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						logger.Error("metrics listener failed", zap.Error(err))
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			if cfg.Simulator.Enabled {
				sim := core.NewSimulator(svc.Store(), core.SimulatorConfig{
					Interval:        cfg.Simulator.Interval,
					FlipProbability: cfg.Simulator.FlipProbability,
					AnomalyChance:   cfg.Simulator.AnomalyChance,
					Seed:            cfg.Simulator.Seed,
				}, logger)
				go sim.Run(ctx)
				logger.Info("simulator started", zap.Duration("interval", cfg.Simulator.Interval))
			}

			sub := svc.Store().SubscribeMachines(func(machines []core.Machine) {
				logger.Debug("machine snapshot published", zap.Int("machines", len(machines)))
			})
			defer sub.Unsubscribe()

			ticker := time.NewTicker(cfg.Dashboard.Interval)
			defer ticker.Stop()
			logDashboard(logger, stats)
			for {
				select {
				case <-ctx.Done():
					logger.Info("shutting down")
					return nil
				case <-ticker.C:
					logDashboard(logger, stats)
				}
			}
		},
	}
}

func logDashboard(logger *zap.Logger, stats *core.StatsEngine) {
	s := stats.DashboardStats()
	logger.Info("dashboard rollup",
		zap.Int("machines", s.TotalMachines),
		zap.Int("running", s.RunningMachines),
		zap.Int("stopped", s.StoppedMachines),
		zap.Int("maintenance", s.MaintenanceMachines),
		zap.Int("anomalies", s.MachinesWithAnomalies),
		zap.Int("customers", s.TotalCustomers),
		zap.Float64("hours", s.TotalOperationHours),
		zap.Int("avg_efficiency", s.AverageEfficiency),
	)
}

func newStatsCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the aggregated fleet statistics as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Log)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			_, stats, err := seedFleet(cmd.Context(), logger)
			if err != nil {
				return err
			}
			out := map[string]any{
				"dashboard":       stats.DashboardStats(),
				"status":          stats.StatusBreakdown(),
				"critical":        stats.CriticalMachines(),
				"top_performing":  stats.TopPerformingMachines(),
				"customer_totals": stats.CustomerRollups(),
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}

func newMachinesCmd() *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "machines",
		Short: "List the seeded machines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, _, err := seedFleet(cmd.Context(), zap.NewNop())
			if err != nil {
				return err
			}
			for _, m := range svc.SearchMachines(search) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%-30s\t%-25s\t%-12s\t%7.1fh\tanomalies=%t\n",
					m.ID, m.Name, m.CustomerName, m.Status, m.TotalOperationHours, m.HasAnomalies)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "filter by machine or customer name")
	return cmd
}

func newCustomersCmd() *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "customers",
		Short: "List the seeded customers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, _, err := seedFleet(cmd.Context(), zap.NewNop())
			if err != nil {
				return err
			}
			for _, c := range svc.SearchCustomers(search) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%-32s\t%s\t%s\n", c.ID, c.Name, c.VATNumber, c.Email)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "filter by customer name or VAT number")
	return cmd
}
