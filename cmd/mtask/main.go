// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command mtask runs canned workloads on the mtask scheduler.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"code.hybscloud.com/mtask"
	"code.hybscloud.com/mtask/internal/config"
	"code.hybscloud.com/mtask/internal/scenario"
	mtaskprom "code.hybscloud.com/mtask/prometheus"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "mtask",
		Usage:   "fiber-based M:N task scheduler workloads",
		Version: version,
		Commands: []*cli.Command{
			runCommand(),
			scenariosCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run a scenario",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "configuration file (YAML/JSON)",
			},
			&cli.StringFlag{
				Name:    "scenario",
				Aliases: []string{"s"},
				Usage:   "scenario name, see 'mtask scenarios'",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "worker count (default GOMAXPROCS)",
			},
			&cli.IntFlag{
				Name:  "fiber-pool",
				Usage: "fiber pool size",
			},
			&cli.IntFlag{
				Name:  "repeat",
				Usage: "number of runs",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "per-run timeout",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "serve Prometheus metrics on this address, e.g. :2112",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "trace, debug, info, notice, warning or error",
			},
		},
		Action: runAction,
	}
}

func scenariosCommand() *cli.Command {
	return &cli.Command{
		Name:  "scenarios",
		Usage: "List available scenarios",
		Action: func(c *cli.Context) error {
			for _, s := range scenario.All() {
				fmt.Fprintf(c.App.Writer, "  %-8s %s\n", s.Name, s.Description)
			}
			return nil
		},
	}
}

// loadConfig merges the config file, if any, with command line flags.
// Flags win.
func loadConfig(c *cli.Context) (*config.FileConfig, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}
	if c.IsSet("scenario") {
		cfg.Run.Scenario = c.String("scenario")
	}
	if c.IsSet("workers") {
		cfg.Scheduler.Workers = c.Int("workers")
	}
	if c.IsSet("fiber-pool") {
		cfg.Scheduler.FiberPoolSize = c.Int("fiber-pool")
	}
	if c.IsSet("repeat") {
		cfg.Run.Repeat = c.Int("repeat")
	}
	if c.IsSet("timeout") {
		cfg.Run.Timeout = c.Duration("timeout").String()
	}
	if c.IsSet("metrics-addr") {
		cfg.Run.MetricsAddr = c.String("metrics-addr")
	}
	if c.IsSet("log-level") {
		cfg.Scheduler.LogLevel = c.String("log-level")
	}
	return &cfg, nil
}

func runAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to load config: %v", err), 1)
	}
	sc, err := scenario.Lookup(cfg.Run.Scenario)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	level, err := cfg.Level()
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	timeout, err := cfg.Timeout()
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(os.Stderr)),
		stumpy.L.WithLevel(level),
	).Logger()

	reg := prom.NewRegistry()
	exporter, err := mtaskprom.NewMetricsExporter("mtask", reg, mtaskprom.ExporterOptions{})
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to register metrics: %v", err), 1)
	}
	opts, err := cfg.Options(logger, exporter)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	var srv *http.Server
	if cfg.Run.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv = &http.Server{Addr: cfg.Run.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			logger.Info().Str("addr", srv.Addr).Log("serving metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		if srv != nil {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
		}
		return runScenario(ctx, logger, cfg, sc, timeout, opts)
	})

	if err := g.Wait(); err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}
	return nil
}

func runScenario(
	ctx context.Context,
	logger *logiface.Logger[logiface.Event],
	cfg *config.FileConfig,
	sc scenario.Scenario,
	timeout time.Duration,
	opts []mtask.Option,
) error {
	repeat := max(cfg.Run.Repeat, 1)
	for i := range repeat {
		m, err := mtask.New(cfg.Scheduler.Workers, cfg.Scheduler.FiberPoolSize, nil, opts...)
		if err != nil {
			return err
		}
		runCtx, cancel := ctx, context.CancelFunc(func() {})
		if timeout > 0 {
			runCtx, cancel = context.WithTimeout(ctx, timeout)
		}
		res, err := sc.Run(runCtx, m)
		cancel()
		m.Shutdown()
		if err != nil {
			return err
		}
		logger.Info().
			Str("scenario", res.Scenario).
			Int("run", i+1).
			Int64("tasks", res.Tasks).
			Dur("elapsed", res.Elapsed).
			Bool("complete", res.Complete).
			Log("scenario finished")
		fmt.Printf("✓ %s run %d/%d: %d tasks in %s (complete=%v)\n",
			res.Scenario, i+1, repeat, res.Tasks, res.Elapsed, res.Complete)
	}
	return nil
}
