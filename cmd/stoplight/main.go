// Program stoplight simulates vehicles queuing at a traffic light.
//
// Usage:
//
//	stoplight [--config path-or-url] [--duration 30s] [--vehicles 5] [--journal path]
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/creachadair/stoplight"
	"github.com/creachadair/stoplight/internal/config"
	"github.com/creachadair/stoplight/internal/intersection"
	"github.com/creachadair/stoplight/internal/journal"
)

var Version = "dev"

type CLI struct {
	Config    string        `help:"config file path or URL" short:"c"`
	Debug     bool          `help:"debug mode" short:"d"`
	LogFormat string        `help:"log output format" enum:"text,json" default:"text"`
	Duration  time.Duration `help:"how long to run (0 runs until interrupted)" default:"0s"`
	Vehicles  int           `help:"number of vehicles (overrides config)" default:"-1"`
	Journal   string        `help:"SQLite journal path (overrides config)"`

	Version kong.VersionFlag `help:"print version and exit"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cli CLI
	kong.Parse(&cli,
		kong.Name("stoplight"),
		kong.Description("Simulate vehicles waiting at a traffic light."),
		kong.Vars{"version": Version},
	)
	logger := newLogger(&cli)
	slog.SetDefault(logger)

	if err := run(ctx, &cli, logger); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func newLogger(cli *CLI) *slog.Logger {
	level := slog.LevelInfo
	if cli.Debug {
		level = slog.LevelDebug
	}
	if cli.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	h := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Level:           log.InfoLevel,
	})
	if cli.Debug {
		h.SetLevel(log.DebugLevel)
	}
	return slog.New(h)
}

func run(ctx context.Context, cli *CLI, logger *slog.Logger) error {
	cfg, err := config.Load(ctx, cli.Config)
	if err != nil {
		return err
	}
	if cli.Vehicles >= 0 {
		cfg.Vehicles.Count = cli.Vehicles
	}
	if cli.Journal != "" {
		cfg.Journal = cli.Journal
	}
	if cli.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cli.Duration)
		defer cancel()
	}

	icfg := intersection.Config{
		Vehicles:   cfg.Vehicles.Count,
		MinArrival: cfg.Vehicles.MinArrival,
		MaxArrival: cfg.Vehicles.MaxArrival,
		Logger:     logger,
	}
	if cfg.Journal != "" {
		j, err := journal.Open(cfg.Journal)
		if err != nil {
			return err
		}
		defer j.Close()
		icfg.Recorder = j
		logger.Debug("recording journal", slog.String("path", cfg.Journal))
	}

	opts := &stoplight.Options{
		MinInterval: cfg.Cycle.MinInterval,
		MaxInterval: cfg.Cycle.MaxInterval,
		Tick:        cfg.Cycle.Tick,
		Logger:      logger.With(slog.String("component", "cycler")),
	}
	if cfg.Cycle.Seed != 0 {
		opts.Rand = rand.New(rand.NewPCG(cfg.Cycle.Seed, cfg.Cycle.Seed))
	}
	light := stoplight.New(opts)
	light.Start(ctx)
	defer light.Stop()

	logger.Info("simulation started",
		slog.String("version", Version),
		slog.Int("vehicles", icfg.Vehicles),
		slog.String("phase", light.Phase().String()),
	)
	stats, err := intersection.Run(ctx, light, icfg)
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}
	logger.Info("simulation finished",
		slog.Int("transitions", stats.Transitions),
		slog.Int("crossings", stats.Crossings),
		slog.Duration("max_wait", stats.MaxWait),
	)
	return nil
}
