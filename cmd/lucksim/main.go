// Command lucksim runs one luck-vs-talent lifetime simulation and records
// its per-tick inequality metrics.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	flag "github.com/spf13/pflag"

	"github.com/talgya/luck-talent/internal/api"
	"github.com/talgya/luck-talent/internal/config"
	"github.com/talgya/luck-talent/internal/engine"
	"github.com/talgya/luck-talent/internal/persistence"
)

type options struct {
	configPath string
	dbPath     string
	exportPath string
	apiPort    int
	interval   time.Duration
	logLevel   string
}

func main() {
	cfg := config.Default()
	var opts options

	fs := flag.NewFlagSet("lucksim", flag.ExitOnError)
	fs.StringVar(&opts.configPath, "config", "", "YAML run configuration")
	fs.StringVar(&opts.dbPath, "db", "data/lucksim.db", "SQLite database for recorded runs (empty disables)")
	fs.StringVar(&opts.exportPath, "export", "", "write per-tick snapshots as zstd-compressed JSONL")
	fs.IntVar(&opts.apiPort, "api-port", 0, "serve the read-only HTTP API on this port (0 disables)")
	fs.DurationVar(&opts.interval, "interval", 0, "wall-clock time per tick")
	fs.StringVar(&opts.logLevel, "log-level", "info", "debug, info, warn or error")

	fs.IntVar(&cfg.Height, "height", cfg.Height, "grid height")
	fs.IntVar(&cfg.Width, "width", cfg.Width, "grid width")
	fs.IntVar(&cfg.NActors, "n-actors", cfg.NActors, "number of persons")
	fs.IntVar(&cfg.NEvents, "n-events", cfg.NEvents, "number of events")
	fs.Float64Var(&cfg.PropLucky, "prop-lucky", cfg.PropLucky, "fraction of events that are lucky")
	fs.Float64Var(&cfg.MeanTalent, "mean-talent", cfg.MeanTalent, "mean of the talent distribution")
	fs.Float64Var(&cfg.SDTalent, "sd-talent", cfg.SDTalent, "standard deviation of talent")
	fs.Float64Var(&cfg.MeanStartCapital, "mean-start-capital", cfg.MeanStartCapital, "mean starting capital")
	fs.Float64Var(&cfg.SDStartCapital, "sd-start-capital", cfg.SDStartCapital, "standard deviation of starting capital")
	seed := fs.Int64("seed", 0, "random seed (drawn at random when unset)")
	fs.Parse(os.Args[1:])

	level, err := log.ParseLevel(opts.logLevel)
	if err != nil {
		level = log.InfoLevel
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: true,
	})
	slog.SetDefault(slog.New(logger))

	// File values sit between defaults and explicit flags.
	if opts.configPath != "" {
		fileCfg, err := config.Load(opts.configPath)
		if err != nil {
			slog.Error("failed to load config", "path", opts.configPath, "error", err)
			os.Exit(1)
		}
		cfg = mergeFlags(fs, fileCfg, cfg)
	}
	if fs.Changed("seed") {
		cfg.Seed = seed
	}

	if err := run(cfg, opts); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

// mergeFlags copies every explicitly set flag from flagged onto base.
func mergeFlags(fs *flag.FlagSet, base, flagged config.Config) config.Config {
	set := map[string]func(){
		"height":             func() { base.Height = flagged.Height },
		"width":              func() { base.Width = flagged.Width },
		"n-actors":           func() { base.NActors = flagged.NActors },
		"n-events":           func() { base.NEvents = flagged.NEvents },
		"prop-lucky":         func() { base.PropLucky = flagged.PropLucky },
		"mean-talent":        func() { base.MeanTalent = flagged.MeanTalent },
		"sd-talent":          func() { base.SDTalent = flagged.SDTalent },
		"mean-start-capital": func() { base.MeanStartCapital = flagged.MeanStartCapital },
		"sd-start-capital":   func() { base.SDStartCapital = flagged.SDStartCapital },
	}
	for name, apply := range set {
		if fs.Changed(name) {
			apply()
		}
	}
	return base
}

func run(cfg config.Config, opts options) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	// ── Simulation ────────────────────────────────────────────────────
	sim, err := engine.Initialize(cfg)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	// ── Recorders ─────────────────────────────────────────────────────
	var reporters engine.MultiReporter
	var db *persistence.DB
	var runID string

	if opts.dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.dbPath), 0o755); err != nil {
			return err
		}
		db, err = persistence.Open(opts.dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		rec, err := db.NewRun(cfg, sim.Seed)
		if err != nil {
			return err
		}
		runID = rec.RunID()
		reporters = append(reporters, rec)
	}

	if opts.exportPath != "" {
		w, err := persistence.CreateJSONLZstd(opts.exportPath)
		if err != nil {
			return fmt.Errorf("create export: %w", err)
		}
		defer func() {
			if err := w.Close(); err != nil {
				slog.Error("export close failed", "error", err)
			}
		}()
		reporters = append(reporters, w)
	}

	eng := engine.NewEngine(sim, reporters)
	eng.Interval = opts.interval
	eng.OnTick = func(snap *engine.Snapshot) {
		if snap.Model.Gini == nil {
			return
		}
		slog.Debug("tick",
			"tick", snap.Tick,
			"time", engine.SimTime(snap.Years),
			"gini", fmt.Sprintf("%.4f", *snap.Model.Gini),
			"min", snap.Model.Min,
			"max", snap.Model.Max,
		)
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if opts.apiPort > 0 {
		srv := &api.Server{Eng: eng, DB: db, RunID: runID, Port: opts.apiPort}
		srv.Start()
	}

	// ── Start ─────────────────────────────────────────────────────────
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err = eng.Run(ctx)
	if errors.Is(err, context.Canceled) {
		slog.Warn("run interrupted", "tick", sim.Tick)
		err = nil
	}
	if err != nil {
		return err
	}

	printSummary(sim, eng.Latest(), runID)
	return nil
}

func printSummary(sim *engine.Simulation, snap *engine.Snapshot, runID string) {
	fmt.Printf("\nAfter %s years (%d ticks), seed %d:\n", humanize.Ftoa(snap.Years), snap.Tick, sim.Seed)
	if snap.Model.Gini != nil {
		fmt.Printf("  Gini coefficient: %.4f\n", *snap.Model.Gini)
	} else {
		fmt.Printf("  Gini coefficient: undefined (%v)\n", snap.MetricErr)
	}
	fmt.Printf("  Capital range:    %s .. %s\n",
		humanize.CommafWithDigits(snap.Model.Min, 2),
		humanize.CommafWithDigits(snap.Model.Max, 2),
	)

	top := append([]engine.PersonRecord(nil), snap.Persons...)
	sort.Slice(top, func(i, j int) bool { return top[i].Capital > top[j].Capital })
	if len(top) > 5 {
		top = top[:5]
	}
	fmt.Println("  Richest:")
	for _, p := range top {
		fmt.Printf("    #%-4d capital %-14s talent %.3f  lucky %d  unlucky %d\n",
			p.ID, humanize.CommafWithDigits(p.Capital, 2), p.Talent, p.Lucky, p.Unlucky)
	}
	if runID != "" {
		fmt.Printf("  Recorded as run %s\n", runID)
	}
}
