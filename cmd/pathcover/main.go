// Command pathcover runs one coverage-guided path sampling run against a
// piping network database.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flowgrid/pathcover/pkg/cache"
	"github.com/flowgrid/pathcover/pkg/config"
	"github.com/flowgrid/pathcover/pkg/coverage"
	"github.com/flowgrid/pathcover/pkg/logging"
	"github.com/flowgrid/pathcover/pkg/metrics"
	"github.com/flowgrid/pathcover/pkg/network"
	"github.com/flowgrid/pathcover/pkg/sampling"
	"github.com/flowgrid/pathcover/pkg/store"
	"github.com/flowgrid/pathcover/pkg/validation"
)

func main() {
	configPath := flag.String("config", "pathcover.yaml", "Run configuration file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "pathcover: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logging.NewJSONLogger(os.Stdout, cfg.Logging.ParsedLevel())
	met := metrics.Default()

	runTag := fmt.Sprintf("%s_random_%s", time.Now().Format("20060102"), cfg.Run.Tag)
	log.Info("starting run", logging.String("run_tag", runTag))

	if cfg.Metrics.ListenAddr != "" {
		go serveMetrics(cfg.Metrics.ListenAddr, met, log)
	}

	classifier := network.NewClassifier(cfg.Validation.EquipmentLogicalCodes, cfg.Validation.PoCCodes)

	st, err := store.NewStore(ctx, cfg.Database.URL,
		store.WithLogger(log),
		store.WithMetrics(met),
		store.WithClassifier(classifier),
	)
	if err != nil {
		return fmt.Errorf("connect store: %w", err)
	}
	defer st.Close()

	builder, err := universeBuilder(ctx, cfg, st, log, met)
	if err != nil {
		return err
	}

	filter := cfg.Scope.Filter()
	timer := logging.StartTimer(log, "universe built", logging.Component("main"))
	universe, err := builder.Build(ctx, filter)
	if err != nil {
		timer.EndError(err)
		return fmt.Errorf("build universe: %w", err)
	}
	timer.End()
	log.Info("scope materialized",
		logging.Int("nodes", universe.NodeCount()),
		logging.Int("links", universe.LinkCount()))

	equipment, err := st.FetchEquipment(ctx, filter)
	if err != nil {
		return fmt.Errorf("fetch equipment: %w", err)
	}
	equipmentIDs := make([]int64, len(equipment))
	for i, eq := range equipment {
		equipmentIDs[i] = eq.ID
	}
	pocs, err := st.FetchPoCs(ctx, equipmentIDs)
	if err != nil {
		return fmt.Errorf("fetch pocs: %w", err)
	}

	table := validation.EmptyTransitionTable()
	if cfg.Validation.TransitionTable != "" {
		table, err = validation.LoadTransitionTable(cfg.Validation.TransitionTable)
		if err != nil {
			return fmt.Errorf("load transition table: %w", err)
		}
	}

	tracker := coverage.NewTracker(universe)
	validator := validation.NewValidator(table, validation.Config{
		PoCMismatchSeverity: cfg.Validation.Severity(),
	})
	sampler := sampling.NewPairSampler(
		sampling.NewSamplingUniverse(equipment, pocs),
		tracker,
		cfg.Sampling.Bias(),
		time.Now().UnixNano(),
		log,
	)

	orch := sampling.NewOrchestrator(sampling.Config{
		Tag:            runTag,
		TargetCoverage: cfg.Run.TargetCoverage,
		MaxAttempts:    int64(cfg.Run.MaxAttempts),
		Bias:           cfg.Sampling.Bias(),
		Plateau:        cfg.Sampling.Plateau(),
	}, sampler, st, validator, tracker, st, log, met)

	summary, err := orch.Run(ctx)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	log.Info("run complete",
		logging.RunID(summary.RunID),
		logging.String("status", summary.Status.String()),
		logging.String("reason", string(summary.Reason)),
		logging.Coverage(summary.CombinedPct),
		logging.Float64("node_coverage", summary.NodePct),
		logging.Float64("link_coverage", summary.LinkPct),
		logging.Int64("attempts", summary.TotalAttempts),
		logging.Int64("found", summary.Found),
		logging.Int64("no_improvement", summary.FoundNoImprovement),
		logging.Int64("not_found", summary.NotFound),
		logging.Int("unique_paths", summary.UniquePaths),
		logging.Float64("success_rate", summary.SuccessRate()),
		logging.Duration("elapsed", summary.Duration()))
	return nil
}

// universeBuilder wraps the store in the configured cache backend.
func universeBuilder(ctx context.Context, cfg *config.Config, st *store.Store, log logging.Logger, met *metrics.Registry) (network.Builder, error) {
	switch cfg.Cache.Backend {
	case "", "none":
		return st, nil
	case "memory":
		entries := cfg.Cache.MaxEntries
		if entries == 0 {
			entries = 8
		}
		return cache.NewCachingBuilder(st, cache.NewMemoryStore(entries), "memory", log, met), nil
	case "disk":
		disk, err := cache.NewDiskStore(cfg.Cache.Dir, cache.DiskOptions{
			TTL:        cfg.Cache.TTL.Std(),
			MaxEntries: cfg.Cache.MaxEntries,
			MaxBytes:   cfg.Cache.MaxBytes,
			Metrics:    met,
		})
		if err != nil {
			return nil, fmt.Errorf("open disk cache: %w", err)
		}
		return cache.NewCachingBuilder(st, disk, "disk", log, met), nil
	case "s3":
		s3store, err := cache.NewS3Store(ctx, cfg.Cache.Bucket, cfg.Cache.Prefix)
		if err != nil {
			return nil, fmt.Errorf("open s3 cache: %w", err)
		}
		return cache.NewCachingBuilder(st, s3store, "s3", log, met), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

func serveMetrics(addr string, met *metrics.Registry, log logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(met.GetPrometheusRegistry(), promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("metrics listener stopped", logging.Error(err))
	}
}
