package main

import (
	"context"
	"os"
	"os/signal"
	"sync"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/callmeahab/pharma-search-sub001/internal/catalog"
	"github.com/callmeahab/pharma-search-sub001/internal/ingest"
	"github.com/callmeahab/pharma-search-sub001/internal/scrape"
	"github.com/callmeahab/pharma-search-sub001/pkg/config"
	"github.com/callmeahab/pharma-search-sub001/pkg/db"
	"github.com/callmeahab/pharma-search-sub001/pkg/logger"
	"github.com/callmeahab/pharma-search-sub001/pkg/metrics"
	"github.com/callmeahab/pharma-search-sub001/pkg/migrate"
	"github.com/callmeahab/pharma-search-sub001/pkg/redis"
	"github.com/callmeahab/pharma-search-sub001/pkg/types"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "scrape-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "scrape-worker"

	logg = logger.New(logger.Options{
		ServiceName: "scrape-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runID := uuid.NewString()
	ctx = logg.WithRunID(ctx, runID)
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	lockKey := redisClient.LockKey("scrape-run")
	acquired, err := redisClient.SetNX(ctx, lockKey, runID, cfg.Scrape.RunLockTTL)
	if err != nil {
		logg.Error(ctx, "failed to check the run lock", err)
		os.Exit(1)
	}
	if !acquired {
		logg.Info(ctx, "another scrape run is in progress; exiting")
		return
	}
	defer func() {
		if err := redisClient.Del(context.Background(), lockKey); err != nil {
			logg.Error(ctx, "failed to release the run lock", err)
		}
	}()

	sources, err := scrape.LoadSources(cfg.Scrape.SourcesFile, cfg.Scrape)
	if err != nil {
		logg.Error(ctx, "failed to load the sources file", err)
		os.Exit(1)
	}

	pipelineMetrics := metrics.NewPipelineMetrics(prometheus.DefaultRegisterer)
	engine := ingest.NewEngine(catalog.NewRepository(dbClient.DB()), logg, cfg.Ingest)

	var ingestMu sync.Mutex
	collect := func(ctx context.Context, source scrape.Source, listings []types.RawListing) {
		// Serialized so concurrent sources never interleave dedup passes
		// over the same vendor's rows.
		ingestMu.Lock()
		defer ingestMu.Unlock()

		stats, err := engine.Ingest(ctx, source.VendorName(), listings)
		pipelineMetrics.AddItemsScraped(source.VendorName(), int64(stats.Succeeded))
		pipelineMetrics.AddItemFailures(source.VendorName(), int64(stats.Failed))
		if err != nil {
			logg.Error(logg.WithSource(ctx, source.Name()), "ingestion failed", err)
		}
	}

	logg.Info(logg.WithField(ctx, "sources", len(sources)), "starting scrape run")

	runner := scrape.NewRunner(cfg.Scrape, logg, pipelineMetrics)
	report := runner.Run(ctx, sources, collect)

	ctx = logg.WithFields(ctx, map[string]any{
		"sources_succeeded": len(report.Succeeded()),
		"sources_failed":    len(report.Failed()),
		"items":             report.TotalItems(),
		"duration_ms":       report.Duration.Milliseconds(),
	})
	for _, failed := range report.Failed() {
		failedCtx := logg.WithFields(ctx, map[string]any{
			"source":   failed.Source,
			"attempts": failed.Attempts,
		})
		logg.Error(failedCtx, "source failed after retry", failed.Err)
	}

	if len(report.Succeeded()) == 0 && len(sources) > 0 {
		logg.Error(ctx, "scrape run produced nothing", nil)
		os.Exit(1)
	}
	logg.Info(ctx, "scrape run complete")
}
