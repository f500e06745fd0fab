package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/callmeahab/pharma-search-sub001/internal/catalog"
	"github.com/callmeahab/pharma-search-sub001/pkg/db/models"
	"github.com/callmeahab/pharma-search-sub001/pkg/logger"
	"github.com/callmeahab/pharma-search-sub001/pkg/metrics"
)

// cleanupRepo is the catalog surface the cleanup jobs need.
type cleanupRepo interface {
	DeleteNonPositivePrices(ctx context.Context) (int64, error)
	DuplicateKeys(ctx context.Context) ([]catalog.ProductKey, error)
	FindByTitleAndVendor(ctx context.Context, title string, vendorID uuid.UUID) ([]models.Product, error)
	DeleteProductsByID(ctx context.Context, ids []uuid.UUID) (int64, error)
}

// ZeroPriceCleanupJob removes rows whose price parsed to the zero sentinel.
// Unparseable prices are not errors at ingest time; this is where they are
// finally handled.
type ZeroPriceCleanupJob struct {
	repo     cleanupRepo
	logg     *logger.Logger
	pipeline *metrics.PipelineMetrics
}

// NewZeroPriceCleanupJob builds the zero-price cleanup job.
func NewZeroPriceCleanupJob(repo cleanupRepo, logg *logger.Logger, pipeline *metrics.PipelineMetrics) (*ZeroPriceCleanupJob, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &ZeroPriceCleanupJob{repo: repo, logg: logg, pipeline: pipeline}, nil
}

func (j *ZeroPriceCleanupJob) Name() string { return "zero-price-cleanup" }

func (j *ZeroPriceCleanupJob) Run(ctx context.Context) error {
	removed, err := j.repo.DeleteNonPositivePrices(ctx)
	if err != nil {
		return fmt.Errorf("delete non-positive prices: %w", err)
	}
	j.pipeline.AddRowsDeleted(removed)
	j.logg.Info(j.logg.WithField(ctx, "removed", removed), "zero-price rows pruned")
	return nil
}

// DuplicateCleanupJob collapses every (title, vendor) key back to its single
// newest row. Ingestion self-heals keys it touches; this job catches keys no
// recent batch has revisited.
type DuplicateCleanupJob struct {
	repo     cleanupRepo
	logg     *logger.Logger
	pipeline *metrics.PipelineMetrics
}

// NewDuplicateCleanupJob builds the duplicate cleanup job.
func NewDuplicateCleanupJob(repo cleanupRepo, logg *logger.Logger, pipeline *metrics.PipelineMetrics) (*DuplicateCleanupJob, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &DuplicateCleanupJob{repo: repo, logg: logg, pipeline: pipeline}, nil
}

func (j *DuplicateCleanupJob) Name() string { return "duplicate-cleanup" }

func (j *DuplicateCleanupJob) Run(ctx context.Context) error {
	keys, err := j.repo.DuplicateKeys(ctx)
	if err != nil {
		return fmt.Errorf("list duplicate keys: %w", err)
	}

	// One broken key must not leave every other key duplicated, so errors
	// are collected instead of aborting the pass.
	var removed int64
	var errs error
	for _, key := range keys {
		rows, err := j.repo.FindByTitleAndVendor(ctx, key.Title, key.VendorID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("load rows for %q: %w", key.Title, err))
			continue
		}
		if len(rows) <= 1 {
			continue
		}
		stale := make([]uuid.UUID, 0, len(rows)-1)
		for _, row := range rows[1:] {
			stale = append(stale, row.ID)
		}
		n, err := j.repo.DeleteProductsByID(ctx, stale)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("delete duplicates for %q: %w", key.Title, err))
			continue
		}
		removed += n
	}

	j.pipeline.AddRowsDeleted(removed)
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"keys":    len(keys),
		"removed": removed,
	}), "duplicate rows collapsed")
	return errs
}
