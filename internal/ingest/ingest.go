// Package ingest consumes one vendor's freshly collected batch and converges
// the catalog to a single current row per (title, vendor) key.
package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/callmeahab/pharma-search-sub001/internal/catalog"
	"github.com/callmeahab/pharma-search-sub001/internal/pricing"
	"github.com/callmeahab/pharma-search-sub001/pkg/config"
	"github.com/callmeahab/pharma-search-sub001/pkg/db/models"
	pkgerrors "github.com/callmeahab/pharma-search-sub001/pkg/errors"
	"github.com/callmeahab/pharma-search-sub001/pkg/logger"
	"github.com/callmeahab/pharma-search-sub001/pkg/retry"
	"github.com/callmeahab/pharma-search-sub001/pkg/types"
)

// Stats summarizes one vendor batch.
type Stats struct {
	Succeeded         int
	Failed            int
	DuplicatesRemoved int64
}

// Repository is the persistence surface the engine needs.
type Repository interface {
	catalog.VendorReader
	FindByTitleAndVendor(context.Context, string, uuid.UUID) ([]models.Product, error)
	CreateProduct(context.Context, *models.Product) error
	UpdateProduct(context.Context, *models.Product) error
	DeleteProductsByID(context.Context, []uuid.UUID) (int64, error)
}

// Engine upserts raw listings into the catalog, chunked to bound store load.
type Engine struct {
	repo   Repository
	logg   *logger.Logger
	policy retry.Policy
	cfg    config.IngestConfig
}

// NewEngine builds an ingestion engine.
func NewEngine(repo Repository, logg *logger.Logger, cfg config.IngestConfig) *Engine {
	return &Engine{
		repo:   repo,
		logg:   logg,
		policy: retry.Policy{MaxAttempts: cfg.RetryAttempts, BaseDelay: cfg.RetryBaseDelay},
		cfg:    cfg,
	}
}

// Ingest processes one vendor's batch. An unknown vendor name fails the whole
// batch, since every item shares that one vendor; per-item failures are
// counted and logged but never abort the remaining items.
//
// Re-ingestion is the normal operating mode: running the same batch twice
// converges to the same single row per (title, vendor) key.
func (e *Engine) Ingest(ctx context.Context, vendorName string, listings []types.RawListing) (Stats, error) {
	vendor, err := e.repo.FindVendorByName(ctx, vendorName)
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeNotFound {
			return Stats{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "source declares an unseeded vendor name").
				WithDetails(map[string]any{"vendor_name": vendorName})
		}
		return Stats{}, err
	}

	ctx = e.logg.WithVendor(ctx, vendor.Name)
	stats := Stats{}

	chunkSize := e.cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = len(listings)
	}

	for start := 0; start < len(listings); start += chunkSize {
		end := start + chunkSize
		if end > len(listings) {
			end = len(listings)
		}

		for _, listing := range listings[start:end] {
			removed, err := e.upsertOne(ctx, vendor.ID, listing)
			stats.DuplicatesRemoved += removed
			if err != nil {
				stats.Failed++
				e.logg.Error(e.logg.WithField(ctx, "title", listing.Title), "listing skipped", err)
				continue
			}
			stats.Succeeded++
		}

		// backpressure valve between chunks, not a correctness requirement
		if end < len(listings) && e.cfg.ChunkPause > 0 {
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			case <-time.After(e.cfg.ChunkPause):
			}
		}
	}

	return stats, nil
}

// upsertOne converges one (title, vendor) key: prune stale duplicates, then
// update the surviving row in place or insert the first one.
func (e *Engine) upsertOne(ctx context.Context, vendorID uuid.UUID, listing types.RawListing) (int64, error) {
	if listing.Title == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "listing has no title")
	}

	priceCents := pricing.ToCents(pricing.Parse(listing.PriceText))

	var removed int64
	err := e.policy.Do(ctx, func(ctx context.Context) error {
		existing, err := e.repo.FindByTitleAndVendor(ctx, listing.Title, vendorID)
		if err != nil {
			return err
		}

		// rows beyond the newest are duplicates accumulated by prior runs
		if len(existing) > 1 {
			stale := make([]uuid.UUID, 0, len(existing)-1)
			for _, row := range existing[1:] {
				stale = append(stale, row.ID)
			}
			n, err := e.repo.DeleteProductsByID(ctx, stale)
			if err != nil {
				return err
			}
			removed += n
			existing = existing[:1]
		}

		if len(existing) == 1 {
			current := existing[0]
			current.PriceCents = priceCents
			current.Category = listing.Category
			current.Link = listing.Link
			current.Thumbnail = listing.Thumbnail
			current.Photos = pq.StringArray(listing.Photos)
			return e.repo.UpdateProduct(ctx, &current)
		}

		return e.repo.CreateProduct(ctx, &models.Product{
			ID:         uuid.New(),
			VendorID:   vendorID,
			Title:      listing.Title,
			PriceCents: priceCents,
			Category:   listing.Category,
			Link:       listing.Link,
			Thumbnail:  listing.Thumbnail,
			Photos:     pq.StringArray(listing.Photos),
		})
	})
	return removed, err
}
