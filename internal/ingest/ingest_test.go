package ingest

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/callmeahab/pharma-search-sub001/internal/catalog"
	"github.com/callmeahab/pharma-search-sub001/pkg/config"
	"github.com/callmeahab/pharma-search-sub001/pkg/db/models"
	pkgerrors "github.com/callmeahab/pharma-search-sub001/pkg/errors"
	"github.com/callmeahab/pharma-search-sub001/pkg/logger"
	"github.com/callmeahab/pharma-search-sub001/pkg/types"
)

func setupIngestTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	vendors := `
CREATE TABLE IF NOT EXISTS vendors (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  website TEXT,
  logo TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  vendor_id TEXT NOT NULL,
  title TEXT NOT NULL,
  price_cents INTEGER NOT NULL DEFAULT 0,
  category TEXT,
  link TEXT,
  thumbnail TEXT,
  photos TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(vendors).Error)
	require.NoError(t, db.Exec(products).Error)
	return db
}

func testEngine(t *testing.T, db *gorm.DB) *Engine {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "ingest-test", Output: io.Discard})
	cfg := config.IngestConfig{ChunkSize: 2, RetryAttempts: 1}
	return NewEngine(catalog.NewRepository(db), logg, cfg)
}

func mustSeedVendor(t *testing.T, db *gorm.DB, name string) *models.Vendor {
	t.Helper()
	vendor := &models.Vendor{ID: uuid.New(), Name: name}
	require.NoError(t, db.Create(vendor).Error)
	return vendor
}

func TestIngestUnknownVendorFailsWholeBatch(t *testing.T) {
	db := setupIngestTestDB(t)
	engine := testEngine(t, db)

	_, err := engine.Ingest(context.Background(), "Nepostojeca Apoteka", []types.RawListing{
		{Title: "Vitamin C 500 mg", PriceText: "499,00"},
	})

	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestIngestInsertsAndParsesPrices(t *testing.T) {
	db := setupIngestTestDB(t)
	engine := testEngine(t, db)
	vendor := mustSeedVendor(t, db, "Apoteka Online")

	stats, err := engine.Ingest(context.Background(), vendor.Name, []types.RawListing{
		{Title: "Vitamin D3 2000 IU", PriceText: "1.299,00", Category: "vitamini"},
		{Title: "Omega 3 1000 mg", PriceText: "2,450.50"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Succeeded)
	assert.Equal(t, 0, stats.Failed)

	var row models.Product
	require.NoError(t, db.First(&row, "title = ?", "Vitamin D3 2000 IU").Error)
	assert.Equal(t, int64(129900), row.PriceCents)
	assert.Equal(t, vendor.ID, row.VendorID)
	assert.Equal(t, "vitamini", row.Category)

	require.NoError(t, db.First(&row, "title = ?", "Omega 3 1000 mg").Error)
	assert.Equal(t, int64(245050), row.PriceCents)
}

func TestIngestIsIdempotent(t *testing.T) {
	db := setupIngestTestDB(t)
	engine := testEngine(t, db)
	vendor := mustSeedVendor(t, db, "Apoteka Online")

	batch := []types.RawListing{
		{Title: "Vitamin D3 2000 IU", PriceText: "1.299,00"},
		{Title: "Magnezijum 375 mg", PriceText: "899,00"},
	}

	for i := 0; i < 2; i++ {
		stats, err := engine.Ingest(context.Background(), vendor.Name, batch)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.Succeeded)
	}

	var count int64
	require.NoError(t, db.Model(&models.Product{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestIngestUpdatesExistingRowInPlace(t *testing.T) {
	db := setupIngestTestDB(t)
	engine := testEngine(t, db)
	vendor := mustSeedVendor(t, db, "Apoteka Online")

	_, err := engine.Ingest(context.Background(), vendor.Name, []types.RawListing{
		{Title: "Vitamin D3 2000 IU", PriceText: "1.299,00"},
	})
	require.NoError(t, err)

	var before models.Product
	require.NoError(t, db.First(&before, "title = ?", "Vitamin D3 2000 IU").Error)

	_, err = engine.Ingest(context.Background(), vendor.Name, []types.RawListing{
		{Title: "Vitamin D3 2000 IU", PriceText: "1.199,00", Category: "akcija"},
	})
	require.NoError(t, err)

	var after models.Product
	require.NoError(t, db.First(&after, "title = ?", "Vitamin D3 2000 IU").Error)
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, int64(119900), after.PriceCents)
	assert.Equal(t, "akcija", after.Category)
}

func TestIngestCollapsesAccumulatedDuplicates(t *testing.T) {
	db := setupIngestTestDB(t)
	engine := testEngine(t, db)
	vendor := mustSeedVendor(t, db, "Apoteka Online")

	base := time.Now().UTC().Add(-time.Hour)
	var newest uuid.UUID
	for i := 0; i < 3; i++ {
		row := &models.Product{
			ID:         uuid.New(),
			VendorID:   vendor.ID,
			Title:      "Vitamin C 1000 mg",
			PriceCents: int64(10000 + i),
		}
		require.NoError(t, db.Create(row).Error)
		updated := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, db.Model(row).UpdateColumn("updated_at", updated).Error)
		newest = row.ID
	}

	stats, err := engine.Ingest(context.Background(), vendor.Name, []types.RawListing{
		{Title: "Vitamin C 1000 mg", PriceText: "959,00"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Succeeded)
	assert.Equal(t, int64(2), stats.DuplicatesRemoved)

	var rows []models.Product
	require.NoError(t, db.Find(&rows, "title = ?", "Vitamin C 1000 mg").Error)
	require.Len(t, rows, 1)
	assert.Equal(t, newest, rows[0].ID)
	assert.Equal(t, int64(95900), rows[0].PriceCents)
}

func TestIngestCountsPerItemFailuresWithoutAborting(t *testing.T) {
	db := setupIngestTestDB(t)
	engine := testEngine(t, db)
	vendor := mustSeedVendor(t, db, "Apoteka Online")

	stats, err := engine.Ingest(context.Background(), vendor.Name, []types.RawListing{
		{Title: "", PriceText: "499,00"},
		{Title: "Probiotik 10 kapsula", PriceText: "1.099,00"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Succeeded)

	var count int64
	require.NoError(t, db.Model(&models.Product{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestIngestUnparseablePriceStoresZeroSentinel(t *testing.T) {
	db := setupIngestTestDB(t)
	engine := testEngine(t, db)
	vendor := mustSeedVendor(t, db, "Apoteka Online")

	stats, err := engine.Ingest(context.Background(), vendor.Name, []types.RawListing{
		{Title: "Nepoznata cena", PriceText: "po dogovoru"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Succeeded)

	var row models.Product
	require.NoError(t, db.First(&row, "title = ?", "Nepoznata cena").Error)
	assert.Equal(t, int64(0), row.PriceCents)
}
