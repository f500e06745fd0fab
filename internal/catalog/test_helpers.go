package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/callmeahab/pharma-search-sub001/pkg/db/models"
)

func openCatalogTestDB(t *testing.T) *gorm.DB {
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

func mustCreateVendor(t *testing.T, db *gorm.DB, name string) *models.Vendor {
	t.Helper()
	vendor := &models.Vendor{ID: uuid.New(), Name: name}
	require.NoError(t, db.Create(vendor).Error)
	return vendor
}

func mustCreateProduct(t *testing.T, db *gorm.DB, vendorID uuid.UUID, title string, priceCents int64) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:         uuid.New(),
		VendorID:   vendorID,
		Title:      title,
		PriceCents: priceCents,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}
