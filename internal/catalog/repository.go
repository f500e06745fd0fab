package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/callmeahab/pharma-search-sub001/pkg/db/models"
	pkgerrors "github.com/callmeahab/pharma-search-sub001/pkg/errors"
)

// VendorReader resolves vendor rows; the seeding process owns writes.
type VendorReader interface {
	FindVendorByName(context.Context, string) (*models.Vendor, error)
	ListVendors(context.Context) ([]models.Vendor, error)
}

// ProductStore defines the persistence surface used by ingestion, search and cleanup.
type ProductStore interface {
	FindByTitleAndVendor(context.Context, string, uuid.UUID) ([]models.Product, error)
	CreateProduct(context.Context, *models.Product) error
	UpdateProduct(context.Context, *models.Product) error
	DeleteProductsByID(context.Context, []uuid.UUID) (int64, error)
	SearchByTitle(context.Context, string, int) ([]models.Product, error)
	TopCandidates(context.Context, int) ([]models.Product, error)
	DeleteNonPositivePrices(context.Context) (int64, error)
	DuplicateKeys(context.Context) ([]ProductKey, error)
	CountProducts(context.Context) (int64, error)
}

// ProductKey identifies one logical catalog row.
type ProductKey struct {
	Title    string
	VendorID uuid.UUID
}

// Repository wires vendor and product persistence over one GORM handle.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindVendorByName resolves a vendor by its exact declared name.
func (r *Repository) FindVendorByName(ctx context.Context, name string) (*models.Vendor, error) {
	var vendor models.Vendor
	err := r.db.WithContext(ctx).First(&vendor, "name = ?", name).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found").WithDetails(map[string]any{"name": name})
		}
		return nil, err
	}
	return &vendor, nil
}

// ListVendors returns every seeded vendor.
func (r *Repository) ListVendors(ctx context.Context) ([]models.Vendor, error) {
	var vendors []models.Vendor
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&vendors).Error; err != nil {
		return nil, err
	}
	return vendors, nil
}

// FindByTitleAndVendor returns every row for one logical key, newest first.
// More than one element means prior runs accumulated duplicates.
func (r *Repository) FindByTitleAndVendor(ctx context.Context, title string, vendorID uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("title = ? AND vendor_id = ?", title, vendorID).
		Order("updated_at DESC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// CreateProduct inserts a new catalog row.
func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// UpdateProduct rewrites the mutable listing fields in place.
func (r *Repository) UpdateProduct(ctx context.Context, product *models.Product) error {
	product.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", product.ID).
		Updates(map[string]any{
			"price_cents": product.PriceCents,
			"category":    product.Category,
			"link":        product.Link,
			"thumbnail":   product.Thumbnail,
			"photos":      product.Photos,
			"updated_at":  product.UpdatedAt,
		}).Error
}

// DeleteProductsByID removes the given rows and reports how many were deleted.
func (r *Repository) DeleteProductsByID(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Product{})
	return result.RowsAffected, result.Error
}

// SearchByTitle returns candidate rows whose title contains the query,
// case-insensitively, with vendors preloaded for grouping.
func (r *Repository) SearchByTitle(ctx context.Context, query string, limit int) ([]models.Product, error) {
	var products []models.Product
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	err := r.db.WithContext(ctx).
		Preload("Vendor").
		Where("LOWER(title) LIKE ?", pattern).
		Order("title ASC").
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// TopCandidates returns the most recently refreshed slice of the catalog,
// used to derive the featured groups.
func (r *Repository) TopCandidates(ctx context.Context, limit int) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Preload("Vendor").
		Where("price_cents > 0").
		Order("updated_at DESC").
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// DeleteNonPositivePrices prunes rows whose price parsed to the zero sentinel.
func (r *Repository) DeleteNonPositivePrices(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Where("price_cents <= 0").Delete(&models.Product{})
	return result.RowsAffected, result.Error
}

// DuplicateKeys lists every (title, vendor) key that currently has more than one row.
func (r *Repository) DuplicateKeys(ctx context.Context) ([]ProductKey, error) {
	var keys []ProductKey
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Select("title", "vendor_id").
		Group("title, vendor_id").
		Having("COUNT(*) > 1").
		Scan(&keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// CountProducts returns the total catalog size.
func (r *Repository) CountProducts(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Count(&count).Error
	return count, err
}
