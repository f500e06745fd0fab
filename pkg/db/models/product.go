package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Product is the canonical catalog row: the single current listing for one
// title at one vendor. Prices are stored in minor units (para) so comparisons
// never touch floating point.
type Product struct {
	ID         uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	VendorID   uuid.UUID      `gorm:"column:vendor_id;type:uuid;not null;index:idx_products_title_vendor,priority:2" json:"vendor_id"`
	Title      string         `gorm:"column:title;not null;index:idx_products_title_vendor,priority:1" json:"title"`
	PriceCents int64          `gorm:"column:price_cents;not null" json:"price_cents"`
	Category   string         `gorm:"column:category" json:"category"`
	Link       string         `gorm:"column:link" json:"link"`
	Thumbnail  string         `gorm:"column:thumbnail" json:"thumbnail"`
	Photos     pq.StringArray `gorm:"column:photos;type:text[]" json:"photos"`
	Vendor     *Vendor        `gorm:"foreignKey:VendorID" json:"vendor,omitempty"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}
