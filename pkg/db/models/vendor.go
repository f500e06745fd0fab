package models

import (
	"time"

	"github.com/google/uuid"
)

// Vendor is a retail source the catalog collects from. Rows are maintained by
// the seeding process; the pipeline only ever reads them.
type Vendor struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string    `gorm:"column:name;not null;uniqueIndex" json:"name"`
	Website   string    `gorm:"column:website" json:"website"`
	Logo      string    `gorm:"column:logo" json:"logo"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Vendor) TableName() string {
	return "vendors"
}
