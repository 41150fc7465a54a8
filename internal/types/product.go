package types

import (
	"time"

	"github.com/google/uuid"
)

// Product is the canonical, deduplicated item. NormalizedName is the identity
// resolution key; listings from different platforms hang off one product.
type Product struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name           string    `gorm:"not null;index;column:name" json:"name"`
	NormalizedName string    `gorm:"uniqueIndex;not null;column:normalized_name" json:"-"`
	Brand          string    `gorm:"column:brand;index" json:"brand,omitempty"`
	Category       string    `gorm:"column:category;index" json:"category,omitempty"`
	Description    string    `gorm:"column:description" json:"description,omitempty"`
	ImageURL       string    `gorm:"column:image_url" json:"image_url,omitempty"`
	SearchCount    int       `gorm:"not null;default:0;index;column:search_count" json:"search_count"`
	CreatedAt      time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`

	Listings []*ProductListing `gorm:"foreignKey:ProductID" json:"listings,omitempty"`
}

func (Product) TableName() string {
	return "product"
}
