package types

import (
	"time"

	"github.com/google/uuid"
)

// PriceHistory points are append-only; a point is written only when a
// re-scrape observes a different price than the current listing price.
type PriceHistory struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ListingID  uuid.UUID `gorm:"type:uuid;not null;index;column:listing_id" json:"listing_id"`
	Price      float64   `gorm:"not null;column:price" json:"price"`
	RecordedAt time.Time `gorm:"not null;index" json:"recorded_at"`
}

func (PriceHistory) TableName() string {
	return "price_history"
}
