package types

import (
	"time"

	"github.com/google/uuid"
)

// ProductListing is one platform's current offer for a product. A listing is
// unique per (platform, url); re-scrapes update the row in place.
type ProductListing struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID       uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_listing_key,priority:1" json:"product_id"`
	PlatformID      uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_listing_key,priority:2" json:"platform_id"`
	PlatformName    string    `gorm:"not null;column:platform_name" json:"platform"`
	Title           string    `gorm:"not null;column:title" json:"title"`
	URL             string    `gorm:"not null;uniqueIndex:idx_listing_key,priority:3;column:url" json:"url"`
	ImageURL        string    `gorm:"column:image_url" json:"image_url,omitempty"`
	Price           float64   `gorm:"not null;index;column:price" json:"price"`
	Currency        string    `gorm:"not null;default:'USD';column:currency" json:"currency"`
	ShippingCost    *float64  `gorm:"column:shipping_cost" json:"shipping_cost,omitempty"`
	TotalPrice      float64   `gorm:"not null;column:total_price" json:"total_price"`
	Rating          *float64  `gorm:"column:rating" json:"rating,omitempty"`
	ReviewCount     *int      `gorm:"column:review_count" json:"review_count,omitempty"`
	Availability    bool      `gorm:"not null;default:true;index;column:availability" json:"availability"`
	SellerName      string    `gorm:"column:seller_name" json:"seller_name,omitempty"`
	ConfidenceScore *float64  `gorm:"column:confidence_score" json:"confidence_score,omitempty"`
	ScrapedAt       time.Time `gorm:"not null;index" json:"scraped_at"`
	UpdatedAt       time.Time `gorm:"not null" json:"updated_at"`
}

func (ProductListing) TableName() string {
	return "product_listing"
}

// ComputeTotalPrice keeps total_price = price + (shipping or 0).
func (l *ProductListing) ComputeTotalPrice() {
	total := l.Price
	if l.ShippingCost != nil {
		total += *l.ShippingCost
	}
	l.TotalPrice = total
}
