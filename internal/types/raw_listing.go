package types

// RawListing is the standardized shape every platform scraper returns.
// Title and a positive Price are required; everything else is best effort.
type RawListing struct {
	Title           string   `json:"title"`
	URL             string   `json:"url"`
	ImageURL        string   `json:"image_url,omitempty"`
	Price           float64  `json:"price"`
	Currency        string   `json:"currency"`
	ShippingCost    *float64 `json:"shipping_cost,omitempty"`
	Rating          *float64 `json:"rating,omitempty"`
	ReviewCount     *int     `json:"review_count,omitempty"`
	Availability    bool     `json:"availability"`
	SellerName      string   `json:"seller_name,omitempty"`
	ConfidenceScore *float64 `json:"confidence_score,omitempty"`
}

// ProductInfo is what the identification service extracts from an image.
type ProductInfo struct {
	ProductName    string   `json:"product_name"`
	Brand          string   `json:"brand"`
	Category       string   `json:"category"`
	Features       []string `json:"features"`
	SearchKeywords []string `json:"search_keywords"`
	Confidence     float64  `json:"confidence"`
}
