package types

import (
	"time"

	"github.com/google/uuid"
)

// SearchHistory is an append-only audit row, one per completed task.
type SearchHistory struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Query        string    `gorm:"not null;column:query" json:"query"`
	SearchKind   string    `gorm:"not null;index;column:search_kind" json:"search_kind"` // text|image
	ResultsCount int       `gorm:"not null;default:0;column:results_count" json:"results_count"`
	IPAddress    string    `gorm:"column:ip_address" json:"ip_address,omitempty"`
	UserAgent    string    `gorm:"column:user_agent" json:"user_agent,omitempty"`
	CreatedAt    time.Time `gorm:"not null;index" json:"created_at"`
}

func (SearchHistory) TableName() string {
	return "search_history"
}
