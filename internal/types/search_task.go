package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	SearchKindText  = "text"
	SearchKindImage = "image"

	TaskStatusPending    = "pending"
	TaskStatusProcessing = "processing"
	TaskStatusCompleted  = "completed"
	TaskStatusFailed     = "failed"
)

// SearchTask tracks one search request through identification, fan-out and
// completion. Terminal statuses (completed, failed) never transition out.
type SearchTask struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"task_id"`
	Kind           string         `gorm:"not null;index;column:kind" json:"kind"` // text|image
	Query          string         `gorm:"not null;column:query" json:"query"`
	Status         string         `gorm:"not null;index;column:status" json:"status"` // pending|processing|completed|failed
	CompletedCount int            `gorm:"not null;default:0;column:completed_count" json:"completed_count"`
	TotalCount     int            `gorm:"not null;default:0;column:total_count" json:"total_count"`
	Message        string         `gorm:"column:message" json:"message,omitempty"`
	Error          string         `gorm:"column:error" json:"error,omitempty"`
	SearchInfo     datatypes.JSON `gorm:"type:jsonb;column:search_info" json:"search_info,omitempty"`
	PlatformRuns   datatypes.JSON `gorm:"type:jsonb;column:platform_runs" json:"platform_runs,omitempty"`
	ProductIDs     datatypes.JSON `gorm:"type:jsonb;column:product_ids" json:"-"`
	StartedAt      *time.Time     `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt    *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
}

func (SearchTask) TableName() string {
	return "search_task"
}

func (t *SearchTask) Terminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}

// PlatformRun is one adapter's outcome inside a task, stored under
// SearchTask.PlatformRuns keyed by platform name.
type PlatformRun struct {
	Status       string `json:"status"` // completed|failed
	ResultsCount int    `json:"results_count"`
	Error        string `json:"error,omitempty"`
}

// SearchInfo carries what the identification service extracted from an image.
type SearchInfo struct {
	ProductName string  `json:"product_name"`
	Brand       string  `json:"brand,omitempty"`
	Category    string  `json:"category,omitempty"`
	Confidence  float64 `json:"confidence"`
	LowMatch    bool    `json:"low_confidence,omitempty"`
}
