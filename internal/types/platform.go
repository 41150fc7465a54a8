package types

import (
	"time"

	"github.com/google/uuid"
)

type Platform struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null;column:name" json:"name"`
	BaseURL   string    `gorm:"not null;column:base_url" json:"base_url"`
	IsActive  bool      `gorm:"not null;default:true;index;column:is_active" json:"is_active"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Platform) TableName() string {
	return "platform"
}
