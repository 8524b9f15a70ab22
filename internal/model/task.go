package model

import (
	"time"

	"github.com/google/uuid"
)

type Task struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;index"`
	Title         string    `gorm:"not null"`
	Description   string    `gorm:"not null"`
	DueDate       time.Time `gorm:"not null;index"`
	Priority      Priority  `gorm:"type:varchar(10);not null;default:'medium'"`
	AISuggestions string    `gorm:"column:ai_suggestions"`
	IsGenerating  bool      `gorm:"not null;default:false"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// IsExpanded is UI state only, it is never written to the store.
	IsExpanded bool `gorm:"-"`
}
