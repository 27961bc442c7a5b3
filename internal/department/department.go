package department

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxHierarchyDepth bounds ancestor-chain walks. Reparenting past this
// depth is rejected.
const MaxHierarchyDepth = 32

type Department struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	OrganizationID string    `gorm:"type:uuid;not null;index" json:"organization_id"`
	Name           string    `gorm:"not null" json:"name"`
	Description    *string   `json:"description"`
	ParentID       *string   `gorm:"type:uuid;index" json:"parent_id"`
	HeadUserID     *string   `gorm:"type:uuid" json:"head_user_id"`
	Budget         *float64  `json:"budget"`
	IsActive       bool      `gorm:"default:true" json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Department) TableName() string {
	return "departments"
}

func (d *Department) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
