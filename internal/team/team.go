package team

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Team struct {
	ID           string    `gorm:"primaryKey;type:uuid" json:"id"`
	DepartmentID string    `gorm:"type:uuid;not null;index" json:"department_id"`
	Name         string    `gorm:"not null" json:"name"`
	Description  *string   `json:"description"`
	LeadUserID   *string   `gorm:"type:uuid" json:"lead_user_id"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Team) TableName() string {
	return "teams"
}

func (t *Team) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// TeamMember links a user to a team with a free-text role such as
// "tech lead". One row per (team, user).
type TeamMember struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	TeamID    string    `gorm:"type:uuid;not null;index:idx_team_user,unique" json:"team_id"`
	UserID    string    `gorm:"type:uuid;not null;index:idx_team_user,unique" json:"user_id"`
	Role      string    `json:"role"`
	JoinedAt  time.Time `json:"joined_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (TeamMember) TableName() string {
	return "team_members"
}

func (m *TeamMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now()
	}
	return nil
}
