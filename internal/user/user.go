package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Status string

const (
	StatusPendingActivation Status = "pending_activation"
	StatusActive            Status = "active"
	StatusInactive          Status = "inactive"
)

// User is an account. Accounts are never hard-deleted; deactivation
// flips Status to inactive.
type User struct {
	ID                       string     `gorm:"primaryKey;type:uuid" json:"id"`
	Email                    string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash             *string    `json:"-"`
	FirstName                string     `gorm:"not null" json:"first_name"`
	LastName                 string     `gorm:"not null" json:"last_name"`
	Phone                    *string    `json:"phone"`
	Language                 string     `gorm:"default:en" json:"language"`
	Timezone                 string     `gorm:"default:UTC" json:"timezone"`
	AvatarURL                *string    `json:"avatar_url"`
	Status                   Status     `gorm:"not null;default:pending_activation" json:"status"`
	ActivationToken          *string    `gorm:"index" json:"-"`
	ActivationTokenExpiresAt *time.Time `json:"-"`
	DepartmentID             *string    `gorm:"type:uuid" json:"department_id"`
	LastLoginAt              *time.Time `json:"last_login_at"`
	ActivatedAt              *time.Time `json:"activated_at"`
	CreatedAt                time.Time  `json:"created_at"`
	UpdatedAt                time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = NormalizeEmail(u.Email)
	return nil
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// ActivationTokenValid reports whether the stored token matches and has
// not passed its expiry.
func (u *User) ActivationTokenValid(token string, now time.Time) bool {
	if u.ActivationToken == nil || *u.ActivationToken != token {
		return false
	}
	if u.ActivationTokenExpiresAt != nil && now.After(*u.ActivationTokenExpiresAt) {
		return false
	}
	return true
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
