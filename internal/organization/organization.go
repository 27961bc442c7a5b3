package organization

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/evomaxseipio/evotrack-backend/internal"
	"github.com/evomaxseipio/evotrack-backend/internal/user"
)

type Organization struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Slug      string    `gorm:"uniqueIndex;not null" json:"slug"`
	TaxID     *string   `gorm:"uniqueIndex" json:"tax_id"`
	Timezone  string    `gorm:"default:UTC" json:"timezone"`
	Currency  string    `gorm:"default:USD" json:"currency"`
	LogoURL   *string   `json:"logo_url"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Organization) TableName() string {
	return "organizations"
}

func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// Membership ties a user to an organization with a role. Removal
// deactivates the row instead of deleting it.
type Membership struct {
	ID             string        `gorm:"primaryKey;type:uuid" json:"id"`
	UserID         string        `gorm:"type:uuid;not null;index:idx_user_org,unique" json:"user_id"`
	OrganizationID string        `gorm:"type:uuid;not null;index:idx_user_org,unique" json:"organization_id"`
	Role           internal.Role `gorm:"not null" json:"role"`
	IsActive       bool          `gorm:"default:true" json:"is_active"`
	JoinedAt       time.Time     `json:"joined_at"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func (Membership) TableName() string {
	return "user_organizations"
}

func (m *Membership) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now()
	}
	return nil
}

type InvitationStatus string

const (
	InvitationPending   InvitationStatus = "pending"
	InvitationAccepted  InvitationStatus = "accepted"
	InvitationExpired   InvitationStatus = "expired"
	InvitationCancelled InvitationStatus = "cancelled"
)

// Invitation is a single-use, role-carrying invite to one email
// address. The token is only usable while the status is pending.
type Invitation struct {
	ID             string           `gorm:"primaryKey;type:uuid" json:"id"`
	OrganizationID string           `gorm:"type:uuid;not null;index" json:"organization_id"`
	Email          string           `gorm:"not null;index" json:"email"`
	Role           internal.Role    `gorm:"not null" json:"role"`
	Token          string           `gorm:"uniqueIndex;not null" json:"-"`
	Status         InvitationStatus `gorm:"not null;default:pending" json:"status"`
	InvitedBy      string           `gorm:"type:uuid" json:"invited_by"`
	ExpiresAt      time.Time        `json:"expires_at"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

func (Invitation) TableName() string {
	return "invitations"
}

func (i *Invitation) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Token == "" {
		i.Token = uuid.NewString()
	}
	i.Email = user.NormalizeEmail(i.Email)
	return nil
}

func (i *Invitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// UserDirectory is the slice of the user module the organization flows
// need.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
}

var slugNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// DeriveSlug turns a display name into a URL slug: "Acme Corp" becomes
// "acme-corp".
func DeriveSlug(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugNonAlnum.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// UniqueSlug appends a numeric suffix until taken reports the slug as
// free.
func UniqueSlug(ctx context.Context, base string, taken func(ctx context.Context, slug string) (bool, error)) (string, error) {
	if base == "" {
		base = "organization"
	}

	slug := base
	for i := 2; ; i++ {
		inUse, err := taken(ctx, slug)
		if err != nil {
			return "", err
		}
		if !inUse {
			return slug, nil
		}
		slug = base + "-" + strconv.Itoa(i)
	}
}
