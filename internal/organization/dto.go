package organization

import (
	"net/mail"
	"time"

	"github.com/evomaxseipio/evotrack-backend/internal"
)

const MaxBulkInvitations = 50

type CreateOrganizationRequest struct {
	Name     string  `json:"name"`
	Slug     string  `json:"slug,omitempty"`
	TaxID    *string `json:"tax_id,omitempty"`
	Timezone string  `json:"timezone,omitempty"`
	Currency string  `json:"currency,omitempty"`
	LogoURL  *string `json:"logo_url,omitempty"`
}

func (r *CreateOrganizationRequest) Validate() error {
	if r.Name == "" {
		return internal.NewValidationError("Organization name is required", internal.ErrCodeValidationFailed)
	}
	if r.Currency != "" && len(r.Currency) != 3 {
		return internal.NewValidationError("Currency must be a 3-letter ISO 4217 code", internal.ErrCodeValidationFailed)
	}
	return nil
}

type UpdateOrganizationRequest struct {
	Name     *string `json:"name,omitempty"`
	TaxID    *string `json:"tax_id,omitempty"`
	Timezone *string `json:"timezone,omitempty"`
	Currency *string `json:"currency,omitempty"`
	LogoURL  *string `json:"logo_url,omitempty"`
}

func (r *UpdateOrganizationRequest) Validate() error {
	if r.Name != nil && *r.Name == "" {
		return internal.NewValidationError("Organization name cannot be empty", internal.ErrCodeValidationFailed)
	}
	if r.Currency != nil && len(*r.Currency) != 3 {
		return internal.NewValidationError("Currency must be a 3-letter ISO 4217 code", internal.ErrCodeValidationFailed)
	}
	return nil
}

// OrgStats is the member/department summary attached to "my
// organizations" listings.
type OrgStats struct {
	TotalUsers        int64 `json:"totalUsers"`
	ActiveUsers       int64 `json:"activeUsers"`
	PendingActivation int64 `json:"pendingActivation"`
	InactiveUsers     int64 `json:"inactiveUsers"`
	Departments       int64 `json:"departments"`
}

type OrganizationResponse struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Slug      string         `json:"slug"`
	TaxID     *string        `json:"tax_id"`
	Timezone  string         `json:"timezone"`
	Currency  string         `json:"currency"`
	LogoURL   *string        `json:"logo_url"`
	Role      internal.Role  `json:"role,omitempty"`
	Stats     *OrgStats      `json:"stats,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func ToResponse(o *Organization, role internal.Role, stats *OrgStats) OrganizationResponse {
	return OrganizationResponse{
		ID:        o.ID,
		Name:      o.Name,
		Slug:      o.Slug,
		TaxID:     o.TaxID,
		Timezone:  o.Timezone,
		Currency:  o.Currency,
		LogoURL:   o.LogoURL,
		Role:      role,
		Stats:     stats,
		CreatedAt: o.CreatedAt,
	}
}

// MemberRecord is the joined membership/user row returned by member
// listings.
type MemberRecord struct {
	UserID    string        `json:"user_id"`
	Email     *string       `json:"email"`
	FirstName string        `json:"first_name"`
	LastName  string        `json:"last_name"`
	AvatarURL *string       `json:"avatar_url"`
	Status    string        `json:"status"`
	Role      internal.Role `json:"role"`
	JoinedAt  time.Time     `json:"joined_at"`
}

type UpdateMemberRequest struct {
	Role internal.Role `json:"role"`
}

type CreateInvitationRequest struct {
	Email string        `json:"email"`
	Role  internal.Role `json:"role"`
}

func (r *CreateInvitationRequest) Validate() error {
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return internal.NewValidationError("A valid email is required", internal.ErrCodeValidationFailed)
	}
	if !r.Role.Valid() {
		return internal.NewValidationError("Invalid role", internal.ErrCodeInvalidRole)
	}
	return nil
}

type BulkInvitationRequest struct {
	Invitations []CreateInvitationRequest `json:"invitations"`
}

func (r *BulkInvitationRequest) Validate() error {
	if len(r.Invitations) == 0 {
		return internal.NewValidationError("At least one invitation is required", internal.ErrCodeValidationFailed)
	}
	if len(r.Invitations) > MaxBulkInvitations {
		return internal.NewValidationError("Cannot send more than 50 invitations at once", internal.ErrCodeValidationFailed)
	}
	return nil
}

type InvitationResponse struct {
	ID             string           `json:"id"`
	OrganizationID string           `json:"organization_id"`
	Email          string           `json:"email"`
	Role           internal.Role    `json:"role"`
	Status         InvitationStatus `json:"status"`
	ExpiresAt      time.Time        `json:"expires_at"`
	CreatedAt      time.Time        `json:"created_at"`
}

func ToInvitationResponse(i *Invitation) InvitationResponse {
	return InvitationResponse{
		ID:             i.ID,
		OrganizationID: i.OrganizationID,
		Email:          i.Email,
		Role:           i.Role,
		Status:         i.Status,
		ExpiresAt:      i.ExpiresAt,
		CreatedAt:      i.CreatedAt,
	}
}

type BulkInvitationError struct {
	Email string `json:"email"`
	Error string `json:"error"`
}

type BulkInvitationResult struct {
	Created    []InvitationResponse  `json:"created"`
	Errors     []BulkInvitationError `json:"errors"`
	Total      int                   `json:"total"`
	Successful int                   `json:"successful"`
	Failed     int                   `json:"failed"`
}

type AcceptInvitationRequest struct {
	Token string `json:"token"`
}
