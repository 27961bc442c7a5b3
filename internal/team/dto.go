package team

import (
	"time"

	"github.com/evomaxseipio/evotrack-backend/internal"
)

type CreateTeamRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	LeadUserID  *string `json:"lead_user_id,omitempty"`
}

func (r *CreateTeamRequest) Validate() error {
	if r.Name == "" {
		return internal.NewValidationError("Team name is required", internal.ErrCodeValidationFailed)
	}
	return nil
}

type UpdateTeamRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	LeadUserID  *string `json:"lead_user_id,omitempty"`
	RemoveLead  bool    `json:"remove_lead,omitempty"`
}

func (r *UpdateTeamRequest) Validate() error {
	if r.Name != nil && *r.Name == "" {
		return internal.NewValidationError("Team name cannot be empty", internal.ErrCodeValidationFailed)
	}
	if r.LeadUserID != nil && r.RemoveLead {
		return internal.NewValidationError("lead_user_id and remove_lead are mutually exclusive", internal.ErrCodeValidationFailed)
	}
	return nil
}

type AddMemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role,omitempty"`
}

func (r *AddMemberRequest) Validate() error {
	if r.UserID == "" {
		return internal.NewValidationError("User id is required", internal.ErrCodeValidationFailed)
	}
	return nil
}

type TeamResponse struct {
	ID           string    `json:"id"`
	DepartmentID string    `json:"department_id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description"`
	LeadUserID   *string   `json:"lead_user_id"`
	IsActive     bool      `json:"is_active"`
	MemberCount  int64     `json:"member_count"`
	CreatedAt    time.Time `json:"created_at"`
}

func ToResponse(t *Team, memberCount int64) TeamResponse {
	return TeamResponse{
		ID:           t.ID,
		DepartmentID: t.DepartmentID,
		Name:         t.Name,
		Description:  t.Description,
		LeadUserID:   t.LeadUserID,
		IsActive:     t.IsActive,
		MemberCount:  memberCount,
		CreatedAt:    t.CreatedAt,
	}
}

// MemberRecord is the joined team-member/user row in team detail
// responses.
type MemberRecord struct {
	UserID    string    `json:"user_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	AvatarURL *string   `json:"avatar_url"`
	Role      string    `json:"role"`
	JoinedAt  time.Time `json:"joined_at"`
}

type TeamDetailResponse struct {
	TeamResponse
	Members []MemberRecord `json:"members"`
}
