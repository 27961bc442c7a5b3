package department

import (
	"time"

	"github.com/evomaxseipio/evotrack-backend/internal"
	"github.com/evomaxseipio/evotrack-backend/internal/pagination"
)

type CreateDepartmentRequest struct {
	Name        string   `json:"name"`
	Description *string  `json:"description,omitempty"`
	ParentID    *string  `json:"parent_id,omitempty"`
	HeadUserID  *string  `json:"head_user_id,omitempty"`
	Budget      *float64 `json:"budget,omitempty"`
}

func (r *CreateDepartmentRequest) Validate() error {
	if r.Name == "" {
		return internal.NewValidationError("Department name is required", internal.ErrCodeValidationFailed)
	}
	if r.Budget != nil && *r.Budget < 0 {
		return internal.NewValidationError("Budget cannot be negative", internal.ErrCodeValidationFailed)
	}
	return nil
}

// UpdateDepartmentRequest distinguishes "leave unchanged" (nil) from
// "clear" (the Remove* flags).
type UpdateDepartmentRequest struct {
	Name         *string  `json:"name,omitempty"`
	Description  *string  `json:"description,omitempty"`
	ParentID     *string  `json:"parent_id,omitempty"`
	RemoveParent bool     `json:"remove_parent,omitempty"`
	HeadUserID   *string  `json:"head_user_id,omitempty"`
	RemoveHead   bool     `json:"remove_head,omitempty"`
	Budget       *float64 `json:"budget,omitempty"`
}

func (r *UpdateDepartmentRequest) Validate() error {
	if r.Name != nil && *r.Name == "" {
		return internal.NewValidationError("Department name cannot be empty", internal.ErrCodeValidationFailed)
	}
	if r.Budget != nil && *r.Budget < 0 {
		return internal.NewValidationError("Budget cannot be negative", internal.ErrCodeValidationFailed)
	}
	if r.ParentID != nil && r.RemoveParent {
		return internal.NewValidationError("parent_id and remove_parent are mutually exclusive", internal.ErrCodeValidationFailed)
	}
	return nil
}

type DepartmentResponse struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	Description    *string   `json:"description"`
	ParentID       *string   `json:"parent_id"`
	HeadUserID     *string   `json:"head_user_id"`
	Budget         *float64  `json:"budget"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

func ToResponse(d *Department) DepartmentResponse {
	return DepartmentResponse{
		ID:             d.ID,
		OrganizationID: d.OrganizationID,
		Name:           d.Name,
		Description:    d.Description,
		ParentID:       d.ParentID,
		HeadUserID:     d.HeadUserID,
		Budget:         d.Budget,
		IsActive:       d.IsActive,
		CreatedAt:      d.CreatedAt,
	}
}

// TreeNode is one department in the assembled hierarchy, annotated
// with user and team counts.
type TreeNode struct {
	DepartmentResponse
	UserCount int64       `json:"user_count"`
	TeamCount int64       `json:"team_count"`
	Children  []*TreeNode `json:"children"`
}

type SearchRequest struct {
	Query           string `json:"query"`
	IncludeInactive bool   `json:"include_inactive"`
	Cursor          string `json:"cursor"`
	Limit           int    `json:"limit"`
}

type SearchResponse struct {
	Success    bool                 `json:"success"`
	Data       []DepartmentResponse `json:"data"`
	Pagination pagination.Info      `json:"pagination"`
}

type Stats struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Inactive int64 `json:"inactive"`
	Root     int64 `json:"root"`
}

type AssignUserRequest struct {
	DepartmentID *string `json:"department_id"`
}
