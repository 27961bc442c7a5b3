package user

import (
	"net/mail"
	"time"

	"github.com/evomaxseipio/evotrack-backend/internal"
	"github.com/evomaxseipio/evotrack-backend/internal/pagination"
)

const (
	MaxBulkCreate  = 50
	MaxSearchLimit = 50
	MinSearchQuery = 2
)

type CreateUserRequest struct {
	Email          string  `json:"email"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	Phone          *string `json:"phone,omitempty"`
	Language       string  `json:"language,omitempty"`
	Timezone       string  `json:"timezone,omitempty"`
	DepartmentID   *string `json:"department_id,omitempty"`
	SendInvitation bool    `json:"send_invitation"`
}

func (r *CreateUserRequest) Validate() error {
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return internal.NewValidationError("A valid email is required", internal.ErrCodeValidationFailed)
	}
	if r.FirstName == "" || r.LastName == "" {
		return internal.NewValidationError("First and last name are required", internal.ErrCodeValidationFailed)
	}
	return nil
}

type BulkCreateUsersRequest struct {
	Users []CreateUserRequest `json:"users"`
}

func (r *BulkCreateUsersRequest) Validate() error {
	if len(r.Users) == 0 {
		return internal.NewValidationError("At least one user is required", internal.ErrCodeValidationFailed)
	}
	if len(r.Users) > MaxBulkCreate {
		return internal.NewValidationError("Cannot create more than 50 users at once", internal.ErrCodeValidationFailed)
	}
	return nil
}

type BulkRowError struct {
	Email string `json:"email"`
	Error string `json:"error"`
}

type BulkCreateResult struct {
	Created    []UserResponse `json:"created"`
	Errors     []BulkRowError `json:"errors"`
	Total      int            `json:"total"`
	Successful int            `json:"successful"`
	Failed     int            `json:"failed"`
}

type UpdateUserRequest struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Language  *string `json:"language,omitempty"`
	Timezone  *string `json:"timezone,omitempty"`
}

func (r *UpdateUserRequest) Validate() error {
	if r.FirstName != nil && *r.FirstName == "" {
		return internal.NewValidationError("First name cannot be empty", internal.ErrCodeValidationFailed)
	}
	if r.LastName != nil && *r.LastName == "" {
		return internal.NewValidationError("Last name cannot be empty", internal.ErrCodeValidationFailed)
	}
	return nil
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (r *ChangePasswordRequest) Validate() error {
	if r.CurrentPassword == "" {
		return internal.NewValidationError("Current password is required", internal.ErrCodeValidationFailed)
	}
	if len(r.NewPassword) < 8 {
		return internal.NewValidationError("New password must be at least 8 characters", internal.ErrCodeValidationFailed)
	}
	return nil
}

// ListUsersQuery carries the decoded listing parameters for one
// organization's user directory.
type ListUsersQuery struct {
	Pagination      pagination.Params
	Search          string
	Status          *Status
	Role            *internal.Role
	IncludeInactive bool
}

// UserResponse redacts Email to null for callers who may not see
// member emails.
type UserResponse struct {
	ID           string     `json:"id"`
	Email        *string    `json:"email"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	FullName     string     `json:"full_name"`
	Phone        *string    `json:"phone"`
	Language     string     `json:"language"`
	Timezone     string     `json:"timezone"`
	AvatarURL    *string    `json:"avatar_url"`
	Status       Status     `json:"status"`
	DepartmentID *string    `json:"department_id"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	ActivatedAt  *time.Time `json:"activated_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

func ToResponse(u *User, includeEmail bool) UserResponse {
	resp := UserResponse{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		FullName:     u.FullName(),
		Phone:        u.Phone,
		Language:     u.Language,
		Timezone:     u.Timezone,
		AvatarURL:    u.AvatarURL,
		Status:       u.Status,
		DepartmentID: u.DepartmentID,
		LastLoginAt:  u.LastLoginAt,
		ActivatedAt:  u.ActivatedAt,
		CreatedAt:    u.CreatedAt,
	}
	if includeEmail {
		email := u.Email
		resp.Email = &email
	}
	return resp
}

type ListMeta struct {
	CanSeeEmails bool `json:"canSeeEmails"`
}

type ListUsersResponse struct {
	Success    bool            `json:"success"`
	Data       []UserResponse  `json:"data"`
	Meta       ListMeta        `json:"meta"`
	Pagination pagination.Info `json:"pagination"`
}

type Stats struct {
	TotalUsers        int64 `json:"totalUsers"`
	ActiveUsers       int64 `json:"activeUsers"`
	PendingActivation int64 `json:"pendingActivation"`
	InactiveUsers     int64 `json:"inactiveUsers"`
}
