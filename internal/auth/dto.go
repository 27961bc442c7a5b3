package auth

import (
	"net/mail"

	"github.com/evomaxseipio/evotrack-backend/internal"
	"github.com/evomaxseipio/evotrack-backend/internal/user"
)

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (r *RegisterRequest) Validate() error {
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return internal.NewValidationError("A valid email is required", internal.ErrCodeValidationFailed)
	}
	if len(r.Password) < 8 {
		return internal.NewValidationError("Password must be at least 8 characters", internal.ErrCodeValidationFailed)
	}
	if r.FirstName == "" || r.LastName == "" {
		return internal.NewValidationError("First and last name are required", internal.ErrCodeValidationFailed)
	}
	return nil
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	if r.Email == "" || r.Password == "" {
		return internal.NewValidationError("Email and password are required", internal.ErrCodeValidationFailed)
	}
	return nil
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ActivateRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (r *ActivateRequest) Validate() error {
	if r.Token == "" {
		return internal.NewValidationError("Activation token is required", internal.ErrCodeValidationFailed)
	}
	if len(r.Password) < 8 {
		return internal.NewValidationError("Password must be at least 8 characters", internal.ErrCodeValidationFailed)
	}
	return nil
}

type ResendActivationRequest struct {
	Email string `json:"email"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type AuthResponse struct {
	Success bool              `json:"success"`
	User    user.UserResponse `json:"user"`
	Tokens  TokenPair         `json:"tokens"`
}
