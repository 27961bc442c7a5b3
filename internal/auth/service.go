package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/evomaxseipio/evotrack-backend/internal"
	"github.com/evomaxseipio/evotrack-backend/internal/core/events"
	"github.com/evomaxseipio/evotrack-backend/internal/user"
)

// UserStore is the slice of the user repository the auth flows need.
type UserStore interface {
	Create(ctx context.Context, u *user.User) error
	GetByID(ctx context.Context, id string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByActivationToken(ctx context.Context, token string) (*user.User, error)
	Update(ctx context.Context, u *user.User) error
}

type Service struct {
	users    UserStore
	tokenGen TokenGenerator
	eventBus *events.EventBus
	security internal.SecurityConfig
	logger   *slog.Logger
}

func NewService(users UserStore, tokenGen TokenGenerator, eventBus *events.EventBus, security internal.SecurityConfig, logger *slog.Logger) *Service {
	return &Service{
		users:    users,
		tokenGen: tokenGen,
		eventBus: eventBus,
		security: security,
		logger:   logger,
	}
}

// Register creates an active self-service account and logs it in.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	email := user.NormalizeEmail(req.Email)
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, internal.NewInternalError("failed to look up user", err)
	}
	if existing != nil {
		return nil, internal.ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.security.BCryptCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}
	hashStr := string(hash)
	now := time.Now()

	u := &user.User{
		Email:        email,
		PasswordHash: &hashStr,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Status:       user.StatusActive,
		ActivatedAt:  &now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, internal.NewInternalError("failed to create user", err)
	}

	return s.authResponse(u)
}

// Login verifies credentials. Pending and inactive accounts are
// refused with distinct messages but the same 401 status.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	u, err := s.users.GetByEmail(ctx, user.NormalizeEmail(req.Email))
	if err != nil {
		return nil, internal.NewInternalError("failed to look up user", err)
	}
	if u == nil || u.PasswordHash == nil {
		return nil, internal.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, internal.ErrInvalidCredentials
	}

	switch u.Status {
	case user.StatusPendingActivation:
		return nil, internal.ErrPendingActivation
	case user.StatusInactive:
		return nil, internal.ErrUserInactive
	}

	now := time.Now()
	u.LastLoginAt = &now
	if err := s.users.Update(ctx, u); err != nil {
		s.logger.Warn("failed to record last login", "user_id", u.ID, "error", err)
	}

	return s.authResponse(u)
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is returned unchanged.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokenGen.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	u, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, internal.NewInternalError("failed to look up user", err)
	}
	if u == nil || !u.IsActive() {
		return nil, internal.ErrInvalidToken
	}

	pair, err := s.tokenGen.GenerateTokenPair(u.ID)
	if err != nil {
		return nil, internal.NewInternalError("failed to generate tokens", err)
	}
	pair.RefreshToken = refreshToken
	return &pair, nil
}

func (s *Service) CurrentUser(ctx context.Context, userID string) (*user.UserResponse, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, internal.NewInternalError("failed to look up user", err)
	}
	if u == nil {
		return nil, internal.ErrUserNotFound
	}
	resp := user.ToResponse(u, true)
	return &resp, nil
}

// Activate redeems a single-use activation token, sets the password
// and logs the user in.
func (s *Service) Activate(ctx context.Context, req ActivateRequest) (*AuthResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	u, err := s.users.GetByActivationToken(ctx, req.Token)
	if err != nil {
		return nil, internal.NewInternalError("failed to look up activation token", err)
	}
	if u == nil {
		return nil, internal.NewNotFoundError("Activation token not found or expired", internal.ErrCodeActivationNotFound)
	}
	if u.Status == user.StatusActive {
		return nil, internal.NewValidationError("Account is already activated", internal.ErrCodeAlreadyActivated)
	}
	if !u.ActivationTokenValid(req.Token, time.Now()) {
		return nil, internal.NewNotFoundError("Activation token not found or expired", internal.ErrCodeActivationNotFound)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.security.BCryptCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}
	hashStr := string(hash)
	now := time.Now()

	u.PasswordHash = &hashStr
	u.Status = user.StatusActive
	u.ActivatedAt = &now
	u.ActivationToken = nil
	u.ActivationTokenExpiresAt = nil

	if err := s.users.Update(ctx, u); err != nil {
		return nil, internal.NewInternalError("failed to activate user", err)
	}

	return s.authResponse(u)
}

// ResendActivation regenerates the activation token when needed and
// re-fires the activation email. Unknown emails get the same success
// answer so the endpoint cannot be used to probe accounts.
func (s *Service) ResendActivation(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		return internal.NewInternalError("failed to look up user", err)
	}
	if u == nil || u.Status != user.StatusPendingActivation {
		return nil
	}

	now := time.Now()
	if u.ActivationToken == nil || (u.ActivationTokenExpiresAt != nil && now.After(*u.ActivationTokenExpiresAt)) {
		token := uuid.NewString()
		expiresAt := now.Add(s.security.ActivationTokenExpiry)
		u.ActivationToken = &token
		u.ActivationTokenExpiresAt = &expiresAt

		if err := s.users.Update(ctx, u); err != nil {
			return internal.NewInternalError("failed to refresh activation token", err)
		}
	}

	_ = s.eventBus.Publish(ctx, events.NewUserActivationEvent(u.ID, u.Email, u.FirstName, *u.ActivationToken))
	return nil
}

// LoadActiveUser backs the auth middleware: token subject must resolve
// to a non-inactive account.
func (s *Service) LoadActiveUser(ctx context.Context, tokenString string) (*user.User, error) {
	claims, err := s.tokenGen.ValidateAccessToken(tokenString)
	if err != nil {
		return nil, err
	}

	u, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, internal.NewInternalError("failed to look up user", err)
	}
	if u == nil || u.Status == user.StatusInactive {
		return nil, internal.ErrInvalidToken
	}
	return u, nil
}

func (s *Service) authResponse(u *user.User) (*AuthResponse, error) {
	pair, err := s.tokenGen.GenerateTokenPair(u.ID)
	if err != nil {
		return nil, internal.NewInternalError("failed to generate tokens", err)
	}
	return &AuthResponse{
		Success: true,
		User:    user.ToResponse(u, true),
		Tokens:  pair,
	}, nil
}
