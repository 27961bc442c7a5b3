package user

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/evomaxseipio/evotrack-backend/internal"
	"github.com/evomaxseipio/evotrack-backend/internal/core/events"
	"github.com/evomaxseipio/evotrack-backend/internal/pagination"
)

// RepositoryAPI is the persistence surface the service needs. Lookups
// return (nil, nil) when no row matches.
type RepositoryAPI interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByActivationToken(ctx context.Context, token string) (*User, error)
	Update(ctx context.Context, u *User) error
	SetDepartment(ctx context.Context, userID string, departmentID *string) error
	ListByOrganization(ctx context.Context, orgID string, q ListUsersQuery) ([]*User, error)
	SearchByOrganization(ctx context.Context, orgID, query string, limit int) ([]*User, error)
	StatsByOrganization(ctx context.Context, orgID string) (*Stats, error)
}

// MembershipDirectory answers role questions against the membership
// registry. Implemented by the organization module.
type MembershipDirectory interface {
	RoleOf(ctx context.Context, userID, orgID string) (internal.Role, error)
	CreateMembership(ctx context.Context, userID, orgID string, role internal.Role) error
	CountOwners(ctx context.Context, orgID string) (int64, error)
}

type Service struct {
	repo        RepositoryAPI
	memberships MembershipDirectory
	eventBus    *events.EventBus
	security    internal.SecurityConfig
	upload      internal.UploadConfig
	logger      *slog.Logger
}

func NewService(repo RepositoryAPI, memberships MembershipDirectory, eventBus *events.EventBus, security internal.SecurityConfig, upload internal.UploadConfig, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		memberships: memberships,
		eventBus:    eventBus,
		security:    security,
		upload:      upload,
		logger:      logger,
	}
}

func (s *Service) requireManage(ctx context.Context, actorID, orgID string) error {
	role, err := s.memberships.RoleOf(ctx, actorID, orgID)
	if err != nil {
		return err
	}
	if !role.CanManage() {
		return internal.ErrInsufficientRole
	}
	return nil
}

// AdminCreate provisions a pending account inside an organization. The
// new user gets an employee membership and a 72h activation token.
func (s *Service) AdminCreate(ctx context.Context, actorID, orgID string, req CreateUserRequest) (*UserResponse, error) {
	if err := s.requireManage(ctx, actorID, orgID); err != nil {
		return nil, err
	}
	return s.createPending(ctx, orgID, req)
}

func (s *Service) createPending(ctx context.Context, orgID string, req CreateUserRequest) (*UserResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	email := NormalizeEmail(req.Email)
	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, internal.NewInternalError("failed to look up user", err)
	}
	if existing != nil {
		return nil, internal.ErrEmailExists
	}

	token := uuid.NewString()
	expiresAt := time.Now().Add(s.security.ActivationTokenExpiry)

	u := &User{
		Email:                    email,
		FirstName:                req.FirstName,
		LastName:                 req.LastName,
		Phone:                    req.Phone,
		Status:                   StatusPendingActivation,
		ActivationToken:          &token,
		ActivationTokenExpiresAt: &expiresAt,
		DepartmentID:             req.DepartmentID,
	}
	if req.Language != "" {
		u.Language = req.Language
	}
	if req.Timezone != "" {
		u.Timezone = req.Timezone
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, internal.NewInternalError("failed to create user", err)
	}
	if err := s.memberships.CreateMembership(ctx, u.ID, orgID, internal.RoleEmployee); err != nil {
		return nil, internal.NewInternalError("failed to create membership", err)
	}

	if req.SendInvitation {
		_ = s.eventBus.Publish(ctx, events.NewUserActivationEvent(u.ID, u.Email, u.FirstName, token))
	}

	resp := ToResponse(u, true)
	return &resp, nil
}

// BulkCreate provisions up to 50 accounts. Rows are independent: each
// failure lands in the errors list without affecting the others.
func (s *Service) BulkCreate(ctx context.Context, actorID, orgID string, req BulkCreateUsersRequest) (*BulkCreateResult, error) {
	if err := s.requireManage(ctx, actorID, orgID); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	result := &BulkCreateResult{
		Created: make([]UserResponse, 0, len(req.Users)),
		Errors:  make([]BulkRowError, 0),
		Total:   len(req.Users),
	}

	seen := make(map[string]bool, len(req.Users))
	for _, row := range req.Users {
		email := NormalizeEmail(row.Email)
		if seen[email] {
			result.Errors = append(result.Errors, BulkRowError{Email: row.Email, Error: "duplicate email in request"})
			continue
		}
		seen[email] = true

		resp, err := s.createPending(ctx, orgID, row)
		if err != nil {
			result.Errors = append(result.Errors, BulkRowError{Email: row.Email, Error: err.Error()})
			continue
		}
		result.Created = append(result.Created, *resp)
	}

	result.Successful = len(result.Created)
	result.Failed = len(result.Errors)
	return result, nil
}

// getMember loads a user and verifies org membership, hiding
// non-members behind not-found.
func (s *Service) getMember(ctx context.Context, orgID, userID string) (*User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, internal.NewInternalError("failed to look up user", err)
	}
	if u == nil {
		return nil, internal.ErrUserNotFound
	}
	if _, err := s.memberships.RoleOf(ctx, userID, orgID); err != nil {
		return nil, internal.ErrUserNotFound
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, actorID, orgID, userID string) (*UserResponse, error) {
	if err := s.requireManage(ctx, actorID, orgID); err != nil {
		return nil, err
	}
	u, err := s.getMember(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	resp := ToResponse(u, true)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, actorID, orgID, userID string, req UpdateUserRequest) (*UserResponse, error) {
	if err := s.requireManage(ctx, actorID, orgID); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	u, err := s.getMember(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	applyUpdate(u, req)

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, internal.NewInternalError("failed to update user", err)
	}
	resp := ToResponse(u, true)
	return &resp, nil
}

func applyUpdate(u *User, req UpdateUserRequest) {
	if req.FirstName != nil {
		u.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		u.LastName = *req.LastName
	}
	if req.Phone != nil {
		u.Phone = req.Phone
	}
	if req.Language != nil {
		u.Language = *req.Language
	}
	if req.Timezone != nil {
		u.Timezone = *req.Timezone
	}
}

// Deactivate flips a member's account to inactive. Admins cannot
// deactivate themselves, and the last active owner of the organization
// stays active.
func (s *Service) Deactivate(ctx context.Context, actorID, orgID, userID string) (*UserResponse, error) {
	if err := s.requireManage(ctx, actorID, orgID); err != nil {
		return nil, err
	}
	if actorID == userID {
		return nil, internal.NewBusinessLogicError("You cannot deactivate your own account", internal.ErrCodeCannotDeactivate)
	}

	u, err := s.getMember(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}

	role, err := s.memberships.RoleOf(ctx, userID, orgID)
	if err != nil {
		return nil, internal.ErrUserNotFound
	}
	if role == internal.RoleOwner {
		owners, err := s.memberships.CountOwners(ctx, orgID)
		if err != nil {
			return nil, internal.NewInternalError("failed to count owners", err)
		}
		if owners <= 1 {
			return nil, internal.ErrLastOwner
		}
	}

	u.Status = StatusInactive
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, internal.NewInternalError("failed to update user", err)
	}
	resp := ToResponse(u, true)
	return &resp, nil
}

func (s *Service) Reactivate(ctx context.Context, actorID, orgID, userID string) (*UserResponse, error) {
	if err := s.requireManage(ctx, actorID, orgID); err != nil {
		return nil, err
	}

	u, err := s.getMember(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	if u.Status != StatusInactive {
		return nil, internal.NewBusinessLogicError("Only inactive users can be reactivated", internal.ErrCodeValidationFailed)
	}

	u.Status = StatusActive
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, internal.NewInternalError("failed to update user", err)
	}
	resp := ToResponse(u, true)
	return &resp, nil
}

// List returns one cursor page of the organization's user directory.
// Emails are redacted unless the caller is an owner or admin.
func (s *Service) List(ctx context.Context, actorID, orgID string, q ListUsersQuery) (*ListUsersResponse, error) {
	role, err := s.memberships.RoleOf(ctx, actorID, orgID)
	if err != nil {
		return nil, err
	}
	canSeeEmails := role.CanSeeEmails()

	rows, err := s.repo.ListByOrganization(ctx, orgID, q)
	if err != nil {
		return nil, internal.NewInternalError("failed to list users", err)
	}

	page, info := pagination.BuildPage(rows, q.Pagination.Limit, func(u *User) pagination.Cursor {
		return pagination.Cursor{TS: u.CreatedAt, ID: u.ID}
	})

	data := make([]UserResponse, 0, len(page))
	for _, u := range page {
		data = append(data, ToResponse(u, canSeeEmails))
	}

	return &ListUsersResponse{
		Success:    true,
		Data:       data,
		Meta:       ListMeta{CanSeeEmails: canSeeEmails},
		Pagination: info,
	}, nil
}

func (s *Service) Search(ctx context.Context, actorID, orgID, query string, limit int) ([]UserResponse, error) {
	role, err := s.memberships.RoleOf(ctx, actorID, orgID)
	if err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if len(query) < MinSearchQuery {
		return nil, internal.NewValidationError("Search query must be at least 2 characters", internal.ErrCodeValidationFailed)
	}
	if limit <= 0 || limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	rows, err := s.repo.SearchByOrganization(ctx, orgID, query, limit)
	if err != nil {
		return nil, internal.NewInternalError("failed to search users", err)
	}

	results := make([]UserResponse, 0, len(rows))
	for _, u := range rows {
		results = append(results, ToResponse(u, role.CanSeeEmails()))
	}
	return results, nil
}

func (s *Service) OrgStats(ctx context.Context, actorID, orgID string) (*Stats, error) {
	if _, err := s.memberships.RoleOf(ctx, actorID, orgID); err != nil {
		return nil, err
	}
	stats, err := s.repo.StatsByOrganization(ctx, orgID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load user stats", err)
	}
	return stats, nil
}

// ----------------- SELF PROFILE -----------------

func (s *Service) GetProfile(ctx context.Context, userID string) (*UserResponse, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, internal.NewInternalError("failed to look up user", err)
	}
	if u == nil {
		return nil, internal.ErrUserNotFound
	}
	resp := ToResponse(u, true)
	return &resp, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, req UpdateUserRequest) (*UserResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, internal.NewInternalError("failed to look up user", err)
	}
	if u == nil {
		return nil, internal.ErrUserNotFound
	}

	applyUpdate(u, req)
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, internal.NewInternalError("failed to update user", err)
	}
	resp := ToResponse(u, true)
	return &resp, nil
}

func (s *Service) ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return internal.NewInternalError("failed to look up user", err)
	}
	if u == nil {
		return internal.ErrUserNotFound
	}
	if u.PasswordHash == nil {
		return internal.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*u.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return internal.NewUnauthorizedError("Current password is incorrect", internal.ErrCodeInvalidCredentials)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.security.BCryptCost)
	if err != nil {
		return internal.NewInternalError("failed to hash password", err)
	}
	hashStr := string(hash)
	u.PasswordHash = &hashStr

	if err := s.repo.Update(ctx, u); err != nil {
		return internal.NewInternalError("failed to update password", err)
	}
	return nil
}

var allowedAvatarExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// UploadAvatar stores the image under the upload dir and persists its
// public URL. The previous file, if any, is removed best-effort.
func (s *Service) UploadAvatar(ctx context.Context, userID string, file multipart.File, header *multipart.FileHeader) (*UserResponse, error) {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedAvatarExts[ext] {
		return nil, internal.NewValidationError("Avatar must be a .jpg, .jpeg, .png or .webp file", internal.ErrCodeValidationFailed)
	}
	if header.Size > int64(s.upload.MaxAvatarKB)*1024 {
		return nil, internal.NewValidationError(
			fmt.Sprintf("Avatar must be smaller than %d KB", s.upload.MaxAvatarKB),
			internal.ErrCodeValidationFailed)
	}

	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, internal.NewInternalError("failed to look up user", err)
	}
	if u == nil {
		return nil, internal.ErrUserNotFound
	}

	if err := os.MkdirAll(s.upload.Dir, 0o755); err != nil {
		return nil, internal.NewInternalError("failed to prepare upload dir", err)
	}

	filename := uuid.NewString() + ext
	dest := filepath.Join(s.upload.Dir, filename)

	out, err := os.Create(dest)
	if err != nil {
		return nil, internal.NewInternalError("failed to store avatar", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		os.Remove(dest)
		return nil, internal.NewInternalError("failed to store avatar", err)
	}

	s.removeAvatarFile(u)

	avatarURL := s.upload.PublicPrefix + "/" + filename
	u.AvatarURL = &avatarURL
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, internal.NewInternalError("failed to update user", err)
	}

	resp := ToResponse(u, true)
	return &resp, nil
}

func (s *Service) DeleteAvatar(ctx context.Context, userID string) error {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return internal.NewInternalError("failed to look up user", err)
	}
	if u == nil {
		return internal.ErrUserNotFound
	}

	s.removeAvatarFile(u)
	u.AvatarURL = nil

	if err := s.repo.Update(ctx, u); err != nil {
		return internal.NewInternalError("failed to update user", err)
	}
	return nil
}

func (s *Service) removeAvatarFile(u *User) {
	if u.AvatarURL == nil {
		return
	}
	name := strings.TrimPrefix(*u.AvatarURL, s.upload.PublicPrefix+"/")
	if name == "" || strings.Contains(name, "/") {
		return
	}
	if err := os.Remove(filepath.Join(s.upload.Dir, name)); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove old avatar", "user_id", u.ID, "error", err)
	}
}
