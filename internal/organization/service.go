package organization

import (
	"context"
	"log/slog"
	"time"

	"github.com/evomaxseipio/evotrack-backend/internal"
	"github.com/evomaxseipio/evotrack-backend/internal/core/events"
	"github.com/evomaxseipio/evotrack-backend/internal/user"
)

type OrganizationRepositoryAPI interface {
	Create(ctx context.Context, o *Organization) error
	GetByID(ctx context.Context, id string) (*Organization, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	GetByTaxID(ctx context.Context, taxID string) (*Organization, error)
	Update(ctx context.Context, o *Organization) error
	GetByIDs(ctx context.Context, ids []string) ([]*Organization, error)
	CountActiveDepartments(ctx context.Context, orgID string) (int64, error)
}

type MembershipRepositoryAPI interface {
	Create(ctx context.Context, m *Membership) error
	Get(ctx context.Context, userID, orgID string) (*Membership, error)
	Update(ctx context.Context, m *Membership) error
	CountOwners(ctx context.Context, orgID string) (int64, error)
	ListByUser(ctx context.Context, userID string) ([]*Membership, error)
	ListMembers(ctx context.Context, orgID string) ([]MemberRecord, error)
}

// UserStatsProvider supplies the per-organization user counts for the
// stats block. Implemented by the user module.
type UserStatsProvider interface {
	StatsByOrganization(ctx context.Context, orgID string) (*user.Stats, error)
}

// MembershipService is the registry every other module consults for
// role checks. Each check is a fresh query.
type MembershipService struct {
	repo MembershipRepositoryAPI
}

func NewMembershipService(repo MembershipRepositoryAPI) *MembershipService {
	return &MembershipService{repo: repo}
}

// RoleOf returns the caller's role. A missing or deactivated
// membership is indistinguishable from no access.
func (s *MembershipService) RoleOf(ctx context.Context, userID, orgID string) (internal.Role, error) {
	m, err := s.repo.Get(ctx, userID, orgID)
	if err != nil {
		return "", internal.NewInternalError("failed to look up membership", err)
	}
	if m == nil || !m.IsActive {
		return "", internal.ErrNotMember
	}
	return m.Role, nil
}

func (s *MembershipService) IsMember(ctx context.Context, userID, orgID string) (bool, error) {
	_, err := s.RoleOf(ctx, userID, orgID)
	if err != nil {
		if appErr, ok := internal.IsAppError(err); ok && appErr.Code == internal.ErrCodeNotMember {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *MembershipService) RequireManage(ctx context.Context, userID, orgID string) error {
	role, err := s.RoleOf(ctx, userID, orgID)
	if err != nil {
		return err
	}
	if !role.CanManage() {
		return internal.ErrInsufficientRole
	}
	return nil
}

// CreateMembership adds a user to an organization. A deactivated
// membership is revived with the new role instead of inserting a
// second row.
func (s *MembershipService) CreateMembership(ctx context.Context, userID, orgID string, role internal.Role) error {
	existing, err := s.repo.Get(ctx, userID, orgID)
	if err != nil {
		return internal.NewInternalError("failed to look up membership", err)
	}
	if existing != nil {
		if existing.IsActive {
			return internal.NewConflictError("User is already a member of this organization", internal.ErrCodeAlreadyMember)
		}
		existing.IsActive = true
		existing.Role = role
		existing.JoinedAt = time.Now()
		return s.repo.Update(ctx, existing)
	}

	m := &Membership{
		UserID:         userID,
		OrganizationID: orgID,
		Role:           role,
		IsActive:       true,
	}
	return s.repo.Create(ctx, m)
}

func (s *MembershipService) CountOwners(ctx context.Context, orgID string) (int64, error) {
	return s.repo.CountOwners(ctx, orgID)
}

type Service struct {
	orgs        OrganizationRepositoryAPI
	memberships *MembershipService
	userStats   UserStatsProvider
	users       UserDirectory
	eventBus    *events.EventBus
	logger      *slog.Logger
}

func NewService(orgs OrganizationRepositoryAPI, memberships *MembershipService, userStats UserStatsProvider, users UserDirectory, eventBus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		orgs:        orgs,
		memberships: memberships,
		userStats:   userStats,
		users:       users,
		eventBus:    eventBus,
		logger:      logger,
	}
}

// Create registers an organization and makes the creator its owner.
func (s *Service) Create(ctx context.Context, actorID string, req CreateOrganizationRequest) (*OrganizationResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	base := req.Slug
	if base == "" {
		base = DeriveSlug(req.Name)
	}
	slug, err := UniqueSlug(ctx, base, s.orgs.SlugExists)
	if err != nil {
		return nil, internal.NewInternalError("failed to derive slug", err)
	}

	if req.TaxID != nil && *req.TaxID != "" {
		existing, err := s.orgs.GetByTaxID(ctx, *req.TaxID)
		if err != nil {
			return nil, internal.NewInternalError("failed to check tax id", err)
		}
		if existing != nil {
			return nil, internal.ErrTaxIDExists
		}
	}

	o := &Organization{
		Name:     req.Name,
		Slug:     slug,
		TaxID:    req.TaxID,
		LogoURL:  req.LogoURL,
		IsActive: true,
		Timezone: "UTC",
		Currency: "USD",
	}
	if req.Timezone != "" {
		o.Timezone = req.Timezone
	}
	if req.Currency != "" {
		o.Currency = req.Currency
	}

	if err := s.orgs.Create(ctx, o); err != nil {
		return nil, internal.NewInternalError("failed to create organization", err)
	}
	if err := s.memberships.CreateMembership(ctx, actorID, o.ID, internal.RoleOwner); err != nil {
		return nil, internal.NewInternalError("failed to create owner membership", err)
	}

	resp := ToResponse(o, internal.RoleOwner, nil)
	return &resp, nil
}

// getActive loads an organization, treating soft-deleted rows as
// missing.
func (s *Service) getActive(ctx context.Context, orgID string) (*Organization, error) {
	o, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		return nil, internal.NewInternalError("failed to look up organization", err)
	}
	if o == nil || !o.IsActive {
		return nil, internal.ErrOrganizationNotFound
	}
	return o, nil
}

func (s *Service) Get(ctx context.Context, actorID, orgID string) (*OrganizationResponse, error) {
	role, err := s.memberships.RoleOf(ctx, actorID, orgID)
	if err != nil {
		return nil, err
	}
	o, err := s.getActive(ctx, orgID)
	if err != nil {
		return nil, err
	}
	resp := ToResponse(o, role, nil)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, actorID, orgID string, req UpdateOrganizationRequest) (*OrganizationResponse, error) {
	role, err := s.memberships.RoleOf(ctx, actorID, orgID)
	if err != nil {
		return nil, err
	}
	if !role.CanManage() {
		return nil, internal.ErrInsufficientRole
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	o, err := s.getActive(ctx, orgID)
	if err != nil {
		return nil, err
	}

	if req.TaxID != nil && *req.TaxID != "" && (o.TaxID == nil || *o.TaxID != *req.TaxID) {
		existing, err := s.orgs.GetByTaxID(ctx, *req.TaxID)
		if err != nil {
			return nil, internal.NewInternalError("failed to check tax id", err)
		}
		if existing != nil && existing.ID != o.ID {
			return nil, internal.ErrTaxIDExists
		}
	}

	if req.Name != nil {
		o.Name = *req.Name
	}
	if req.TaxID != nil {
		o.TaxID = req.TaxID
	}
	if req.Timezone != nil {
		o.Timezone = *req.Timezone
	}
	if req.Currency != nil {
		o.Currency = *req.Currency
	}
	if req.LogoURL != nil {
		o.LogoURL = req.LogoURL
	}

	if err := s.orgs.Update(ctx, o); err != nil {
		return nil, internal.NewInternalError("failed to update organization", err)
	}
	resp := ToResponse(o, role, nil)
	return &resp, nil
}

// Delete soft-deletes an organization. Owners only.
func (s *Service) Delete(ctx context.Context, actorID, orgID string) error {
	role, err := s.memberships.RoleOf(ctx, actorID, orgID)
	if err != nil {
		return err
	}
	if role != internal.RoleOwner {
		return internal.ErrInsufficientRole
	}

	o, err := s.getActive(ctx, orgID)
	if err != nil {
		return err
	}

	o.IsActive = false
	if err := s.orgs.Update(ctx, o); err != nil {
		return internal.NewInternalError("failed to delete organization", err)
	}
	return nil
}

// ListMine returns every organization the caller belongs to, with the
// caller's role and a user/department stats block per organization.
func (s *Service) ListMine(ctx context.Context, actorID string) ([]OrganizationResponse, error) {
	memberships, err := s.memberships.repo.ListByUser(ctx, actorID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list memberships", err)
	}

	roleByOrg := make(map[string]internal.Role, len(memberships))
	ids := make([]string, 0, len(memberships))
	for _, m := range memberships {
		roleByOrg[m.OrganizationID] = m.Role
		ids = append(ids, m.OrganizationID)
	}

	orgs, err := s.orgs.GetByIDs(ctx, ids)
	if err != nil {
		return nil, internal.NewInternalError("failed to load organizations", err)
	}

	results := make([]OrganizationResponse, 0, len(orgs))
	for _, o := range orgs {
		stats := s.loadStats(ctx, o.ID)
		results = append(results, ToResponse(o, roleByOrg[o.ID], stats))
	}
	return results, nil
}

func (s *Service) loadStats(ctx context.Context, orgID string) *OrgStats {
	userStats, err := s.userStats.StatsByOrganization(ctx, orgID)
	if err != nil {
		s.logger.Warn("failed to load user stats", "organization_id", orgID, "error", err)
		return nil
	}
	departments, err := s.orgs.CountActiveDepartments(ctx, orgID)
	if err != nil {
		s.logger.Warn("failed to count departments", "organization_id", orgID, "error", err)
		return nil
	}
	return &OrgStats{
		TotalUsers:        userStats.TotalUsers,
		ActiveUsers:       userStats.ActiveUsers,
		PendingActivation: userStats.PendingActivation,
		InactiveUsers:     userStats.InactiveUsers,
		Departments:       departments,
	}
}

// ListMembers lists active members. Emails are redacted unless the
// caller is an owner or admin.
func (s *Service) ListMembers(ctx context.Context, actorID, orgID string) ([]MemberRecord, error) {
	role, err := s.memberships.RoleOf(ctx, actorID, orgID)
	if err != nil {
		return nil, err
	}

	records, err := s.memberships.repo.ListMembers(ctx, orgID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list members", err)
	}

	if !role.CanSeeEmails() {
		for i := range records {
			records[i].Email = nil
		}
	}
	return records, nil
}

// UpdateMemberRole changes a member's role. The owner role can neither
// be assigned nor taken away here.
func (s *Service) UpdateMemberRole(ctx context.Context, actorID, orgID, targetID string, req UpdateMemberRequest) (*MemberRecord, error) {
	if err := s.memberships.RequireManage(ctx, actorID, orgID); err != nil {
		return nil, err
	}
	if !req.Role.Valid() {
		return nil, internal.NewValidationError("Invalid role", internal.ErrCodeInvalidRole)
	}
	if req.Role == internal.RoleOwner {
		return nil, internal.NewBusinessLogicError("The owner role cannot be assigned", internal.ErrCodeOwnerImmutable)
	}

	m, err := s.memberships.repo.Get(ctx, targetID, orgID)
	if err != nil {
		return nil, internal.NewInternalError("failed to look up membership", err)
	}
	if m == nil || !m.IsActive {
		return nil, internal.ErrMemberNotFound
	}
	if m.Role == internal.RoleOwner {
		return nil, internal.NewBusinessLogicError("The owner role cannot be changed", internal.ErrCodeOwnerImmutable)
	}

	m.Role = req.Role
	if err := s.memberships.repo.Update(ctx, m); err != nil {
		return nil, internal.NewInternalError("failed to update membership", err)
	}

	u, err := s.users.GetByID(ctx, targetID)
	if err != nil || u == nil {
		return nil, internal.ErrMemberNotFound
	}
	email := u.Email
	return &MemberRecord{
		UserID:    u.ID,
		Email:     &email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		AvatarURL: u.AvatarURL,
		Status:    string(u.Status),
		Role:      m.Role,
		JoinedAt:  m.JoinedAt,
	}, nil
}

// RemoveMember deactivates a membership. Owners cannot be removed, and
// nobody removes themselves.
func (s *Service) RemoveMember(ctx context.Context, actorID, orgID, targetID string) error {
	if err := s.memberships.RequireManage(ctx, actorID, orgID); err != nil {
		return err
	}
	if actorID == targetID {
		return internal.NewBusinessLogicError("You cannot remove yourself from the organization", internal.ErrCodeValidationFailed)
	}

	m, err := s.memberships.repo.Get(ctx, targetID, orgID)
	if err != nil {
		return internal.NewInternalError("failed to look up membership", err)
	}
	if m == nil || !m.IsActive {
		return internal.ErrMemberNotFound
	}
	if m.Role == internal.RoleOwner {
		return internal.NewBusinessLogicError("Organization owners cannot be removed", internal.ErrCodeOwnerImmutable)
	}

	m.IsActive = false
	if err := s.memberships.repo.Update(ctx, m); err != nil {
		return internal.NewInternalError("failed to remove member", err)
	}

	s.notifyRemoved(ctx, orgID, targetID)
	return nil
}

func (s *Service) notifyRemoved(ctx context.Context, orgID, userID string) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil || u == nil {
		return
	}
	o, err := s.orgs.GetByID(ctx, orgID)
	if err != nil || o == nil {
		return
	}
	_ = s.eventBus.Publish(ctx, events.NewMemberRemovedEvent(o.ID, o.Name, u.Email, u.ID))
}
