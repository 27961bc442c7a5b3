package team

import (
	"context"
	"log/slog"

	"github.com/evomaxseipio/evotrack-backend/internal"
)

type RepositoryAPI interface {
	Create(ctx context.Context, t *Team) error
	GetByID(ctx context.Context, id string) (*Team, error)
	Update(ctx context.Context, t *Team) error
	ListByDepartment(ctx context.Context, deptID string) ([]*Team, error)
	CountMembers(ctx context.Context, teamID string) (int64, error)
	AddMember(ctx context.Context, m *TeamMember) error
	GetMember(ctx context.Context, teamID, userID string) (*TeamMember, error)
	RemoveMember(ctx context.Context, teamID, userID string) error
	ListMembers(ctx context.Context, teamID string) ([]MemberRecord, error)
}

type MembershipChecker interface {
	RoleOf(ctx context.Context, userID, orgID string) (internal.Role, error)
	IsMember(ctx context.Context, userID, orgID string) (bool, error)
}

// DepartmentDirectory resolves a department to its organization, which
// is where all team authorization happens.
type DepartmentDirectory interface {
	OrganizationIDOf(ctx context.Context, departmentID string) (string, error)
}

type Service struct {
	repo        RepositoryAPI
	memberships MembershipChecker
	departments DepartmentDirectory
	logger      *slog.Logger
}

func NewService(repo RepositoryAPI, memberships MembershipChecker, departments DepartmentDirectory, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		memberships: memberships,
		departments: departments,
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

// getActive loads an active team and the organization it belongs to.
func (s *Service) getActive(ctx context.Context, teamID string) (*Team, string, error) {
	t, err := s.repo.GetByID(ctx, teamID)
	if err != nil {
		return nil, "", internal.NewInternalError("failed to look up team", err)
	}
	if t == nil || !t.IsActive {
		return nil, "", internal.ErrTeamNotFound
	}

	orgID, err := s.departments.OrganizationIDOf(ctx, t.DepartmentID)
	if err != nil {
		return nil, "", internal.ErrTeamNotFound
	}
	return t, orgID, nil
}

func (s *Service) checkLead(ctx context.Context, leadUserID, orgID string) error {
	member, err := s.memberships.IsMember(ctx, leadUserID, orgID)
	if err != nil {
		return err
	}
	if !member {
		return internal.NewValidationError("Team lead must be a member of the organization", internal.ErrCodeValidationFailed)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, actorID, deptID string, req CreateTeamRequest) (*TeamResponse, error) {
	orgID, err := s.departments.OrganizationIDOf(ctx, deptID)
	if err != nil {
		return nil, err
	}
	if err := s.requireManage(ctx, actorID, orgID); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.LeadUserID != nil {
		if err := s.checkLead(ctx, *req.LeadUserID, orgID); err != nil {
			return nil, err
		}
	}

	t := &Team{
		DepartmentID: deptID,
		Name:         req.Name,
		Description:  req.Description,
		LeadUserID:   req.LeadUserID,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, internal.NewInternalError("failed to create team", err)
	}

	resp := ToResponse(t, 0)
	return &resp, nil
}

func (s *Service) ListByDepartment(ctx context.Context, actorID, deptID string) ([]TeamResponse, error) {
	orgID, err := s.departments.OrganizationIDOf(ctx, deptID)
	if err != nil {
		return nil, err
	}
	if _, err := s.memberships.RoleOf(ctx, actorID, orgID); err != nil {
		return nil, err
	}

	teams, err := s.repo.ListByDepartment(ctx, deptID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list teams", err)
	}

	results := make([]TeamResponse, 0, len(teams))
	for _, t := range teams {
		count, err := s.repo.CountMembers(ctx, t.ID)
		if err != nil {
			return nil, internal.NewInternalError("failed to count team members", err)
		}
		results = append(results, ToResponse(t, count))
	}
	return results, nil
}

func (s *Service) Get(ctx context.Context, actorID, teamID string) (*TeamDetailResponse, error) {
	t, orgID, err := s.getActive(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if _, err := s.memberships.RoleOf(ctx, actorID, orgID); err != nil {
		return nil, err
	}

	members, err := s.repo.ListMembers(ctx, teamID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list team members", err)
	}

	return &TeamDetailResponse{
		TeamResponse: ToResponse(t, int64(len(members))),
		Members:      members,
	}, nil
}

func (s *Service) Update(ctx context.Context, actorID, teamID string, req UpdateTeamRequest) (*TeamResponse, error) {
	t, orgID, err := s.getActive(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if err := s.requireManage(ctx, actorID, orgID); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.LeadUserID != nil {
		if err := s.checkLead(ctx, *req.LeadUserID, orgID); err != nil {
			return nil, err
		}
		t.LeadUserID = req.LeadUserID
	}
	if req.RemoveLead {
		t.LeadUserID = nil
	}
	if req.Name != nil {
		t.Name = *req.Name
	}
	if req.Description != nil {
		t.Description = req.Description
	}

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, internal.NewInternalError("failed to update team", err)
	}

	count, err := s.repo.CountMembers(ctx, t.ID)
	if err != nil {
		return nil, internal.NewInternalError("failed to count team members", err)
	}
	resp := ToResponse(t, count)
	return &resp, nil
}

func (s *Service) Delete(ctx context.Context, actorID, teamID string) error {
	t, orgID, err := s.getActive(ctx, teamID)
	if err != nil {
		return err
	}
	if err := s.requireManage(ctx, actorID, orgID); err != nil {
		return err
	}

	t.IsActive = false
	if err := s.repo.Update(ctx, t); err != nil {
		return internal.NewInternalError("failed to delete team", err)
	}
	return nil
}

// AddMember puts an organization member on the team. One membership
// per (team, user).
func (s *Service) AddMember(ctx context.Context, actorID, teamID string, req AddMemberRequest) error {
	_, orgID, err := s.getActive(ctx, teamID)
	if err != nil {
		return err
	}
	if err := s.requireManage(ctx, actorID, orgID); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}

	member, err := s.memberships.IsMember(ctx, req.UserID, orgID)
	if err != nil {
		return err
	}
	if !member {
		return internal.NewValidationError("User must be a member of the organization", internal.ErrCodeValidationFailed)
	}

	existing, err := s.repo.GetMember(ctx, teamID, req.UserID)
	if err != nil {
		return internal.NewInternalError("failed to look up team member", err)
	}
	if existing != nil {
		return internal.NewConflictError("User is already on this team", internal.ErrCodeTeamMemberExists)
	}

	m := &TeamMember{
		TeamID: teamID,
		UserID: req.UserID,
		Role:   req.Role,
	}
	if err := s.repo.AddMember(ctx, m); err != nil {
		return internal.NewInternalError("failed to add team member", err)
	}
	return nil
}

func (s *Service) RemoveMember(ctx context.Context, actorID, teamID, userID string) error {
	_, orgID, err := s.getActive(ctx, teamID)
	if err != nil {
		return err
	}
	if err := s.requireManage(ctx, actorID, orgID); err != nil {
		return err
	}

	existing, err := s.repo.GetMember(ctx, teamID, userID)
	if err != nil {
		return internal.NewInternalError("failed to look up team member", err)
	}
	if existing == nil {
		return internal.ErrTeamMemberNotFound
	}

	if err := s.repo.RemoveMember(ctx, teamID, userID); err != nil {
		return internal.NewInternalError("failed to remove team member", err)
	}
	return nil
}
