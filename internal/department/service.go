package department

import (
	"context"
	"log/slog"
	"sort"

	"github.com/evomaxseipio/evotrack-backend/internal"
	"github.com/evomaxseipio/evotrack-backend/internal/pagination"
)

type RepositoryAPI interface {
	Create(ctx context.Context, d *Department) error
	GetByID(ctx context.Context, id string) (*Department, error)
	Update(ctx context.Context, d *Department) error
	ListByOrganization(ctx context.Context, orgID string, includeInactive bool) ([]*Department, error)
	CountActiveChildren(ctx context.Context, deptID string) (int64, error)
	UserCountsByDepartment(ctx context.Context, orgID string) (map[string]int64, error)
	TeamCountsByDepartment(ctx context.Context, orgID string) (map[string]int64, error)
	Search(ctx context.Context, orgID string, req SearchRequest, params pagination.Params) ([]*Department, error)
	Stats(ctx context.Context, orgID string) (*Stats, error)
}

// MembershipChecker answers role questions for authorization.
type MembershipChecker interface {
	RoleOf(ctx context.Context, userID, orgID string) (internal.Role, error)
	IsMember(ctx context.Context, userID, orgID string) (bool, error)
}

// UserAssigner persists a user's department assignment.
type UserAssigner interface {
	SetDepartment(ctx context.Context, userID string, departmentID *string) error
}

type Service struct {
	repo        RepositoryAPI
	memberships MembershipChecker
	users       UserAssigner
	logger      *slog.Logger
}

func NewService(repo RepositoryAPI, memberships MembershipChecker, users UserAssigner, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		memberships: memberships,
		users:       users,
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

func (s *Service) requireMember(ctx context.Context, actorID, orgID string) error {
	_, err := s.memberships.RoleOf(ctx, actorID, orgID)
	return err
}

// getInOrg loads an active department belonging to the organization.
func (s *Service) getInOrg(ctx context.Context, orgID, deptID string) (*Department, error) {
	d, err := s.repo.GetByID(ctx, deptID)
	if err != nil {
		return nil, internal.NewInternalError("failed to look up department", err)
	}
	if d == nil || d.OrganizationID != orgID || !d.IsActive {
		return nil, internal.ErrDepartmentNotFound
	}
	return d, nil
}

// checkNoCycle walks the ancestor chain starting at the proposed
// parent. Reaching the department itself, revisiting a node, or
// exceeding MaxHierarchyDepth rejects the parent.
func (s *Service) checkNoCycle(ctx context.Context, deptID, parentID string) error {
	visited := map[string]bool{deptID: true}

	current := parentID
	for depth := 0; current != ""; depth++ {
		if depth >= MaxHierarchyDepth {
			return internal.ErrHierarchyTooDeep
		}
		if visited[current] {
			return internal.ErrHierarchyCycle
		}
		visited[current] = true

		node, err := s.repo.GetByID(ctx, current)
		if err != nil {
			return internal.NewInternalError("failed to walk hierarchy", err)
		}
		if node == nil || node.ParentID == nil {
			return nil
		}
		current = *node.ParentID
	}
	return nil
}

func (s *Service) Create(ctx context.Context, actorID, orgID string, req CreateDepartmentRequest) (*DepartmentResponse, error) {
	if err := s.requireManage(ctx, actorID, orgID); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.ParentID != nil {
		if _, err := s.getInOrg(ctx, orgID, *req.ParentID); err != nil {
			return nil, err
		}
	}
	if req.HeadUserID != nil {
		member, err := s.memberships.IsMember(ctx, *req.HeadUserID, orgID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, internal.NewValidationError("Department head must be a member of the organization", internal.ErrCodeValidationFailed)
		}
	}

	d := &Department{
		OrganizationID: orgID,
		Name:           req.Name,
		Description:    req.Description,
		ParentID:       req.ParentID,
		HeadUserID:     req.HeadUserID,
		Budget:         req.Budget,
		IsActive:       true,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, internal.NewInternalError("failed to create department", err)
	}

	resp := ToResponse(d)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, actorID, orgID, deptID string) (*DepartmentResponse, error) {
	if err := s.requireMember(ctx, actorID, orgID); err != nil {
		return nil, err
	}
	d, err := s.getInOrg(ctx, orgID, deptID)
	if err != nil {
		return nil, err
	}
	resp := ToResponse(d)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, actorID, orgID, deptID string, req UpdateDepartmentRequest) (*DepartmentResponse, error) {
	if err := s.requireManage(ctx, actorID, orgID); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	d, err := s.getInOrg(ctx, orgID, deptID)
	if err != nil {
		return nil, err
	}

	if req.ParentID != nil {
		if *req.ParentID == d.ID {
			return nil, internal.ErrHierarchyCycle
		}
		if _, err := s.getInOrg(ctx, orgID, *req.ParentID); err != nil {
			return nil, err
		}
		if err := s.checkNoCycle(ctx, d.ID, *req.ParentID); err != nil {
			return nil, err
		}
		d.ParentID = req.ParentID
	}
	if req.RemoveParent {
		d.ParentID = nil
	}

	if req.HeadUserID != nil {
		member, err := s.memberships.IsMember(ctx, *req.HeadUserID, orgID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, internal.NewValidationError("Department head must be a member of the organization", internal.ErrCodeValidationFailed)
		}
		d.HeadUserID = req.HeadUserID
	}
	if req.RemoveHead {
		d.HeadUserID = nil
	}

	if req.Name != nil {
		d.Name = *req.Name
	}
	if req.Description != nil {
		d.Description = req.Description
	}
	if req.Budget != nil {
		d.Budget = req.Budget
	}

	if err := s.repo.Update(ctx, d); err != nil {
		return nil, internal.NewInternalError("failed to update department", err)
	}
	resp := ToResponse(d)
	return &resp, nil
}

// Delete soft-deletes a department once it has no active children.
func (s *Service) Delete(ctx context.Context, actorID, orgID, deptID string) error {
	if err := s.requireManage(ctx, actorID, orgID); err != nil {
		return err
	}

	d, err := s.getInOrg(ctx, orgID, deptID)
	if err != nil {
		return err
	}

	children, err := s.repo.CountActiveChildren(ctx, d.ID)
	if err != nil {
		return internal.NewInternalError("failed to count sub-departments", err)
	}
	if children > 0 {
		return internal.ErrHasSubDepartments
	}

	d.IsActive = false
	if err := s.repo.Update(ctx, d); err != nil {
		return internal.NewInternalError("failed to delete department", err)
	}
	return nil
}

// ListTree assembles the organization's active departments into a
// forest with per-node user and team counts.
func (s *Service) ListTree(ctx context.Context, actorID, orgID string) ([]*TreeNode, error) {
	if err := s.requireMember(ctx, actorID, orgID); err != nil {
		return nil, err
	}

	departments, err := s.repo.ListByOrganization(ctx, orgID, false)
	if err != nil {
		return nil, internal.NewInternalError("failed to list departments", err)
	}
	userCounts, err := s.repo.UserCountsByDepartment(ctx, orgID)
	if err != nil {
		return nil, internal.NewInternalError("failed to count department users", err)
	}
	teamCounts, err := s.repo.TeamCountsByDepartment(ctx, orgID)
	if err != nil {
		return nil, internal.NewInternalError("failed to count department teams", err)
	}

	nodes := make(map[string]*TreeNode, len(departments))
	for _, d := range departments {
		nodes[d.ID] = &TreeNode{
			DepartmentResponse: ToResponse(d),
			UserCount:          userCounts[d.ID],
			TeamCount:          teamCounts[d.ID],
			Children:           []*TreeNode{},
		}
	}

	var roots []*TreeNode
	for _, d := range departments {
		node := nodes[d.ID]
		if d.ParentID != nil {
			if parent, ok := nodes[*d.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	sortTree(roots)
	return roots, nil
}

func sortTree(nodes []*TreeNode) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
	for _, n := range nodes {
		sortTree(n.Children)
	}
}

func (s *Service) OrgStats(ctx context.Context, actorID, orgID string) (*Stats, error) {
	if err := s.requireMember(ctx, actorID, orgID); err != nil {
		return nil, err
	}
	stats, err := s.repo.Stats(ctx, orgID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load department stats", err)
	}
	return stats, nil
}

// Search returns one cursor page of departments matching the name or
// description filter.
func (s *Service) Search(ctx context.Context, actorID, orgID string, req SearchRequest) (*SearchResponse, error) {
	if err := s.requireMember(ctx, actorID, orgID); err != nil {
		return nil, err
	}

	params, err := pagination.ParseParams(req.Cursor, req.Limit)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.Search(ctx, orgID, req, params)
	if err != nil {
		return nil, internal.NewInternalError("failed to search departments", err)
	}

	page, info := pagination.BuildPage(rows, params.Limit, func(d *Department) pagination.Cursor {
		return pagination.Cursor{TS: d.CreatedAt, ID: d.ID}
	})

	data := make([]DepartmentResponse, 0, len(page))
	for _, d := range page {
		data = append(data, ToResponse(d))
	}

	return &SearchResponse{Success: true, Data: data, Pagination: info}, nil
}

// OrganizationIDOf resolves the owning organization of an active
// department. The team module authorizes through this.
func (s *Service) OrganizationIDOf(ctx context.Context, deptID string) (string, error) {
	d, err := s.repo.GetByID(ctx, deptID)
	if err != nil {
		return "", internal.NewInternalError("failed to look up department", err)
	}
	if d == nil || !d.IsActive {
		return "", internal.ErrDepartmentNotFound
	}
	return d.OrganizationID, nil
}

// AssignUser moves an organization member into a department, or out of
// any department when the id is null.
func (s *Service) AssignUser(ctx context.Context, actorID, orgID, userID string, departmentID *string) error {
	if err := s.requireManage(ctx, actorID, orgID); err != nil {
		return err
	}

	member, err := s.memberships.IsMember(ctx, userID, orgID)
	if err != nil {
		return err
	}
	if !member {
		return internal.ErrUserNotFound
	}

	if departmentID != nil {
		if _, err := s.getInOrg(ctx, orgID, *departmentID); err != nil {
			return err
		}
	}

	if err := s.users.SetDepartment(ctx, userID, departmentID); err != nil {
		return internal.NewInternalError("failed to assign department", err)
	}
	return nil
}
