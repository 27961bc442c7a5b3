package department_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/evomaxseipio/evotrack-backend/internal"
	"github.com/evomaxseipio/evotrack-backend/internal/department"
	"github.com/evomaxseipio/evotrack-backend/internal/pagination"
)

func TestDepartment(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Department Module Suite")
}

// Mock repository
type mockDeptRepo struct {
	byID       map[string]*department.Department
	searchRows []*department.Department
	stats      *department.Stats
	userCounts map[string]int64
	teamCounts map[string]int64
	nextID     int
}

func newMockDeptRepo() *mockDeptRepo {
	return &mockDeptRepo{
		byID:       make(map[string]*department.Department),
		userCounts: make(map[string]int64),
		teamCounts: make(map[string]int64),
		nextID:     1,
	}
}

func (m *mockDeptRepo) add(d *department.Department) *department.Department {
	m.byID[d.ID] = d
	return d
}

func (m *mockDeptRepo) Create(ctx context.Context, d *department.Department) error {
	if d.ID == "" {
		d.ID = fmt.Sprintf("dept-%d", m.nextID)
		m.nextID++
	}
	m.byID[d.ID] = d
	return nil
}

func (m *mockDeptRepo) GetByID(ctx context.Context, id string) (*department.Department, error) {
	return m.byID[id], nil
}

func (m *mockDeptRepo) Update(ctx context.Context, d *department.Department) error {
	m.byID[d.ID] = d
	return nil
}

func (m *mockDeptRepo) ListByOrganization(ctx context.Context, orgID string, includeInactive bool) ([]*department.Department, error) {
	var out []*department.Department
	for _, d := range m.byID {
		if d.OrganizationID != orgID {
			continue
		}
		if !includeInactive && !d.IsActive {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (m *mockDeptRepo) CountActiveChildren(ctx context.Context, deptID string) (int64, error) {
	var count int64
	for _, d := range m.byID {
		if d.ParentID != nil && *d.ParentID == deptID && d.IsActive {
			count++
		}
	}
	return count, nil
}

func (m *mockDeptRepo) UserCountsByDepartment(ctx context.Context, orgID string) (map[string]int64, error) {
	return m.userCounts, nil
}

func (m *mockDeptRepo) TeamCountsByDepartment(ctx context.Context, orgID string) (map[string]int64, error) {
	return m.teamCounts, nil
}

func (m *mockDeptRepo) Search(ctx context.Context, orgID string, req department.SearchRequest, params pagination.Params) ([]*department.Department, error) {
	return m.searchRows, nil
}

func (m *mockDeptRepo) Stats(ctx context.Context, orgID string) (*department.Stats, error) {
	return m.stats, nil
}

// Mock membership checker
type mockMemberships struct {
	roles map[string]internal.Role
}

func newMockMemberships() *mockMemberships {
	return &mockMemberships{roles: make(map[string]internal.Role)}
}

func (m *mockMemberships) set(userID, orgID string, role internal.Role) {
	m.roles[userID+"|"+orgID] = role
}

func (m *mockMemberships) RoleOf(ctx context.Context, userID, orgID string) (internal.Role, error) {
	role, ok := m.roles[userID+"|"+orgID]
	if !ok {
		return "", internal.ErrNotMember
	}
	return role, nil
}

func (m *mockMemberships) IsMember(ctx context.Context, userID, orgID string) (bool, error) {
	_, ok := m.roles[userID+"|"+orgID]
	return ok, nil
}

// Mock user assigner
type mockAssigner struct {
	assigned map[string]*string
}

func (m *mockAssigner) SetDepartment(ctx context.Context, userID string, departmentID *string) error {
	m.assigned[userID] = departmentID
	return nil
}

var _ = Describe("DepartmentService", func() {
	const orgID = "org-1"

	var (
		service     *department.Service
		repo        *mockDeptRepo
		memberships *mockMemberships
		assigner    *mockAssigner
	)

	dept := func(id string, parentID *string) *department.Department {
		return repo.add(&department.Department{
			ID:             id,
			OrganizationID: orgID,
			Name:           id,
			ParentID:       parentID,
			IsActive:       true,
		})
	}

	BeforeEach(func() {
		repo = newMockDeptRepo()
		memberships = newMockMemberships()
		assigner = &mockAssigner{assigned: make(map[string]*string)}
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		service = department.NewService(repo, memberships, assigner, lg)

		memberships.set("manager", orgID, internal.RoleAdmin)
		memberships.set("employee", orgID, internal.RoleEmployee)
	})

	Describe("Create", func() {
		It("creates a root department", func() {
			resp, err := service.Create(context.Background(), "manager", orgID, department.CreateDepartmentRequest{
				Name: "Engineering",
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Name).To(Equal("Engineering"))
			Expect(resp.ParentID).To(BeNil())
		})

		It("rejects a parent from another organization", func() {
			repo.add(&department.Department{ID: "foreign", OrganizationID: "org-2", Name: "x", IsActive: true})
			parent := "foreign"

			_, err := service.Create(context.Background(), "manager", orgID, department.CreateDepartmentRequest{
				Name:     "Engineering",
				ParentID: &parent,
			})

			Expect(err).To(Equal(internal.ErrDepartmentNotFound))
		})

		It("requires the head to be an organization member", func() {
			head := "outsider"

			_, err := service.Create(context.Background(), "manager", orgID, department.CreateDepartmentRequest{
				Name:       "Engineering",
				HeadUserID: &head,
			})

			Expect(err).To(HaveOccurred())
		})

		It("refuses employees", func() {
			_, err := service.Create(context.Background(), "employee", orgID, department.CreateDepartmentRequest{
				Name: "Engineering",
			})
			Expect(err).To(Equal(internal.ErrInsufficientRole))
		})
	})

	Describe("Update reparenting", func() {
		It("rejects making a department its own parent", func() {
			dept("a", nil)
			self := "a"

			_, err := service.Update(context.Background(), "manager", orgID, "a", department.UpdateDepartmentRequest{
				ParentID: &self,
			})

			Expect(err).To(Equal(internal.ErrHierarchyCycle))
		})

		It("rejects a cycle through descendants", func() {
			a := dept("a", nil)
			b := dept("b", &a.ID)
			c := dept("c", &b.ID)

			// a -> c would close a cycle: c -> b -> a
			_, err := service.Update(context.Background(), "manager", orgID, "a", department.UpdateDepartmentRequest{
				ParentID: &c.ID,
			})

			Expect(err).To(Equal(internal.ErrHierarchyCycle))
		})

		It("allows moving to a sibling subtree", func() {
			a := dept("a", nil)
			dept("b", &a.ID)
			c := dept("c", nil)

			resp, err := service.Update(context.Background(), "manager", orgID, "b", department.UpdateDepartmentRequest{
				ParentID: &c.ID,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(*resp.ParentID).To(Equal("c"))
		})

		It("rejects chains beyond the depth bound", func() {
			parent := dept("d0", nil)
			for i := 1; i <= department.MaxHierarchyDepth; i++ {
				parent = dept(fmt.Sprintf("d%d", i), &parent.ID)
			}
			leaf := dept("leaf", nil)

			_, err := service.Update(context.Background(), "manager", orgID, leaf.ID, department.UpdateDepartmentRequest{
				ParentID: &parent.ID,
			})

			Expect(err).To(Equal(internal.ErrHierarchyTooDeep))
		})

		It("clears the parent on request", func() {
			a := dept("a", nil)
			b := dept("b", &a.ID)

			resp, err := service.Update(context.Background(), "manager", orgID, b.ID, department.UpdateDepartmentRequest{
				RemoveParent: true,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(resp.ParentID).To(BeNil())
		})
	})

	Describe("Delete", func() {
		It("soft-deletes a leaf department", func() {
			dept("a", nil)

			Expect(service.Delete(context.Background(), "manager", orgID, "a")).To(Succeed())
			Expect(repo.byID["a"].IsActive).To(BeFalse())
		})

		It("refuses departments with active children", func() {
			a := dept("a", nil)
			dept("b", &a.ID)

			err := service.Delete(context.Background(), "manager", orgID, "a")

			Expect(err).To(Equal(internal.ErrHasSubDepartments))
			Expect(repo.byID["a"].IsActive).To(BeTrue())
		})

		It("allows deletion once children are inactive", func() {
			a := dept("a", nil)
			b := dept("b", &a.ID)
			b.IsActive = false

			Expect(service.Delete(context.Background(), "manager", orgID, "a")).To(Succeed())
		})
	})

	Describe("ListTree", func() {
		It("assembles the forest with counts and sorted siblings", func() {
			a := dept("alpha", nil)
			dept("zeta", nil)
			dept("beta", &a.ID)
			repo.userCounts["alpha"] = 7
			repo.teamCounts["beta"] = 2

			roots, err := service.ListTree(context.Background(), "employee", orgID)

			Expect(err).NotTo(HaveOccurred())
			Expect(roots).To(HaveLen(2))
			Expect(roots[0].Name).To(Equal("alpha"))
			Expect(roots[1].Name).To(Equal("zeta"))
			Expect(roots[0].UserCount).To(Equal(int64(7)))
			Expect(roots[0].Children).To(HaveLen(1))
			Expect(roots[0].Children[0].TeamCount).To(Equal(int64(2)))
		})

		It("promotes children of missing parents to roots", func() {
			ghost := "ghost"
			dept("orphan", &ghost)

			roots, err := service.ListTree(context.Background(), "employee", orgID)

			Expect(err).NotTo(HaveOccurred())
			Expect(roots).To(HaveLen(1))
			Expect(roots[0].Name).To(Equal("orphan"))
		})
	})

	Describe("Search", func() {
		It("pages results with a cursor", func() {
			repo.searchRows = []*department.Department{
				{ID: "a", OrganizationID: orgID, Name: "a", IsActive: true},
				{ID: "b", OrganizationID: orgID, Name: "b", IsActive: true},
			}

			resp, err := service.Search(context.Background(), "employee", orgID, department.SearchRequest{
				Query: "dep",
				Limit: 1,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Data).To(HaveLen(1))
			Expect(resp.Pagination.HasMore).To(BeTrue())
		})

		It("rejects a broken cursor", func() {
			_, err := service.Search(context.Background(), "employee", orgID, department.SearchRequest{
				Cursor: "garbage",
			})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("AssignUser", func() {
		It("assigns a member to a department", func() {
			dept("a", nil)
			target := "a"

			Expect(service.AssignUser(context.Background(), "manager", orgID, "employee", &target)).To(Succeed())
			Expect(*assigner.assigned["employee"]).To(Equal("a"))
		})

		It("clears the assignment with a null department", func() {
			Expect(service.AssignUser(context.Background(), "manager", orgID, "employee", nil)).To(Succeed())

			v, ok := assigner.assigned["employee"]
			Expect(ok).To(BeTrue())
			Expect(v).To(BeNil())
		})

		It("refuses non-member targets", func() {
			err := service.AssignUser(context.Background(), "manager", orgID, "outsider", nil)
			Expect(err).To(Equal(internal.ErrUserNotFound))
		})

		It("refuses inactive departments", func() {
			d := dept("a", nil)
			d.IsActive = false
			target := "a"

			err := service.AssignUser(context.Background(), "manager", orgID, "employee", &target)
			Expect(err).To(Equal(internal.ErrDepartmentNotFound))
		})
	})

	Describe("OrganizationIDOf", func() {
		It("resolves an active department", func() {
			dept("a", nil)

			id, err := service.OrganizationIDOf(context.Background(), "a")
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(orgID))
		})

		It("hides inactive departments", func() {
			d := dept("a", nil)
			d.IsActive = false

			_, err := service.OrganizationIDOf(context.Background(), "a")
			Expect(err).To(Equal(internal.ErrDepartmentNotFound))
		})
	})
})
