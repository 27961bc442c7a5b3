package organization_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/evomaxseipio/evotrack-backend/internal"
	"github.com/evomaxseipio/evotrack-backend/internal/core/events"
	"github.com/evomaxseipio/evotrack-backend/internal/organization"
	"github.com/evomaxseipio/evotrack-backend/internal/user"
)

func TestOrganization(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Organization Module Suite")
}

// Mock organization repository
type mockOrgRepo struct {
	byID   map[string]*organization.Organization
	nextID int
	depts  int64
}

func newMockOrgRepo() *mockOrgRepo {
	return &mockOrgRepo{byID: make(map[string]*organization.Organization), nextID: 1}
}

func (m *mockOrgRepo) add(o *organization.Organization) *organization.Organization {
	m.byID[o.ID] = o
	return o
}

func (m *mockOrgRepo) Create(ctx context.Context, o *organization.Organization) error {
	if o.ID == "" {
		o.ID = fmt.Sprintf("org-%d", m.nextID)
		m.nextID++
	}
	m.byID[o.ID] = o
	return nil
}

func (m *mockOrgRepo) GetByID(ctx context.Context, id string) (*organization.Organization, error) {
	return m.byID[id], nil
}

func (m *mockOrgRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	for _, o := range m.byID {
		if o.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockOrgRepo) GetByTaxID(ctx context.Context, taxID string) (*organization.Organization, error) {
	for _, o := range m.byID {
		if o.TaxID != nil && *o.TaxID == taxID {
			return o, nil
		}
	}
	return nil, nil
}

func (m *mockOrgRepo) Update(ctx context.Context, o *organization.Organization) error {
	m.byID[o.ID] = o
	return nil
}

func (m *mockOrgRepo) GetByIDs(ctx context.Context, ids []string) ([]*organization.Organization, error) {
	out := make([]*organization.Organization, 0, len(ids))
	for _, id := range ids {
		if o, ok := m.byID[id]; ok && o.IsActive {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockOrgRepo) CountActiveDepartments(ctx context.Context, orgID string) (int64, error) {
	return m.depts, nil
}

// Mock membership repository
type mockMembershipRepo struct {
	rows    map[string]*organization.Membership
	members []organization.MemberRecord
	nextID  int
}

func newMockMembershipRepo() *mockMembershipRepo {
	return &mockMembershipRepo{rows: make(map[string]*organization.Membership), nextID: 1}
}

func (m *mockMembershipRepo) key(userID, orgID string) string {
	return userID + "|" + orgID
}

func (m *mockMembershipRepo) Create(ctx context.Context, mem *organization.Membership) error {
	if mem.ID == "" {
		mem.ID = fmt.Sprintf("mem-%d", m.nextID)
		m.nextID++
	}
	if mem.JoinedAt.IsZero() {
		mem.JoinedAt = time.Now()
	}
	m.rows[m.key(mem.UserID, mem.OrganizationID)] = mem
	return nil
}

func (m *mockMembershipRepo) Get(ctx context.Context, userID, orgID string) (*organization.Membership, error) {
	return m.rows[m.key(userID, orgID)], nil
}

func (m *mockMembershipRepo) Update(ctx context.Context, mem *organization.Membership) error {
	m.rows[m.key(mem.UserID, mem.OrganizationID)] = mem
	return nil
}

func (m *mockMembershipRepo) CountOwners(ctx context.Context, orgID string) (int64, error) {
	var count int64
	for _, mem := range m.rows {
		if mem.OrganizationID == orgID && mem.Role == internal.RoleOwner && mem.IsActive {
			count++
		}
	}
	return count, nil
}

func (m *mockMembershipRepo) ListByUser(ctx context.Context, userID string) ([]*organization.Membership, error) {
	var out []*organization.Membership
	for _, mem := range m.rows {
		if mem.UserID == userID && mem.IsActive {
			out = append(out, mem)
		}
	}
	return out, nil
}

func (m *mockMembershipRepo) ListMembers(ctx context.Context, orgID string) ([]organization.MemberRecord, error) {
	return m.members, nil
}

// Mock user directory
type mockUserDirectory struct {
	byID map[string]*user.User
}

func newMockUserDirectory() *mockUserDirectory {
	return &mockUserDirectory{byID: make(map[string]*user.User)}
}

func (m *mockUserDirectory) add(u *user.User) *user.User {
	m.byID[u.ID] = u
	return u
}

func (m *mockUserDirectory) GetByID(ctx context.Context, id string) (*user.User, error) {
	return m.byID[id], nil
}

func (m *mockUserDirectory) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

// Mock user stats provider
type mockUserStats struct {
	stats *user.Stats
	err   error
}

func (m *mockUserStats) StatsByOrganization(ctx context.Context, orgID string) (*user.Stats, error) {
	return m.stats, m.err
}

var _ = Describe("OrganizationService", func() {
	var (
		service     *organization.Service
		orgRepo     *mockOrgRepo
		memRepo     *mockMembershipRepo
		memberships *organization.MembershipService
		users       *mockUserDirectory
		stats       *mockUserStats
	)

	member := func(userID, orgID string, role internal.Role) {
		memRepo.rows[memRepo.key(userID, orgID)] = &organization.Membership{
			ID:             "mem-" + userID,
			UserID:         userID,
			OrganizationID: orgID,
			Role:           role,
			IsActive:       true,
			JoinedAt:       time.Now(),
		}
	}

	BeforeEach(func() {
		orgRepo = newMockOrgRepo()
		memRepo = newMockMembershipRepo()
		memberships = organization.NewMembershipService(memRepo)
		users = newMockUserDirectory()
		stats = &mockUserStats{stats: &user.Stats{TotalUsers: 5, ActiveUsers: 4, PendingActivation: 1}}
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		service = organization.NewService(orgRepo, memberships, stats, users, events.NewEventBus(lg), lg)
	})

	Describe("Create", func() {
		It("derives a slug from the name and makes the creator owner", func() {
			resp, err := service.Create(context.Background(), "u1", organization.CreateOrganizationRequest{
				Name: "Acme Corp",
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Slug).To(Equal("acme-corp"))
			Expect(resp.Role).To(Equal(internal.RoleOwner))

			role, err := memberships.RoleOf(context.Background(), "u1", resp.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(role).To(Equal(internal.RoleOwner))
		})

		It("suffixes the slug when it is taken", func() {
			orgRepo.add(&organization.Organization{ID: "org-0", Name: "Acme", Slug: "acme-corp", IsActive: true})

			resp, err := service.Create(context.Background(), "u1", organization.CreateOrganizationRequest{
				Name: "Acme Corp",
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Slug).To(Equal("acme-corp-2"))
		})

		It("rejects a duplicate tax id", func() {
			taxID := "12-3456789"
			orgRepo.add(&organization.Organization{ID: "org-0", Name: "Other", Slug: "other", TaxID: &taxID, IsActive: true})

			_, err := service.Create(context.Background(), "u1", organization.CreateOrganizationRequest{
				Name:  "Acme Corp",
				TaxID: &taxID,
			})

			Expect(err).To(Equal(internal.ErrTaxIDExists))
		})

		It("rejects a blank name", func() {
			_, err := service.Create(context.Background(), "u1", organization.CreateOrganizationRequest{})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Get", func() {
		BeforeEach(func() {
			orgRepo.add(&organization.Organization{ID: "org-1", Name: "Acme", Slug: "acme", IsActive: true})
			member("u1", "org-1", internal.RoleEmployee)
		})

		It("returns the organization with the caller's role", func() {
			resp, err := service.Get(context.Background(), "u1", "org-1")

			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Name).To(Equal("Acme"))
			Expect(resp.Role).To(Equal(internal.RoleEmployee))
		})

		It("refuses non-members", func() {
			_, err := service.Get(context.Background(), "stranger", "org-1")
			Expect(err).To(Equal(internal.ErrNotMember))
		})

		It("hides soft-deleted organizations", func() {
			orgRepo.byID["org-1"].IsActive = false

			_, err := service.Get(context.Background(), "u1", "org-1")
			Expect(err).To(Equal(internal.ErrOrganizationNotFound))
		})
	})

	Describe("Delete", func() {
		BeforeEach(func() {
			orgRepo.add(&organization.Organization{ID: "org-1", Name: "Acme", Slug: "acme", IsActive: true})
			member("owner", "org-1", internal.RoleOwner)
			member("admin", "org-1", internal.RoleAdmin)
		})

		It("soft-deletes for the owner", func() {
			Expect(service.Delete(context.Background(), "owner", "org-1")).To(Succeed())
			Expect(orgRepo.byID["org-1"].IsActive).To(BeFalse())
		})

		It("refuses admins", func() {
			err := service.Delete(context.Background(), "admin", "org-1")
			Expect(err).To(Equal(internal.ErrInsufficientRole))
		})
	})

	Describe("ListMine", func() {
		It("returns each organization with the caller's role and stats", func() {
			orgRepo.add(&organization.Organization{ID: "org-1", Name: "Acme", Slug: "acme", IsActive: true})
			orgRepo.add(&organization.Organization{ID: "org-2", Name: "Globex", Slug: "globex", IsActive: true})
			orgRepo.depts = 3
			member("u1", "org-1", internal.RoleOwner)
			member("u1", "org-2", internal.RoleEmployee)

			results, err := service.ListMine(context.Background(), "u1")

			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			for _, r := range results {
				Expect(r.Stats).NotTo(BeNil())
				Expect(r.Stats.Departments).To(Equal(int64(3)))
			}
		})

		It("degrades stats to nil when the stats source fails", func() {
			orgRepo.add(&organization.Organization{ID: "org-1", Name: "Acme", Slug: "acme", IsActive: true})
			member("u1", "org-1", internal.RoleOwner)
			stats.err = errors.New("stats backend down")

			results, err := service.ListMine(context.Background(), "u1")

			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].Stats).To(BeNil())
		})
	})

	Describe("ListMembers", func() {
		BeforeEach(func() {
			orgRepo.add(&organization.Organization{ID: "org-1", Name: "Acme", Slug: "acme", IsActive: true})
			member("admin", "org-1", internal.RoleAdmin)
			member("emp", "org-1", internal.RoleEmployee)
			email := "someone@example.com"
			memRepo.members = []organization.MemberRecord{
				{UserID: "emp", Email: &email, FirstName: "Some", LastName: "One", Role: internal.RoleEmployee},
			}
		})

		It("includes emails for admins", func() {
			records, err := service.ListMembers(context.Background(), "admin", "org-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(records[0].Email).NotTo(BeNil())
		})

		It("redacts emails for employees", func() {
			records, err := service.ListMembers(context.Background(), "emp", "org-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(records[0].Email).To(BeNil())
		})
	})

	Describe("UpdateMemberRole", func() {
		BeforeEach(func() {
			orgRepo.add(&organization.Organization{ID: "org-1", Name: "Acme", Slug: "acme", IsActive: true})
			member("owner", "org-1", internal.RoleOwner)
			member("emp", "org-1", internal.RoleEmployee)
			users.add(&user.User{ID: "emp", Email: "emp@example.com", FirstName: "Em", LastName: "Ploy", Status: user.StatusActive})
		})

		It("promotes an employee to manager", func() {
			record, err := service.UpdateMemberRole(context.Background(), "owner", "org-1", "emp", organization.UpdateMemberRequest{
				Role: internal.RoleManager,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(record.Role).To(Equal(internal.RoleManager))
		})

		It("never assigns the owner role", func() {
			_, err := service.UpdateMemberRole(context.Background(), "owner", "org-1", "emp", organization.UpdateMemberRequest{
				Role: internal.RoleOwner,
			})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeOwnerImmutable))
		})

		It("never demotes an owner", func() {
			member("owner2", "org-1", internal.RoleOwner)

			_, err := service.UpdateMemberRole(context.Background(), "owner", "org-1", "owner2", organization.UpdateMemberRequest{
				Role: internal.RoleAdmin,
			})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeOwnerImmutable))
		})

		It("rejects an unknown role", func() {
			_, err := service.UpdateMemberRole(context.Background(), "owner", "org-1", "emp", organization.UpdateMemberRequest{
				Role: "superuser",
			})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("RemoveMember", func() {
		BeforeEach(func() {
			orgRepo.add(&organization.Organization{ID: "org-1", Name: "Acme", Slug: "acme", IsActive: true})
			member("owner", "org-1", internal.RoleOwner)
			member("emp", "org-1", internal.RoleEmployee)
			users.add(&user.User{ID: "emp", Email: "emp@example.com", Status: user.StatusActive})
		})

		It("deactivates the membership without deleting it", func() {
			Expect(service.RemoveMember(context.Background(), "owner", "org-1", "emp")).To(Succeed())

			m, _ := memRepo.Get(context.Background(), "emp", "org-1")
			Expect(m).NotTo(BeNil())
			Expect(m.IsActive).To(BeFalse())
		})

		It("refuses to remove an owner", func() {
			member("owner2", "org-1", internal.RoleOwner)

			err := service.RemoveMember(context.Background(), "owner", "org-1", "owner2")
			Expect(err).To(HaveOccurred())
		})

		It("refuses self-removal", func() {
			err := service.RemoveMember(context.Background(), "owner", "org-1", "owner")
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("MembershipService", func() {
	var (
		memRepo     *mockMembershipRepo
		memberships *organization.MembershipService
	)

	BeforeEach(func() {
		memRepo = newMockMembershipRepo()
		memberships = organization.NewMembershipService(memRepo)
	})

	It("treats a deactivated membership as no access", func() {
		memRepo.rows[memRepo.key("u1", "org-1")] = &organization.Membership{
			UserID: "u1", OrganizationID: "org-1", Role: internal.RoleAdmin, IsActive: false,
		}

		_, err := memberships.RoleOf(context.Background(), "u1", "org-1")
		Expect(err).To(Equal(internal.ErrNotMember))

		ok, err := memberships.IsMember(context.Background(), "u1", "org-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("revives a deactivated membership with the new role", func() {
		memRepo.rows[memRepo.key("u1", "org-1")] = &organization.Membership{
			UserID: "u1", OrganizationID: "org-1", Role: internal.RoleAdmin, IsActive: false,
		}

		Expect(memberships.CreateMembership(context.Background(), "u1", "org-1", internal.RoleEmployee)).To(Succeed())

		m, _ := memRepo.Get(context.Background(), "u1", "org-1")
		Expect(m.IsActive).To(BeTrue())
		Expect(m.Role).To(Equal(internal.RoleEmployee))
	})

	It("rejects a second active membership", func() {
		Expect(memberships.CreateMembership(context.Background(), "u1", "org-1", internal.RoleEmployee)).To(Succeed())

		err := memberships.CreateMembership(context.Background(), "u1", "org-1", internal.RoleManager)
		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Code).To(Equal(internal.ErrCodeAlreadyMember))
	})
})
