package postgres_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/evomaxseipio/evotrack-backend/internal"
	"github.com/evomaxseipio/evotrack-backend/internal/department"
	"github.com/evomaxseipio/evotrack-backend/internal/organization"
	orgPostgres "github.com/evomaxseipio/evotrack-backend/internal/organization/postgres"
	"github.com/evomaxseipio/evotrack-backend/internal/user"
)

func TestOrganizationPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Organization Postgres Suite")
}

var _ = Describe("Organization Repository", func() {
	var (
		db   *gorm.DB
		repo organization.OrganizationRepositoryAPI
		ctx  context.Context
	)

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&organization.Organization{}, &department.Department{})
		Expect(err).NotTo(HaveOccurred())

		repo = orgPostgres.NewOrganizationRepository(db)
		ctx = context.Background()
	})

	It("assigns an id on create", func() {
		o := &organization.Organization{Name: "Acme", Slug: "acme", IsActive: true}

		Expect(repo.Create(ctx, o)).To(Succeed())
		Expect(o.ID).NotTo(BeEmpty())
	})

	It("reports slug existence", func() {
		Expect(repo.Create(ctx, &organization.Organization{Name: "Acme", Slug: "acme", IsActive: true})).To(Succeed())

		exists, err := repo.SlugExists(ctx, "acme")
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeTrue())

		exists, err = repo.SlugExists(ctx, "acme-2")
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeFalse())
	})

	It("finds an organization by tax id", func() {
		taxID := "12-3456789"
		Expect(repo.Create(ctx, &organization.Organization{Name: "Acme", Slug: "acme", TaxID: &taxID, IsActive: true})).To(Succeed())

		found, err := repo.GetByTaxID(ctx, "12-3456789")
		Expect(err).NotTo(HaveOccurred())
		Expect(found).NotTo(BeNil())

		missing, err := repo.GetByTaxID(ctx, "99-9999999")
		Expect(err).NotTo(HaveOccurred())
		Expect(missing).To(BeNil())
	})

	It("filters soft-deleted organizations out of GetByIDs", func() {
		a := &organization.Organization{Name: "A", Slug: "a", IsActive: true}
		b := &organization.Organization{Name: "B", Slug: "b", IsActive: false}
		Expect(repo.Create(ctx, a)).To(Succeed())
		Expect(repo.Create(ctx, b)).To(Succeed())

		orgs, err := repo.GetByIDs(ctx, []string{a.ID, b.ID})
		Expect(err).NotTo(HaveOccurred())
		Expect(orgs).To(HaveLen(1))
		Expect(orgs[0].ID).To(Equal(a.ID))
	})

	It("counts only active departments", func() {
		o := &organization.Organization{Name: "Acme", Slug: "acme", IsActive: true}
		Expect(repo.Create(ctx, o)).To(Succeed())
		Expect(db.Create(&department.Department{ID: "d1", OrganizationID: o.ID, Name: "Eng", IsActive: true}).Error).To(Succeed())
		Expect(db.Create(&department.Department{ID: "d2", OrganizationID: o.ID, Name: "Old", IsActive: false}).Error).To(Succeed())

		count, err := repo.CountActiveDepartments(ctx, o.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(int64(1)))
	})
})

var _ = Describe("Membership Repository", func() {
	const orgID = "org-1"

	var (
		db   *gorm.DB
		repo organization.MembershipRepositoryAPI
		ctx  context.Context
	)

	seedUser := func(id string, status user.Status) {
		Expect(db.Create(&user.User{
			ID:        id,
			Email:     id + "@example.com",
			FirstName: "F-" + id,
			LastName:  "L-" + id,
			Status:    status,
		}).Error).To(Succeed())
	}

	membership := func(userID string, role internal.Role, active bool, joinedAt time.Time) {
		Expect(db.Create(&organization.Membership{
			ID:             "mem-" + userID,
			UserID:         userID,
			OrganizationID: orgID,
			Role:           role,
			IsActive:       active,
			JoinedAt:       joinedAt,
		}).Error).To(Succeed())
	}

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&user.User{}, &organization.Membership{})
		Expect(err).NotTo(HaveOccurred())

		repo = orgPostgres.NewMembershipRepository(db)
		ctx = context.Background()
	})

	It("round-trips a membership", func() {
		seedUser("u1", user.StatusActive)
		membership("u1", internal.RoleManager, true, time.Now())

		m, err := repo.Get(ctx, "u1", orgID)
		Expect(err).NotTo(HaveOccurred())
		Expect(m).NotTo(BeNil())
		Expect(m.Role).To(Equal(internal.RoleManager))

		m, err = repo.Get(ctx, "u1", "other-org")
		Expect(err).NotTo(HaveOccurred())
		Expect(m).To(BeNil())
	})

	Describe("CountOwners", func() {
		It("ignores owners whose account is not active", func() {
			seedUser("active-owner", user.StatusActive)
			seedUser("inactive-owner", user.StatusInactive)
			seedUser("admin", user.StatusActive)
			membership("active-owner", internal.RoleOwner, true, time.Now())
			membership("inactive-owner", internal.RoleOwner, true, time.Now())
			membership("admin", internal.RoleAdmin, true, time.Now())

			count, err := repo.CountOwners(ctx, orgID)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(1)))
		})

		It("ignores deactivated owner memberships", func() {
			seedUser("removed-owner", user.StatusActive)
			membership("removed-owner", internal.RoleOwner, false, time.Now())

			count, err := repo.CountOwners(ctx, orgID)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeZero())
		})
	})

	It("lists only active memberships of a user", func() {
		seedUser("u1", user.StatusActive)
		membership("u1", internal.RoleEmployee, true, time.Now())
		Expect(db.Create(&organization.Membership{
			ID: "mem-u1-2", UserID: "u1", OrganizationID: "org-2",
			Role: internal.RoleOwner, IsActive: false, JoinedAt: time.Now(),
		}).Error).To(Succeed())

		memberships, err := repo.ListByUser(ctx, "u1")
		Expect(err).NotTo(HaveOccurred())
		Expect(memberships).To(HaveLen(1))
		Expect(memberships[0].OrganizationID).To(Equal(orgID))
	})

	It("lists members joined-first with joined data", func() {
		base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		seedUser("late", user.StatusActive)
		seedUser("early", user.StatusActive)
		membership("late", internal.RoleEmployee, true, base.Add(time.Hour))
		membership("early", internal.RoleOwner, true, base)

		records, err := repo.ListMembers(ctx, orgID)
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(2))
		Expect(records[0].UserID).To(Equal("early"))
		Expect(records[0].Role).To(Equal(internal.RoleOwner))
		Expect(records[0].Email).NotTo(BeNil())
		Expect(records[1].UserID).To(Equal("late"))
	})
})

var _ = Describe("Invitation Repository", func() {
	var (
		db   *gorm.DB
		repo organization.InvitationRepositoryAPI
		ctx  context.Context
	)

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&organization.Invitation{})
		Expect(err).NotTo(HaveOccurred())

		repo = orgPostgres.NewInvitationRepository(db)
		ctx = context.Background()
	})

	newInvitation := func(email, token string) *organization.Invitation {
		return &organization.Invitation{
			OrganizationID: "org-1",
			Email:          email,
			Role:           internal.RoleEmployee,
			Token:          token,
			Status:         organization.InvitationPending,
			InvitedBy:      "admin",
			ExpiresAt:      time.Now().Add(time.Hour),
		}
	}

	It("finds an invitation by token", func() {
		inv := newInvitation("a@example.com", "tok-1")
		Expect(repo.Create(ctx, inv)).To(Succeed())

		found, err := repo.GetByToken(ctx, "tok-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(found).NotTo(BeNil())
		Expect(found.Email).To(Equal("a@example.com"))

		missing, err := repo.GetByToken(ctx, "nope")
		Expect(err).NotTo(HaveOccurred())
		Expect(missing).To(BeNil())
	})

	It("only surfaces pending invitations by email", func() {
		accepted := newInvitation("a@example.com", "tok-1")
		accepted.Status = organization.InvitationAccepted
		Expect(repo.Create(ctx, accepted)).To(Succeed())

		pending, err := repo.GetPendingByEmail(ctx, "org-1", "a@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(pending).To(BeNil())

		Expect(repo.Create(ctx, newInvitation("a@example.com", "tok-2"))).To(Succeed())

		pending, err = repo.GetPendingByEmail(ctx, "org-1", "a@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(pending).NotTo(BeNil())
		Expect(pending.Token).To(Equal("tok-2"))
	})

	It("rolls back the whole batch on a duplicate token", func() {
		Expect(repo.Create(ctx, newInvitation("first@example.com", "tok-1"))).To(Succeed())

		err := repo.CreateBatch(ctx, []*organization.Invitation{
			newInvitation("b@example.com", "tok-2"),
			newInvitation("c@example.com", "tok-1"), // collides
		})
		Expect(err).To(HaveOccurred())

		var count int64
		Expect(db.Model(&organization.Invitation{}).Count(&count).Error).To(Succeed())
		Expect(count).To(Equal(int64(1)))
	})

	It("persists a whole valid batch", func() {
		err := repo.CreateBatch(ctx, []*organization.Invitation{
			newInvitation("b@example.com", "tok-2"),
			newInvitation("c@example.com", "tok-3"),
		})
		Expect(err).NotTo(HaveOccurred())

		var count int64
		Expect(db.Model(&organization.Invitation{}).Count(&count).Error).To(Succeed())
		Expect(count).To(Equal(int64(2)))
	})
})
