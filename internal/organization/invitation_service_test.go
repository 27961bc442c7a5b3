package organization_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/evomaxseipio/evotrack-backend/internal"
	"github.com/evomaxseipio/evotrack-backend/internal/core/events"
	"github.com/evomaxseipio/evotrack-backend/internal/organization"
	"github.com/evomaxseipio/evotrack-backend/internal/user"
)

// Mock invitation repository
type mockInvitationRepo struct {
	byID       map[string]*organization.Invitation
	batchError error
	nextID     int
}

func newMockInvitationRepo() *mockInvitationRepo {
	return &mockInvitationRepo{byID: make(map[string]*organization.Invitation), nextID: 1}
}

func (m *mockInvitationRepo) Create(ctx context.Context, i *organization.Invitation) error {
	if i.ID == "" {
		i.ID = fmt.Sprintf("inv-%d", m.nextID)
		m.nextID++
	}
	m.byID[i.ID] = i
	return nil
}

func (m *mockInvitationRepo) CreateBatch(ctx context.Context, invitations []*organization.Invitation) error {
	if m.batchError != nil {
		return m.batchError
	}
	for _, i := range invitations {
		if err := m.Create(ctx, i); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockInvitationRepo) GetByID(ctx context.Context, id string) (*organization.Invitation, error) {
	return m.byID[id], nil
}

func (m *mockInvitationRepo) GetByToken(ctx context.Context, token string) (*organization.Invitation, error) {
	for _, i := range m.byID {
		if i.Token == token {
			return i, nil
		}
	}
	return nil, nil
}

func (m *mockInvitationRepo) GetPendingByEmail(ctx context.Context, orgID, email string) (*organization.Invitation, error) {
	for _, i := range m.byID {
		if i.OrganizationID == orgID && i.Email == email && i.Status == organization.InvitationPending {
			return i, nil
		}
	}
	return nil, nil
}

func (m *mockInvitationRepo) Update(ctx context.Context, i *organization.Invitation) error {
	m.byID[i.ID] = i
	return nil
}

var _ = Describe("InvitationService", func() {
	const orgID = "org-1"

	var (
		service     *organization.InvitationService
		invRepo     *mockInvitationRepo
		orgRepo     *mockOrgRepo
		memRepo     *mockMembershipRepo
		memberships *organization.MembershipService
		users       *mockUserDirectory
	)

	member := func(userID string, role internal.Role) {
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
		invRepo = newMockInvitationRepo()
		orgRepo = newMockOrgRepo()
		memRepo = newMockMembershipRepo()
		memberships = organization.NewMembershipService(memRepo)
		users = newMockUserDirectory()
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		service = organization.NewInvitationService(invRepo, orgRepo, memberships, users, events.NewEventBus(lg), 7*24*time.Hour, lg)

		orgRepo.add(&organization.Organization{ID: orgID, Name: "Acme", Slug: "acme", IsActive: true})
		users.add(&user.User{ID: "admin", Email: "admin@example.com", FirstName: "Ad", LastName: "Min", Status: user.StatusActive})
		member("admin", internal.RoleAdmin)
	})

	Describe("Create", func() {
		It("issues a pending invitation with an expiry", func() {
			resp, err := service.Create(context.Background(), "admin", orgID, organization.CreateInvitationRequest{
				Email: "invitee@example.com",
				Role:  internal.RoleEmployee,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Status).To(Equal(organization.InvitationPending))
			Expect(resp.ExpiresAt.After(time.Now().Add(6 * 24 * time.Hour))).To(BeTrue())
		})

		It("normalizes the invitee email", func() {
			resp, err := service.Create(context.Background(), "admin", orgID, organization.CreateInvitationRequest{
				Email: "Invitee@Example.COM",
				Role:  internal.RoleEmployee,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Email).To(Equal("invitee@example.com"))
		})

		It("rejects inviting an existing member", func() {
			users.add(&user.User{ID: "emp", Email: "emp@example.com", Status: user.StatusActive})
			member("emp", internal.RoleEmployee)

			_, err := service.Create(context.Background(), "admin", orgID, organization.CreateInvitationRequest{
				Email: "emp@example.com",
				Role:  internal.RoleEmployee,
			})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeAlreadyMember))
		})

		It("rejects a second pending invitation for the same email", func() {
			_, err := service.Create(context.Background(), "admin", orgID, organization.CreateInvitationRequest{
				Email: "invitee@example.com",
				Role:  internal.RoleEmployee,
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Create(context.Background(), "admin", orgID, organization.CreateInvitationRequest{
				Email: "invitee@example.com",
				Role:  internal.RoleManager,
			})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvitationExists))
		})

		It("refuses employees", func() {
			users.add(&user.User{ID: "emp", Email: "emp@example.com", Status: user.StatusActive})
			member("emp", internal.RoleEmployee)

			_, err := service.Create(context.Background(), "emp", orgID, organization.CreateInvitationRequest{
				Email: "invitee@example.com",
				Role:  internal.RoleEmployee,
			})

			Expect(err).To(Equal(internal.ErrInsufficientRole))
		})
	})

	Describe("BulkCreate", func() {
		It("keeps valid rows when other rows fail", func() {
			users.add(&user.User{ID: "emp", Email: "member@example.com", Status: user.StatusActive})
			member("emp", internal.RoleEmployee)

			result, err := service.BulkCreate(context.Background(), "admin", orgID, organization.BulkInvitationRequest{
				Invitations: []organization.CreateInvitationRequest{
					{Email: "a@example.com", Role: internal.RoleEmployee},
					{Email: "member@example.com", Role: internal.RoleEmployee},
					{Email: "not-an-email", Role: internal.RoleEmployee},
					{Email: "b@example.com", Role: internal.RoleManager},
				},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Total).To(Equal(4))
			Expect(result.Successful).To(Equal(2))
			Expect(result.Failed).To(Equal(2))
		})

		It("flags duplicate emails inside the request", func() {
			result, err := service.BulkCreate(context.Background(), "admin", orgID, organization.BulkInvitationRequest{
				Invitations: []organization.CreateInvitationRequest{
					{Email: "same@example.com", Role: internal.RoleEmployee},
					{Email: "SAME@example.com", Role: internal.RoleEmployee},
				},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Successful).To(Equal(1))
			Expect(result.Errors[0].Error).To(ContainSubstring("duplicate"))
		})

		It("degrades every valid row when the commit fails", func() {
			invRepo.batchError = errors.New("deadlock")

			result, err := service.BulkCreate(context.Background(), "admin", orgID, organization.BulkInvitationRequest{
				Invitations: []organization.CreateInvitationRequest{
					{Email: "a@example.com", Role: internal.RoleEmployee},
					{Email: "b@example.com", Role: internal.RoleEmployee},
				},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Successful).To(BeZero())
			Expect(result.Failed).To(Equal(2))
			for _, rowErr := range result.Errors {
				Expect(rowErr.Error).To(ContainSubstring("failed to save"))
			}
		})
	})

	Describe("Accept", func() {
		var invitation *organization.Invitation

		BeforeEach(func() {
			invitation = &organization.Invitation{
				OrganizationID: orgID,
				Email:          "invitee@example.com",
				Role:           internal.RoleManager,
				Token:          "tok-1",
				Status:         organization.InvitationPending,
				InvitedBy:      "admin",
				ExpiresAt:      time.Now().Add(time.Hour),
			}
			Expect(invRepo.Create(context.Background(), invitation)).To(Succeed())
			users.add(&user.User{ID: "invitee", Email: "invitee@example.com", Status: user.StatusActive})
		})

		It("creates the membership with the invited role", func() {
			resp, err := service.Accept(context.Background(), "invitee", "tok-1")

			Expect(err).NotTo(HaveOccurred())
			Expect(resp.ID).To(Equal(orgID))
			Expect(resp.Role).To(Equal(internal.RoleManager))

			role, err := memberships.RoleOf(context.Background(), "invitee", orgID)
			Expect(err).NotTo(HaveOccurred())
			Expect(role).To(Equal(internal.RoleManager))
			Expect(invitation.Status).To(Equal(organization.InvitationAccepted))
		})

		It("accepts regardless of email casing", func() {
			users.byID["invitee"].Email = "Invitee@Example.COM"

			_, err := service.Accept(context.Background(), "invitee", "tok-1")
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects a different account's token", func() {
			users.add(&user.User{ID: "other", Email: "other@example.com", Status: user.StatusActive})

			_, err := service.Accept(context.Background(), "other", "tok-1")

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvitationEmail))
		})

		It("marks an expired invitation on read", func() {
			invitation.ExpiresAt = time.Now().Add(-time.Minute)

			_, err := service.Accept(context.Background(), "invitee", "tok-1")

			Expect(err).To(Equal(internal.ErrInvitationExpired))
			Expect(invitation.Status).To(Equal(organization.InvitationExpired))
		})

		It("rejects an unknown token", func() {
			_, err := service.Accept(context.Background(), "invitee", "missing")
			Expect(err).To(Equal(internal.ErrInvitationNotFound))
		})

		It("rejects a cancelled invitation", func() {
			invitation.Status = organization.InvitationCancelled

			_, err := service.Accept(context.Background(), "invitee", "tok-1")
			Expect(err).To(Equal(internal.ErrInvitationNotFound))
		})

		It("rejects acceptance by an existing member", func() {
			member("invitee", internal.RoleEmployee)

			_, err := service.Accept(context.Background(), "invitee", "tok-1")

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeAlreadyMember))
		})
	})

	Describe("Cancel", func() {
		var invitation *organization.Invitation

		BeforeEach(func() {
			invitation = &organization.Invitation{
				OrganizationID: orgID,
				Email:          "invitee@example.com",
				Role:           internal.RoleEmployee,
				Token:          "tok-1",
				Status:         organization.InvitationPending,
				ExpiresAt:      time.Now().Add(time.Hour),
			}
			Expect(invRepo.Create(context.Background(), invitation)).To(Succeed())
		})

		It("cancels a pending invitation", func() {
			Expect(service.Cancel(context.Background(), "admin", orgID, invitation.ID)).To(Succeed())
			Expect(invitation.Status).To(Equal(organization.InvitationCancelled))
		})

		It("refuses invitations of other organizations", func() {
			invitation.OrganizationID = "org-2"

			err := service.Cancel(context.Background(), "admin", orgID, invitation.ID)
			Expect(err).To(Equal(internal.ErrInvitationNotFound))
		})

		It("refuses a second cancellation", func() {
			Expect(service.Cancel(context.Background(), "admin", orgID, invitation.ID)).To(Succeed())

			err := service.Cancel(context.Background(), "admin", orgID, invitation.ID)
			Expect(err).To(HaveOccurred())
		})
	})
})
