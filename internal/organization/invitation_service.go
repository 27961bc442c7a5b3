package organization

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/evomaxseipio/evotrack-backend/internal"
	"github.com/evomaxseipio/evotrack-backend/internal/core/events"
	"github.com/evomaxseipio/evotrack-backend/internal/user"
)

type InvitationRepositoryAPI interface {
	Create(ctx context.Context, i *Invitation) error
	// CreateBatch persists all invitations in one transaction.
	CreateBatch(ctx context.Context, invitations []*Invitation) error
	GetByID(ctx context.Context, id string) (*Invitation, error)
	GetByToken(ctx context.Context, token string) (*Invitation, error)
	GetPendingByEmail(ctx context.Context, orgID, email string) (*Invitation, error)
	Update(ctx context.Context, i *Invitation) error
}

type InvitationService struct {
	invitations InvitationRepositoryAPI
	orgs        OrganizationRepositoryAPI
	memberships *MembershipService
	users       UserDirectory
	eventBus    *events.EventBus
	expiry      time.Duration
	logger      *slog.Logger
}

func NewInvitationService(invitations InvitationRepositoryAPI, orgs OrganizationRepositoryAPI, memberships *MembershipService, users UserDirectory, eventBus *events.EventBus, expiry time.Duration, logger *slog.Logger) *InvitationService {
	return &InvitationService{
		invitations: invitations,
		orgs:        orgs,
		memberships: memberships,
		users:       users,
		eventBus:    eventBus,
		expiry:      expiry,
		logger:      logger,
	}
}

// validateTarget rejects an invite when the address already belongs to
// a member or has a pending invitation.
func (s *InvitationService) validateTarget(ctx context.Context, orgID, email string) error {
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return internal.NewInternalError("failed to look up user", err)
	}
	if existing != nil {
		member, err := s.memberships.IsMember(ctx, existing.ID, orgID)
		if err != nil {
			return err
		}
		if member {
			return internal.NewConflictError("User is already a member of this organization", internal.ErrCodeAlreadyMember)
		}
	}

	pending, err := s.invitations.GetPendingByEmail(ctx, orgID, email)
	if err != nil {
		return internal.NewInternalError("failed to look up invitations", err)
	}
	if pending != nil {
		return internal.NewConflictError("A pending invitation already exists for this email", internal.ErrCodeInvitationExists)
	}
	return nil
}

// Create issues a single invitation and fires the notification email
// best-effort.
func (s *InvitationService) Create(ctx context.Context, actorID, orgID string, req CreateInvitationRequest) (*InvitationResponse, error) {
	if err := s.memberships.RequireManage(ctx, actorID, orgID); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	email := user.NormalizeEmail(req.Email)
	if err := s.validateTarget(ctx, orgID, email); err != nil {
		return nil, err
	}

	inv := &Invitation{
		OrganizationID: orgID,
		Email:          email,
		Role:           req.Role,
		Token:          uuid.NewString(),
		Status:         InvitationPending,
		InvitedBy:      actorID,
		ExpiresAt:      time.Now().Add(s.expiry),
	}
	if err := s.invitations.Create(ctx, inv); err != nil {
		return nil, internal.NewInternalError("failed to create invitation", err)
	}

	s.notifyCreated(ctx, inv, actorID)

	resp := ToInvitationResponse(inv)
	return &resp, nil
}

// BulkCreate validates every row first, then persists the valid subset
// in a single transaction. A commit failure degrades all valid rows to
// errors.
func (s *InvitationService) BulkCreate(ctx context.Context, actorID, orgID string, req BulkInvitationRequest) (*BulkInvitationResult, error) {
	if err := s.memberships.RequireManage(ctx, actorID, orgID); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	result := &BulkInvitationResult{
		Created: make([]InvitationResponse, 0, len(req.Invitations)),
		Errors:  make([]BulkInvitationError, 0),
		Total:   len(req.Invitations),
	}

	now := time.Now()
	valid := make([]*Invitation, 0, len(req.Invitations))
	seen := make(map[string]bool, len(req.Invitations))

	for _, row := range req.Invitations {
		email := user.NormalizeEmail(row.Email)
		if seen[email] {
			result.Errors = append(result.Errors, BulkInvitationError{Email: row.Email, Error: "duplicate email in request"})
			continue
		}
		seen[email] = true

		if err := row.Validate(); err != nil {
			result.Errors = append(result.Errors, BulkInvitationError{Email: row.Email, Error: err.Error()})
			continue
		}
		if err := s.validateTarget(ctx, orgID, email); err != nil {
			result.Errors = append(result.Errors, BulkInvitationError{Email: row.Email, Error: err.Error()})
			continue
		}

		valid = append(valid, &Invitation{
			OrganizationID: orgID,
			Email:          email,
			Role:           row.Role,
			Token:          uuid.NewString(),
			Status:         InvitationPending,
			InvitedBy:      actorID,
			ExpiresAt:      now.Add(s.expiry),
		})
	}

	if len(valid) > 0 {
		if err := s.invitations.CreateBatch(ctx, valid); err != nil {
			s.logger.Error("bulk invitation commit failed", "organization_id", orgID, "error", err)
			for _, inv := range valid {
				result.Errors = append(result.Errors, BulkInvitationError{Email: inv.Email, Error: "failed to save invitation"})
			}
			valid = nil
		}
	}

	for _, inv := range valid {
		result.Created = append(result.Created, ToInvitationResponse(inv))
		s.notifyCreated(ctx, inv, actorID)
	}

	result.Successful = len(result.Created)
	result.Failed = len(result.Errors)
	return result, nil
}

// Accept redeems a pending invitation token for the authenticated
// user. Expiry is applied lazily on read.
func (s *InvitationService) Accept(ctx context.Context, actorID, token string) (*OrganizationResponse, error) {
	if token == "" {
		return nil, internal.NewValidationError("Invitation token is required", internal.ErrCodeValidationFailed)
	}

	inv, err := s.invitations.GetByToken(ctx, token)
	if err != nil {
		return nil, internal.NewInternalError("failed to look up invitation", err)
	}
	if inv == nil || inv.Status != InvitationPending {
		return nil, internal.ErrInvitationNotFound
	}

	if inv.IsExpired(time.Now()) {
		inv.Status = InvitationExpired
		if err := s.invitations.Update(ctx, inv); err != nil {
			s.logger.Warn("failed to mark invitation expired", "invitation_id", inv.ID, "error", err)
		}
		return nil, internal.ErrInvitationExpired
	}

	u, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return nil, internal.NewInternalError("failed to look up user", err)
	}
	if u == nil {
		return nil, internal.ErrUserNotFound
	}
	if user.NormalizeEmail(u.Email) != inv.Email {
		return nil, internal.NewValidationError("This invitation was issued for a different email address", internal.ErrCodeInvitationEmail)
	}

	member, err := s.memberships.IsMember(ctx, actorID, inv.OrganizationID)
	if err != nil {
		return nil, err
	}
	if member {
		return nil, internal.NewValidationError("You are already a member of this organization", internal.ErrCodeAlreadyMember)
	}

	if err := s.memberships.CreateMembership(ctx, actorID, inv.OrganizationID, inv.Role); err != nil {
		return nil, err
	}

	inv.Status = InvitationAccepted
	if err := s.invitations.Update(ctx, inv); err != nil {
		return nil, internal.NewInternalError("failed to update invitation", err)
	}

	o, err := s.orgs.GetByID(ctx, inv.OrganizationID)
	if err != nil || o == nil {
		return nil, internal.ErrOrganizationNotFound
	}
	resp := ToResponse(o, inv.Role, nil)
	return &resp, nil
}

// Cancel flips a pending invitation to cancelled.
func (s *InvitationService) Cancel(ctx context.Context, actorID, orgID, invitationID string) error {
	if err := s.memberships.RequireManage(ctx, actorID, orgID); err != nil {
		return err
	}

	inv, err := s.invitations.GetByID(ctx, invitationID)
	if err != nil {
		return internal.NewInternalError("failed to look up invitation", err)
	}
	if inv == nil || inv.OrganizationID != orgID {
		return internal.ErrInvitationNotFound
	}
	if inv.Status != InvitationPending {
		return internal.NewBusinessLogicError("Only pending invitations can be cancelled", internal.ErrCodeValidationFailed)
	}

	inv.Status = InvitationCancelled
	if err := s.invitations.Update(ctx, inv); err != nil {
		return internal.NewInternalError("failed to cancel invitation", err)
	}
	return nil
}

func (s *InvitationService) notifyCreated(ctx context.Context, inv *Invitation, inviterID string) {
	o, err := s.orgs.GetByID(ctx, inv.OrganizationID)
	if err != nil || o == nil {
		return
	}
	inviterName := ""
	if inviter, err := s.users.GetByID(ctx, inviterID); err == nil && inviter != nil {
		inviterName = inviter.FullName()
	}
	_ = s.eventBus.Publish(ctx, events.NewInvitationCreatedEvent(
		inv.ID, o.ID, o.Name, inv.Email, string(inv.Role), inv.Token, inviterName))
}
