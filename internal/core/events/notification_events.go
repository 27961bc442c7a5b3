package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeInvitationCreated = "invitation.created"
	EventTypeMemberRemoved     = "member.removed"
	EventTypeUserActivation    = "user.activation"
)

type InvitationCreatedEvent struct {
	BaseEvent
	InvitationID     string `json:"invitation_id"`
	OrganizationID   string `json:"organization_id"`
	OrganizationName string `json:"organization_name"`
	Email            string `json:"email"`
	Role             string `json:"role"`
	Token            string `json:"token"`
	InviterName      string `json:"inviter_name"`
}

func NewInvitationCreatedEvent(invitationID, orgID, orgName, email, role, token, inviterName string) *InvitationCreatedEvent {
	return &InvitationCreatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeInvitationCreated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"invitation_id":     invitationID,
				"organization_id":   orgID,
				"organization_name": orgName,
				"email":             email,
				"role":              role,
				"inviter_name":      inviterName,
			},
		},
		InvitationID:     invitationID,
		OrganizationID:   orgID,
		OrganizationName: orgName,
		Email:            email,
		Role:             role,
		Token:            token,
		InviterName:      inviterName,
	}
}

type MemberRemovedEvent struct {
	BaseEvent
	OrganizationID   string `json:"organization_id"`
	OrganizationName string `json:"organization_name"`
	Email            string `json:"email"`
	UserID           string `json:"user_id"`
}

func NewMemberRemovedEvent(orgID, orgName, email, userID string) *MemberRemovedEvent {
	return &MemberRemovedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeMemberRemoved,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"organization_id":   orgID,
				"organization_name": orgName,
				"email":             email,
				"user_id":           userID,
			},
		},
		OrganizationID:   orgID,
		OrganizationName: orgName,
		Email:            email,
		UserID:           userID,
	}
}

type UserActivationEvent struct {
	BaseEvent
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	Token     string `json:"token"`
}

func NewUserActivationEvent(userID, email, firstName, token string) *UserActivationEvent {
	return &UserActivationEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeUserActivation,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"user_id":    userID,
				"email":      email,
				"first_name": firstName,
			},
		},
		UserID:    userID,
		Email:     email,
		FirstName: firstName,
		Token:     token,
	}
}
