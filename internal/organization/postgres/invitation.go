package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/evomaxseipio/evotrack-backend/internal/organization"
)

type InvitationRepository struct {
	db *gorm.DB
}

func NewInvitationRepository(db *gorm.DB) organization.InvitationRepositoryAPI {
	return &InvitationRepository{db: db}
}

func (r *InvitationRepository) Create(ctx context.Context, i *organization.Invitation) error {
	return r.db.WithContext(ctx).Create(i).Error
}

// CreateBatch inserts all invitations in one transaction so a partial
// write never survives.
func (r *InvitationRepository) CreateBatch(ctx context.Context, invitations []*organization.Invitation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, inv := range invitations {
			if err := tx.Create(inv).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *InvitationRepository) GetByID(ctx context.Context, id string) (*organization.Invitation, error) {
	var inv organization.Invitation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}

func (r *InvitationRepository) GetByToken(ctx context.Context, token string) (*organization.Invitation, error) {
	var inv organization.Invitation
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}

func (r *InvitationRepository) GetPendingByEmail(ctx context.Context, orgID, email string) (*organization.Invitation, error) {
	var inv organization.Invitation
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND email = ? AND status = ?", orgID, email, organization.InvitationPending).
		First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}

func (r *InvitationRepository) Update(ctx context.Context, i *organization.Invitation) error {
	return r.db.WithContext(ctx).Save(i).Error
}
