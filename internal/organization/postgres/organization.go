package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/evomaxseipio/evotrack-backend/internal/organization"
	"github.com/evomaxseipio/evotrack-backend/internal/user"
)

type OrganizationRepository struct {
	db *gorm.DB
}

func NewOrganizationRepository(db *gorm.DB) organization.OrganizationRepositoryAPI {
	return &OrganizationRepository{db: db}
}

func (r *OrganizationRepository) Create(ctx context.Context, o *organization.Organization) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *OrganizationRepository) GetByID(ctx context.Context, id string) (*organization.Organization, error) {
	var o organization.Organization
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *OrganizationRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&organization.Organization{}).
		Where("slug = ?", slug).
		Count(&count).Error
	return count > 0, err
}

func (r *OrganizationRepository) GetByTaxID(ctx context.Context, taxID string) (*organization.Organization, error) {
	var o organization.Organization
	err := r.db.WithContext(ctx).Where("tax_id = ?", taxID).First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *OrganizationRepository) Update(ctx context.Context, o *organization.Organization) error {
	return r.db.WithContext(ctx).Save(o).Error
}

func (r *OrganizationRepository) GetByIDs(ctx context.Context, ids []string) ([]*organization.Organization, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var orgs []*organization.Organization
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Where("is_active = ?", true).
		Order("created_at DESC").
		Find(&orgs).Error
	return orgs, err
}

func (r *OrganizationRepository) CountActiveDepartments(ctx context.Context, orgID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("departments").
		Where("organization_id = ?", orgID).
		Where("is_active = ?", true).
		Count(&count).Error
	return count, err
}

type MembershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) organization.MembershipRepositoryAPI {
	return &MembershipRepository{db: db}
}

func (r *MembershipRepository) Create(ctx context.Context, m *organization.Membership) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *MembershipRepository) Get(ctx context.Context, userID, orgID string) (*organization.Membership, error) {
	var m organization.Membership
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND organization_id = ?", userID, orgID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *MembershipRepository) Update(ctx context.Context, m *organization.Membership) error {
	return r.db.WithContext(ctx).Save(m).Error
}

// CountOwners counts active owner memberships whose user account is
// still active.
func (r *MembershipRepository) CountOwners(ctx context.Context, orgID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&organization.Membership{}).
		Joins("JOIN users ON users.id = user_organizations.user_id").
		Where("user_organizations.organization_id = ?", orgID).
		Where("user_organizations.role = ?", "owner").
		Where("user_organizations.is_active = ?", true).
		Where("users.status = ?", user.StatusActive).
		Count(&count).Error
	return count, err
}

func (r *MembershipRepository) ListByUser(ctx context.Context, userID string) ([]*organization.Membership, error) {
	var memberships []*organization.Membership
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("is_active = ?", true).
		Find(&memberships).Error
	return memberships, err
}

func (r *MembershipRepository) ListMembers(ctx context.Context, orgID string) ([]organization.MemberRecord, error) {
	var records []organization.MemberRecord
	err := r.db.WithContext(ctx).
		Model(&organization.Membership{}).
		Joins("JOIN users ON users.id = user_organizations.user_id").
		Where("user_organizations.organization_id = ?", orgID).
		Where("user_organizations.is_active = ?", true).
		Select("users.id AS user_id, users.email AS email, users.first_name AS first_name, " +
			"users.last_name AS last_name, users.avatar_url AS avatar_url, users.status AS status, " +
			"user_organizations.role AS role, user_organizations.joined_at AS joined_at").
		Order("user_organizations.joined_at ASC").
		Scan(&records).Error
	return records, err
}
