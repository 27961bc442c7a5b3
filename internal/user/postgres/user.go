package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/evomaxseipio/evotrack-backend/internal/user"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.RepositoryAPI {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	var u user.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	var u user.User
	err := r.db.WithContext(ctx).Where("email = ?", user.NormalizeEmail(email)).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByActivationToken(ctx context.Context, token string) (*user.User, error) {
	var u user.User
	err := r.db.WithContext(ctx).Where("activation_token = ?", token).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	return r.db.WithContext(ctx).Save(u).Error
}

func (r *UserRepository) SetDepartment(ctx context.Context, userID string, departmentID *string) error {
	return r.db.WithContext(ctx).
		Model(&user.User{}).
		Where("id = ?", userID).
		Update("department_id", departmentID).Error
}

// ListByOrganization returns one overfetched keyset page of the
// organization's members, newest first.
func (r *UserRepository) ListByOrganization(ctx context.Context, orgID string, q user.ListUsersQuery) ([]*user.User, error) {
	query := r.db.WithContext(ctx).
		Model(&user.User{}).
		Joins("JOIN user_organizations ON user_organizations.user_id = users.id").
		Where("user_organizations.organization_id = ?", orgID).
		Where("user_organizations.is_active = ?", true)

	if !q.IncludeInactive {
		query = query.Where("users.status <> ?", user.StatusInactive)
	}
	if q.Status != nil {
		query = query.Where("users.status = ?", *q.Status)
	}
	if q.Role != nil {
		query = query.Where("user_organizations.role = ?", string(*q.Role))
	}
	if q.Search != "" {
		pattern := "%" + q.Search + "%"
		query = query.Where(
			"(LOWER(users.first_name) LIKE LOWER(?) OR LOWER(users.last_name) LIKE LOWER(?) OR LOWER(users.email) LIKE LOWER(?))",
			pattern, pattern, pattern)
	}
	if cursor := q.Pagination.Cursor; cursor != nil {
		query = query.Where("(users.created_at, users.id) < (?, ?)", cursor.TS, cursor.ID)
	}

	var rows []*user.User
	err := query.
		Order("users.created_at DESC, users.id DESC").
		Limit(q.Pagination.FetchLimit()).
		Find(&rows).Error
	return rows, err
}

func (r *UserRepository) SearchByOrganization(ctx context.Context, orgID, search string, limit int) ([]*user.User, error) {
	pattern := "%" + search + "%"

	var rows []*user.User
	err := r.db.WithContext(ctx).
		Model(&user.User{}).
		Joins("JOIN user_organizations ON user_organizations.user_id = users.id").
		Where("user_organizations.organization_id = ?", orgID).
		Where("user_organizations.is_active = ?", true).
		Where(
			"(LOWER(users.first_name) LIKE LOWER(?) OR LOWER(users.last_name) LIKE LOWER(?) OR LOWER(users.email) LIKE LOWER(?))",
			pattern, pattern, pattern).
		Order("users.first_name ASC, users.last_name ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *UserRepository) StatsByOrganization(ctx context.Context, orgID string) (*user.Stats, error) {
	var stats user.Stats
	err := r.db.WithContext(ctx).
		Model(&user.User{}).
		Joins("JOIN user_organizations ON user_organizations.user_id = users.id").
		Where("user_organizations.organization_id = ?", orgID).
		Where("user_organizations.is_active = ?", true).
		Select(
			"COUNT(*) AS total_users, " +
				"COALESCE(SUM(CASE WHEN users.status = 'active' THEN 1 ELSE 0 END), 0) AS active_users, " +
				"COALESCE(SUM(CASE WHEN users.status = 'pending_activation' THEN 1 ELSE 0 END), 0) AS pending_activation, " +
				"COALESCE(SUM(CASE WHEN users.status = 'inactive' THEN 1 ELSE 0 END), 0) AS inactive_users").
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
