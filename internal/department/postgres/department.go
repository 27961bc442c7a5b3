package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/evomaxseipio/evotrack-backend/internal/department"
	"github.com/evomaxseipio/evotrack-backend/internal/pagination"
)

type DepartmentRepository struct {
	db *gorm.DB
}

func NewDepartmentRepository(db *gorm.DB) department.RepositoryAPI {
	return &DepartmentRepository{db: db}
}

func (r *DepartmentRepository) Create(ctx context.Context, d *department.Department) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *DepartmentRepository) GetByID(ctx context.Context, id string) (*department.Department, error) {
	var d department.Department
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

func (r *DepartmentRepository) Update(ctx context.Context, d *department.Department) error {
	return r.db.WithContext(ctx).Save(d).Error
}

func (r *DepartmentRepository) ListByOrganization(ctx context.Context, orgID string, includeInactive bool) ([]*department.Department, error) {
	query := r.db.WithContext(ctx).Where("organization_id = ?", orgID)
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}

	var rows []*department.Department
	err := query.Order("name ASC").Find(&rows).Error
	return rows, err
}

func (r *DepartmentRepository) CountActiveChildren(ctx context.Context, deptID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&department.Department{}).
		Where("parent_id = ?", deptID).
		Where("is_active = ?", true).
		Count(&count).Error
	return count, err
}

type countRow struct {
	DepartmentID string
	Count        int64
}

func (r *DepartmentRepository) UserCountsByDepartment(ctx context.Context, orgID string) (map[string]int64, error) {
	var rows []countRow
	err := r.db.WithContext(ctx).
		Table("users").
		Joins("JOIN departments ON departments.id = users.department_id").
		Where("departments.organization_id = ?", orgID).
		Where("users.status <> ?", "inactive").
		Select("users.department_id AS department_id, COUNT(*) AS count").
		Group("users.department_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return toCountMap(rows), nil
}

func (r *DepartmentRepository) TeamCountsByDepartment(ctx context.Context, orgID string) (map[string]int64, error) {
	var rows []countRow
	err := r.db.WithContext(ctx).
		Table("teams").
		Joins("JOIN departments ON departments.id = teams.department_id").
		Where("departments.organization_id = ?", orgID).
		Where("teams.is_active = ?", true).
		Select("teams.department_id AS department_id, COUNT(*) AS count").
		Group("teams.department_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return toCountMap(rows), nil
}

func toCountMap(rows []countRow) map[string]int64 {
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.DepartmentID] = row.Count
	}
	return counts
}

// Search returns one overfetched keyset page filtered by name or
// description, newest first.
func (r *DepartmentRepository) Search(ctx context.Context, orgID string, req department.SearchRequest, params pagination.Params) ([]*department.Department, error) {
	query := r.db.WithContext(ctx).Where("organization_id = ?", orgID)

	if !req.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if req.Query != "" {
		pattern := "%" + req.Query + "%"
		query = query.Where("(LOWER(name) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?))", pattern, pattern)
	}
	if cursor := params.Cursor; cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.TS, cursor.ID)
	}

	var rows []*department.Department
	err := query.
		Order("created_at DESC, id DESC").
		Limit(params.FetchLimit()).
		Find(&rows).Error
	return rows, err
}

func (r *DepartmentRepository) Stats(ctx context.Context, orgID string) (*department.Stats, error) {
	var stats department.Stats
	err := r.db.WithContext(ctx).
		Model(&department.Department{}).
		Where("organization_id = ?", orgID).
		Select(
			"COUNT(*) AS total, " +
				"COALESCE(SUM(CASE WHEN is_active THEN 1 ELSE 0 END), 0) AS active, " +
				"COALESCE(SUM(CASE WHEN is_active THEN 0 ELSE 1 END), 0) AS inactive, " +
				"COALESCE(SUM(CASE WHEN parent_id IS NULL AND is_active THEN 1 ELSE 0 END), 0) AS root").
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
