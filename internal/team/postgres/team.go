package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/evomaxseipio/evotrack-backend/internal/team"
)

type TeamRepository struct {
	db *gorm.DB
}

func NewTeamRepository(db *gorm.DB) team.RepositoryAPI {
	return &TeamRepository{db: db}
}

func (r *TeamRepository) Create(ctx context.Context, t *team.Team) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *TeamRepository) GetByID(ctx context.Context, id string) (*team.Team, error) {
	var t team.Team
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *TeamRepository) Update(ctx context.Context, t *team.Team) error {
	return r.db.WithContext(ctx).Save(t).Error
}

func (r *TeamRepository) ListByDepartment(ctx context.Context, deptID string) ([]*team.Team, error) {
	var teams []*team.Team
	err := r.db.WithContext(ctx).
		Where("department_id = ?", deptID).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&teams).Error
	return teams, err
}

func (r *TeamRepository) CountMembers(ctx context.Context, teamID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&team.TeamMember{}).
		Where("team_id = ?", teamID).
		Count(&count).Error
	return count, err
}

func (r *TeamRepository) AddMember(ctx context.Context, m *team.TeamMember) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *TeamRepository) GetMember(ctx context.Context, teamID, userID string) (*team.TeamMember, error) {
	var m team.TeamMember
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *TeamRepository) RemoveMember(ctx context.Context, teamID, userID string) error {
	return r.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Delete(&team.TeamMember{}).Error
}

func (r *TeamRepository) ListMembers(ctx context.Context, teamID string) ([]team.MemberRecord, error) {
	var records []team.MemberRecord
	err := r.db.WithContext(ctx).
		Model(&team.TeamMember{}).
		Joins("JOIN users ON users.id = team_members.user_id").
		Where("team_members.team_id = ?", teamID).
		Select("users.id AS user_id, users.first_name AS first_name, users.last_name AS last_name, " +
			"users.avatar_url AS avatar_url, team_members.role AS role, team_members.joined_at AS joined_at").
		Order("team_members.joined_at ASC").
		Scan(&records).Error
	return records, err
}
