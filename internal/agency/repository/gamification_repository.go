package repository

import (
	"context"
	"errors"

	"github.com/braincreator/flow-masters/internal/agency/entity"
	"gorm.io/gorm"
)

type GamificationRepository struct {
	db *gorm.DB
}

func NewGamificationRepository(db *gorm.DB) *GamificationRepository {
	return &GamificationRepository{db: db}
}

// GetProgress returns a zero progress row (level 1) when none exists yet.
func (r *GamificationRepository) GetProgress(ctx context.Context, userID string) (*entity.UserProgress, error) {
	var p entity.UserProgress
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &entity.UserProgress{UserID: userID, Level: 1}, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveProgress upserts by primary key.
func (r *GamificationRepository) SaveProgress(ctx context.Context, p *entity.UserProgress) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *GamificationRepository) ListActiveAchievements(ctx context.Context) ([]entity.Achievement, error) {
	var items []entity.Achievement
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("threshold ASC").Find(&items).Error
	return items, err
}

func (r *GamificationRepository) CreateAchievement(ctx context.Context, a *entity.Achievement) error {
	return translate(r.db.WithContext(ctx).Create(a).Error)
}

func (r *GamificationRepository) ListUserAchievements(ctx context.Context, userID string) ([]entity.UserAchievement, error) {
	var items []entity.UserAchievement
	err := r.db.WithContext(ctx).
		Preload("Achievement").
		Where("user_id = ?", userID).
		Order("awarded_at ASC").
		Find(&items).Error
	return items, err
}

// Award returns ErrDuplicate when the user already holds the achievement.
func (r *GamificationRepository) Award(ctx context.Context, ua *entity.UserAchievement) error {
	return translate(r.db.WithContext(ctx).Create(ua).Error)
}

// CountCompletedProjects counts a customer's completed service projects.
func (r *GamificationRepository) CountCompletedProjects(ctx context.Context, customerID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&entity.ServiceProject{}).
		Where("customer_id = ? AND status = ?", customerID, entity.ProjectStatusCompleted).
		Count(&n).Error
	return n, err
}
