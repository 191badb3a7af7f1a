package repository

import (
	"context"
	"database/sql"

	"github.com/braincreator/flow-masters/internal/agency/entity"
	"gorm.io/gorm"
)

type MilestoneRepository struct {
	db *gorm.DB
}

func NewMilestoneRepository(db *gorm.DB) *MilestoneRepository {
	return &MilestoneRepository{db: db}
}

func (r *MilestoneRepository) FindByID(ctx context.Context, id string) (*entity.ProjectMilestone, error) {
	var m entity.ProjectMilestone
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

// ListByProject returns milestones in display order.
func (r *MilestoneRepository) ListByProject(ctx context.Context, projectID string) ([]entity.ProjectMilestone, error) {
	var items []entity.ProjectMilestone
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("sort_order ASC, created_at ASC").
		Find(&items).Error
	return items, err
}

func (r *MilestoneRepository) Create(ctx context.Context, m *entity.ProjectMilestone) error {
	return translate(r.db.WithContext(ctx).Create(m).Error)
}

func (r *MilestoneRepository) Update(ctx context.Context, m *entity.ProjectMilestone) error {
	return translate(r.db.WithContext(ctx).Save(m).Error)
}

func (r *MilestoneRepository) FindFeedback(ctx context.Context, milestoneID string) (*entity.ProjectFeedback, error) {
	var fb entity.ProjectFeedback
	if err := r.db.WithContext(ctx).Where("milestone_id = ?", milestoneID).First(&fb).Error; err != nil {
		return nil, translate(err)
	}
	return &fb, nil
}

func (r *MilestoneRepository) CreateFeedback(ctx context.Context, fb *entity.ProjectFeedback) error {
	return translate(r.db.WithContext(ctx).Create(fb).Error)
}

func (r *MilestoneRepository) UpdateFeedback(ctx context.Context, fb *entity.ProjectFeedback) error {
	return translate(r.db.WithContext(ctx).Save(fb).Error)
}

func (r *MilestoneRepository) CountFeedback(ctx context.Context, customerID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entity.ProjectFeedback{}).Where("customer_id = ?", customerID).Count(&n).Error
	return n, err
}

// AverageRating returns 0 when the project has no feedback.
func (r *MilestoneRepository) AverageRating(ctx context.Context, projectID string) (float64, error) {
	var avg sql.NullFloat64
	err := r.db.WithContext(ctx).
		Model(&entity.ProjectFeedback{}).
		Select("AVG(rating)").
		Where("project_id = ?", projectID).
		Row().
		Scan(&avg)
	if err != nil {
		return 0, err
	}
	return avg.Float64, nil
}

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) ListByProject(ctx context.Context, projectID string, includeInternal bool) ([]entity.ProjectMessage, error) {
	var items []entity.ProjectMessage
	query := r.db.WithContext(ctx).Preload("Author").Where("project_id = ?", projectID)
	if !includeInternal {
		query = query.Where("is_internal = ?", false)
	}
	err := query.Order("created_at ASC").Find(&items).Error
	return items, err
}

func (r *MessageRepository) Create(ctx context.Context, m *entity.ProjectMessage) error {
	return translate(r.db.WithContext(ctx).Create(m).Error)
}
