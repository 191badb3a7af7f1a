package repository

import (
	"context"

	"github.com/braincreator/flow-masters/internal/agency/entity"
	"gorm.io/gorm"
)

type TemplateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// FindByID loads the template with milestones and tasks in order.
func (r *TemplateRepository) FindByID(ctx context.Context, id string) (*entity.ProjectTemplate, error) {
	var t entity.ProjectTemplate
	err := r.db.WithContext(ctx).
		Preload("Milestones", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("Tasks", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Where("id = ?", id).
		First(&t).Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *TemplateRepository) List(ctx context.Context, activeOnly bool) ([]entity.ProjectTemplate, error) {
	var items []entity.ProjectTemplate
	query := r.db.WithContext(ctx)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	err := query.Order("name ASC").Find(&items).Error
	return items, err
}

// Create inserts the template together with its milestones and tasks.
func (r *TemplateRepository) Create(ctx context.Context, t *entity.ProjectTemplate) error {
	return translate(r.db.WithContext(ctx).Create(t).Error)
}
