package repository

import (
	"context"

	"github.com/braincreator/flow-masters/internal/agency/entity"
	"gorm.io/gorm"
)

type CourseRepository struct {
	db *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// CreateWithRelations persists the course with optional landing and funnel atomically.
func (r *CourseRepository) CreateWithRelations(ctx context.Context, c *entity.Course, landing *entity.CourseLanding, funnel *entity.CourseFunnel) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c.Landing, c.Funnel = nil, nil
		if err := tx.Create(c).Error; err != nil {
			return translate(err)
		}
		if landing != nil {
			landing.CourseID = c.ID
			if err := tx.Create(landing).Error; err != nil {
				return translate(err)
			}
		}
		if funnel != nil {
			funnel.CourseID = c.ID
			if err := tx.Create(funnel).Error; err != nil {
				return translate(err)
			}
		}
		c.Landing, c.Funnel = landing, funnel
		return nil
	})
}

func (r *CourseRepository) FindBySlug(ctx context.Context, slug string) (*entity.Course, error) {
	var c entity.Course
	err := r.db.WithContext(ctx).
		Preload("Landing").
		Preload("Funnel").
		Where("slug = ?", slug).
		First(&c).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *CourseRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entity.Course{}).Where("slug = ?", slug).Count(&n).Error
	return n > 0, err
}
