package repository

import (
	"context"
	"time"

	"github.com/braincreator/flow-masters/internal/agency/entity"
	"gorm.io/gorm"
)

// ProjectFilter narrows project listings. Empty fields are ignored.
type ProjectFilter struct {
	CustomerID   string
	AssignedToID string
	Status       string
	Search       string
}

type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*entity.ServiceProject, error) {
	var p entity.ServiceProject
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Preload("AssignedTo").
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *ProjectRepository) List(ctx context.Context, f ProjectFilter, page, pageSize int) ([]entity.ServiceProject, int64, error) {
	var items []entity.ServiceProject
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.ServiceProject{})
	if f.CustomerID != "" {
		query = query.Where("customer_id = ?", f.CustomerID)
	}
	if f.AssignedToID != "" {
		query = query.Where("assigned_to_id = ?", f.AssignedToID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Search != "" {
		query = query.Where("LOWER(name) LIKE LOWER(?)", "%"+f.Search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Customer").
		Preload("AssignedTo").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&items).Error
	return items, total, err
}

func (r *ProjectRepository) Create(ctx context.Context, p *entity.ServiceProject) error {
	return translate(r.db.WithContext(ctx).Create(p).Error)
}

// UpdateFields writes the given columns and bumps updated_at.
func (r *ProjectRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	res := r.db.WithContext(ctx).Model(&entity.ServiceProject{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByStatus groups a customer's projects by status.
func (r *ProjectRepository) CountByStatus(ctx context.Context, customerID string) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&entity.ServiceProject{}).
		Select("status, COUNT(*) AS count").
		Where("customer_id = ?", customerID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}
