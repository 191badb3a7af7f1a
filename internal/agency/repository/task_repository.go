package repository

import (
	"context"

	"github.com/braincreator/flow-masters/internal/agency/entity"
	"gorm.io/gorm"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) FindByID(ctx context.Context, id string) (*entity.Task, error) {
	var task entity.Task
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		return nil, translate(err)
	}
	return &task, nil
}

// List supports project_id, milestone_id, status and assigned_to filters.
func (r *TaskRepository) List(ctx context.Context, filters map[string]string) ([]entity.Task, error) {
	var tasks []entity.Task
	query := r.db.WithContext(ctx).Model(&entity.Task{})

	if v := filters["project_id"]; v != "" {
		query = query.Where("project_id = ?", v)
	}
	if v := filters["milestone_id"]; v != "" {
		query = query.Where("milestone_id = ?", v)
	}
	if v := filters["status"]; v != "" {
		query = query.Where("status = ?", v)
	}
	if v := filters["assigned_to"]; v != "" {
		query = query.Where("assigned_to_id = ?", v)
	}

	err := query.Order("due_date ASC, created_at ASC").Find(&tasks).Error
	return tasks, err
}

func (r *TaskRepository) ListByProject(ctx context.Context, projectID string) ([]entity.Task, error) {
	return r.List(ctx, map[string]string{"project_id": projectID})
}

func (r *TaskRepository) Create(ctx context.Context, task *entity.Task) error {
	return translate(r.db.WithContext(ctx).Create(task).Error)
}

func (r *TaskRepository) Update(ctx context.Context, task *entity.Task) error {
	return translate(r.db.WithContext(ctx).Save(task).Error)
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Task{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
