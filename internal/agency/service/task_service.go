package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/braincreator/flow-masters/internal/agency/entity"
	"github.com/braincreator/flow-masters/internal/agency/repository"
	"github.com/braincreator/flow-masters/internal/agency/sse"
)

// TaskService project tasks
type TaskService struct {
	repo     *repository.TaskRepository
	projects *ProjectService
	hub      *sse.Hub
	now      func() time.Time
}

func NewTaskService(repo *repository.TaskRepository, projects *ProjectService, hub *sse.Hub) *TaskService {
	return &TaskService{repo: repo, projects: projects, hub: hub, now: time.Now}
}

// TaskFilter list filters
type TaskFilter struct {
	ProjectID   string `form:"projectId"`
	Status      string `form:"status"`
	AssignedTo  string `form:"assignedTo"`
	MilestoneID string `form:"milestoneId"`
}

// List requires a project the actor can see unless the actor sees all projects.
func (s *TaskService) List(ctx context.Context, f TaskFilter, actor Actor) ([]entity.Task, error) {
	if f.ProjectID != "" {
		if _, err := s.projects.AccessibleProject(ctx, f.ProjectID, actor); err != nil {
			return nil, err
		}
	} else if !actor.SeesAllProjects() {
		if actor.Role != entity.RoleSpecialist {
			return nil, validationf("projectId is required")
		}
		f.AssignedTo = actor.UserID
	}
	return s.repo.List(ctx, map[string]string{
		"project_id":   f.ProjectID,
		"status":       f.Status,
		"assigned_to":  f.AssignedTo,
		"milestone_id": f.MilestoneID,
	})
}

func (s *TaskService) Get(ctx context.Context, id string, actor Actor) (*entity.Task, error) {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.projects.AccessibleProject(ctx, task.ProjectID, actor); err != nil {
		return nil, err
	}
	return task, nil
}

// TaskInput create or update payload. Nil fields are left unchanged on update.
type TaskInput struct {
	ProjectID      string   `json:"projectId"`
	MilestoneID    *string  `json:"milestoneId"`
	Title          *string  `json:"title"`
	Description    *string  `json:"description"`
	Status         *string  `json:"status"`
	Priority       *string  `json:"priority"`
	Progress       *int     `json:"progress"`
	DueDate        *Date    `json:"dueDate"`
	AssignedToID   *string  `json:"assignedToId"`
	EstimatedHours *float64 `json:"estimatedHours"`
	ActualHours    *float64 `json:"actualHours"`
	Tags           []string `json:"tags"`
}

func (s *TaskService) Create(ctx context.Context, in *TaskInput, actor Actor) (*entity.Task, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	if in.ProjectID == "" {
		return nil, validationf("projectId is required")
	}
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return nil, validationf("title is required")
	}
	if _, err := s.projects.AccessibleProject(ctx, in.ProjectID, actor); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	task := &entity.Task{
		ID:        newID(),
		ProjectID: in.ProjectID,
		Status:    entity.TaskStatusTodo,
		Priority:  entity.PriorityMedium,
		CreatedBy: actor.UserID,
		Activities: []entity.TaskActivity{{
			Kind:      "created",
			ActorID:   actor.UserID,
			CreatedAt: now,
		}},
	}
	if err := s.apply(task, in, actor); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	s.notify(task, "created")
	return task, nil
}

// Update edits a task. Staff only.
func (s *TaskService) Update(ctx context.Context, id string, in *TaskInput, actor Actor) (*entity.Task, error) {
	task, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	if err := s.apply(task, in, actor); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	s.notify(task, "updated")
	return task, nil
}

func (s *TaskService) apply(task *entity.Task, in *TaskInput, actor Actor) error {
	now := s.now().UTC()
	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return validationf("title must not be empty")
		}
		task.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		task.Description = *in.Description
	}
	if in.MilestoneID != nil {
		if *in.MilestoneID == "" {
			task.MilestoneID = nil
		} else {
			id := *in.MilestoneID
			task.MilestoneID = &id
		}
	}
	if in.Priority != nil {
		if !entity.ValidPriority(*in.Priority) {
			return validationf("invalid priority %q", *in.Priority)
		}
		task.Priority = *in.Priority
	}
	if in.Progress != nil {
		task.Progress = clampProgress(*in.Progress)
	}
	if due := in.DueDate.Ptr(); due != nil {
		task.DueDate = due
	}
	if in.AssignedToID != nil {
		prev := ""
		if task.AssignedToID != nil {
			prev = *task.AssignedToID
		}
		if *in.AssignedToID == "" {
			task.AssignedToID = nil
		} else {
			id := *in.AssignedToID
			task.AssignedToID = &id
		}
		if prev != *in.AssignedToID {
			task.Activities = append(task.Activities, entity.TaskActivity{
				Kind: "assigned", ActorID: actor.UserID, From: prev, To: *in.AssignedToID, CreatedAt: now,
			})
		}
	}
	if in.EstimatedHours != nil {
		task.EstimatedHours = *in.EstimatedHours
	}
	if in.ActualHours != nil {
		task.ActualHours = *in.ActualHours
	}
	if in.Tags != nil {
		task.Tags = in.Tags
	}
	if in.Status != nil && *in.Status != task.Status {
		if !entity.ValidTaskStatus(*in.Status) {
			return validationf("invalid status %q", *in.Status)
		}
		task.Activities = append(task.Activities, entity.TaskActivity{
			Kind: "status", ActorID: actor.UserID, From: task.Status, To: *in.Status, CreatedAt: now,
		})
		task.Status = *in.Status
		if task.Status == entity.TaskStatusCompleted {
			task.Progress = 100
			task.CompletedAt = &now
		} else {
			task.CompletedAt = nil
		}
	}
	return nil
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func (s *TaskService) Delete(ctx context.Context, id string, actor Actor) error {
	if !actor.IsStaff() {
		return ErrForbidden
	}
	task, err := s.Get(ctx, id, actor)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.notify(task, "deleted")
	return nil
}

// AddComment appends a comment. Any project participant may comment.
func (s *TaskService) AddComment(ctx context.Context, id, content string, actor Actor) (*entity.Task, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, validationf("content is required")
	}
	task, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	task.Comments = append(task.Comments, entity.TaskComment{AuthorID: actor.UserID, Content: content, CreatedAt: now})
	task.Activities = append(task.Activities, entity.TaskActivity{Kind: "comment", ActorID: actor.UserID, CreatedAt: now})
	if err := s.repo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("add comment: %w", err)
	}
	s.notify(task, "commented")
	return task, nil
}

func (s *TaskService) notify(task *entity.Task, action string) {
	s.hub.PublishProject(task.ProjectID, "task_update", map[string]string{
		"project_id": task.ProjectID,
		"task_id":    task.ID,
		"action":     action,
	})
}
