package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/braincreator/flow-masters/internal/agency/entity"
	"github.com/braincreator/flow-masters/internal/agency/repository"
	"github.com/braincreator/flow-masters/internal/agency/sse"
	"github.com/braincreator/flow-masters/internal/shared/events"
	"github.com/braincreator/flow-masters/internal/shared/metrics"
	"go.uber.org/zap"
)

// TemplateService applies project templates.
type TemplateService struct {
	templateRepo  *repository.TemplateRepository
	projectRepo   *repository.ProjectRepository
	milestoneRepo *repository.MilestoneRepository
	taskRepo      *repository.TaskRepository
	publisher     events.Publisher
	hub           *sse.Hub
	logger        *zap.Logger
}

func NewTemplateService(
	templateRepo *repository.TemplateRepository,
	projectRepo *repository.ProjectRepository,
	milestoneRepo *repository.MilestoneRepository,
	taskRepo *repository.TaskRepository,
	publisher events.Publisher,
	hub *sse.Hub,
	logger *zap.Logger,
) *TemplateService {
	return &TemplateService{
		templateRepo:  templateRepo,
		projectRepo:   projectRepo,
		milestoneRepo: milestoneRepo,
		taskRepo:      taskRepo,
		publisher:     publisher,
		hub:           hub,
		logger:        logger,
	}
}

func (s *TemplateService) ListTemplates(ctx context.Context, activeOnly bool) ([]entity.ProjectTemplate, error) {
	return s.templateRepo.List(ctx, activeOnly)
}

func (s *TemplateService) GetTemplate(ctx context.Context, id string) (*entity.ProjectTemplate, error) {
	return s.templateRepo.FindByID(ctx, id)
}

// CreateTemplate assigns ids and stores the blueprint.
func (s *TemplateService) CreateTemplate(ctx context.Context, t *entity.ProjectTemplate) error {
	if t.Name == "" {
		return validationf("name is required")
	}
	orders := make(map[int]bool, len(t.Milestones))
	for _, m := range t.Milestones {
		if orders[m.Order] {
			return validationf("duplicate milestone order %d", m.Order)
		}
		orders[m.Order] = true
	}
	t.ID = newID()
	for i := range t.Milestones {
		t.Milestones[i].ID = newID()
		t.Milestones[i].TemplateID = t.ID
	}
	for i := range t.Tasks {
		t.Tasks[i].ID = newID()
		t.Tasks[i].TemplateID = t.ID
		t.Tasks[i].SortOrder = i
	}
	return s.templateRepo.Create(ctx, t)
}

// ApplyTemplateInput request to instantiate a template on a project
type ApplyTemplateInput struct {
	TemplateID      string            `json:"templateId" binding:"required"`
	ProjectID       string            `json:"projectId" binding:"required"`
	StartDate       *Date             `json:"startDate"`
	RoleAssignments map[string]string `json:"roleAssignments"` // role -> user_id
}

// ApplyTemplateResult created rows
type ApplyTemplateResult struct {
	ProjectID  string                    `json:"projectId"`
	TemplateID string                    `json:"templateId"`
	StartDate  time.Time                 `json:"startDate"`
	Milestones []entity.ProjectMilestone `json:"milestones"`
	Tasks      []entity.Task             `json:"tasks"`
}

// ApplyTemplate materializes the template's milestones and tasks on the project.
// Rows are written one by one; a failure part way leaves the earlier rows.
func (s *TemplateService) ApplyTemplate(ctx context.Context, in *ApplyTemplateInput, actor Actor) (*ApplyTemplateResult, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}

	tmpl, err := s.templateRepo.FindByID(ctx, in.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("template not found: %w", err)
	}
	project, err := s.projectRepo.FindByID(ctx, in.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("project not found: %w", err)
	}
	if project.AppliedTemplateID != nil && *project.AppliedTemplateID != "" {
		metrics.IncrementTemplatesApplied("conflict")
		return nil, fmt.Errorf("%w: project already has template %s", ErrConflict, *project.AppliedTemplateID)
	}

	start := today()
	if d := in.StartDate.Ptr(); d != nil {
		start = *d
	}

	dueDates := ScheduleMilestones(tmpl.Milestones, start)

	result := &ApplyTemplateResult{
		ProjectID:  project.ID,
		TemplateID: tmpl.ID,
		StartDate:  start,
	}

	milestoneIDs := make(map[int]string, len(tmpl.Milestones))
	milestoneDue := make(map[int]time.Time, len(tmpl.Milestones))
	for _, tm := range sortedMilestones(tmpl.Milestones) {
		due := dueDates[tm.Order]
		m := &entity.ProjectMilestone{
			ID:                     newID(),
			ProjectID:              project.ID,
			Title:                  tm.Title,
			Description:            tm.Description,
			Status:                 entity.MilestoneStatusNotStarted,
			DueDate:                &due,
			Order:                  tm.Order,
			ClientApprovalRequired: tm.RequiresClientApproval,
			DependsOn:              tm.DependsOn,
		}
		if err := s.milestoneRepo.Create(ctx, m); err != nil {
			metrics.IncrementTemplatesApplied("failed")
			return nil, fmt.Errorf("create milestone %q: %w", tm.Title, err)
		}
		milestoneIDs[tm.Order] = m.ID
		milestoneDue[tm.Order] = due
		result.Milestones = append(result.Milestones, *m)
	}

	for _, tt := range tmpl.Tasks {
		task := &entity.Task{
			ID:             newID(),
			ProjectID:      project.ID,
			Title:          tt.Title,
			Description:    tt.Description,
			Status:         entity.TaskStatusTodo,
			Priority:       entity.PriorityMedium,
			EstimatedHours: tt.EstimatedHours,
			CreatedBy:      actor.UserID,
			Activities: []entity.TaskActivity{{
				Kind:      "created",
				ActorID:   actor.UserID,
				CreatedAt: time.Now().UTC(),
			}},
		}
		if tt.RelatedMilestoneOrder != nil {
			if id, ok := milestoneIDs[*tt.RelatedMilestoneOrder]; ok {
				milestoneID := id
				due := milestoneDue[*tt.RelatedMilestoneOrder]
				task.MilestoneID = &milestoneID
				task.DueDate = &due
			}
		}
		if tt.AssigneeRole != "" {
			if userID, ok := in.RoleAssignments[tt.AssigneeRole]; ok && userID != "" {
				assignee := userID
				task.AssignedToID = &assignee
			}
		}
		if err := s.taskRepo.Create(ctx, task); err != nil {
			metrics.IncrementTemplatesApplied("failed")
			return nil, fmt.Errorf("create task %q: %w", tt.Title, err)
		}
		result.Tasks = append(result.Tasks, *task)
	}

	err = s.projectRepo.UpdateFields(ctx, project.ID, map[string]interface{}{
		"applied_template_id": tmpl.ID,
		"start_date":          start,
	})
	if err != nil {
		metrics.IncrementTemplatesApplied("failed")
		return nil, fmt.Errorf("stamp project: %w", err)
	}

	metrics.IncrementTemplatesApplied("ok")
	s.logger.Info("template applied",
		zap.String("template_id", tmpl.ID),
		zap.String("project_id", project.ID),
		zap.Int("milestones", len(result.Milestones)),
		zap.Int("tasks", len(result.Tasks)))

	publish(ctx, s.publisher, s.logger, events.TemplateApplied, map[string]interface{}{
		"projectId":  project.ID,
		"templateId": tmpl.ID,
		"startDate":  start.Format(dateLayout),
	})
	s.hub.PublishProject(project.ID, "project_update", map[string]string{
		"project_id": project.ID,
		"action":     "template_applied",
	})

	return result, nil
}

const dateLayout = "2006-01-02"

func sortedMilestones(in []entity.TemplateMilestone) []entity.TemplateMilestone {
	out := make([]entity.TemplateMilestone, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// ScheduleMilestones computes due dates keyed by milestone order.
//
// Milestones without dependencies are due start + duration. The rest are
// resolved in ascending order: the latest (dependency due + offset) plus the
// own duration. A dependency that is not resolved yet, or that names an
// unknown order, counts as start + offset.
func ScheduleMilestones(milestones []entity.TemplateMilestone, start time.Time) map[int]time.Time {
	sorted := sortedMilestones(milestones)
	due := make(map[int]time.Time, len(sorted))

	for _, m := range sorted {
		if len(m.DependsOn) == 0 {
			due[m.Order] = start.AddDate(0, 0, m.DurationInDays())
		}
	}

	for _, m := range sorted {
		if len(m.DependsOn) == 0 {
			continue
		}
		var latest time.Time
		for i, dep := range m.DependsOn {
			base, ok := due[dep.MilestoneOrder]
			if !ok {
				base = start
			}
			candidate := base.AddDate(0, 0, dep.OffsetDays)
			if i == 0 || candidate.After(latest) {
				latest = candidate
			}
		}
		due[m.Order] = latest.AddDate(0, 0, m.DurationInDays())
	}

	return due
}
