package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/braincreator/flow-masters/internal/agency/entity"
	"github.com/braincreator/flow-masters/internal/agency/repository"
	"github.com/braincreator/flow-masters/internal/agency/sse"
	"github.com/braincreator/flow-masters/internal/shared/events"
	"go.uber.org/zap"
)

// XP rewards
const (
	XPProjectCompleted = 100
	XPFeedbackGiven    = 15
	XPOrderPaid        = 50
	XPDailyCheckIn     = 10
)

// ProjectService service projects, milestones and messages
type ProjectService struct {
	projectRepo   *repository.ProjectRepository
	milestoneRepo *repository.MilestoneRepository
	messageRepo   *repository.MessageRepository
	gamification  *GamificationService
	publisher     events.Publisher
	hub           *sse.Hub
	logger        *zap.Logger
}

func NewProjectService(
	projectRepo *repository.ProjectRepository,
	milestoneRepo *repository.MilestoneRepository,
	messageRepo *repository.MessageRepository,
	gamification *GamificationService,
	publisher events.Publisher,
	hub *sse.Hub,
	logger *zap.Logger,
) *ProjectService {
	return &ProjectService{
		projectRepo:   projectRepo,
		milestoneRepo: milestoneRepo,
		messageRepo:   messageRepo,
		gamification:  gamification,
		publisher:     publisher,
		hub:           hub,
		logger:        logger,
	}
}

func canAccess(p *entity.ServiceProject, actor Actor) bool {
	if actor.SeesAllProjects() {
		return true
	}
	if actor.Role == entity.RoleSpecialist {
		return p.AssignedToID != nil && *p.AssignedToID == actor.UserID
	}
	return p.CustomerID == actor.UserID
}

// AccessibleProject loads a project the actor may see. Hidden projects are reported as not found.
func (s *ProjectService) AccessibleProject(ctx context.Context, id string, actor Actor) (*entity.ServiceProject, error) {
	p, err := s.projectRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAccess(p, actor) {
		return nil, ErrNotFound
	}
	return p, nil
}

// ListProjects scopes the listing by role.
func (s *ProjectService) ListProjects(ctx context.Context, actor Actor, status, search string, page, pageSize int) ([]entity.ServiceProject, int64, error) {
	f := repository.ProjectFilter{Status: status, Search: search}
	switch {
	case actor.SeesAllProjects():
	case actor.Role == entity.RoleSpecialist:
		f.AssignedToID = actor.UserID
	default:
		f.CustomerID = actor.UserID
	}
	return s.projectRepo.List(ctx, f, page, pageSize)
}

// CreateProjectInput new service project
type CreateProjectInput struct {
	Name         string `json:"name" binding:"required,max=255"`
	Description  string `json:"description"`
	CustomerID   string `json:"customerId" binding:"required"`
	AssignedToID string `json:"assignedToId"`
	OrderID      string `json:"orderId"`
	StartDate    *Date  `json:"startDate"`
}

func (s *ProjectService) CreateProject(ctx context.Context, in *CreateProjectInput, actor Actor) (*entity.ServiceProject, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	p := &entity.ServiceProject{
		ID:          newID(),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		CustomerID:  in.CustomerID,
		Status:      entity.ProjectStatusNew,
		StartDate:   in.StartDate.Ptr(),
	}
	if in.AssignedToID != "" {
		p.AssignedToID = &in.AssignedToID
	}
	if in.OrderID != "" {
		p.OrderID = &in.OrderID
	}
	if err := s.projectRepo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return p, nil
}

// UpdateStatus changes the project status. Staff only.
func (s *ProjectService) UpdateStatus(ctx context.Context, id, status string, actor Actor) (*entity.ServiceProject, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	if !entity.ValidProjectStatus(status) {
		return nil, validationf("invalid status %q", status)
	}
	p, err := s.AccessibleProject(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	previous := p.Status

	fields := map[string]interface{}{"status": status}
	now := time.Now()
	if status == entity.ProjectStatusCompleted && previous != entity.ProjectStatusCompleted {
		fields["completed_at"] = now
		p.CompletedAt = &now
	}
	if err := s.projectRepo.UpdateFields(ctx, id, fields); err != nil {
		return nil, fmt.Errorf("update project status: %w", err)
	}
	p.Status = status

	if status == entity.ProjectStatusCompleted && previous != entity.ProjectStatusCompleted {
		if _, err := s.gamification.RecordActivity(ctx, p.CustomerID, ActivityProjectCompleted, XPProjectCompleted); err != nil {
			s.logger.Warn("award project completion xp failed", zap.String("project_id", id), zap.Error(err))
		}
	}

	publish(ctx, s.publisher, s.logger, events.ProjectStatusChanged, map[string]string{
		"projectId": id,
		"from":      previous,
		"to":        status,
		"changedBy": actor.UserID,
	})
	s.hub.PublishProject(id, "project_update", map[string]string{
		"project_id": id,
		"action":     "status_changed",
		"status":     status,
	})
	return p, nil
}

func (s *ProjectService) ListMilestones(ctx context.Context, projectID string, actor Actor) ([]entity.ProjectMilestone, error) {
	if _, err := s.AccessibleProject(ctx, projectID, actor); err != nil {
		return nil, err
	}
	return s.milestoneRepo.ListByProject(ctx, projectID)
}

// MilestoneInput create or update payload. Nil fields are left unchanged on update.
type MilestoneInput struct {
	Title                  *string                      `json:"title"`
	Description            *string                      `json:"description"`
	Status                 *string                      `json:"status"`
	DueDate                *Date                        `json:"dueDate"`
	Order                  *int                         `json:"order"`
	ClientApprovalRequired *bool                        `json:"clientApprovalRequired"`
	DependsOn              []entity.MilestoneDependency `json:"dependsOn"`
}

func (s *ProjectService) CreateMilestone(ctx context.Context, projectID string, in *MilestoneInput, actor Actor) (*entity.ProjectMilestone, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	if _, err := s.AccessibleProject(ctx, projectID, actor); err != nil {
		return nil, err
	}
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return nil, validationf("title is required")
	}
	m := &entity.ProjectMilestone{
		ID:        newID(),
		ProjectID: projectID,
		Status:    entity.MilestoneStatusNotStarted,
	}
	if err := applyMilestoneInput(m, in); err != nil {
		return nil, err
	}
	if err := s.milestoneRepo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("create milestone: %w", err)
	}
	s.hub.PublishProject(projectID, "milestone_update", map[string]string{"milestone_id": m.ID, "action": "created"})
	return m, nil
}

func (s *ProjectService) UpdateMilestone(ctx context.Context, id string, in *MilestoneInput, actor Actor) (*entity.ProjectMilestone, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	m, err := s.milestoneRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.AccessibleProject(ctx, m.ProjectID, actor); err != nil {
		return nil, err
	}
	if err := applyMilestoneInput(m, in); err != nil {
		return nil, err
	}
	if err := s.milestoneRepo.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("update milestone: %w", err)
	}
	s.hub.PublishProject(m.ProjectID, "milestone_update", map[string]string{"milestone_id": m.ID, "action": "updated"})
	return m, nil
}

func applyMilestoneInput(m *entity.ProjectMilestone, in *MilestoneInput) error {
	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return validationf("title must not be empty")
		}
		m.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		m.Description = *in.Description
	}
	if in.Status != nil {
		if !entity.ValidMilestoneStatus(*in.Status) {
			return validationf("invalid status %q", *in.Status)
		}
		switch {
		case *in.Status != entity.MilestoneStatusCompleted:
			m.CompletedAt = nil
		case m.Status != entity.MilestoneStatusCompleted:
			now := time.Now()
			m.CompletedAt = &now
		}
		m.Status = *in.Status
	}
	if due := in.DueDate.Ptr(); due != nil {
		m.DueDate = due
	}
	if in.Order != nil {
		m.Order = *in.Order
	}
	if in.ClientApprovalRequired != nil {
		m.ClientApprovalRequired = *in.ClientApprovalRequired
	}
	if in.DependsOn != nil {
		m.DependsOn = in.DependsOn
	}
	return nil
}

// ApprovalInput client decision on a milestone
type ApprovalInput struct {
	Approved           bool   `json:"approved"`
	Feedback           string `json:"feedback"`
	SatisfactionRating *int   `json:"satisfactionRating"`
}

// ApproveMilestone records the customer's decision. An approval with a rating
// leaves exactly one feedback row for the milestone.
func (s *ProjectService) ApproveMilestone(ctx context.Context, id string, in *ApprovalInput, actor Actor) (*entity.ProjectMilestone, error) {
	m, err := s.milestoneRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := s.projectRepo.FindByID(ctx, m.ProjectID)
	if err != nil {
		return nil, err
	}
	if p.CustomerID != actor.UserID {
		if !canAccess(p, actor) {
			return nil, ErrNotFound
		}
		return nil, ErrForbidden
	}
	if !m.ClientApprovalRequired {
		return nil, validationf("milestone does not require client approval")
	}
	if r := in.SatisfactionRating; r != nil && (*r < 1 || *r > 5) {
		return nil, validationf("satisfactionRating must be between 1 and 5")
	}

	now := time.Now()
	m.ClientApproved = in.Approved
	m.ClientFeedback = in.Feedback
	m.SatisfactionRating = in.SatisfactionRating
	if in.Approved {
		m.ClientApprovedAt = &now
	} else {
		m.ClientApprovedAt = nil
	}
	if err := s.milestoneRepo.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("update milestone approval: %w", err)
	}

	if in.Approved && in.SatisfactionRating != nil {
		created, err := s.upsertFeedback(ctx, m, p.CustomerID, *in.SatisfactionRating, in.Feedback)
		if err != nil {
			return nil, err
		}
		if created {
			if _, err := s.gamification.RecordActivity(ctx, p.CustomerID, ActivityFeedbackGiven, XPFeedbackGiven); err != nil {
				s.logger.Warn("award feedback xp failed", zap.String("milestone_id", id), zap.Error(err))
			}
		}
	}

	publish(ctx, s.publisher, s.logger, events.MilestoneApproved, map[string]interface{}{
		"projectId":   m.ProjectID,
		"milestoneId": m.ID,
		"approved":    in.Approved,
		"rating":      in.SatisfactionRating,
	})
	s.hub.PublishProject(m.ProjectID, "milestone_update", map[string]interface{}{
		"milestone_id": m.ID,
		"action":       "approval",
		"approved":     in.Approved,
	})
	return m, nil
}

func (s *ProjectService) upsertFeedback(ctx context.Context, m *entity.ProjectMilestone, customerID string, rating int, comment string) (bool, error) {
	fb, err := s.milestoneRepo.FindFeedback(ctx, m.ID)
	if err == nil {
		fb.Rating = rating
		fb.Comment = comment
		if err := s.milestoneRepo.UpdateFeedback(ctx, fb); err != nil {
			return false, fmt.Errorf("update feedback: %w", err)
		}
		return false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, fmt.Errorf("find feedback: %w", err)
	}

	fb = &entity.ProjectFeedback{
		ID:          newID(),
		ProjectID:   m.ProjectID,
		MilestoneID: m.ID,
		CustomerID:  customerID,
		Rating:      rating,
		Comment:     comment,
	}
	if err := s.milestoneRepo.CreateFeedback(ctx, fb); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// concurrent approval created it first
			return s.upsertFeedback(ctx, m, customerID, rating, comment)
		}
		return false, fmt.Errorf("create feedback: %w", err)
	}
	return true, nil
}

// ListMessages hides internal notes from customers.
func (s *ProjectService) ListMessages(ctx context.Context, projectID string, actor Actor) ([]entity.ProjectMessage, error) {
	if _, err := s.AccessibleProject(ctx, projectID, actor); err != nil {
		return nil, err
	}
	return s.messageRepo.ListByProject(ctx, projectID, actor.IsStaff())
}

func (s *ProjectService) PostMessage(ctx context.Context, projectID, content string, internal bool, actor Actor) (*entity.ProjectMessage, error) {
	if _, err := s.AccessibleProject(ctx, projectID, actor); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, validationf("content is required")
	}
	if internal && !actor.IsStaff() {
		return nil, ErrForbidden
	}
	msg := &entity.ProjectMessage{
		ID:         newID(),
		ProjectID:  projectID,
		AuthorID:   actor.UserID,
		Content:    content,
		IsInternal: internal,
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	if !internal {
		s.hub.PublishProject(projectID, "message", map[string]string{"message_id": msg.ID, "author_id": actor.UserID})
	}
	return msg, nil
}
