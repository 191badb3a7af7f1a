package handler

import (
	"github.com/braincreator/flow-masters/internal/agency/entity"
	"github.com/braincreator/flow-masters/internal/agency/service"
	"github.com/gin-gonic/gin"
)

type TemplateHandler struct {
	svc *service.TemplateService
}

func NewTemplateHandler(svc *service.TemplateService) *TemplateHandler {
	return &TemplateHandler{svc: svc}
}

// List GET /api/project-templates?active_only=false
func (h *TemplateHandler) List(c *gin.Context) {
	activeOnly := c.Query("active_only") != "false"
	templates, err := h.svc.ListTemplates(c.Request.Context(), activeOnly)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"items": templates})
}

func (h *TemplateHandler) Get(c *gin.Context) {
	tmpl, err := h.svc.GetTemplate(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, tmpl)
}

type TemplateMilestoneRequest struct {
	Title                  string                       `json:"title" binding:"required,max=255"`
	Description            string                       `json:"description"`
	Order                  int                          `json:"order" binding:"gte=0"`
	DurationValue          int                          `json:"durationValue" binding:"gte=0"`
	DurationUnit           string                       `json:"durationUnit" binding:"omitempty,oneof=days weeks months"`
	DependsOn              []entity.MilestoneDependency `json:"dependsOn"`
	RequiresClientApproval bool                         `json:"requiresClientApproval"`
}

type TemplateTaskRequest struct {
	Title                 string  `json:"title" binding:"required,max=255"`
	Description           string  `json:"description"`
	RelatedMilestoneOrder *int    `json:"relatedMilestoneOrder"`
	EstimatedHours        float64 `json:"estimatedHours" binding:"gte=0"`
	AssigneeRole          string  `json:"assigneeRole"`
}

type CreateTemplateRequest struct {
	Name        string                     `json:"name" binding:"required,max=200"`
	Description string                     `json:"description"`
	ServiceType string                     `json:"serviceType"`
	IsActive    *bool                      `json:"isActive"`
	Milestones  []TemplateMilestoneRequest `json:"milestones" binding:"dive"`
	Tasks       []TemplateTaskRequest      `json:"tasks" binding:"dive"`
}

// Create POST /api/project-templates
func (h *TemplateHandler) Create(c *gin.Context) {
	var req CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFailed(c, err)
		return
	}

	tmpl := &entity.ProjectTemplate{
		Name:        req.Name,
		Description: req.Description,
		ServiceType: req.ServiceType,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	for _, m := range req.Milestones {
		unit := m.DurationUnit
		if unit == "" {
			unit = entity.DurationDays
		}
		tmpl.Milestones = append(tmpl.Milestones, entity.TemplateMilestone{
			Title:                  m.Title,
			Description:            m.Description,
			Order:                  m.Order,
			DurationValue:          m.DurationValue,
			DurationUnit:           unit,
			DependsOn:              m.DependsOn,
			RequiresClientApproval: m.RequiresClientApproval,
		})
	}
	for _, t := range req.Tasks {
		tmpl.Tasks = append(tmpl.Tasks, entity.TemplateTask{
			Title:                 t.Title,
			Description:           t.Description,
			RelatedMilestoneOrder: t.RelatedMilestoneOrder,
			EstimatedHours:        t.EstimatedHours,
			AssigneeRole:          t.AssigneeRole,
		})
	}

	if err := h.svc.CreateTemplate(c.Request.Context(), tmpl); err != nil {
		handleError(c, err)
		return
	}
	Created(c, tmpl)
}

// Apply POST /api/project-templates/apply
func (h *TemplateHandler) Apply(c *gin.Context) {
	var req service.ApplyTemplateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFailed(c, err)
		return
	}
	res, err := h.svc.ApplyTemplate(c.Request.Context(), &req, actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, res)
}
