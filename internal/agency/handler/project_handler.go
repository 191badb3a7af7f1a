package handler

import (
	"github.com/braincreator/flow-masters/internal/agency/service"
	"github.com/gin-gonic/gin"
)

// ProjectHandler service projects, milestones and messages
type ProjectHandler struct {
	svc *service.ProjectService
}

func NewProjectHandler(svc *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{svc: svc}
}

// List GET /api/service-projects?status=&search=&page=&page_size=
func (h *ProjectHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListProjects(c.Request.Context(), actor(c), c.Query("status"), c.Query("search"), page, pageSize)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, ListResponse{Items: items, Pagination: NewPagination(page, pageSize, total)})
}

func (h *ProjectHandler) Get(c *gin.Context) {
	p, err := h.svc.AccessibleProject(c.Request.Context(), c.Param("id"), actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, p)
}

func (h *ProjectHandler) Create(c *gin.Context) {
	var req service.CreateProjectInput
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFailed(c, err)
		return
	}
	p, err := h.svc.CreateProject(c.Request.Context(), &req, actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, p)
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus PATCH /api/service-projects/:id
func (h *ProjectHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFailed(c, err)
		return
	}
	p, err := h.svc.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, p)
}

func (h *ProjectHandler) ListMilestones(c *gin.Context) {
	items, err := h.svc.ListMilestones(c.Request.Context(), c.Param("id"), actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}

func (h *ProjectHandler) CreateMilestone(c *gin.Context) {
	var req service.MilestoneInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body")
		return
	}
	m, err := h.svc.CreateMilestone(c.Request.Context(), c.Param("id"), &req, actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, m)
}

// UpdateMilestone PATCH /api/project-milestones/:id
func (h *ProjectHandler) UpdateMilestone(c *gin.Context) {
	var req service.MilestoneInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body")
		return
	}
	m, err := h.svc.UpdateMilestone(c.Request.Context(), c.Param("id"), &req, actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, m)
}

// Approve POST /api/project-milestones/:id/approve
func (h *ProjectHandler) Approve(c *gin.Context) {
	var req service.ApprovalInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body")
		return
	}
	m, err := h.svc.ApproveMilestone(c.Request.Context(), c.Param("id"), &req, actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, m)
}

func (h *ProjectHandler) ListMessages(c *gin.Context) {
	items, err := h.svc.ListMessages(c.Request.Context(), c.Param("id"), actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}

type PostMessageRequest struct {
	Content    string `json:"content" binding:"required,max=10000"`
	IsInternal bool   `json:"isInternal"`
}

func (h *ProjectHandler) PostMessage(c *gin.Context) {
	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFailed(c, err)
		return
	}
	msg, err := h.svc.PostMessage(c.Request.Context(), c.Param("id"), req.Content, req.IsInternal, actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, msg)
}
