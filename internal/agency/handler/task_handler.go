package handler

import (
	"github.com/braincreator/flow-masters/internal/agency/service"
	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	svc *service.TaskService
}

func NewTaskHandler(svc *service.TaskService) *TaskHandler {
	return &TaskHandler{svc: svc}
}

// List GET /api/tasks?projectId=&status=&assignedTo=&milestoneId=
func (h *TaskHandler) List(c *gin.Context) {
	var f service.TaskFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		BadRequest(c, "Invalid query")
		return
	}
	items, err := h.svc.List(c.Request.Context(), f, actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}

func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.svc.Get(c.Request.Context(), c.Param("id"), actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, task)
}

func (h *TaskHandler) Create(c *gin.Context) {
	var req service.TaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body")
		return
	}
	task, err := h.svc.Create(c.Request.Context(), &req, actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, task)
}

func (h *TaskHandler) Update(c *gin.Context) {
	var req service.TaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body")
		return
	}
	task, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req, actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, task)
}

func (h *TaskHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), actor(c)); err != nil {
		handleError(c, err)
		return
	}
	Success(c, nil)
}

type CommentRequest struct {
	Content string `json:"content" binding:"required,max=10000"`
}

// AddComment POST /api/tasks/:id/comments
func (h *TaskHandler) AddComment(c *gin.Context) {
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFailed(c, err)
		return
	}
	task, err := h.svc.AddComment(c.Request.Context(), c.Param("id"), req.Content, actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, task)
}
