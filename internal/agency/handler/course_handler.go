package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/braincreator/flow-masters/internal/agency/service"
	"github.com/gin-gonic/gin"
)

const maxCoursePayload = 4 << 20

// CourseHandler admin course creator
type CourseHandler struct {
	svc *service.CourseService
}

func NewCourseHandler(svc *service.CourseService) *CourseHandler {
	return &CourseHandler{svc: svc}
}

// Create POST /api/courses?includeLanding=true&includeFunnel=true
func (h *CourseHandler) Create(c *gin.Context) {
	raw, ok := readPayload(c)
	if !ok {
		return
	}
	landing, funnel := courseFlags(c)
	course, err := h.svc.CreateCourse(c.Request.Context(), raw, landing, funnel, actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, course)
}

// Preview POST /api/courses/preview returns the normalized payload without storing it.
func (h *CourseHandler) Preview(c *gin.Context) {
	raw, ok := readPayload(c)
	if !ok {
		return
	}
	landing, funnel := courseFlags(c)
	n, err := service.NormalizeCourse(raw, landing, funnel)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, n)
}

// GetBySlug GET /api/courses/:slug
func (h *CourseHandler) GetBySlug(c *gin.Context) {
	course, err := h.svc.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, course)
}

func readPayload(c *gin.Context) ([]byte, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxCoursePayload))
	if err != nil {
		BadRequest(c, "Invalid request body")
		return nil, false
	}
	return raw, true
}

func courseFlags(c *gin.Context) (bool, bool) {
	return boolQuery(c, "includeLanding", true), boolQuery(c, "includeFunnel", true)
}

func boolQuery(c *gin.Context, name string, def bool) bool {
	v, err := strconv.ParseBool(c.Query(name))
	if err != nil {
		return def
	}
	return v
}
