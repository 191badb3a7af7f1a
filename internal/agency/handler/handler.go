package handler

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/braincreator/flow-masters/internal/agency/repository"
	"github.com/braincreator/flow-masters/internal/agency/service"
	"github.com/braincreator/flow-masters/internal/agency/sse"
	"github.com/braincreator/flow-masters/internal/config"
	"github.com/braincreator/flow-masters/internal/shared/storage"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Handlers groups the HTTP handlers.
type Handlers struct {
	Auth     *AuthHandler
	Project  *ProjectHandler
	Task     *TaskHandler
	Template *TemplateHandler
	Report   *ReportHandler
	Commerce *CommerceHandler
	Checkout *CheckoutHandler
	Course   *CourseHandler
	Account  *AccountHandler
	Media    *MediaHandler
	SSE      *SSEHandler
}

func NewHandlers(svc *service.Services, hub *sse.Hub, cfg *config.Config) *Handlers {
	registerJSONTagNames()
	return &Handlers{
		Auth:     NewAuthHandler(svc.Auth, cfg.JWT),
		Project:  NewProjectHandler(svc.Project),
		Task:     NewTaskHandler(svc.Task),
		Template: NewTemplateHandler(svc.Template),
		Report:   NewReportHandler(svc.Report, svc.Calendar),
		Commerce: NewCommerceHandler(svc.Catalog, svc.Discount, svc.Payment),
		Checkout: NewCheckoutHandler(svc.Checkout),
		Course:   NewCourseHandler(svc.Course),
		Account:  NewAccountHandler(svc.Gamification),
		Media:    NewMediaHandler(svc.Media),
		SSE:      NewSSEHandler(hub, svc.Project),
	}
}

var tagNamesOnce sync.Once

// registerJSONTagNames makes validation errors report json field names.
func registerJSONTagNames() {
	tagNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
}

// Response envelope
type Response struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Data    interface{}  `json:"data,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// FieldError one failed validation rule
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ListResponse paged list
type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

// Pagination page info
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func NewPagination(page, pageSize int, total int64) *Pagination {
	pages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &Pagination{Page: page, PageSize: pageSize, Total: total, TotalPages: pages}
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error writes an error envelope. The HTTP status is code/100.
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func Unauthorized(c *gin.Context, message string) {
	Error(c, 40100, message)
}

func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// ValidationFailed reports binding errors field by field.
func ValidationFailed(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		BadRequest(c, "Invalid request body")
		return
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fieldPath(fe), Message: ruleMessage(fe)})
	}
	c.JSON(400, Response{
		Code:    40001,
		Message: "Validation failed",
		Errors:  fields,
	})
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gt", "gte", "lt", "lte":
		return "must be " + fe.Tag() + " " + fe.Param()
	default:
		return "failed on " + fe.Tag()
	}
}

// handleError maps service errors onto the envelope.
func handleError(c *gin.Context, err error) {
	msg := err.Error()
	switch {
	case errors.Is(err, service.ErrValidation):
		prefix := service.ErrValidation.Error() + ": "
		if i := strings.Index(msg, prefix); i >= 0 {
			msg = msg[i+len(prefix):]
		}
		BadRequest(c, msg)
	case errors.Is(err, service.ErrUnauthorized):
		Unauthorized(c, "Authorization is required")
	case errors.Is(err, service.ErrForbidden):
		Forbidden(c, "You do not have permission to perform this action")
	case errors.Is(err, repository.ErrNotFound):
		NotFound(c, "Not found")
	case errors.Is(err, service.ErrConflict), errors.Is(err, repository.ErrDuplicate):
		Conflict(c, msg)
	case errors.Is(err, storage.ErrNotConfigured):
		Error(c, 50300, "Object storage is not configured")
	default:
		_ = c.Error(err)
		zap.L().Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err))
		InternalError(c, "Internal server error")
	}
}

// GetUserID returns the authenticated user id.
func GetUserID(c *gin.Context) string {
	return c.GetString("user_id")
}

func actor(c *gin.Context) service.Actor {
	return service.Actor{UserID: c.GetString("user_id"), Role: c.GetString("role")}
}

// GetPagination reads page and page_size with defaults 1 and 20.
func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}
	ps := c.Query("page_size")
	if ps == "" {
		ps = c.Query("limit")
	}
	if ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}
	return page, pageSize
}

// dateQuery parses an optional YYYY-MM-DD query parameter.
func dateQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, false
	}
	return &t, true
}
