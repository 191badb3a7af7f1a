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
	"github.com/braincreator/flow-masters/internal/config"
	"github.com/braincreator/flow-masters/internal/shared/events"
	"github.com/braincreator/flow-masters/internal/shared/payment"
	"github.com/braincreator/flow-masters/internal/shared/storage"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Errors returned by services. Handlers map them onto HTTP statuses.
var (
	ErrNotFound     = repository.ErrNotFound
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
)

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Actor is the authenticated caller.
type Actor struct {
	UserID string
	Role   string
}

func (a Actor) IsStaff() bool {
	return entity.IsStaff(a.Role)
}

// SeesAllProjects reports whether the role is unrestricted.
func (a Actor) SeesAllProjects() bool {
	return a.Role == entity.RoleAdmin || a.Role == entity.RoleManager
}

// Deps are the shared handles created at startup.
type Deps struct {
	Repos     *repository.Repositories
	Redis     *redis.Client
	Store     storage.ObjectStore
	Publisher events.Publisher
	Payments  *payment.Registry
	Hub       *sse.Hub
	Config    *config.Config
	Logger    *zap.Logger
}

// Services groups the business services.
type Services struct {
	Auth         *AuthService
	Project      *ProjectService
	Template     *TemplateService
	Task         *TaskService
	Report       *ReportService
	Calendar     *CalendarService
	Catalog      *CatalogService
	Discount     *DiscountService
	Payment      *PaymentService
	Checkout     *CheckoutService
	Course       *CourseService
	Gamification *GamificationService
	Media        *MediaService
}

func NewServices(d Deps) *Services {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Publisher == nil {
		d.Publisher = events.NopPublisher{}
	}
	if d.Store == nil {
		d.Store = storage.Disabled{}
	}
	if d.Payments == nil {
		d.Payments = payment.NewRegistry()
	}
	if d.Hub == nil {
		d.Hub = sse.NewHub(d.Logger)
	}

	repos := d.Repos
	gamification := NewGamificationService(repos.Gamification, repos.Order, repos.Milestone, repos.Project, d.Publisher, d.Logger)
	discount := NewDiscountService(repos.Discount)
	project := NewProjectService(repos.Project, repos.Milestone, repos.Message, gamification, d.Publisher, d.Hub, d.Logger)
	paymentSvc := NewPaymentService(repos.Order, discount, d.Payments, d.Redis, gamification, d.Publisher, d.Config, d.Logger)

	return &Services{
		Auth:         NewAuthService(repos.User, d.Config.JWT),
		Project:      project,
		Template:     NewTemplateService(repos.Template, repos.Project, repos.Milestone, repos.Task, d.Publisher, d.Hub, d.Logger),
		Task:         NewTaskService(repos.Task, project, d.Hub),
		Report:       NewReportService(repos.Task, repos.Milestone, repos.Message, project, d.Store, d.Config.MinIO.URLExpiry),
		Calendar:     NewCalendarService(repos.Milestone, repos.Task, project),
		Catalog:      NewCatalogService(repos.Catalog, d.Redis, d.Config.Site, d.Logger),
		Discount:     discount,
		Payment:      paymentSvc,
		Checkout:     NewCheckoutService(d.Redis, discount, paymentSvc, d.Config.Site),
		Course:       NewCourseService(repos.Course, d.Publisher, d.Logger),
		Gamification: gamification,
		Media:        NewMediaService(repos.Media, d.Store, d.Config.MinIO.URLExpiry),
	}
}

// Date is a calendar day in JSON. It accepts "2006-01-02" or RFC 3339.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(string(b), `"`)
	if raw == "" || raw == "null" {
		return nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, raw); err != nil {
			return fmt.Errorf("invalid date %q", raw)
		}
	}
	d.Time = calendarDay(t)
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Time.Format(dateLayout) + `"`), nil
}

// Ptr returns the day as a UTC midnight time, or nil.
func (d *Date) Ptr() *time.Time {
	if d == nil || d.Time.IsZero() {
		return nil
	}
	t := calendarDay(d.Time)
	return &t
}

func newID() string {
	return uuid.New().String()
}

// today returns the current UTC date at midnight.
func today() time.Time {
	return truncateDay(time.Now().UTC())
}

// calendarDay keeps the date as written in t's own zone, at UTC midnight.
func calendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// publish emits an event and logs failures. Events never fail the request.
func publish(ctx context.Context, p events.Publisher, logger *zap.Logger, key string, payload interface{}) {
	if err := p.Publish(ctx, key, payload); err != nil {
		logger.Warn("publish event failed", zap.String("routing_key", key), zap.Error(err))
	}
}
