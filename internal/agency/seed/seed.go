// Package seed loads catalog, discount, template and achievement fixtures from YAML.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/braincreator/flow-masters/internal/agency/entity"
	"github.com/braincreator/flow-masters/internal/agency/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// File is the fixture document.
type File struct {
	Users        []User        `yaml:"users"`
	Plans        []Plan        `yaml:"plans"`
	Services     []Service     `yaml:"services"`
	Products     []Product     `yaml:"products"`
	Discounts    []Discount    `yaml:"discounts"`
	Templates    []Template    `yaml:"templates"`
	Achievements []Achievement `yaml:"achievements"`
}

type User struct {
	Email    string `yaml:"email"`
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
	Locale   string `yaml:"locale"`
}

type Plan struct {
	Slug         string   `yaml:"slug"`
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	Price        string   `yaml:"price"`
	Currency     string   `yaml:"currency"`
	Interval     string   `yaml:"interval"`
	DurationDays int      `yaml:"duration_days"`
	Features     []string `yaml:"features"`
	IsPopular    bool     `yaml:"is_popular"`
	IsActive     *bool    `yaml:"is_active"`
	SortOrder    int      `yaml:"sort_order"`
}

type Service struct {
	Slug        string   `yaml:"slug"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	ServiceType string   `yaml:"service_type"`
	Price       string   `yaml:"price"`
	Currency    string   `yaml:"currency"`
	Features    []string `yaml:"features"`
	IsActive    *bool    `yaml:"is_active"`
	SortOrder   int      `yaml:"sort_order"`
}

type Product struct {
	Slug        string   `yaml:"slug"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Price       string   `yaml:"price"`
	Currency    string   `yaml:"currency"`
	Features    []string `yaml:"features"`
	IsActive    *bool    `yaml:"is_active"`
}

type Discount struct {
	Code         string `yaml:"code"`
	Type         string `yaml:"type"`
	Value        string `yaml:"value"`
	Currency     string `yaml:"currency"`
	MinCartTotal string `yaml:"min_cart_total"`
	MaxUses      int    `yaml:"max_uses"`
	ValidFrom    string `yaml:"valid_from"`
	ValidUntil   string `yaml:"valid_until"`
	IsActive     *bool  `yaml:"is_active"`
}

type Template struct {
	Name        string              `yaml:"name"`
	Description string              `yaml:"description"`
	ServiceType string              `yaml:"service_type"`
	IsActive    *bool               `yaml:"is_active"`
	Milestones  []TemplateMilestone `yaml:"milestones"`
	Tasks       []TemplateTask      `yaml:"tasks"`
}

type TemplateMilestone struct {
	Title                  string       `yaml:"title"`
	Description            string       `yaml:"description"`
	Order                  int          `yaml:"order"`
	DurationValue          int          `yaml:"duration_value"`
	DurationUnit           string       `yaml:"duration_unit"`
	RequiresClientApproval bool         `yaml:"requires_client_approval"`
	DependsOn              []Dependency `yaml:"depends_on"`
}

type Dependency struct {
	MilestoneOrder int `yaml:"milestone_order"`
	OffsetDays     int `yaml:"offset_days"`
}

type TemplateTask struct {
	Title          string  `yaml:"title"`
	Description    string  `yaml:"description"`
	MilestoneOrder *int    `yaml:"milestone_order"`
	EstimatedHours float64 `yaml:"estimated_hours"`
	AssigneeRole   string  `yaml:"assignee_role"`
}

type Achievement struct {
	Code        string `yaml:"code"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Icon        string `yaml:"icon"`
	Metric      string `yaml:"metric"`
	Threshold   int    `yaml:"threshold"`
	XPReward    int    `yaml:"xp_reward"`
	IsActive    *bool  `yaml:"is_active"`
}

// Result counts rows written per section.
type Result struct {
	Users        int
	Plans        int
	Services     int
	Products     int
	Discounts    int
	Templates    int
	Achievements int
}

// Load reads and parses a fixture file.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &f, nil
}

// Seeder writes fixtures. Rows keyed by slug or code are upserted, users and
// templates that already exist are left alone.
type Seeder struct {
	db     *gorm.DB
	logger *zap.Logger
}

func New(db *gorm.DB, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{db: db, logger: logger}
}

// Apply writes every section inside one transaction.
func (s *Seeder) Apply(ctx context.Context, f *File) (*Result, error) {
	res := &Result{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		steps := []struct {
			name string
			run  func(*gorm.DB) (int, error)
		}{
			{"users", func(tx *gorm.DB) (int, error) { return seedUsers(tx, f.Users) }},
			{"plans", func(tx *gorm.DB) (int, error) { return seedPlans(tx, f.Plans) }},
			{"services", func(tx *gorm.DB) (int, error) { return seedServices(tx, f.Services) }},
			{"products", func(tx *gorm.DB) (int, error) { return seedProducts(tx, f.Products) }},
			{"discounts", func(tx *gorm.DB) (int, error) { return seedDiscounts(tx, f.Discounts) }},
			{"templates", func(tx *gorm.DB) (int, error) { return seedTemplates(tx, f.Templates) }},
			{"achievements", func(tx *gorm.DB) (int, error) { return seedAchievements(tx, f.Achievements) }},
		}
		counts := []*int{&res.Users, &res.Plans, &res.Services, &res.Products, &res.Discounts, &res.Templates, &res.Achievements}
		for i, step := range steps {
			n, err := step.run(tx)
			if err != nil {
				return fmt.Errorf("seed %s: %w", step.name, err)
			}
			*counts[i] = n
			s.logger.Info("seeded", zap.String("section", step.name), zap.Int("rows", n))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func active(v *bool) bool {
	return v == nil || *v
}

func money(field, v string) (decimal.Decimal, error) {
	if strings.TrimSpace(v) == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s %q is not a number", field, v)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must not be negative", field)
	}
	return d.Round(2), nil
}

func currency(v string) string {
	if v == "" {
		return "RUB"
	}
	return strings.ToUpper(v)
}

func optionalDate(field, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, fmt.Errorf("%s %q must be YYYY-MM-DD", field, v)
	}
	return &t, nil
}

func upsert(tx *gorm.DB, key string, value interface{}, columns ...string) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: key}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(value).Error
}

func seedUsers(tx *gorm.DB, users []User) (int, error) {
	n := 0
	for _, u := range users {
		email := strings.ToLower(strings.TrimSpace(u.Email))
		if email == "" {
			return n, errors.New("user email is required")
		}
		var existing entity.User
		err := tx.Where("email = ?", email).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return n, err
		}
		if u.Password == "" {
			return n, fmt.Errorf("user %s: password is required", email)
		}
		hash, err := service.HashPassword(u.Password)
		if err != nil {
			return n, err
		}
		role := u.Role
		if role == "" {
			role = entity.RoleCustomer
		}
		locale := u.Locale
		if locale == "" {
			locale = "ru"
		}
		user := &entity.User{ID: uuid.New().String(), Email: email, Name: u.Name, PasswordHash: hash, Role: role, Locale: locale}
		if err := tx.Create(user).Error; err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func seedPlans(tx *gorm.DB, plans []Plan) (int, error) {
	for i, p := range plans {
		price, err := money("plans["+p.Slug+"].price", p.Price)
		if err != nil {
			return i, err
		}
		interval := p.Interval
		if interval == "" {
			interval = "month"
		}
		days := p.DurationDays
		if days == 0 {
			days = 30
		}
		row := &entity.SubscriptionPlan{
			ID: uuid.New().String(), Slug: p.Slug, Name: p.Name, Description: p.Description,
			Price: price, Currency: currency(p.Currency), Interval: interval, DurationDays: days,
			Features: p.Features, IsPopular: p.IsPopular, IsActive: active(p.IsActive), SortOrder: p.SortOrder,
		}
		err = upsert(tx, "slug", row, "name", "description", "price", "currency", "interval",
			"duration_days", "features", "is_popular", "is_active", "sort_order", "updated_at")
		if err != nil {
			return i, err
		}
	}
	return len(plans), nil
}

func seedServices(tx *gorm.DB, services []Service) (int, error) {
	for i, s := range services {
		price, err := money("services["+s.Slug+"].price", s.Price)
		if err != nil {
			return i, err
		}
		row := &entity.Service{
			ID: uuid.New().String(), Slug: s.Slug, Title: s.Title, Description: s.Description,
			ServiceType: s.ServiceType, Price: price, Currency: currency(s.Currency),
			Features: s.Features, IsActive: active(s.IsActive), SortOrder: s.SortOrder,
		}
		err = upsert(tx, "slug", row, "title", "description", "service_type", "price", "currency",
			"features", "is_active", "sort_order", "updated_at")
		if err != nil {
			return i, err
		}
	}
	return len(services), nil
}

func seedProducts(tx *gorm.DB, products []Product) (int, error) {
	for i, p := range products {
		price, err := money("products["+p.Slug+"].price", p.Price)
		if err != nil {
			return i, err
		}
		row := &entity.Product{
			ID: uuid.New().String(), Slug: p.Slug, Title: p.Title, Description: p.Description,
			Price: price, Currency: currency(p.Currency), Features: p.Features, IsActive: active(p.IsActive),
		}
		err = upsert(tx, "slug", row, "title", "description", "price", "currency", "features", "is_active", "updated_at")
		if err != nil {
			return i, err
		}
	}
	return len(products), nil
}

func seedDiscounts(tx *gorm.DB, discounts []Discount) (int, error) {
	for i, d := range discounts {
		code := strings.ToUpper(strings.TrimSpace(d.Code))
		if d.Type != entity.DiscountPercentage && d.Type != entity.DiscountFixed {
			return i, fmt.Errorf("discount %s: unknown type %q", code, d.Type)
		}
		value, err := money("discounts["+code+"].value", d.Value)
		if err != nil {
			return i, err
		}
		if d.Type == entity.DiscountPercentage && !service.ValidPercentage(value) {
			return i, fmt.Errorf("discount %s: percentage must be above 0 and at most 100", code)
		}
		minTotal, err := money("discounts["+code+"].min_cart_total", d.MinCartTotal)
		if err != nil {
			return i, err
		}
		from, err := optionalDate("valid_from", d.ValidFrom)
		if err != nil {
			return i, err
		}
		until, err := optionalDate("valid_until", d.ValidUntil)
		if err != nil {
			return i, err
		}
		row := &entity.DiscountCode{
			ID: uuid.New().String(), Code: code, Type: d.Type, Value: value, Currency: strings.ToUpper(d.Currency), MinCartTotal: minTotal,
			MaxUses: d.MaxUses, ValidFrom: from, ValidUntil: until, IsActive: active(d.IsActive),
		}
		err = upsert(tx, "code", row, "type", "value", "currency", "min_cart_total", "max_uses",
			"valid_from", "valid_until", "is_active", "updated_at")
		if err != nil {
			return i, err
		}
	}
	return len(discounts), nil
}

func seedTemplates(tx *gorm.DB, templates []Template) (int, error) {
	n := 0
	for _, t := range templates {
		var count int64
		if err := tx.Model(&entity.ProjectTemplate{}).Where("name = ?", t.Name).Count(&count).Error; err != nil {
			return n, err
		}
		if count > 0 {
			continue
		}
		row := &entity.ProjectTemplate{
			ID: uuid.New().String(), Name: t.Name, Description: t.Description,
			ServiceType: t.ServiceType, IsActive: active(t.IsActive),
		}
		for _, m := range t.Milestones {
			unit := m.DurationUnit
			if unit == "" {
				unit = entity.DurationDays
			}
			deps := make([]entity.MilestoneDependency, 0, len(m.DependsOn))
			for _, d := range m.DependsOn {
				deps = append(deps, entity.MilestoneDependency{MilestoneOrder: d.MilestoneOrder, OffsetDays: d.OffsetDays})
			}
			row.Milestones = append(row.Milestones, entity.TemplateMilestone{
				ID: uuid.New().String(), Title: m.Title, Description: m.Description, Order: m.Order,
				DurationValue: m.DurationValue, DurationUnit: unit, DependsOn: deps,
				RequiresClientApproval: m.RequiresClientApproval,
			})
		}
		for i, task := range t.Tasks {
			row.Tasks = append(row.Tasks, entity.TemplateTask{
				ID: uuid.New().String(), Title: task.Title, Description: task.Description,
				RelatedMilestoneOrder: task.MilestoneOrder, EstimatedHours: task.EstimatedHours,
				AssigneeRole: task.AssigneeRole, SortOrder: i,
			})
		}
		if err := tx.Create(row).Error; err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func seedAchievements(tx *gorm.DB, achievements []Achievement) (int, error) {
	for i, a := range achievements {
		row := &entity.Achievement{
			ID: uuid.New().String(), Code: a.Code, Title: a.Title, Description: a.Description,
			Icon: a.Icon, Metric: a.Metric, Threshold: a.Threshold, XPReward: a.XPReward, IsActive: active(a.IsActive),
		}
		err := upsert(tx, "code", row, "title", "description", "icon", "metric", "threshold", "xp_reward", "is_active")
		if err != nil {
			return i, err
		}
	}
	return len(achievements), nil
}
