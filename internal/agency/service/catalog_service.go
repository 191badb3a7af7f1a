package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/braincreator/flow-masters/internal/agency/entity"
	"github.com/braincreator/flow-masters/internal/agency/repository"
	"github.com/braincreator/flow-masters/internal/config"
	"github.com/braincreator/flow-masters/internal/shared/cache"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var prepaymentShare = decimal.NewFromFloat(0.5)

// PlanView pricing plan as shown on the marketing site
type PlanView struct {
	ID                  string          `json:"id"`
	Slug                string          `json:"slug"`
	Name                string          `json:"name"`
	Description         string          `json:"description"`
	Price               decimal.Decimal `json:"price"`
	Currency            string          `json:"currency"`
	FormattedPrice      string          `json:"formattedPrice"`
	Prepayment          decimal.Decimal `json:"prepayment"`
	FormattedPrepayment string          `json:"formattedPrepayment"`
	Interval            string          `json:"interval"`
	DurationDays        int             `json:"durationDays"`
	Features            []string        `json:"features"`
	IsPopular           bool            `json:"isPopular"`
}

// ServiceView agency offering as shown on the marketing site
type ServiceView struct {
	ID             string          `json:"id"`
	Slug           string          `json:"slug"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	ServiceType    string          `json:"serviceType"`
	Price          decimal.Decimal `json:"price"`
	Currency       string          `json:"currency"`
	FormattedPrice string          `json:"formattedPrice"`
	Features       []string        `json:"features"`
	TemplateID     *string         `json:"templateId,omitempty"`
}

// Prepayment is the deposit asked for a plan.
func Prepayment(price decimal.Decimal) decimal.Decimal {
	return price.Mul(prepaymentShare).Round(2)
}

// CatalogService read side of plans and services
type CatalogService struct {
	repo    *repository.CatalogRepository
	cache   *cache.JSONCache
	ttl     time.Duration
	locales []language.Tag
	matcher language.Matcher
	logger  *zap.Logger
}

func NewCatalogService(repo *repository.CatalogRepository, rdb *redis.Client, site config.SiteConfig, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := site.CatalogCacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	var tags []language.Tag
	for _, l := range site.Locales {
		if t, err := language.Parse(l); err == nil {
			tags = append(tags, t)
		}
	}
	if len(tags) == 0 {
		tags = []language.Tag{language.Russian, language.English}
	}
	s := &CatalogService{
		repo:    repo,
		ttl:     ttl,
		locales: tags,
		matcher: language.NewMatcher(tags),
		logger:  logger,
	}
	if rdb != nil {
		s.cache = cache.NewJSONCache(rdb, "catalog")
	}
	return s
}

// Negotiate picks a supported locale. An explicit locale wins over Accept-Language.
func (s *CatalogService) Negotiate(locale, acceptLanguage string) language.Tag {
	var (
		desired []language.Tag
		err     error
	)
	if locale != "" {
		var t language.Tag
		t, err = language.Parse(locale)
		desired = []language.Tag{t}
	} else if acceptLanguage != "" {
		desired, _, err = language.ParseAcceptLanguage(acceptLanguage)
	}
	if err != nil || len(desired) == 0 {
		return s.locales[0]
	}
	_, idx, _ := s.matcher.Match(desired...)
	return s.locales[idx]
}

// FormatPrice renders amount in the currency's symbol form for the locale.
func FormatPrice(tag language.Tag, amount decimal.Decimal, code string) string {
	p := message.NewPrinter(tag)
	unit, err := currency.ParseISO(code)
	if err != nil {
		return p.Sprintf("%.2f %s", amount.InexactFloat64(), code)
	}
	return p.Sprint(currency.Symbol(unit.Amount(amount.InexactFloat64())))
}

func (s *CatalogService) Plans(ctx context.Context, tag language.Tag) ([]PlanView, error) {
	key := "plans:" + tag.String()
	var cached []PlanView
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}

	plans, err := s.repo.ListActivePlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	out := make([]PlanView, 0, len(plans))
	for _, p := range plans {
		out = append(out, planView(tag, p))
	}
	s.toCache(ctx, key, out)
	return out, nil
}

func planView(tag language.Tag, p entity.SubscriptionPlan) PlanView {
	prepay := Prepayment(p.Price)
	features := []string(p.Features)
	if features == nil {
		features = []string{}
	}
	return PlanView{
		ID:                  p.ID,
		Slug:                p.Slug,
		Name:                p.Name,
		Description:         p.Description,
		Price:               p.Price,
		Currency:            p.Currency,
		FormattedPrice:      FormatPrice(tag, p.Price, p.Currency),
		Prepayment:          prepay,
		FormattedPrepayment: FormatPrice(tag, prepay, p.Currency),
		Interval:            p.Interval,
		DurationDays:        p.DurationDays,
		Features:            features,
		IsPopular:           p.IsPopular,
	}
}

func (s *CatalogService) Services(ctx context.Context, tag language.Tag, serviceType string) ([]ServiceView, error) {
	serviceType = strings.TrimSpace(serviceType)
	key := "services:" + tag.String() + ":" + serviceType
	var cached []ServiceView
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}

	items, err := s.repo.ListActiveServices(ctx, serviceType)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	out := make([]ServiceView, 0, len(items))
	for _, it := range items {
		features := []string(it.Features)
		if features == nil {
			features = []string{}
		}
		out = append(out, ServiceView{
			ID:             it.ID,
			Slug:           it.Slug,
			Title:          it.Title,
			Description:    it.Description,
			ServiceType:    it.ServiceType,
			Price:          it.Price,
			Currency:       it.Currency,
			FormattedPrice: FormatPrice(tag, it.Price, it.Currency),
			Features:       features,
			TemplateID:     it.TemplateID,
		})
	}
	s.toCache(ctx, key, out)
	return out, nil
}

func (s *CatalogService) fromCache(ctx context.Context, key string, dst interface{}) bool {
	if s.cache == nil {
		return false
	}
	err := s.cache.Get(ctx, key, dst)
	if err != nil && !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
	}
	return err == nil
}

func (s *CatalogService) toCache(ctx context.Context, key string, v interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, v, s.ttl); err != nil {
		s.logger.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
}
