package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/braincreator/flow-masters/internal/agency/entity"
	"github.com/braincreator/flow-masters/internal/agency/repository"
	"github.com/braincreator/flow-masters/internal/shared/events"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/datatypes"
)

// NormalizedCourse canonical shape of the course creator payload
type NormalizedCourse struct {
	Course  map[string]interface{} `json:"course"`
	Landing map[string]interface{} `json:"landing,omitempty"`
	Funnel  map[string]interface{} `json:"funnel,omitempty"`
}

// NormalizeCourse accepts the three payload shapes the creator produces:
// {course, landing?, funnel?}, a course object carrying landing/funnel keys,
// or a bare course object.
func NormalizeCourse(raw []byte, includeLanding, includeFunnel bool) (*NormalizedCourse, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, validationf("payload must be a JSON object")
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, validationf("invalid JSON: %v", err)
	}

	out := &NormalizedCourse{}
	if c, ok := obj["course"]; ok {
		course, ok := c.(map[string]interface{})
		if !ok {
			return nil, validationf("course must be an object")
		}
		out.Course = course
	} else {
		out.Course = make(map[string]interface{}, len(obj))
		for k, v := range obj {
			if k == "landing" || k == "funnel" {
				continue
			}
			out.Course[k] = v
		}
	}
	if l, ok := obj["landing"].(map[string]interface{}); ok && includeLanding {
		out.Landing = l
	}
	if f, ok := obj["funnel"].(map[string]interface{}); ok && includeFunnel {
		out.Funnel = f
	}

	title, _ := out.Course["title"].(string)
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, validationf("course title is required")
	}
	out.Course["title"] = title
	if slug, _ := out.Course["slug"].(string); strings.TrimSpace(slug) == "" {
		out.Course["slug"] = Slugify(title)
	} else {
		out.Course["slug"] = Slugify(slug)
	}
	return out, nil
}

var cyrillic = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "e", 'ж': "zh",
	'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m", 'н': "n", 'о': "o",
	'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u", 'ф': "f", 'х': "h", 'ц': "ts",
	'ч': "ch", 'ш': "sh", 'щ': "sch", 'ъ': "", 'ы': "y", 'ь': "", 'э': "e", 'ю': "yu",
	'я': "ya",
}

// Slugify lowercases, transliterates Cyrillic, strips accents and joins words with '-'.
func Slugify(s string) string {
	var latin strings.Builder
	for _, r := range strings.ToLower(s) {
		if tr, ok := cyrillic[r]; ok {
			latin.WriteString(tr)
			continue
		}
		latin.WriteRune(r)
	}

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, latin.String())
	if err != nil {
		folded = latin.String()
	}

	var b strings.Builder
	dash := false
	for _, r := range folded {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// CourseService admin course creator
type CourseService struct {
	repo      *repository.CourseRepository
	publisher events.Publisher
	logger    *zap.Logger
}

func NewCourseService(repo *repository.CourseRepository, publisher events.Publisher, logger *zap.Logger) *CourseService {
	return &CourseService{repo: repo, publisher: publisher, logger: logger}
}

// CreateCourse normalizes the payload and stores course, landing and funnel in one transaction.
func (s *CourseService) CreateCourse(ctx context.Context, raw []byte, includeLanding, includeFunnel bool, actor Actor) (*entity.Course, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	n, err := NormalizeCourse(raw, includeLanding, includeFunnel)
	if err != nil {
		return nil, err
	}

	course, err := courseFromMap(n.Course)
	if err != nil {
		return nil, err
	}
	course.ID = newID()
	course.CreatedBy = actor.UserID
	course.Slug, err = s.uniqueSlug(ctx, course.Slug)
	if err != nil {
		return nil, err
	}

	var landing *entity.CourseLanding
	if n.Landing != nil {
		content, _ := json.Marshal(n.Landing)
		headline, _ := n.Landing["headline"].(string)
		if headline == "" {
			headline = course.Title
		}
		landing = &entity.CourseLanding{ID: newID(), Headline: headline, Content: datatypes.JSON(content)}
	}
	var funnel *entity.CourseFunnel
	if n.Funnel != nil {
		steps, _ := json.Marshal(n.Funnel["steps"])
		name, _ := n.Funnel["name"].(string)
		if name == "" {
			name = course.Title
		}
		funnel = &entity.CourseFunnel{ID: newID(), Name: name, Steps: datatypes.JSON(steps)}
	}

	if err := s.repo.CreateWithRelations(ctx, course, landing, funnel); err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}

	s.logger.Info("course created",
		zap.String("course_id", course.ID),
		zap.String("slug", course.Slug),
		zap.Bool("landing", landing != nil),
		zap.Bool("funnel", funnel != nil))
	publish(ctx, s.publisher, s.logger, events.CourseCreated, map[string]string{
		"courseId": course.ID,
		"slug":     course.Slug,
	})
	return course, nil
}

func (s *CourseService) GetBySlug(ctx context.Context, slug string) (*entity.Course, error) {
	return s.repo.FindBySlug(ctx, slug)
}

func (s *CourseService) uniqueSlug(ctx context.Context, base string) (string, error) {
	if base == "" {
		base = "course"
	}
	slug := base
	for i := 2; ; i++ {
		exists, err := s.repo.SlugExists(ctx, slug)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

var courseColumns = map[string]bool{
	"title": true, "slug": true, "description": true, "level": true,
	"price": true, "currency": true, "modules": true, "status": true,
}

func courseFromMap(m map[string]interface{}) (*entity.Course, error) {
	c := &entity.Course{Status: "draft", Currency: "RUB", Price: decimal.Zero}
	c.Title, _ = m["title"].(string)
	c.Slug, _ = m["slug"].(string)
	c.Description, _ = m["description"].(string)
	c.Level, _ = m["level"].(string)
	if v, ok := m["currency"].(string); ok && v != "" {
		c.Currency = strings.ToUpper(v)
	}
	if v, ok := m["status"].(string); ok && v != "" {
		c.Status = v
	}

	switch p := m["price"].(type) {
	case nil:
	case float64:
		c.Price = decimal.NewFromFloat(p).Round(2)
	case string:
		d, err := decimal.NewFromString(p)
		if err != nil {
			return nil, validationf("price %q is not a number", p)
		}
		c.Price = d.Round(2)
	default:
		return nil, validationf("price must be a number")
	}
	if c.Price.IsNegative() {
		return nil, validationf("price must not be negative")
	}

	if mods, ok := m["modules"]; ok {
		raw, err := json.Marshal(mods)
		if err != nil {
			return nil, validationf("modules: %v", err)
		}
		c.Modules = datatypes.JSON(raw)
	}

	extra := make(map[string]interface{})
	for k, v := range m {
		if !courseColumns[k] {
			extra[k] = v
		}
	}
	if len(extra) > 0 {
		raw, _ := json.Marshal(extra)
		c.Extra = datatypes.JSON(raw)
	}
	return c, nil
}
