package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/braincreator/flow-masters/internal/agency/entity"
	"github.com/braincreator/flow-masters/internal/agency/repository"
	"github.com/braincreator/flow-masters/internal/config"
	"github.com/braincreator/flow-masters/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const JWTSecret = "flow-masters-test-secret"

var dbSeq atomic.Int64

// TestEnv holds test environment resources
type TestEnv struct {
	DB    *gorm.DB
	Redis *redis.Client
	Mini  *miniredis.Miniredis
	Repos *repository.Repositories
	T     *testing.T
}

// SetupTestDB opens a private in-memory sqlite database with every table migrated.
// A single connection keeps concurrent queries on the same memory database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:agency_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(entity.All()...); err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	t.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}

// SetupRedis starts a miniredis server for the test.
func SetupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mini := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() {
		rdb.Close()
	})
	return rdb, mini
}

// NewEnv wires database, redis and repositories.
func NewEnv(t *testing.T) *TestEnv {
	t.Helper()
	db := SetupTestDB(t)
	rdb, mini := SetupRedis(t)
	return &TestEnv{DB: db, Redis: rdb, Mini: mini, Repos: repository.NewRepositories(db), T: t}
}

// TestConfig returns a config good enough for services under test.
func TestConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			AllowedOrigins: []string{"https://flow-masters.test"},
		},
		JWT: config.JWTConfig{
			Secret:            JWTSecret,
			AccessTokenExpire: time.Hour,
			Issuer:            "flow-masters-test",
			CookieName:        middleware.DefaultCookieName,
		},
		Site: config.SiteConfig{
			BaseURL:         "https://flow-masters.test",
			DefaultCurrency: "RUB",
			Locales:         []string{"ru", "en"},
			CatalogCacheTTL: time.Minute,
			CheckoutTTL:     time.Hour,
		},
		MinIO: config.MinIOConfig{URLExpiry: time.Hour},
	}
}

// SetupRouter creates a gin test router
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// Token signs a session token for user.
func Token(user *entity.User) string {
	token, _, _ := middleware.GenerateToken(JWTSecret, "flow-masters-test", time.Hour, user.ID, user.Name, user.Email, user.Role)
	return token
}

// DoRequest executes an HTTP request against the test router
func DoRequest(r http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	return DoRequestWithHeaders(r, method, path, body, token, nil)
}

// DoRequestWithHeaders is DoRequest with extra headers
func DoRequestWithHeaders(r http.Handler, method, path string, body interface{}, token string, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	switch b := body.(type) {
	case nil:
		reqBody = bytes.NewBuffer(nil)
	case string:
		reqBody = bytes.NewBufferString(b)
	case []byte:
		reqBody = bytes.NewBuffer(b)
	default:
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse parses the JSON envelope
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// Data returns the envelope's data object.
func Data(w *httptest.ResponseRecorder) map[string]interface{} {
	data, _ := ParseResponse(w)["data"].(map[string]interface{})
	return data
}

// SeedUser creates a user with the given role.
func SeedUser(t *testing.T, db *gorm.DB, id, role string) *entity.User {
	t.Helper()
	user := &entity.User{
		ID:     id,
		Email:  strings.ToLower(id) + "@example.com",
		Name:   "User " + id,
		Role:   role,
		Locale: "ru",
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}
	return user
}

// SeedProject creates a service project owned by customer.
func SeedProject(t *testing.T, db *gorm.DB, id, customerID string, assignedToID *string) *entity.ServiceProject {
	t.Helper()
	p := &entity.ServiceProject{
		ID:           id,
		Name:         "Project " + id,
		CustomerID:   customerID,
		AssignedToID: assignedToID,
		Status:       entity.ProjectStatusNew,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("Failed to seed project: %v", err)
	}
	return p
}

// SeedMilestone creates a milestone on a project.
func SeedMilestone(t *testing.T, db *gorm.DB, id, projectID string, order int, approval bool) *entity.ProjectMilestone {
	t.Helper()
	m := &entity.ProjectMilestone{
		ID:                     id,
		ProjectID:              projectID,
		Title:                  "Milestone " + id,
		Status:                 entity.MilestoneStatusInProgress,
		Order:                  order,
		ClientApprovalRequired: approval,
	}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("Failed to seed milestone: %v", err)
	}
	return m
}
