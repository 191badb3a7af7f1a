package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func corsRouter(allowed []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS(allowed))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func doCORS(r http.Handler, method, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/ping", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCORSAllowedOriginGetsCredentials(t *testing.T) {
	r := corsRouter([]string{"https://flow-masters.ru/"})

	w := doCORS(r, http.MethodGet, "https://flow-masters.ru")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://flow-masters.ru" {
		t.Fatalf("Expected origin echoed, got %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Expected credentials allowed, got %q", got)
	}
	if got := w.Header().Get("Vary"); got != "Origin" {
		t.Errorf("Expected Vary: Origin, got %q", got)
	}
}

func TestCORSUnknownOriginIsNotEchoed(t *testing.T) {
	r := corsRouter([]string{"https://flow-masters.ru"})

	w := doCORS(r, http.MethodGet, "https://evil.example")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected same-origin semantics to serve the request, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Expected no Allow-Origin, got %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Errorf("Expected no Allow-Credentials, got %q", got)
	}

	w = doCORS(r, http.MethodOptions, "https://evil.example")
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected preflight 403, got %d", w.Code)
	}
}

func TestCORSPreflightFromAllowedOrigin(t *testing.T) {
	r := corsRouter([]string{"https://flow-masters.ru"})

	w := doCORS(r, http.MethodOptions, "https://flow-masters.ru")
	if w.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("Expected Allow-Methods on preflight")
	}
}

func TestCORSWildcardNeverSendsCredentials(t *testing.T) {
	r := corsRouter([]string{"*"})

	w := doCORS(r, http.MethodGet, "https://anyone.example")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("Expected *, got %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Errorf("Expected no credentials with wildcard, got %q", got)
	}
}
