package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/foodgram/backend/config"
	"github.com/foodgram/backend/internal/api"
	"github.com/foodgram/backend/internal/service"
	"github.com/foodgram/backend/internal/testhelpers"
)

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()

	db := testhelpers.SetupTestDatabase(t)
	images := service.NewImageService(service.NewLocalStorage(t.TempDir(), "/media"))

	svcs := api.Services{
		Auth:    service.NewAuthService(db, service.NewMemoryDenylist(), cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Users:   service.NewUserService(db, images),
		Catalog: service.NewCatalogService(db),
		Recipes: service.NewRecipeService(db, images),
	}
	return New(cfg, db, nil, svcs, zap.NewNop())
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		Server: config.Server{
			Host:            "127.0.0.1",
			Port:            8080,
			ShutdownTimeout: time.Second,
			AllowedOrigins:  []string{"http://localhost:3000"},
		},
		Auth:  config.Auth{JWTSecret: "test-secret", TokenTTL: time.Hour},
		Media: config.Media{Root: t.TempDir(), BaseURL: "/media"},
		Storage: config.Storage{
			Backend: "local",
		},
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, testConfig(t))

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, testConfig(t))

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "foodgram_http_requests_total")
}

func TestAPIRoutesMounted(t *testing.T) {
	srv := newTestServer(t, testConfig(t))

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/api/tags", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/api/recipes", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLocalMediaIsServed(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Media.Root, "pancakes.png"), []byte("image bytes"), 0o644))

	srv := newTestServer(t, cfg)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/media/pancakes.png", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image bytes", w.Body.String())
}

func TestCORSHeaders(t *testing.T) {
	srv := newTestServer(t, testConfig(t))

	req := httptest.NewRequest("OPTIONS", "/api/recipes", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
