package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/fuelpass/fuelpass-backend/pkg/config"
)

func testConfig(exposeMetrics bool) *config.Config {
	return &config.Config{
		App:          config.AppConfig{Env: "test", Port: "8080"},
		FeatureFlags: config.FeatureFlagsConfig{ExposeMetrics: exposeMetrics},
	}
}

func TestRouterHealthLive(t *testing.T) {
	router := NewRouter(testConfig(false), nil, nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if env := rec.Header().Get("X-FuelPass-Env"); env != "test" {
		t.Fatalf("unexpected env header %q", env)
	}
}

func TestRouterHealthReadyWithoutDependencies(t *testing.T) {
	router := NewRouter(testConfig(false), nil, nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestRouterMetricsFlag(t *testing.T) {
	enabled := NewRouter(testConfig(true), nil, nil, nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	enabled.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected metrics endpoint when enabled, got %d", rec.Code)
	}

	disabled := NewRouter(testConfig(false), nil, nil, nil, nil, nil)
	rec = httptest.NewRecorder()
	disabled.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when metrics disabled, got %d", rec.Code)
	}
}

func TestRouterGuardsCouponGeneration(t *testing.T) {
	router := NewRouter(testConfig(false), nil, nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/coupons", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without employee header, got %d", rec.Code)
	}
}

func TestRouterGuardsCustomerEndpoints(t *testing.T) {
	router := NewRouter(testConfig(false), nil, nil, nil, nil, nil)

	paths := []string{
		"/api/v1/coupons/scan",
		"/api/v1/coupons/activate",
		"/api/v1/coupons/" + uuid.NewString() + "/complete",
	}
	for _, path := range paths {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %s, got %d", path, rec.Code)
		}
	}
}

func TestRouterVerificationEndpointsArePublic(t *testing.T) {
	router := NewRouter(testConfig(false), nil, nil, nil, nil, nil)

	// Nil raffle service maps to 500, not 401: no auth gate in the way.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/raffles/"+uuid.NewString()+"/verify", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 from nil service, got %d", rec.Code)
	}
}

func TestRouterGuardsDrawEndpoint(t *testing.T) {
	router := NewRouter(testConfig(false), nil, nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/raffles/"+uuid.NewString()+"/draw", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without employee header, got %d", rec.Code)
	}
}
