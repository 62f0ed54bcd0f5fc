package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/sony/gobreaker/v2"

	"github.com/learnhub/learnhub/internal/rbac"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/courses/{id}")

	req := httptest.NewRequest(http.MethodGet, "/courses/1", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	body := scrape(t, metrics)
	if !strings.Contains(body, `learnhub_http_requests_total{code="418",route="/courses/{id}"} 1`) {
		t.Fatalf("expected metrics to record request, got: %s", body)
	}
	if !strings.Contains(body, `learnhub_http_request_duration_seconds_bucket{route="/courses/{id}"`) {
		t.Fatalf("expected duration histogram to be present, got: %s", body)
	}
}

func TestMetricsCountsAuthorizationDecisions(t *testing.T) {
	metrics := NewMetrics()
	engine := rbac.NewEngine(rbac.WithObserver(metrics.ObserveDecision))

	engine.Decide(rbac.Anonymous(), rbac.ActionList, rbac.KindCourse, nil)
	engine.Decide(rbac.Anonymous(), rbac.ActionList, rbac.KindCourse, nil)

	body := scrape(t, metrics)
	want := `learnhub_authz_decisions_total{action="list",decision="unauthenticated",kind="course"} 2`
	if !strings.Contains(body, want) {
		t.Fatalf("expected %q, got: %s", want, body)
	}
}

func TestMetricsNotificationAndBreaker(t *testing.T) {
	metrics := NewMetrics()

	metrics.ObserveNotification("suppressed")
	metrics.ObserveBreaker("payment-gateway", gobreaker.StateClosed, gobreaker.StateOpen)

	body := scrape(t, metrics)
	if !strings.Contains(body, `learnhub_course_notifications_total{outcome="suppressed"} 1`) {
		t.Fatalf("expected notification outcome, got: %s", body)
	}
	if !strings.Contains(body, `learnhub_circuit_breaker_state{breaker="payment-gateway"} 2`) {
		t.Fatalf("expected breaker state, got: %s", body)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveNotification("failed")
	metrics.ObserveDecision(rbac.KindCourse, rbac.ActionList, rbac.Allow)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}
