package router

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"imaginify/internal/config"
	"imaginify/internal/form"
	"imaginify/internal/media"
	"imaginify/internal/metrics"
	"imaginify/internal/repository"
	"imaginify/internal/transformation"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const authKey = "router-secret"

type stubProvider struct{}

func (stubProvider) Upload(context.Context, string) (media.Asset, error) { return media.Asset{}, nil }
func (stubProvider) SearchPublicIDs(context.Context, string) ([]string, error) {
	return nil, nil
}
func (stubProvider) TransformationURL(string, int, int, transformation.Config) (string, error) {
	return "https://cdn.test/x", nil
}
func (stubProvider) Destroy(context.Context, string) error { return nil }

type stubStager struct{}

func (stubStager) PresignPut(context.Context, string, string) (string, error) {
	return "https://bucket.test/put", nil
}
func (stubStager) PresignGet(context.Context, string) (string, error) {
	return "https://bucket.test/get", nil
}
func (stubStager) Exists(context.Context, string) (bool, error) { return false, nil }
func (stubStager) Delete(context.Context, string) error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		Environment:          "test",
		StoreDriver:          "memory",
		AuthKey:              authKey,
		SignInURL:            "/sign-in",
		CORSOrigins:          "https://app.example.com",
		CreditFee:            1,
		DefaultCreditBalance: 10,
		RateLimitRequests:    1,
		RateLimitWindow:      time.Minute,
		AppURL:               "http://localhost:3000",
	}
}

func newTestRouter(t *testing.T, deps Deps) http.Handler {
	t.Helper()
	drafts := form.NewRegistry(time.Second, time.Hour)
	t.Cleanup(drafts.Close)
	deps.Store = repository.NewMemoryStore().Store()
	deps.Provider = stubProvider{}
	deps.Drafts = drafts
	if deps.Metrics == nil {
		deps.Metrics = metrics.New(func() float64 { return float64(drafts.Len()) })
	}
	h, err := New(testConfig(), zerolog.Nop(), deps)
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	return h
}

func bearer(t *testing.T, sub string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(authKey))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return "Bearer " + s
}

func TestMetricsRecordRoutePattern(t *testing.T) {
	h := newTestRouter(t, Deps{})

	for _, path := range []string{"/healthz", "/v1/images/abc", "/v1/images/def"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	text := string(body)
	for _, want := range []string{
		`imaginify_api_requests_total{method="GET",route="/healthz",status="200"} 1`,
		`imaginify_api_requests_total{method="GET",route="/v1/images/{id}",status="404"} 2`,
		`imaginify_open_drafts 0`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestTracingSpansNamedByPattern(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))
	h := newTestRouter(t, Deps{Tracer: provider.Tracer("test")})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/images/abc", nil))

	spans := recorder.Ended()
	if len(spans) != 1 || spans[0].Name() != "GET /v1/images/{id}" {
		t.Fatalf("spans = %v", spans)
	}
}

func TestCORS(t *testing.T) {
	h := newTestRouter(t, Deps{})

	req := httptest.NewRequest(http.MethodOptions, "/v1/images", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("allow origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/v1/images", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("foreign origin allowed: %q", got)
	}
}

func TestUploadRoutesNeedStager(t *testing.T) {
	h := newTestRouter(t, Deps{})
	req := httptest.NewRequest(http.MethodPost, "/v1/uploads", strings.NewReader(`{"filename":"a.png","content_type":"image/png"}`))
	req.Header.Set("Authorization", bearer(t, "user_1"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound && rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want upload route unmounted", rec.Code)
	}
}

func TestRedisRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	h := newTestRouter(t, Deps{Stager: stubStager{}, Redis: client})

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/uploads", strings.NewReader(`{"filename":"a.png","content_type":"image/png"}`))
		req.Header.Set("Authorization", bearer(t, "user_1"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}
	if rec := send(); rec.Code != http.StatusCreated {
		t.Fatalf("first status = %d (%s)", rec.Code, rec.Body.String())
	}
	rec := send()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("Retry-After missing")
	}
}
