package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/watch-market/internal/api/http/handlers"
	"github.com/spec-kit/watch-market/internal/auth"
	"github.com/spec-kit/watch-market/internal/config"
	"github.com/spec-kit/watch-market/internal/domain"
	"github.com/spec-kit/watch-market/internal/observability"
	"github.com/spec-kit/watch-market/internal/repository/memory"
	"github.com/spec-kit/watch-market/internal/service"
)

type testServer struct {
	app   *fiber.App
	store *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.NewStore()
	logger := zap.NewNop()
	metrics := observability.NewMetrics("test")

	authService := service.NewAuthService(config.AuthConfig{JWTSecret: "secret", AccessTokenTTLMinutes: 5, BcryptCost: 4}, store.Users(), logger)
	require.NoError(t, authService.EnsureAdmin(context.Background(), "admin@example.com", "admin-pass"))

	deps := service.LifecycleDependencies{ListingRepo: store.Listings(), Metrics: metrics, Logger: logger}
	listings := service.NewListingService(service.ListingDependencies{LifecycleDependencies: deps, AuditRepo: store.Audit()})
	reports := service.NewReportService(service.ReportDependencies{LifecycleDependencies: deps, ReportRepo: store.Reports()})
	moderation := service.NewModerationService(deps)

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("watch-market", "test", nil),
		Users:          handlers.NewUsersHandler(authService),
		Listings:       handlers.NewListingsHandler(listings, reports),
		Moderation:     handlers.NewModerationHandler(moderation, reports),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), store.Users()),
		Metrics:        metrics,
	})
	return &testServer{app: app, store: store}
}

func (s *testServer) call(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func (s *testServer) token(t *testing.T, path string, body map[string]any) string {
	t.Helper()
	_, out := s.call(t, "POST", path, "", body)
	data, ok := out["data"].(map[string]any)
	require.True(t, ok, "unexpected response %v", out)
	return data["auth"].(map[string]any)["token"].(string)
}

func dataOf(t *testing.T, out map[string]any) map[string]any {
	t.Helper()
	data, ok := out["data"].(map[string]any)
	require.True(t, ok, "unexpected response %v", out)
	return data
}

func errorCode(out map[string]any) string {
	e, _ := out["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestModerationFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	seller := s.token(t, "/auth/register", map[string]any{"name": "Sam", "email": "sam@example.com", "password": "seller-pass", "role": "seller"})
	buyer := s.token(t, "/auth/register", map[string]any{"name": "Bea", "email": "bea@example.com", "password": "buyer-pass"})
	admin := s.token(t, "/auth/login", map[string]any{"email": "admin@example.com", "password": "admin-pass"})

	status, out := s.call(t, "POST", "/listings", seller, map[string]any{
		"brand": "Rolex", "model": "Explorer", "price_cents": 650000, "currency": "USD", "photo_count": 2,
	})
	require.Equal(t, 201, status, out)
	id := dataOf(t, out)["id"].(string)
	assert.Equal(t, "DRAFT", dataOf(t, out)["status"])

	status, out = s.call(t, "POST", "/listings", buyer, map[string]any{"brand": "Rolex", "model": "Explorer", "price_cents": 1, "currency": "USD"})
	assert.Equal(t, 403, status)
	assert.Equal(t, "FORBIDDEN", errorCode(out))

	status, _ = s.call(t, "GET", "/listings/"+id, "", nil)
	assert.Equal(t, 404, status)

	status, out = s.call(t, "POST", "/listings/"+id+"/submit", seller, nil)
	require.Equal(t, 200, status, out)
	assert.Equal(t, "PENDING", dataOf(t, out)["status"])

	status, out = s.call(t, "GET", "/admin/moderation/pending", admin, nil)
	require.Equal(t, 200, status)
	queue := out["data"].([]any)
	require.Len(t, queue, 1)
	assert.Equal(t, "sam@example.com", queue[0].(map[string]any)["seller"].(map[string]any)["email"])

	status, _ = s.call(t, "GET", "/admin/moderation/pending", seller, nil)
	assert.Equal(t, 403, status)

	status, out = s.call(t, "POST", "/admin/listings/"+id+"/approve", admin, nil)
	require.Equal(t, 200, status, out)
	assert.Equal(t, "APPROVED", dataOf(t, out)["status"])

	status, out = s.call(t, "POST", "/admin/listings/"+id+"/reject", admin, map[string]any{"reason": "late"})
	assert.Equal(t, 409, status)
	assert.Equal(t, "CONFLICT", errorCode(out))

	status, out = s.call(t, "GET", "/listings?brand=rolex", "", nil)
	require.Equal(t, 200, status)
	assert.Len(t, out["data"].([]any), 1)

	status, out = s.call(t, "POST", "/listings/"+id+"/reports", buyer, map[string]any{"reason": "suspected counterfeit"})
	require.Equal(t, 201, status, out)
	reportID := dataOf(t, out)["id"].(string)

	status, out = s.call(t, "POST", "/listings/"+id+"/reports", seller, map[string]any{"reason": "mine"})
	assert.Equal(t, 403, status, out)

	for i := 0; i < 2; i++ {
		status, out = s.call(t, "POST", "/admin/reports/"+reportID+"/close", admin, nil)
		require.Equal(t, 200, status, out)
		assert.Equal(t, "CLOSED", dataOf(t, out)["status"])
	}

	status, out = s.call(t, "GET", "/listings/"+id+"/history?limit=5", seller, nil)
	require.Equal(t, 200, status)
	history := out["data"].([]any)
	require.Len(t, history, 2)
	assert.Equal(t, "APPROVED", history[0].(map[string]any)["to_status"])

	status, _ = s.call(t, "DELETE", "/listings/"+id, buyer, nil)
	assert.Equal(t, 403, status)
	status, _ = s.call(t, "DELETE", "/listings/"+id, seller, nil)
	assert.Equal(t, 204, status)
	status, _ = s.call(t, "GET", "/listings/"+id, seller, nil)
	assert.Equal(t, 404, status)
}

func TestSubmitWithoutPhotosReturnsFieldError(t *testing.T) {
	s := newTestServer(t)
	seller := s.token(t, "/auth/register", map[string]any{"name": "Sam", "email": "sam@example.com", "password": "seller-pass", "role": "SELLER"})

	_, out := s.call(t, "POST", "/listings", seller, map[string]any{"brand": "Seiko", "model": "SKX007", "price_cents": 25000, "currency": "JPY"})
	id := dataOf(t, out)["id"].(string)

	status, out := s.call(t, "POST", "/listings/"+id+"/submit", seller, nil)
	assert.Equal(t, 400, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(out))
	details := out["error"].(map[string]any)["details"].(map[string]any)
	assert.Contains(t, details, "photo_count")
}

func TestAnonymousAndUnknownRoutes(t *testing.T) {
	s := newTestServer(t)

	status, out := s.call(t, "POST", "/listings", "", map[string]any{"brand": "x"})
	assert.Equal(t, 401, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(out))

	status, _ = s.call(t, "GET", "/listings", "bogus", nil)
	assert.Equal(t, 401, status)

	status, out = s.call(t, "GET", "/nowhere", "", nil)
	assert.Equal(t, 404, status)
	assert.Equal(t, "NOT_FOUND", errorCode(out))

	status, _ = s.call(t, "GET", "/health/live", "", nil)
	assert.Equal(t, 200, status)
	status, _ = s.call(t, "GET", "/health/ready", "", nil)
	assert.Equal(t, 200, status)

	req := httptest.NewRequest("GET", "/metrics", nil)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "test_http_requests_total")
}

func TestApprovedPagesDoNotSkipRows(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	for i := 0; i < 250; i++ {
		listing := &domain.Listing{
			SellerID: "seller-1",
			Status:   domain.ListingStatusApproved,
			ListingFields: domain.ListingFields{
				Brand: "Seiko", Model: fmt.Sprintf("SKX%03d", i), PriceCents: 25000, Currency: "JPY", PhotoCount: 1,
			},
		}
		require.NoError(t, s.store.Listings().Create(ctx, listing))
	}

	seen := map[string]struct{}{}
	for page := 1; page <= 3; page++ {
		status, out := s.call(t, "GET", fmt.Sprintf("/listings?page=%d&page_size=125", page), "", nil)
		require.Equal(t, 200, status, out)
		items := out["data"].([]any)
		if page < 3 {
			assert.Len(t, items, 100)
		} else {
			assert.Len(t, items, 50)
		}
		for _, item := range items {
			seen[item.(map[string]any)["id"].(string)] = struct{}{}
		}
	}
	assert.Len(t, seen, 250)

	status, out := s.call(t, "GET", "/listings?page=9223372036854775807&page_size=100", "", nil)
	require.Equal(t, 200, status, out)
	assert.Empty(t, out["data"])
}
