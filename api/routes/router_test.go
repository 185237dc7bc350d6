package routes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/herbstore-backend/api/middleware"
	"github.com/angelmondragon/herbstore-backend/internal/auth"
	"github.com/angelmondragon/herbstore-backend/internal/cart"
	"github.com/angelmondragon/herbstore-backend/internal/orders"
	products "github.com/angelmondragon/herbstore-backend/internal/products"
	pkgAuth "github.com/angelmondragon/herbstore-backend/pkg/auth"
	"github.com/angelmondragon/herbstore-backend/pkg/config"
	"github.com/angelmondragon/herbstore-backend/pkg/enums"
	"github.com/angelmondragon/herbstore-backend/pkg/logger"
	"github.com/angelmondragon/herbstore-backend/pkg/metrics"
	"github.com/angelmondragon/herbstore-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type memoryRedis struct {
	data map[string]string
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{data: map[string]string{}}
}

func (m *memoryRedis) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryRedis) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *memoryRedis) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryRedis) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (m *memoryRedis) FixedWindowAllow(context.Context, string, int64, time.Duration) (bool, int64, error) {
	return true, 1, nil
}

func (m *memoryRedis) Ping(context.Context) error { return nil }

type stubSessions struct{}

func (stubSessions) SessionSubject(context.Context, string) (string, bool, error) {
	return "admin@example.com", true, nil
}

type stubAuthService struct{}

func (stubAuthService) AdminLogin(context.Context, auth.LoginRequest) (*auth.LoginResponse, error) {
	return &auth.LoginResponse{AccessToken: "t"}, nil
}

func (stubAuthService) Logout(context.Context, string) error { return nil }

type stubProductService struct {
	products.Service
	creates int
}

func (s *stubProductService) ListProducts(_ context.Context, input products.ListProductsInput) (*products.ProductListResult, error) {
	return &products.ProductListResult{Products: []products.ProductDTO{}, Page: input.Pagination.Page}, nil
}

func (s *stubProductService) CreateProduct(_ context.Context, input products.CreateProductInput) (*products.ProductDTO, error) {
	s.creates++
	return &products.ProductDTO{ID: uuid.New(), Name: input.Name}, nil
}

type stubCartService struct {
	cart.Service
}

func (stubCartService) GetCart(_ context.Context, sessionID string) (*cart.CartDTO, error) {
	return &cart.CartDTO{SessionID: sessionID, Lines: []cart.LineDTO{}}, nil
}

type stubOrdersService struct {
	orders.Service
}

func (stubOrdersService) ListOrders(_ context.Context, params pagination.Params, _ orders.OrderFilters) (*orders.OrderList, error) {
	return &orders.OrderList{Orders: []orders.OrderDTO{}, Page: params.Page}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:        config.AppConfig{Env: "test"},
		JWT:        config.JWTConfig{Secret: "secret", Issuer: "herbstore", ExpirationMinutes: 30},
		RateLimit:  config.RateLimitConfig{Window: time.Minute, CartLimit: 100, CheckoutLimit: 10, LoginLimit: 5},
		Storefront: config.StorefrontConfig{IdempotencyTTL: time.Hour, BestSellingLimit: 4, RelatedLimit: 4, DefaultPageLimit: 10},
		CORS:       config.CORSConfig{AllowedOrigins: []string{"*"}},
	}
}

func newTestRouter(t *testing.T, productSvc *stubProductService) (http.Handler, *config.Config) {
	t.Helper()
	cfg := testConfig()
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
	reg := prometheus.NewRegistry()
	if productSvc == nil {
		productSvc = &stubProductService{}
	}
	handler := NewRouter(cfg, logg, Dependencies{
		DB:             stubPinger{},
		Redis:          newMemoryRedis(),
		Sessions:       stubSessions{},
		Gatherer:       reg,
		HTTPMetrics:    metrics.NewHTTPMetrics(reg),
		AuthService:    stubAuthService{},
		ProductService: productSvc,
		CartService:    stubCartService{},
		OrdersService:  stubOrdersService{},
	})
	return handler, cfg
}

func adminToken(t *testing.T, cfg *config.Config, role enums.Role) string {
	t.Helper()
	token, _, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{Subject: "admin@example.com", Role: role})
	require.NoError(t, err)
	return token
}

func TestPublicRoutes(t *testing.T) {
	handler, _ := newTestRouter(t, nil)

	for _, path := range []string{"/health/live", "/health/ready", "/api/products", "/api/cart"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestCartRouteIssuesSession(t *testing.T) {
	handler, _ := newTestRouter(t, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cart", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	_, err := uuid.Parse(rec.Header().Get(middleware.CartSessionHeader))
	require.NoError(t, err)
}

func TestMetricsEndpoint(t *testing.T) {
	handler, _ := newTestRouter(t, nil)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/products", nil))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_request_duration_seconds")
}

func TestAdminRoutesRequireToken(t *testing.T) {
	handler, cfg := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, cfg, enums.RoleStaff))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, cfg, enums.RoleAdmin))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminLoginIsPublic(t *testing.T) {
	handler, _ := newTestRouter(t, nil)
	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"email":"admin@example.com","password":"pw"}`)
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/auth/login", body))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminCreateProductIsIdempotent(t *testing.T) {
	svc := &stubProductService{}
	handler, cfg := newTestRouter(t, svc)
	token := adminToken(t, cfg, enums.RoleAdmin)
	body := `{"name":"Sidr","description":"Leaves","category":"سدر بودر","price":3,"image":["s.jpg"]}`

	send := func(key string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/products", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		if key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusBadRequest, send(""))
	assert.Equal(t, http.StatusCreated, send("k-1"))
	assert.Equal(t, http.StatusCreated, send("k-1"))
	assert.Equal(t, 1, svc.creates)
}
