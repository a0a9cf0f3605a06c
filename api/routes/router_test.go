package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubAuthService struct{}

func (stubAuthService) Login(context.Context, auth.LoginRequest) (*auth.LoginResponse, error) {
	return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
}

func (stubAuthService) Logout(context.Context, string) error {
	return nil
}

type stubCartService struct {
	cart.Service
}

func (stubCartService) GetOrCreate(context.Context, cart.Owner) (*cart.CartView, error) {
	return &cart.CartView{Items: []cart.CartLine{}}, nil
}

type stubOrdersService struct {
	orders.Service
}

func (stubOrdersService) List(context.Context, orders.ListFilter, pagination.Params) (*orders.OrderList, error) {
	return &orders.OrderList{Orders: []orders.OrderSummary{}}, nil
}

type stubDeadLetters struct{}

func (stubDeadLetters) ForAggregate(context.Context, uuid.UUID) ([]models.OutboxDLQ, error) {
	return []models.OutboxDLQ{{ID: uuid.New(), EventType: enums.EventOrderCreated}}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "storefront", ExpirationMinutes: 60},
		RateLimit: config.RateLimitConfig{
			LoginWindow:     time.Minute,
			LoginIPLimit:    2,
			LoginEmailLimit: 5,
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"https://shop.example.com"}},
	}
}

type testEnv struct {
	router http.Handler
	redis  *redis.Client
	mr     *miniredis.Miniredis
}

func newTestRouter(t *testing.T, cfg *config.Config) testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	client := redis.Wrap(raw)

	logg := logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})
	router := NewRouter(cfg, logg, stubPinger{}, client, http.NotFoundHandler(), Services{
		Auth:   stubAuthService{},
		Cart:   stubCartService{},
		Orders: stubOrdersService{},

		DeadLetters: stubDeadLetters{},
	})
	return testEnv{router: router, redis: client, mr: mr}
}

// buildToken mints a token and registers its session so Auth accepts it.
func buildToken(t *testing.T, env testEnv, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	userID := uuid.New()
	jti := uuid.NewString()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: userID,
		Role:   role,
		JTI:    jti,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	if err := env.redis.StoreAccessSession(context.Background(), jti, userID.String(), time.Hour); err != nil {
		t.Fatalf("store session: %v", err)
	}
	return token
}

func TestHealthLive(t *testing.T) {
	env := newTestRouter(t, testConfig())
	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestHealthReadyPingsRedis(t *testing.T) {
	env := newTestRouter(t, testConfig())
	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	env.mr.Close()
	resp = httptest.NewRecorder()
	env.router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 with redis down got %d", resp.Code)
	}
}

func TestOrdersRejectMissingJWT(t *testing.T) {
	env := newTestRouter(t, testConfig())
	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestOrdersSucceedWithJWT(t *testing.T) {
	cfg := testConfig()
	env := newTestRouter(t, cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, env, cfg, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAdminGroupRequiresStaffRole(t *testing.T) {
	cfg := testConfig()
	env := newTestRouter(t, cfg)

	customer := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
	customer.Header.Set("Authorization", "Bearer "+buildToken(t, env, cfg, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, customer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer got %d", resp.Code)
	}

	staff := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
	staff.Header.Set("Authorization", "Bearer "+buildToken(t, env, cfg, enums.UserRoleStaff))
	resp = httptest.NewRecorder()
	env.router.ServeHTTP(resp, staff)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for staff got %d", resp.Code)
	}
}

func TestAdminDeadLettersMountedForStaffOnly(t *testing.T) {
	cfg := testConfig()
	env := newTestRouter(t, cfg)
	target := "/api/v1/admin/orders/" + uuid.NewString() + "/dead-letters"

	customer := httptest.NewRequest(http.MethodGet, target, nil)
	customer.Header.Set("Authorization", "Bearer "+buildToken(t, env, cfg, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, customer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer got %d", resp.Code)
	}

	staff := httptest.NewRequest(http.MethodGet, target, nil)
	staff.Header.Set("Authorization", "Bearer "+buildToken(t, env, cfg, enums.UserRoleStaff))
	resp = httptest.NewRecorder()
	env.router.ServeHTTP(resp, staff)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for staff got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), string(enums.EventOrderCreated)) {
		t.Fatalf("expected dead letter in body: %s", resp.Body.String())
	}
}

func TestCartAllowsAnonymousSession(t *testing.T) {
	env := newTestRouter(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("X-Session-Key", "anon-123")
	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for anonymous cart got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	env.router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without owner got %d", resp.Code)
	}
}

func TestCartMergeRequiresJWT(t *testing.T) {
	env := newTestRouter(t, testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/merge", strings.NewReader(`{"session_key":"anon-123"}`))
	req.Header.Set("X-Session-Key", "anon-123")
	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous merge got %d", resp.Code)
	}
}

func TestLoginIsRateLimitedByIP(t *testing.T) {
	env := newTestRouter(t, testConfig())

	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"a@b.co","password":"nope"}`))
		req.RemoteAddr = "10.0.0.1:1234"
		resp := httptest.NewRecorder()
		env.router.ServeHTTP(resp, req)
		last = resp.Code
		if i < 2 && resp.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401 got %d", i, resp.Code)
		}
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after limit got %d", last)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestRouter(t, testConfig())
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/checkout", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Idempotency-Key")
	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, req)

	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "https://shop.example.com" {
		t.Fatalf("expected allowed origin header got %q", got)
	}
}

func TestCheckoutRequiresIdempotencyKey(t *testing.T) {
	cfg := testConfig()
	env := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer "+buildToken(t, env, cfg, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without Idempotency-Key got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "Idempotency-Key") {
		t.Fatalf("expected header name in error body: %s", resp.Body.String())
	}
}
