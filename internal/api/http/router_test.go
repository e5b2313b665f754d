package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	httptransport "github.com/spec-kit/auth-service/internal/api/http"
	"github.com/spec-kit/auth-service/internal/api/http/handlers"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/observability"
	"github.com/spec-kit/auth-service/internal/persistence"
	"github.com/spec-kit/auth-service/internal/repository"
	"github.com/spec-kit/auth-service/internal/service"
	"github.com/spec-kit/auth-service/internal/worker"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	seq   int
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.users[user.Username]; exists {
		return repository.ErrUsernameExists
	}
	f.seq++
	user.ID = "u-" + strconv.Itoa(f.seq)
	stored := *user
	f.users[user.Username] = &stored
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			copied := *u
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[username]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			u.PasswordHash = hash
			return nil
		}
	}
	return pgx.ErrNoRows
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	cfg := config.AuthConfig{
		JWTSecret:             "0123456789abcdef0123456789abcdef",
		AccessTokenTTLMinutes: 60,
		BcryptCost:            bcrypt.MinCost,
	}

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	repo := newFakeUserRepo()
	dispatcher := events.NewInMemoryDispatcher()
	authService := service.NewAuthService(cfg, repo, dispatcher)
	authMiddleware := auth.NewMiddleware(authService.TokenManager(), repo, logger)

	mr := miniredis.RunT(t)
	redisClient := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	auditService := service.NewAuditService(dispatcher, redisClient, logger, config.AuditConfig{
		LogKey:     "auth:audit:log",
		MaxEntries: 1000,
	})
	worker.StartAuditWorker(auditService)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler("auth-service", "test", &persistence.Postgres{}, &persistence.Redis{}),
		Auth:           handlers.NewAuthHandler(authService),
		Hello:          handlers.NewHelloHandler(),
		Audit:          handlers.NewAuditHandler(auditService),
		AuthMiddleware: authMiddleware,
	})
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, payload any) (*nethttp.Response, map[string]any) {
	t.Helper()

	var reqBody *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		reqBody = bytes.NewReader(raw)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var body map[string]any
	defer resp.Body.Close()
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp, body
}

func errorCode(body map[string]any) string {
	errObj, _ := body["error"].(map[string]any)
	code, _ := errObj["code"].(string)
	return code
}

func registerAndLogin(t *testing.T, app *fiber.App, username, password, role string) string {
	t.Helper()

	resp, _ := doJSON(t, app, nethttp.MethodPost, "/auth/register", "", fiber.Map{
		"username": username, "password": password, "role": role,
	})
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, app, nethttp.MethodPost, "/auth/login", "", fiber.Map{
		"username": username, "password": password,
	})
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestRegisterLoginProtectedFlow(t *testing.T) {
	app := newTestApp(t)

	resp, body := doJSON(t, app, nethttp.MethodPost, "/auth/register", "", fiber.Map{
		"username": "alice", "password": "p@ss", "role": "USER",
	})
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "user registered successfully", body["message"])
	assert.NotEmpty(t, body["user_id"])

	resp, body = doJSON(t, app, nethttp.MethodPost, "/auth/login", "", fiber.Map{
		"username": "alice", "password": "p@ss",
	})
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	resp, body = doJSON(t, app, nethttp.MethodGet, "/hello/user", token, nil)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "Hello user", body["message"])

	resp, body = doJSON(t, app, nethttp.MethodGet, "/hello/admin", token, nil)
	assert.Equal(t, nethttp.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", errorCode(body))

	resp, body = doJSON(t, app, nethttp.MethodGet, "/hello/user", "", nil)
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))
}

func TestAdminRoleAccess(t *testing.T) {
	app := newTestApp(t)
	token := registerAndLogin(t, app, "root", "s3cret", "ADMIN")

	resp, _ := doJSON(t, app, nethttp.MethodGet, "/hello/admin", token, nil)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, nethttp.MethodGet, "/hello/user", token, nil)
	assert.Equal(t, nethttp.StatusForbidden, resp.StatusCode)
}

func TestRegisterDuplicateConflict(t *testing.T) {
	app := newTestApp(t)

	resp, _ := doJSON(t, app, nethttp.MethodPost, "/auth/register", "", fiber.Map{
		"username": "alice", "password": "p@ss", "role": "USER",
	})
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, app, nethttp.MethodPost, "/auth/register", "", fiber.Map{
		"username": "alice", "password": "other", "role": "ADMIN",
	})
	assert.Equal(t, nethttp.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CONFLICT", errorCode(body))
}

func TestRegisterInvalidPayload(t *testing.T) {
	app := newTestApp(t)

	resp, _ := doJSON(t, app, nethttp.MethodPost, "/auth/register", "", fiber.Map{
		"username": "alice", "password": "p@ss", "role": "SUPERUSER",
	})
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, app, nethttp.MethodPost, "/auth/register", "", fiber.Map{
		"username": "", "password": "", "role": "",
	})
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
}

func TestLoginFailuresAreUniform(t *testing.T) {
	app := newTestApp(t)
	registerAndLogin(t, app, "alice", "p@ss", "USER")

	unknownResp, unknownBody := doJSON(t, app, nethttp.MethodPost, "/auth/login", "", fiber.Map{
		"username": "no-such-user", "password": "whatever",
	})
	wrongResp, wrongBody := doJSON(t, app, nethttp.MethodPost, "/auth/login", "", fiber.Map{
		"username": "alice", "password": "wrong",
	})

	assert.Equal(t, nethttp.StatusUnauthorized, unknownResp.StatusCode)
	assert.Equal(t, nethttp.StatusUnauthorized, wrongResp.StatusCode)
	// byte-identical failure shape for unknown user and wrong password
	assert.Equal(t, unknownBody, wrongBody)
}

func TestProtectedRouteRejectsBadTokens(t *testing.T) {
	app := newTestApp(t)
	registerAndLogin(t, app, "alice", "p@ss", "USER")

	for _, token := range []string{"garbage", "a.b.c", ""} {
		resp, _ := doJSON(t, app, nethttp.MethodGet, "/hello/user", token, nil)
		assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode, "token %q", token)
	}
}

func TestChangePasswordFlow(t *testing.T) {
	app := newTestApp(t)
	token := registerAndLogin(t, app, "alice", "p@ss", "USER")

	resp, _ := doJSON(t, app, nethttp.MethodPost, "/auth/password/change", "", fiber.Map{
		"current_password": "p@ss", "new_password": "n3w-p@ss",
	})
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, app, nethttp.MethodPost, "/auth/password/change", token, fiber.Map{
		"current_password": "p@ss", "new_password": "n3w-p@ss",
	})
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, nethttp.MethodPost, "/auth/login", "", fiber.Map{
		"username": "alice", "password": "p@ss",
	})
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, app, nethttp.MethodPost, "/auth/login", "", fiber.Map{
		"username": "alice", "password": "n3w-p@ss",
	})
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
}

func TestHealthEndpoints(t *testing.T) {
	app := newTestApp(t)

	resp, body := doJSON(t, app, nethttp.MethodGet, "/health/live", "", nil)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "alive", body["status"])

	// no postgres/redis configured in tests
	resp, _ = doJSON(t, app, nethttp.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, nethttp.StatusServiceUnavailable, resp.StatusCode)
}

func TestAuditEndpointRequiresAdmin(t *testing.T) {
	app := newTestApp(t)
	userToken := registerAndLogin(t, app, "alice", "p@ss", "USER")
	adminToken := registerAndLogin(t, app, "root", "s3cret", "ADMIN")

	resp, _ := doJSON(t, app, nethttp.MethodGet, "/admin/audit", "", nil)
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, app, nethttp.MethodGet, "/admin/audit", userToken, nil)
	assert.Equal(t, nethttp.StatusForbidden, resp.StatusCode)

	resp, body := doJSON(t, app, nethttp.MethodGet, "/admin/audit", adminToken, nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	// two registrations and two logins so far
	count, ok := body["count"].(float64)
	require.True(t, ok)
	assert.Equal(t, float64(4), count)

	// a negative limit gets the service default, not the raw value
	resp, body = doJSON(t, app, nethttp.MethodGet, "/admin/audit?limit=-1", adminToken, nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	count, ok = body["count"].(float64)
	require.True(t, ok)
	assert.Equal(t, float64(4), count)
}
