package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/authcrud/internal/logging"
	"github.com/dmitrijs2005/authcrud/internal/server/config"
	"github.com/dmitrijs2005/authcrud/internal/server/middleware"
	"github.com/dmitrijs2005/authcrud/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.Environment = config.EnvDevelopment
	c.HTTPAddr = "127.0.0.1:0"
	c.AccessTokenSecret = "access"
	c.RefreshTokenSecret = "refresh"
	c.ShutdownTimeout = time.Second
	return c
}

func newTestApp(t *testing.T, c *config.Config) (*App, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	app, err := build(c, logging.Nop{}, db, repomanager.NewPostgresRepositoryManager())
	require.NoError(t, err)
	return app, mock
}

func TestBuild_ServesHealthAndMetrics(t *testing.T) {
	app, mock := newTestApp(t, testConfig())
	h := app.server.Handler

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	mock.ExpectPing()
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
	assert.Contains(t, rec.Body.String(), "authcrud_http_requests_total")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuild_ProtectedRoutesNeedToken(t *testing.T) {
	app, _ := newTestApp(t, testConfig())

	for _, path := range []string{"/me", "/crud/users", "/crud/persons", "/cms/content", "/cms/types"} {
		rec := httptest.NewRecorder()
		app.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestBuild_InvalidCleanupSchedule(t *testing.T) {
	c := testConfig()
	c.CleanupSchedule = "sometimes"
	db, _, err := sqlmock.New()
	require.NoError(t, err)

	_, err = build(c, logging.Nop{}, db, repomanager.NewPostgresRepositoryManager())
	require.Error(t, err)
}

func TestNewLimiter(t *testing.T) {
	c := testConfig()

	l, client := newLimiter(c)
	assert.IsType(t, &middleware.MemoryLimiter{}, l)
	assert.Nil(t, client)

	mr := miniredis.RunT(t)
	c.RedisAddr = mr.Addr()
	l, client = newLimiter(c)
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })
	assert.IsType(t, &middleware.RedisLimiter{}, l)

	d, err := l.Allow(context.Background(), "ip:127.0.0.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, c.RateLimitRequests-1, d.Remaining)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	app, mock := newTestApp(t, testConfig())
	mock.ExpectClose()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}
