package fx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"ranked-ladder/internal/reward"
	"ranked-ladder/internal/server"
	"ranked-ladder/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func TestModule_Validates(t *testing.T) {
	require.NoError(t, fx.ValidateApp(Module, fx.Invoke(func(*server.LadderServer) {})))
}

func TestModule_MemoryBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("LOG_LEVEL", "error")

	var (
		srv     *server.LadderServer
		rewards service.RewardService
	)
	app := fxtest.New(t, fx.NopLogger, Module, fx.Populate(&srv, &rewards))
	app.RequireStart()
	defer app.RequireStop()

	_, isLog := rewards.(*reward.LogAwarder)
	assert.True(t, isLog, "no webhook configured")

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil).WithContext(context.Background()))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestModule_RejectsUnknownQualificationTier(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("QUALIFICATION_TIER", "mythic")

	app := fx.New(fx.NopLogger, Module, fx.Invoke(func(*service.ProfileService) {}))
	assert.Error(t, app.Err())
}
