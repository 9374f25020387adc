package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/star64ccs/CardStrategy-sub008/internal/provider"
	"github.com/star64ccs/CardStrategy-sub008/internal/task"
)

func TestProviders(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, task.NewMockExecutor(), true)

	statuses := decode[[]provider.Status](t, srv.do(t, http.MethodGet, "/api/ai/providers", nil))
	require.Len(t, statuses, 1)
	assert.Equal(t, "mock", statuses[0].Name)
	assert.True(t, statuses[0].Usable)

	rec := srv.do(t, http.MethodPut, "/api/ai/providers/mock", map[string]any{"active": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	status := decode[provider.Status](t, rec)
	assert.False(t, status.Active)
	assert.False(t, status.Usable)

	require.NoError(t, srv.scheduler.RefreshHealth(context.Background()))
	health := decode[task.Health](t, srv.do(t, http.MethodGet, "/api/ai/health", nil))
	assert.Equal(t, 0, health.ProvidersOnline)
	assert.Equal(t, task.HealthPoor, health.Tier)
}

func TestProviders_Errors(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, task.NewMockExecutor(), true)

	rec := srv.do(t, http.MethodPut, "/api/ai/providers/openai", map[string]any{"active": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Provider not found", decodeError(t, rec).Error)

	rec = srv.do(t, http.MethodPut, "/api/ai/providers/mock", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid Active: required field", decodeError(t, rec).Error)
}
