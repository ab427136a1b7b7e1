package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okCheck(context.Context) error { return nil }

func TestHandler_Healthy(t *testing.T) {
	h := NewHandler("v1.2.3")
	h.RegisterChecker("postgres", NewFuncChecker("postgres", okCheck))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "v1.2.3", resp.Version)
	assert.Len(t, resp.Checks, 1)
}

func TestHandler_CriticalFailure(t *testing.T) {
	h := NewHandler("dev")
	h.RegisterChecker("postgres", NewFuncChecker("postgres", func(context.Context) error {
		return errors.New("connection refused")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	h.ReadinessHandler(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "not ready", w.Body.String())
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestPingChecker_NonCriticalDegrades(t *testing.T) {
	h := NewHandler("dev")
	h.RegisterChecker("redis", NewPingChecker("redis", fakePinger{err: errors.New("timeout")}, false))
	h.RegisterChecker("postgres", NewPingChecker("postgres", fakePinger{}, true))

	resp := h.Run(context.Background())
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Equal(t, "timeout", resp.Checks["redis"].Message)

	w := httptest.NewRecorder()
	h.ReadinessHandler(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRun_RespectsTimeout(t *testing.T) {
	h := NewHandler("dev")
	h.timeout = 20 * time.Millisecond
	h.RegisterChecker("slow", NewFuncChecker("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	start := time.Now()
	resp := h.Run(context.Background())
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, StatusUnhealthy, resp.Status)
}

func TestLivenessHandler(t *testing.T) {
	w := httptest.NewRecorder()
	LivenessHandler(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}
