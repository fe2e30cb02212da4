package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passingCheck() CheckFunc {
	return func(context.Context) error { return nil }
}

func failingCheck(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func get(handler http.HandlerFunc, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func runN(c *checkState, n int) {
	for range n {
		c.run(context.Background())
	}
}

func TestLiveEndpoint_AllPassing(t *testing.T) {
	h := New()
	h.AddLivenessCheck("check1", time.Second, passingCheck())
	h.AddLivenessCheck("check2", time.Second, passingCheck())

	w := get(h.LiveEndpoint, "/livez")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestLiveEndpoint_FailingCheck(t *testing.T) {
	h := New()
	h.AddLivenessCheck("db", time.Second, failingCheck("connection refused"))
	runN(h.checks[0], 3)

	w := get(h.LiveEndpoint, "/livez")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unhealthy","checks":{"db":"connection refused"}}`, w.Body.String())
}

func TestLiveEndpoint_FailureBelowThreshold(t *testing.T) {
	h := New()
	h.AddLivenessCheck("flaky", time.Second, failingCheck("temporary"))
	runN(h.checks[0], 2)

	assert.Equal(t, http.StatusOK, get(h.LiveEndpoint, "/livez").Code)
}

func TestLiveEndpoint_IgnoresReadinessChecks(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, failingCheck("down"))
	runN(h.checks[0], 3)

	assert.Equal(t, http.StatusOK, get(h.LiveEndpoint, "/livez").Code)
}

func TestReadyEndpoint(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, passingCheck())

	w := get(h.ReadyEndpoint, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unhealthy","checks":{"_readiness":"service is not ready"}}`, w.Body.String())

	h.SetReady(true)
	assert.Equal(t, http.StatusOK, get(h.ReadyEndpoint, "/readyz").Code)

	h.SetReady(false)
	assert.Equal(t, http.StatusServiceUnavailable, get(h.ReadyEndpoint, "/readyz").Code)
}

func TestReadyEndpoint_MultipleChecksOneFailing(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, passingCheck())
	h.AddReadinessCheck("cache", time.Second, failingCheck("cache miss"))
	h.SetReady(true)
	runN(h.checks[1], 3)

	w := get(h.ReadyEndpoint, "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unhealthy","checks":{"cache":"cache miss"}}`, w.Body.String())
	assert.False(t, h.IsReady())
}

func TestStatusEndpoint(t *testing.T) {
	h := New()

	w := get(h.StatusEndpoint, "/api/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	h.SetReady(true)
	w = get(h.StatusEndpoint, "/api/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"OK","message":"Server is running"}`, w.Body.String())
}

func TestCustomThresholds(t *testing.T) {
	failing := true
	h := New()
	h.Add(Check{
		Name:    "flaky",
		Probe:   Liveness,
		Timeout: time.Second,
		Func: func(context.Context) error {
			if failing {
				return errors.New("down")
			}
			return nil
		},
		FailureThreshold: 1,
		SuccessThreshold: 2,
	})
	c := h.checks[0]

	runN(c, 1)
	assert.False(t, c.healthy.Load())

	failing = false
	runN(c, 1)
	assert.False(t, c.healthy.Load(), "one success is below the threshold")
	runN(c, 1)
	assert.True(t, c.healthy.Load())
}

func TestCheckFailureMessage(t *testing.T) {
	h := New()
	h.AddLivenessCheck("db", time.Second, failingCheck("timeout"))
	c := h.checks[0]

	assert.Equal(t, "check is unhealthy", c.failure())
	runN(c, 1)
	assert.Equal(t, "timeout", c.failure())
}

func TestCheckTimeout(t *testing.T) {
	h := New()
	h.AddReadinessCheck("slow", 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	runN(h.checks[0], 3)

	assert.Contains(t, h.failures(Readiness)["slow"], "deadline exceeded")
}

func TestStartStop(t *testing.T) {
	h := New()
	h.AddLivenessCheck("goroutines", time.Second, passingCheck())
	h.AddReadinessCheck("postgres", time.Second, passingCheck())
	h.SetReady(true)

	h.Start(context.Background(), 10*time.Millisecond)

	var wg sync.WaitGroup
	for range 10 {
		wg.Go(func() {
			for range 50 {
				h.IsReady()
				get(h.LiveEndpoint, "/livez")
				get(h.ReadyEndpoint, "/readyz")
			}
		})
	}
	wg.Wait()

	h.Stop()
	h.Stop()
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestPingCheck(t *testing.T) {
	require.NoError(t, PingCheck(pingerFunc(func(context.Context) error { return nil }))(context.Background()))

	err := PingCheck(pingerFunc(func(context.Context) error { return errors.New("refused") }))(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(100000)(context.Background()))

	err := GoroutineCountCheck(0)(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds threshold")
}
