package operations

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHealthServer(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.WriteHeader(http.StatusOK)
		case "/created":
			w.WriteHeader(http.StatusCreated)
		case "/slow":
			select {
			case <-time.After(time.Second):
			case <-r.Context().Done():
			}
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckHealth(t *testing.T) {
	srv := newHealthServer(t)

	targets := []HealthTarget{
		{Name: "api", URL: srv.URL + "/ok"},
		{Name: "broken", URL: srv.URL + "/broken"},
		{Name: "slow", URL: srv.URL + "/slow", Timeout: Duration(50 * time.Millisecond)},
		{Name: "created", URL: srv.URL + "/created", ExpectedStatus: http.StatusCreated},
	}

	results := CheckHealth(context.Background(), srv.Client(), targets)
	require.Len(t, results, 4)

	t.Run("should keep the order of the targets", func(t *testing.T) {
		for i, target := range targets {
			assert.Equal(t, target.Name, results[i].Name)
		}
	})

	t.Run("should report a healthy target", func(t *testing.T) {
		assert.True(t, results[0].Healthy)
		assert.Equal(t, http.StatusOK, results[0].StatusCode)
		assert.Empty(t, results[0].Error)
	})

	t.Run("should report an unexpected status", func(t *testing.T) {
		assert.False(t, results[1].Healthy)
		assert.Equal(t, http.StatusInternalServerError, results[1].StatusCode)
		assert.Contains(t, results[1].Error, "unexpected status")
	})

	t.Run("should cancel a target after its timeout", func(t *testing.T) {
		assert.False(t, results[2].Healthy)
		assert.Zero(t, results[2].StatusCode)
		assert.NotEmpty(t, results[2].Error)
		assert.Less(t, results[2].Latency, time.Second)
	})

	t.Run("should respect the expected status", func(t *testing.T) {
		assert.True(t, results[3].Healthy)
	})
}

func TestWaitHealthy(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	t.Run("should poll until the target is healthy", func(t *testing.T) {
		res, err := WaitHealthy(context.Background(), srv.Client(), HealthTarget{Name: "api", URL: srv.URL}, 10*time.Millisecond)
		require.NoError(t, err)
		assert.True(t, res.Healthy)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("should give up when the context is done", func(t *testing.T) {
		broken := newHealthServer(t)
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		res, err := WaitHealthy(ctx, broken.Client(), HealthTarget{Name: "broken", URL: broken.URL + "/broken"}, 20*time.Millisecond)
		require.Error(t, err)
		assert.False(t, res.Healthy)
		assert.Contains(t, err.Error(), "did not become healthy")
	})
}

func TestParseHealthTarget(t *testing.T) {
	t.Run("should split name and url", func(t *testing.T) {
		target, err := ParseHealthTarget("api=http://localhost:8080/health")
		require.NoError(t, err)
		assert.Equal(t, "api", target.Name)
		assert.Equal(t, "http://localhost:8080/health", target.URL)
		assert.Equal(t, http.MethodGet, target.Method)
		assert.Equal(t, http.StatusOK, target.ExpectedStatus)
		assert.Equal(t, Duration(5*time.Second), target.Timeout)
	})

	t.Run("should use the url as name if no name is given", func(t *testing.T) {
		target, err := ParseHealthTarget("http://localhost:8080")
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080", target.Name)
	})

	t.Run("should keep the query of an unnamed url", func(t *testing.T) {
		target, err := ParseHealthTarget("http://localhost:8080/health?full=1")
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080/health?full=1", target.Name)
		assert.Equal(t, "http://localhost:8080/health?full=1", target.URL)
	})

	t.Run("should keep the query of a named url", func(t *testing.T) {
		target, err := ParseHealthTarget("api=http://localhost:8080/health?full=1")
		require.NoError(t, err)
		assert.Equal(t, "api", target.Name)
		assert.Equal(t, "http://localhost:8080/health?full=1", target.URL)
	})

	t.Run("should reject an invalid url", func(t *testing.T) {
		_, err := ParseHealthTarget("api=not a url")
		assert.Error(t, err)
	})
}

func TestLoadHealthTargets(t *testing.T) {
	dir := t.TempDir()

	t.Run("should read durations as strings and numbers", func(t *testing.T) {
		path := filepath.Join(dir, "targets.json")
		require.NoError(t, os.WriteFile(path, []byte(`[
			{"name": "api", "url": "http://localhost:8080", "timeout": "2s"},
			{"name": "web", "url": "http://localhost:3000", "method": "head", "timeout": 1.5}
		]`), 0o600))

		targets, err := LoadHealthTargets(path)
		require.NoError(t, err)
		require.Len(t, targets, 2)
		assert.Equal(t, Duration(2*time.Second), targets[0].Timeout)
		assert.Equal(t, http.MethodHead, targets[1].Method)
		assert.Equal(t, Duration(1500*time.Millisecond), targets[1].Timeout)
	})

	t.Run("should fail on a target without a name", func(t *testing.T) {
		path := filepath.Join(dir, "invalid.json")
		require.NoError(t, os.WriteFile(path, []byte(`[{"url": "http://localhost:8080"}]`), 0o600))

		_, err := LoadHealthTargets(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid health target 0")
	})
}
