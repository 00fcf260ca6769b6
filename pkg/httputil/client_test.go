package httputil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/diamond/pkg/config"
	"github.com/wonny/diamond/pkg/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:  "development",
		HTTP: config.HTTPConfig{Timeout: 5 * time.Second, MaxRetries: 3},
	}
}

func TestNew(t *testing.T) {
	client := New(testConfig(), logger.Nop())

	require.NotNil(t, client)
	assert.Equal(t, 5*time.Second, client.httpClient.Timeout)
	assert.Equal(t, 3, client.retryConfig.MaxRetries)
	assert.True(t, client.retryConfig.Enabled)
}

func TestNewZeroRetries(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.MaxRetries = 0
	cfg.HTTP.Timeout = 0

	client := New(cfg, logger.Nop())
	assert.False(t, client.retryConfig.Enabled)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)
}

func TestNewWithTimeout(t *testing.T) {
	client := NewWithTimeout(testConfig(), logger.Nop(), 10*time.Second)
	assert.Equal(t, 10*time.Second, client.httpClient.Timeout)
	assert.Nil(t, client.pacer)
}

func TestWithRetryAndDisable(t *testing.T) {
	client := New(testConfig(), logger.Nop()).WithRetry(5, 2*time.Second)
	assert.Equal(t, 5, client.retryConfig.MaxRetries)
	assert.Equal(t, 2*time.Second, client.retryConfig.InitialDelay)

	client.DisableRetry()
	assert.False(t, client.retryConfig.Enabled)
}

func TestGetBytesSetsUserAgent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	body, err := New(testConfig(), logger.Nop()).GetBytes(context.Background(), server.URL)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestGetBytesStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := New(testConfig(), logger.Nop()).GetBytes(context.Background(), server.URL)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestPostJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	resp, err := New(testConfig(), logger.Nop()).PostJSON(context.Background(), server.URL, map[string]interface{}{
		"chat_id": "42",
		"text":    "hello",
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestRetryOn5xx(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`ok`))
	}))
	defer server.Close()

	client := New(testConfig(), logger.Nop()).WithRetry(3, 10*time.Millisecond)

	body, err := client.GetBytes(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestRetryRespectsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := New(testConfig(), logger.Nop()).WithRetry(5, time.Second)
	_, err := client.Get(ctx, server.URL)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPacer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	client := New(testConfig(), logger.Nop()).WithPacer(20, 1)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.GetBytes(context.Background(), server.URL)
		require.NoError(t, err)
	}
	// burst 1 at 20rps: the 2nd and 3rd calls wait ~50ms each
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		statusCode int
		want       bool
	}{
		{200, false},
		{400, false},
		{404, false},
		{429, true},
		{500, true},
		{503, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.statusCode), func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryableError(tt.statusCode))
		})
	}
}
