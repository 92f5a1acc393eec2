package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, baseURL string) Client {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	client, err := NewClient(log, &Config{
		BaseURL:      baseURL,
		Timeout:      2 * time.Second,
		Retries:      3,
		RetryBackoff: time.Millisecond,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, client.Stop())
	})

	return client
}

func TestClient_FetchCollection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"falcon1","name":"Falcon 1"},{"id":"falcon9","name":"Falcon 9"}]`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	records, err := client.FetchCollection(context.Background(), "/v4/rockets")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "falcon1", records[0]["id"])
	assert.Equal(t, "Falcon 9", records[1]["name"])
}

func TestClient_RetriesTransientStatus(t *testing.T) {
	var attempts atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		_, _ = w.Write([]byte(`[{"id":"falcon9"}]`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	records, err := client.FetchCollection(context.Background(), "/v4/rockets")
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestClient_ExhaustsRetries(t *testing.T) {
	var attempts atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.FetchCollection(context.Background(), "/v4/rockets")
	require.ErrorIs(t, err, ErrTransport)
	require.ErrorIs(t, err, ErrRetryExhausted)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestClient_PermanentStatusIsNotRetried(t *testing.T) {
	var attempts atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.FetchCollection(context.Background(), "/v4/rockets")
	require.ErrorIs(t, err, ErrTransport)
	require.ErrorIs(t, err, ErrPermanentHTTP)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestClient_TooManyRequestsRespectsPolicy(t *testing.T) {
	var attempts atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	// Default policy: 429 is permanent
	client := newTestClient(t, srv.URL)

	_, err := client.FetchCollection(context.Background(), "/v4/launches")
	require.ErrorIs(t, err, ErrPermanentHTTP)

	// With RetryOn4xx the second attempt succeeds
	attempts.Store(0)

	retrying, err := NewClient(log, &Config{
		BaseURL:      srv.URL,
		Retries:      3,
		RetryBackoff: time.Millisecond,
		RetryOn4xx:   true,
	})
	require.NoError(t, err)

	defer func() { require.NoError(t, retrying.Stop()) }()

	records, err := retrying.FetchCollection(context.Background(), "/v4/launches")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestClient_NonArrayResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"falcon9"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.FetchCollection(context.Background(), "/v4/rockets")
	require.ErrorIs(t, err, ErrNotCollection)
}

func TestClient_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	client, err := NewClient(log, &Config{
		BaseURL:      srv.URL,
		Retries:      3,
		RetryBackoff: time.Minute, // long enough that cancellation wins
	})
	require.NoError(t, err)

	defer func() { require.NoError(t, client.Stop()) }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = client.FetchCollection(ctx, "/v4/rockets")
	require.ErrorIs(t, err, ErrTransport)
	require.ErrorIs(t, err, context.Canceled)
}

func TestConfig_Validate(t *testing.T) {
	cfg := &Config{}
	require.ErrorIs(t, cfg.Validate(), ErrBaseURLRequired)

	cfg.BaseURL = "https://api.spacexdata.com"
	require.NoError(t, cfg.Validate())

	cfg.SetDefaults()
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.Retries)
	assert.Equal(t, time.Second, cfg.RetryBackoff)
}
