package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return log
}

func TestWebhookNotifier_Delivers(t *testing.T) {
	var received map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(testLogger(), &Config{WebhookURL: srv.URL})

	require.NoError(t, n.Notify(context.Background(), "launches: transport-error"))
	assert.Equal(t, "launches: transport-error", received["text"])
}

func TestBestEffort_SwallowsDeliveryFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := New(testLogger(), &Config{WebhookURL: srv.URL, Timeout: time.Second})

	// Delivery fails but the caller never sees it
	require.NoError(t, n.Notify(context.Background(), "rockets: schema-drift"))
}

func TestLogNotifier(t *testing.T) {
	n := New(testLogger(), &Config{})
	require.NoError(t, n.Notify(context.Background(), "rockets: persistence-error"))
}
