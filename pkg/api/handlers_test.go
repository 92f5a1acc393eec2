package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gofiber/fiber/v3"

	"github.com/orbitalops/liftoff/pkg/pipeline"
	"github.com/orbitalops/liftoff/pkg/registry"
)

type stubStatus struct {
	results []*pipeline.Result
}

func (s *stubStatus) Latest() []*pipeline.Result {
	return s.results
}

func testApp(t *testing.T, status StatusReader) *fiber.App {
	t.Helper()

	reg := registry.New()
	require.NoError(t, registry.RegisterBuiltin(reg))

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	app := fiber.New(fiber.Config{ErrorHandler: errorHandler})
	NewHandlers(reg, status, log).Register(app)

	return app
}

func decode(t *testing.T, resp *http.Response, into any) {
	t.Helper()

	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
}

func TestHealth(t *testing.T) {
	app := testApp(t, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/healthz", http.NoBody))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string

	decode(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestListEntities(t *testing.T) {
	app := testApp(t, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/entities", http.NoBody))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Entities []entitySummary `json:"entities"`
		Total    int             `json:"total"`
	}

	decode(t, resp, &body)
	require.Equal(t, 2, body.Total)
	assert.Equal(t, "launches", body.Entities[0].Name)
	assert.Equal(t, "rockets", body.Entities[1].Name)
	assert.Equal(t, "curated_rockets", body.Entities[1].CuratedTable)
}

func TestGetEntity(t *testing.T) {
	app := testApp(t, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/entities/launches", http.NoBody))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body entityDetail

	decode(t, resp, &body)
	assert.Equal(t, "launches", body.Name)
	assert.Equal(t, "launch_id", body.PrimaryKey)
	assert.Equal(t, "date_utc", body.WatermarkColumn)
	assert.Equal(t, "timestamp", body.Columns["date_utc"])
	assert.Equal(t, "json", body.Columns["payloads"])
}

func TestGetEntity_NotFound(t *testing.T) {
	app := testApp(t, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/entities/starships", http.NoBody))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListRuns(t *testing.T) {
	wm := time.Date(2010, 6, 4, 18, 45, 0, 0, time.UTC)

	status := &stubStatus{results: []*pipeline.Result{
		{
			Entity:    "launches",
			RunID:     "run-1",
			State:     pipeline.StateDone,
			Extracted: 5,
			RawRows:   5,
			Upserted:  3,
			Watermark: wm,
			Duration:  2 * time.Second,
			StartedAt: wm.Add(-time.Minute),
		},
	}}

	app := testApp(t, status)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/runs", http.NoBody))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Runs  []runStatus `json:"runs"`
		Total int         `json:"total"`
	}

	decode(t, resp, &body)
	require.Equal(t, 1, body.Total)
	assert.Equal(t, "DONE", body.Runs[0].State)
	require.NotNil(t, body.Runs[0].Watermark)
	assert.Equal(t, "2010-06-04T18:45:00Z", *body.Runs[0].Watermark)
}

func TestListRuns_NoScheduler(t *testing.T) {
	app := testApp(t, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/runs", http.NoBody))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Runs  []runStatus `json:"runs"`
		Total int         `json:"total"`
	}

	decode(t, resp, &body)
	assert.Zero(t, body.Total)
}
