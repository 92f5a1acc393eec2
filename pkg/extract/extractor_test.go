package extract

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitalops/liftoff/pkg/registry"
)

// fakeClient returns canned records instead of hitting the network
type fakeClient struct {
	records []map[string]any
	err     error
	path    string
}

func (f *fakeClient) FetchCollection(_ context.Context, path string) ([]map[string]any, error) {
	f.path = path
	return f.records, f.err
}

func (f *fakeClient) Stop() error { return nil }

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return log
}

func rocketsSpec(t *testing.T) *registry.EntitySpec {
	t.Helper()

	r := registry.New()
	require.NoError(t, registry.RegisterBuiltin(r))

	spec, err := r.Get("rockets")
	require.NoError(t, err)

	return spec
}

func TestExtractor_Fixtures(t *testing.T) {
	ext := New(testLogger(), rocketsSpec(t), &fakeClient{})

	records, err := ext.Extract(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Fixtures keep the live shape: source field names, not canonical ones
	assert.Contains(t, records[0], "id")
	assert.NotContains(t, records[0], "rocket_id")
	assert.Equal(t, "Falcon 1", records[0]["name"])
}

func TestExtractor_FixtureMissing(t *testing.T) {
	spec := &registry.EntitySpec{
		Name:       "starlink",
		Endpoint:   "/v4/starlink",
		PrimaryKey: "sat_id",
		Columns:    []string{"sat_id"},
	}
	require.NoError(t, registry.New().Register(spec))

	ext := New(testLogger(), spec, &fakeClient{})

	_, err := ext.Extract(context.Background(), false)
	require.ErrorIs(t, err, ErrNoFixture)
}

func TestExtractor_LiveFetchesEndpoint(t *testing.T) {
	client := &fakeClient{records: []map[string]any{
		{"id": "falcon9", "name": "Falcon 9"},
	}}

	ext := New(testLogger(), rocketsSpec(t), client)

	records, err := ext.Extract(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, "/v4/rockets", client.path)
}

func TestExtractor_DropPolicyKeepsValidRecords(t *testing.T) {
	client := &fakeClient{records: []map[string]any{
		{"id": "falcon9", "name": "Falcon 9"},
		{"id": "falconX"}, // missing required name
		{"id": "falconH", "name": "Falcon Heavy"},
	}}

	ext := New(testLogger(), rocketsSpec(t), client)

	records, err := ext.Extract(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "falcon9", records[0]["id"])
	assert.Equal(t, "falconH", records[1]["id"])
}

func TestExtractor_FailPolicyAborts(t *testing.T) {
	spec := rocketsSpec(t)
	strict := *spec
	strict.OnInvalid = registry.PolicyFail

	client := &fakeClient{records: []map[string]any{
		{"id": "falcon9", "name": "Falcon 9"},
		{"id": "falconX"},
	}}

	ext := New(testLogger(), &strict, client)

	_, err := ext.Extract(context.Background(), true)
	require.ErrorIs(t, err, ErrRecordValidation)
}

func TestExtractor_NullPrimaryKeyPassesValidation(t *testing.T) {
	// Null PKs are handled by the transformer's dedup step, not here
	client := &fakeClient{records: []map[string]any{
		{"id": nil, "name": "Mystery Rocket"},
	}}

	ext := New(testLogger(), rocketsSpec(t), client)

	records, err := ext.Extract(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestExtractor_NestedValueInScalarColumn(t *testing.T) {
	client := &fakeClient{records: []map[string]any{
		{"id": "falcon9", "name": map[string]any{"en": "Falcon 9"}},
	}}

	ext := New(testLogger(), rocketsSpec(t), client)

	records, err := ext.Extract(context.Background(), true)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFixture_Launches(t *testing.T) {
	records, err := Fixture("launches")
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, "FalconSat", records[0]["name"])
	assert.Equal(t, "2006-03-24T22:30:00.000Z", records[0]["date_utc"])
}
