package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitalops/liftoff/pkg/registry"
)

var _ Provider = (*Factory)(nil)

type stubProvider struct {
	pipelines map[string]*Pipeline
}

func (s *stubProvider) Pipeline(entity string) (*Pipeline, error) {
	p, ok := s.pipelines[entity]
	if !ok {
		return nil, registry.ErrEntityNotFound
	}

	return p, nil
}

func (s *stubProvider) Entities() []string {
	names := make([]string, 0, len(s.pipelines))
	for name := range s.pipelines {
		names = append(names, name)
	}

	return names
}

func TestService_RunAll(t *testing.T) {
	rockets := newHarness(t, "rockets", []map[string]any{
		rocketRecord("falcon9", "Falcon 9", true, 50000000, 97.0),
	}, nil)
	launches := newHarness(t, "launches", []map[string]any{
		launchRecord("l1", "FalconSat", "2006-03-24T22:30:00.000Z", 1),
	}, nil)

	provider := &stubProvider{pipelines: map[string]*Pipeline{
		"rockets":  rockets.pipeline,
		"launches": launches.pipeline,
	}}

	svc := NewService(testLogger(), provider, &ServiceConfig{Concurrency: 1}, Options{Live: true})

	results, err := svc.RunAll(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, result := range results {
		require.NotNil(t, result)
		assert.Equal(t, StateDone, result.State)
	}

	latest := svc.Latest()
	assert.Len(t, latest, 2)
}

func TestService_RunAll_UnknownEntity(t *testing.T) {
	provider := &stubProvider{pipelines: map[string]*Pipeline{}}
	svc := NewService(testLogger(), provider, &ServiceConfig{}, Options{})

	_, err := svc.RunAll(context.Background(), []string{"starships"})
	require.ErrorIs(t, err, registry.ErrEntityNotFound)
}

func TestService_RunAll_SubsetAndFailure(t *testing.T) {
	ok := newHarness(t, "rockets", []map[string]any{
		rocketRecord("falcon9", "Falcon 9", true, 50000000, 97.0),
	}, nil)

	failing := newHarness(t, "launches", nil, nil)
	failing.extractor.err = assert.AnError

	provider := &stubProvider{pipelines: map[string]*Pipeline{
		"rockets":  ok.pipeline,
		"launches": failing.pipeline,
	}}

	svc := NewService(testLogger(), provider, &ServiceConfig{}, Options{Live: true})

	results, err := svc.RunAll(context.Background(), []string{"rockets", "launches"})
	require.Error(t, err)
	require.Len(t, results, 2)

	require.NotNil(t, results[1])
	assert.Equal(t, StateFailed, results[1].State)
}

func TestService_StartRequiresEntities(t *testing.T) {
	provider := &stubProvider{pipelines: map[string]*Pipeline{}}
	svc := NewService(testLogger(), provider, &ServiceConfig{}, Options{})

	require.ErrorIs(t, svc.Start(context.Background()), ErrNoEntities)
}

func TestServiceConfig_SetDefaults(t *testing.T) {
	cfg := &ServiceConfig{}
	cfg.SetDefaults()

	assert.Equal(t, "@every 1h", cfg.Schedule)
}
