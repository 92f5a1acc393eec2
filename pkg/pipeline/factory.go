package pipeline

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/orbitalops/liftoff/pkg/extract"
	"github.com/orbitalops/liftoff/pkg/registry"
	"github.com/orbitalops/liftoff/pkg/source"
	"github.com/orbitalops/liftoff/pkg/transform"
	"github.com/orbitalops/liftoff/pkg/warehouse"
)

// Factory assembles pipelines from the registry and the shared warehouse
// pool. It is the single owner of all per-run component references.
type Factory struct {
	log       logrus.FieldLogger
	registry  *registry.Registry
	db        warehouse.DB
	client    source.Client
	ports     Ports
	cache     warehouse.WatermarkCache // may be nil
	sourceTag string
}

// NewFactory creates a pipeline factory. cache may be nil.
func NewFactory(
	log logrus.FieldLogger,
	reg *registry.Registry,
	db warehouse.DB,
	client source.Client,
	ports Ports,
	cache warehouse.WatermarkCache,
	sourceTag string,
) *Factory {
	return &Factory{
		log:       log,
		registry:  reg,
		db:        db,
		client:    client,
		ports:     ports,
		cache:     cache,
		sourceTag: sourceTag,
	}
}

// Pipeline builds the pipeline for a registered entity.
func (f *Factory) Pipeline(entity string) (*Pipeline, error) {
	spec, err := f.registry.Get(entity)
	if err != nil {
		return nil, err
	}

	checker := func(ctx context.Context, table string, declared []string) ([]string, bool, error) {
		return warehouse.MissingTableColumns(ctx, f.db, table, declared)
	}

	return New(
		f.log,
		spec,
		extract.New(f.log, spec, f.client),
		transform.New(f.log),
		warehouse.NewRawLoader(f.log, f.db),
		warehouse.NewCuratedLoader(f.log, f.db),
		warehouse.NewWatermarkStore(f.log, f.db, f.cache),
		checker,
		f.ports,
		f.sourceTag,
	), nil
}

// Entities returns the names of all registered entities.
func (f *Factory) Entities() []string {
	return f.registry.Names()
}
