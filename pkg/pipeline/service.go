package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoEntities is returned when the service has nothing to schedule
	ErrNoEntities = errors.New("no entities to schedule")
)

// ServiceConfig configures the scheduled ingestion service.
type ServiceConfig struct {
	// Schedule is the default cron expression for all entities
	Schedule string `yaml:"schedule" default:"@every 1h"`
	// Schedules overrides the default per entity
	Schedules map[string]string `yaml:"schedules,omitempty"`
	// Entities restricts scheduling to a subset; empty means all
	Entities []string `yaml:"entities,omitempty"`
	// Concurrency bounds parallel entity runs; 0 means unbounded
	Concurrency int `yaml:"concurrency"`
}

// SetDefaults sets default values for the configuration
func (c *ServiceConfig) SetDefaults() {
	if c.Schedule == "" {
		c.Schedule = "@every 1h"
	}
}

// Provider assembles pipelines by entity name. *Factory is the production
// implementation.
type Provider interface {
	Pipeline(entity string) (*Pipeline, error)
	Entities() []string
}

// Service schedules recurring incremental runs per entity. Entities run
// independently and may overlap in time; stages within one run stay
// strictly ordered.
type Service struct {
	log     logrus.FieldLogger
	factory Provider
	cfg     *ServiceConfig
	opts    Options

	cron *cron.Cron

	mu      sync.RWMutex
	latest  map[string]*Result
	running map[string]bool
}

// NewService creates the scheduled ingestion service.
func NewService(log logrus.FieldLogger, factory Provider, cfg *ServiceConfig, opts Options) *Service {
	cfg.SetDefaults()

	return &Service{
		log:     log.WithField("service", "pipeline"),
		factory: factory,
		cfg:     cfg,
		opts:    opts,
		latest:  make(map[string]*Result),
		running: make(map[string]bool),
	}
}

// Start registers the cron entries and begins scheduling.
func (s *Service) Start(ctx context.Context) error {
	entities := s.cfg.Entities
	if len(entities) == 0 {
		entities = s.factory.Entities()
	}

	if len(entities) == 0 {
		return ErrNoEntities
	}

	s.cron = cron.New()

	for _, entity := range entities {
		schedule := s.cfg.Schedule
		if override, ok := s.cfg.Schedules[entity]; ok {
			schedule = override
		}

		entity := entity

		if _, err := s.cron.AddFunc(schedule, func() {
			s.runOne(ctx, entity)
		}); err != nil {
			return fmt.Errorf("invalid schedule %q for %s: %w", schedule, entity, err)
		}

		s.log.WithFields(logrus.Fields{
			"entity":   entity,
			"schedule": schedule,
		}).Info("Scheduled entity ingestion")
	}

	s.cron.Start()
	s.log.Info("Pipeline service started")

	return nil
}

// Stop halts scheduling and waits for in-flight runs to finish.
func (s *Service) Stop() error {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}

	s.log.Info("Pipeline service stopped")

	return nil
}

// RunAll executes one run for each named entity (all registered entities
// when names is empty), bounded by the configured concurrency. It returns
// the results and the first error encountered.
func (s *Service) RunAll(ctx context.Context, names []string) ([]*Result, error) {
	if len(names) == 0 {
		names = s.factory.Entities()
	}

	results := make([]*Result, len(names))

	g, ctx := errgroup.WithContext(ctx)
	if s.cfg.Concurrency > 0 {
		g.SetLimit(s.cfg.Concurrency)
	}

	for i, entity := range names {
		i, entity := i, entity

		g.Go(func() error {
			result, err := s.execute(ctx, entity)
			results[i] = result

			return err
		})
	}

	err := g.Wait()

	return results, err
}

// Latest returns a snapshot of the most recent result per entity.
func (s *Service) Latest() []*Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Result, 0, len(s.latest))
	for _, result := range s.latest {
		out = append(out, result)
	}

	return out
}

// runOne is the cron entry point; overlapping runs of the same entity are
// skipped.
func (s *Service) runOne(ctx context.Context, entity string) {
	s.mu.Lock()

	if s.running[entity] {
		s.mu.Unlock()
		s.log.WithField("entity", entity).Debug("Previous run still in flight, skipping")

		return
	}

	s.running[entity] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running[entity] = false
		s.mu.Unlock()
	}()

	if _, err := s.execute(ctx, entity); err != nil {
		s.log.WithError(err).WithField("entity", entity).Error("Scheduled run failed")
	}
}

func (s *Service) execute(ctx context.Context, entity string) (*Result, error) {
	p, err := s.factory.Pipeline(entity)
	if err != nil {
		return nil, err
	}

	result, err := p.Run(ctx, s.opts)

	if result != nil {
		s.mu.Lock()
		s.latest[entity] = result
		s.mu.Unlock()
	}

	return result, err
}
