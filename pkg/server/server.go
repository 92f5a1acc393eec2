package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	//nolint:gosec // only exposed if pprofAddr config is set
	_ "net/http/pprof"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/orbitalops/liftoff/pkg/api"
	"github.com/orbitalops/liftoff/pkg/cache"
	"github.com/orbitalops/liftoff/pkg/notify"
	"github.com/orbitalops/liftoff/pkg/observability"
	"github.com/orbitalops/liftoff/pkg/pipeline"
	"github.com/orbitalops/liftoff/pkg/registry"
	"github.com/orbitalops/liftoff/pkg/source"
	"github.com/orbitalops/liftoff/pkg/warehouse"
)

// Server represents the main application server
type Server struct {
	log    logrus.FieldLogger
	config *Config

	registry  *registry.Registry
	warehouse *warehouse.Client
	client    source.Client
	cache     *cache.Watermarks
	pipelines *pipeline.Service
	apiSvc    api.Service

	pprofServer  *http.Server
	healthServer *http.Server
}

// NewServer creates a new server instance
func NewServer(_ context.Context, log logrus.FieldLogger, config *Config) (*Server, error) {
	config.SetDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	reg := registry.New()
	if err := registry.RegisterBuiltin(reg); err != nil {
		return nil, fmt.Errorf("failed to register built-in entities: %w", err)
	}

	if config.SpecsDir != "" {
		if err := registry.LoadDir(reg, config.SpecsDir); err != nil {
			return nil, fmt.Errorf("failed to load entity specs: %w", err)
		}
	}

	return &Server{
		config:   config,
		log:      log,
		registry: reg,
	}, nil
}

// Start starts the server and all its components
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := s.startComponents(ctx); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	// Start metrics server
	g.Go(func() error {
		defer func() {
			if recovered := recover(); recovered != nil {
				s.log.WithField("panic", recovered).Error("Panic in metrics server goroutine")
			}
		}()
		observability.StartMetricsServer(s.config.MetricsAddr)
		<-ctx.Done()

		return nil
	})

	// Start pprof server if configured
	if s.config.PProfAddr != nil {
		g.Go(func() error {
			if err := s.startPProf(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}

			<-ctx.Done()

			return nil
		})
	}

	// Start health check server if configured
	if s.config.HealthCheckAddr != nil {
		g.Go(func() error {
			if err := s.startHealthCheck(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}

			<-ctx.Done()

			return nil
		})
	}

	// Wait for shutdown signal
	g.Go(func() error {
		<-ctx.Done()

		// Use a fresh context for cleanup since the current one is canceled
		return s.stop(context.Background())
	})

	return g.Wait()
}

// startComponents brings up the warehouse pool, the source client, the
// optional watermark cache, the scheduler and the status API.
func (s *Server) startComponents(ctx context.Context) error {
	warehouseClient, err := warehouse.NewClient(s.log, s.config.Warehouse)
	if err != nil {
		return fmt.Errorf("failed to create warehouse client: %w", err)
	}

	if err := warehouseClient.Start(ctx); err != nil {
		return fmt.Errorf("failed to start warehouse client: %w", err)
	}

	s.warehouse = warehouseClient

	sourceClient, err := source.NewClient(s.log, s.config.Source)
	if err != nil {
		return fmt.Errorf("failed to create source client: %w", err)
	}

	s.client = sourceClient

	watermarkCache, err := cache.NewWatermarks(s.log, s.config.Cache)
	if err != nil {
		return fmt.Errorf("failed to create watermark cache: %w", err)
	}

	s.cache = watermarkCache

	var cachePort warehouse.WatermarkCache
	if watermarkCache != nil {
		cachePort = watermarkCache
	}

	notifier := notify.New(s.log, s.config.Notify)

	factory := pipeline.NewFactory(
		s.log,
		s.registry,
		s.warehouse.DB(),
		s.client,
		pipeline.Ports{Metrics: pipeline.PrometheusMetrics{}, Notifier: notifier},
		cachePort,
		s.config.SourceTag,
	)

	s.pipelines = pipeline.NewService(s.log, factory, s.config.Pipeline, pipeline.Options{
		Incremental: true,
		Live:        true,
	})

	if err := s.pipelines.Start(ctx); err != nil {
		return fmt.Errorf("failed to start pipeline service: %w", err)
	}

	s.apiSvc = api.NewService(s.config.API, s.registry, s.pipelines, s.log)

	if err := s.apiSvc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start api service: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"entities":  len(s.registry.Names()),
		"has_cache": s.cache != nil,
	}).Info("Server components started")

	return nil
}

func (s *Server) stop(ctx context.Context) error {
	cleanupCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.log.Info("Starting graceful shutdown...")

	if s.pipelines != nil {
		if err := s.pipelines.Stop(); err != nil {
			s.log.WithError(err).Error("failed to stop pipeline service")
		}
	}

	if s.apiSvc != nil {
		if err := s.apiSvc.Stop(); err != nil {
			s.log.WithError(err).Error("failed to stop api service")
		}
	}

	if s.client != nil {
		s.client.Stop()
	}

	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.log.WithError(err).Error("failed to close watermark cache")
		}
	}

	if s.warehouse != nil {
		if err := s.warehouse.Stop(); err != nil {
			s.log.WithError(err).Error("failed to stop warehouse client")
		}
	}

	if s.pprofServer != nil {
		if err := s.pprofServer.Shutdown(cleanupCtx); err != nil {
			s.log.WithError(err).Error("failed to shutdown pprof server")
		}
	}

	if s.healthServer != nil {
		if err := s.healthServer.Shutdown(cleanupCtx); err != nil {
			s.log.WithError(err).Error("failed to shutdown health server")
		}
	}

	if err := observability.StopMetricsServer(cleanupCtx); err != nil {
		s.log.WithError(err).Error("failed to stop metrics server")
	}

	s.log.Info("Server stopped gracefully")

	return nil
}

func (s *Server) startPProf() error {
	s.log.WithField("addr", *s.config.PProfAddr).Info("Starting pprof server")

	s.pprofServer = &http.Server{
		Addr:              *s.config.PProfAddr,
		ReadHeaderTimeout: 120 * time.Second,
	}

	return s.pprofServer.ListenAndServe()
}

func (s *Server) startHealthCheck() error {
	s.log.WithField("addr", *s.config.HealthCheckAddr).Info("Starting healthcheck server")

	s.healthServer = &http.Server{
		Addr:              *s.config.HealthCheckAddr,
		ReadHeaderTimeout: 120 * time.Second,
	}

	s.healthServer.Handler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return s.healthServer.ListenAndServe()
}
