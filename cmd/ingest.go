package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/orbitalops/liftoff/pkg/cache"
	"github.com/orbitalops/liftoff/pkg/notify"
	"github.com/orbitalops/liftoff/pkg/pipeline"
	"github.com/orbitalops/liftoff/pkg/registry"
	"github.com/orbitalops/liftoff/pkg/source"
	"github.com/orbitalops/liftoff/pkg/warehouse"
)

//nolint:gochecknoglobals // Cobra flags are typically global
var (
	ingestFull         bool
	ingestFixtures     bool
	ingestSkipPrecheck bool
)

//nolint:gochecknoglobals // Cobra commands are typically global
var ingestCmd = &cobra.Command{
	Use:   "ingest [entity...]",
	Short: "Run one ingestion for the named entities",
	Long: `Runs a single extract-persist-transform-upsert pass for each named
entity, or for every registered entity when none are named.`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().BoolVar(&ingestFull, "full", false, "ignore stored watermarks and reload everything")
	ingestCmd.Flags().BoolVar(&ingestFixtures, "fixtures", false, "read the embedded fixture set instead of the live source")
	ingestCmd.Flags().BoolVar(&ingestSkipPrecheck, "skip-precheck", false, "skip the curated-table schema precheck")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	config, err := loadConfig(cfgFile)
	if err != nil {
		return err
	}

	log, err := loggerFor(config.LoggingLevel)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	reg := registry.New()
	if err := registry.RegisterBuiltin(reg); err != nil {
		return err
	}

	if config.SpecsDir != "" {
		if err := registry.LoadDir(reg, config.SpecsDir); err != nil {
			return err
		}
	}

	warehouseClient, err := warehouse.NewClient(log, config.Warehouse)
	if err != nil {
		return err
	}

	if err := warehouseClient.Start(ctx); err != nil {
		return err
	}

	defer func() {
		if stopErr := warehouseClient.Stop(); stopErr != nil {
			log.WithError(stopErr).Error("failed to stop warehouse client")
		}
	}()

	sourceClient, err := source.NewClient(log, config.Source)
	if err != nil {
		return err
	}
	defer sourceClient.Stop()

	watermarkCache, err := cache.NewWatermarks(log, config.Cache)
	if err != nil {
		return err
	}

	var cachePort warehouse.WatermarkCache

	if watermarkCache != nil {
		cachePort = watermarkCache

		defer func() {
			if closeErr := watermarkCache.Close(); closeErr != nil {
				log.WithError(closeErr).Error("failed to close watermark cache")
			}
		}()
	}

	factory := pipeline.NewFactory(
		log,
		reg,
		warehouseClient.DB(),
		sourceClient,
		pipeline.Ports{Metrics: pipeline.PrometheusMetrics{}, Notifier: notify.New(log, config.Notify)},
		cachePort,
		config.SourceTag,
	)

	service := pipeline.NewService(log, factory, config.Pipeline, pipeline.Options{
		Incremental:  !ingestFull,
		Live:         !ingestFixtures,
		SkipPrecheck: ingestSkipPrecheck,
	})

	results, err := service.RunAll(ctx, args)

	for _, result := range results {
		if result == nil {
			continue
		}

		log.WithFields(logrus.Fields{
			"entity":    result.Entity,
			"state":     result.State,
			"extracted": result.Extracted,
			"raw_rows":  result.RawRows,
			"upserted":  result.Upserted,
			"duration":  result.Duration,
		}).Info("Run finished")
	}

	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	return nil
}
