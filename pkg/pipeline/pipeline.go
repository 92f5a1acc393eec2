// Package pipeline assembles and runs the per-entity ingestion pipeline:
// watermark read, extraction, raw append, transformation, curated upsert
// and watermark advance, in that order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/orbitalops/liftoff/pkg/extract"
	"github.com/orbitalops/liftoff/pkg/observability"
	"github.com/orbitalops/liftoff/pkg/registry"
	"github.com/orbitalops/liftoff/pkg/source"
	"github.com/orbitalops/liftoff/pkg/transform"
)

// State is the position of a run in its lifecycle.
type State string

const (
	// StateInit is the initial state
	StateInit State = "INIT"
	// StateSchemaOK follows the curated-table precheck
	StateSchemaOK State = "SCHEMA_OK"
	// StateExtracted follows a non-empty extraction
	StateExtracted State = "EXTRACTED"
	// StateRawPersisted follows the raw append
	StateRawPersisted State = "RAW_PERSISTED"
	// StateTransformed follows a non-empty transformation
	StateTransformed State = "TRANSFORMED"
	// StateUpserted follows the curated upsert
	StateUpserted State = "UPSERTED"
	// StateDone is the successful terminal state
	StateDone State = "DONE"
	// StateEmpty is the terminal state for runs with nothing to load
	StateEmpty State = "EMPTY"
	// StateFailed is the failure terminal state
	StateFailed State = "FAILED"
)

// Options controls a single run.
type Options struct {
	// Incremental filters extracted records against the stored watermark
	Incremental bool
	// Live pulls from the upstream source instead of the fixture set
	Live bool
	// SkipPrecheck disables the curated-table schema precheck
	SkipPrecheck bool
}

// Result describes a finished run.
type Result struct {
	Entity    string
	RunID     string
	State     State
	Extracted int
	RawRows   int
	Upserted  int
	Watermark time.Time
	Duration  time.Duration
	Err       error
	StartedAt time.Time
}

// Pipeline executes runs for one entity. All components are injected; the
// pipeline owns no connections of its own.
type Pipeline struct {
	log         logrus.FieldLogger
	spec        *registry.EntitySpec
	extractor   Extractor
	transformer *transform.Transformer
	raw         RawAppender
	curated     CuratedUpserter
	watermarks  WatermarkStore
	checkSchema SchemaChecker // may be nil
	ports       Ports
	sourceTag   string
}

// New creates a pipeline for one entity.
func New(
	log logrus.FieldLogger,
	spec *registry.EntitySpec,
	extractor Extractor,
	transformer *transform.Transformer,
	raw RawAppender,
	curated CuratedUpserter,
	watermarks WatermarkStore,
	checkSchema SchemaChecker,
	ports Ports,
	sourceTag string,
) *Pipeline {
	return &Pipeline{
		log:         log.WithField("component", "pipeline").WithField("entity", spec.Name),
		spec:        spec,
		extractor:   extractor,
		transformer: transformer,
		raw:         raw,
		curated:     curated,
		watermarks:  watermarks,
		checkSchema: checkSchema,
		ports:       ports,
		sourceTag:   sourceTag,
	}
}

// Run executes one ingestion for the entity. It returns the run result on
// success (terminal state DONE or EMPTY) or a RunError. Raw rows written
// before a failure remain committed: raw is a permanent audit log and the
// watermark/upsert semantics make the whole run safely retriable.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	result := &Result{
		Entity:    p.spec.Name,
		RunID:     uuid.NewString(),
		State:     StateInit,
		StartedAt: time.Now(),
	}

	log := p.log.WithField("run_id", result.RunID)
	log.WithFields(logrus.Fields{
		"incremental": opts.Incremental,
		"live":        opts.Live,
	}).Info("Starting ingestion run")

	err := p.run(ctx, log, opts, result)
	result.Duration = time.Since(result.StartedAt)

	switch {
	case err != nil:
		result.State = StateFailed
		result.Err = err

		observability.RecordRun(p.spec.Name, "failed", result.Duration.Seconds())
		p.notifyFailure(ctx, err)

		return result, err
	case result.State == StateEmpty:
		observability.RecordRun(p.spec.Name, "empty", result.Duration.Seconds())
	default:
		result.State = StateDone
		observability.RecordRun(p.spec.Name, "success", result.Duration.Seconds())
	}

	log.WithFields(logrus.Fields{
		"state":     result.State,
		"extracted": result.Extracted,
		"upserted":  result.Upserted,
	}).Info("Ingestion run finished")

	return result, nil
}

func (p *Pipeline) run(ctx context.Context, log logrus.FieldLogger, opts Options, result *Result) error {
	// The watermark observed here is the one the transformer uses, even
	// if other entities advance their own tables concurrently.
	var watermark *time.Time

	if opts.Incremental && p.spec.HasWatermark() {
		wm := p.watermarks.Read(ctx, p.spec)
		watermark = &wm
		result.Watermark = wm
	}

	if err := p.precheck(ctx, log, opts); err != nil {
		return err
	}

	result.State = StateSchemaOK

	records, err := p.extractor.Extract(ctx, opts.Live)
	if err != nil {
		return p.classify(err)
	}

	result.Extracted = len(records)

	if len(records) == 0 {
		result.State = StateEmpty
		return nil
	}

	result.State = StateExtracted

	rawRows, err := p.raw.Append(ctx, p.spec.RawTable, p.sourceTag, records)
	if err != nil {
		return &RunError{Entity: p.spec.Name, Kind: KindPersistence, Err: err}
	}

	result.RawRows = rawRows
	result.State = StateRawPersisted

	p.ports.Metrics.RecordExtracted(p.spec.Name, len(records))

	frame, err := p.transformer.Apply(p.spec, records, watermark)
	if err != nil {
		return p.classify(err)
	}

	if frame.Len() == 0 {
		result.State = StateEmpty
		return nil
	}

	result.State = StateTransformed

	upserted, err := p.curated.Upsert(ctx, p.spec, frame)
	if err != nil {
		return &RunError{Entity: p.spec.Name, Kind: KindPersistence, Err: err}
	}

	result.Upserted = upserted
	result.State = StateUpserted

	p.ports.Metrics.RecordLoaded(p.spec.Name, upserted)

	if newMark, ok := frameMax(frame, p.spec.WatermarkColumn); ok {
		p.watermarks.Advance(ctx, p.spec, newMark)
		result.Watermark = newMark
	}

	return nil
}

// precheck verifies the curated table carries at least the declared
// columns. An absent table only warns: DDL is owned by migration tooling.
func (p *Pipeline) precheck(ctx context.Context, log logrus.FieldLogger, opts Options) error {
	if opts.SkipPrecheck || p.checkSchema == nil {
		return nil
	}

	missing, exists, err := p.checkSchema(ctx, p.spec.CuratedTable, p.spec.Columns)
	if err != nil {
		return &RunError{Entity: p.spec.Name, Kind: KindPersistence, Err: err}
	}

	if !exists {
		log.WithField("table", p.spec.CuratedTable).Warn("Curated table not found, continuing")
		return nil
	}

	if len(missing) > 0 {
		return &RunError{
			Entity: p.spec.Name,
			Kind:   KindSchemaDrift,
			Err:    fmt.Errorf("curated table %s is missing columns: %s", p.spec.CuratedTable, strings.Join(missing, ", ")),
		}
	}

	return nil
}

func (p *Pipeline) classify(err error) error {
	kind := KindInternal

	switch {
	case errors.Is(err, source.ErrTransport):
		kind = KindTransport
	case errors.Is(err, extract.ErrRecordValidation):
		kind = KindRecordValidation
	case errors.Is(err, transform.ErrSchemaViolation):
		kind = KindSchemaViolation
	}

	return &RunError{Entity: p.spec.Name, Kind: kind, Err: err}
}

func (p *Pipeline) notifyFailure(ctx context.Context, err error) {
	if p.ports.Notifier == nil {
		return
	}

	message := err.Error()

	if runErr, ok := AsRunError(err); ok {
		message = fmt.Sprintf("ingestion of %s failed with %s: %v", runErr.Entity, runErr.Kind, runErr.Err)
	}

	// Best-effort by contract; the notifier wrapper swallows failures
	if notifyErr := p.ports.Notifier.Notify(ctx, message); notifyErr != nil {
		p.log.WithError(notifyErr).Warn("Failed to notify")
	}
}

// frameMax returns the greatest timestamp in the frame's watermark column.
func frameMax(frame *transform.Frame, col string) (time.Time, bool) {
	if col == "" || !frame.HasColumn(col) {
		return time.Time{}, false
	}

	var (
		max   time.Time
		found bool
	)

	for row := 0; row < frame.Len(); row++ {
		ts, ok := frame.Value(col, row).(time.Time)
		if !ok {
			continue
		}

		if !found || ts.After(max) {
			max = ts
			found = true
		}
	}

	return max, found
}
