package api

import (
	"errors"
	"sort"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/orbitalops/liftoff/pkg/pipeline"
	"github.com/orbitalops/liftoff/pkg/registry"
)

// StatusReader exposes the most recent run result per entity.
type StatusReader interface {
	Latest() []*pipeline.Result
}

// Handlers implements the REST surface over the registry and the run status.
type Handlers struct {
	registry *registry.Registry
	status   StatusReader // may be nil in one-shot mode
	log      logrus.FieldLogger
}

// NewHandlers creates the API handlers.
func NewHandlers(reg *registry.Registry, status StatusReader, log logrus.FieldLogger) *Handlers {
	return &Handlers{
		registry: reg,
		status:   status,
		log:      log.WithField("component", "api_handlers"),
	}
}

// Register mounts all routes on the app.
func (h *Handlers) Register(app *fiber.App) {
	app.Get("/healthz", h.Health)

	v1 := app.Group("/api/v1")
	v1.Get("/entities", h.ListEntities)
	v1.Get("/entities/:name", h.GetEntity)
	v1.Get("/runs", h.ListRuns)
}

type entitySummary struct {
	Name            string `json:"name"`
	Endpoint        string `json:"endpoint"`
	PrimaryKey      string `json:"primary_key"`
	WatermarkColumn string `json:"watermark_column,omitempty"`
	RawTable        string `json:"raw_table"`
	CuratedTable    string `json:"curated_table"`
}

type entityDetail struct {
	entitySummary
	Columns  map[string]string `json:"columns"`
	Renames  map[string]string `json:"renames,omitempty"`
	Required []string          `json:"required,omitempty"`
	Casts    map[string]string `json:"casts,omitempty"`
}

type runStatus struct {
	Entity    string    `json:"entity"`
	RunID     string    `json:"run_id"`
	State     string    `json:"state"`
	Extracted int       `json:"extracted"`
	RawRows   int       `json:"raw_rows"`
	Upserted  int       `json:"upserted"`
	Watermark *string   `json:"watermark,omitempty"`
	Duration  string    `json:"duration"`
	StartedAt time.Time `json:"started_at"`
	Error     string    `json:"error,omitempty"`
}

// Health handles GET /healthz
func (h *Handlers) Health(c fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
}

// ListEntities handles GET /api/v1/entities
func (h *Handlers) ListEntities(c fiber.Ctx) error {
	names := h.registry.Names()
	sort.Strings(names)

	entities := make([]entitySummary, 0, len(names))

	for _, name := range names {
		spec, err := h.registry.Get(name)
		if err != nil {
			continue
		}

		entities = append(entities, summarize(spec))
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"entities": entities,
		"total":    len(entities),
	})
}

// GetEntity handles GET /api/v1/entities/:name
func (h *Handlers) GetEntity(c fiber.Ctx) error {
	spec, err := h.registry.Get(c.Params("name"))
	if err != nil {
		if errors.Is(err, registry.ErrEntityNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "entity not found")
		}

		return err
	}

	columns := make(map[string]string, len(spec.Columns))
	for _, col := range spec.Columns {
		columns[col] = string(spec.ColumnTypeOf(col))
	}

	casts := make(map[string]string, len(spec.Casts))
	for col, typ := range spec.Casts {
		casts[col] = string(typ)
	}

	return c.Status(fiber.StatusOK).JSON(entityDetail{
		entitySummary: summarize(spec),
		Columns:       columns,
		Renames:       spec.Renames,
		Required:      spec.Required,
		Casts:         casts,
	})
}

// ListRuns handles GET /api/v1/runs
func (h *Handlers) ListRuns(c fiber.Ctx) error {
	runs := make([]runStatus, 0)

	if h.status != nil {
		for _, result := range h.status.Latest() {
			runs = append(runs, statusOf(result))
		}
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Entity < runs[j].Entity
	})

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"runs":  runs,
		"total": len(runs),
	})
}

func summarize(spec *registry.EntitySpec) entitySummary {
	return entitySummary{
		Name:            spec.Name,
		Endpoint:        spec.Endpoint,
		PrimaryKey:      spec.PrimaryKey,
		WatermarkColumn: spec.WatermarkColumn,
		RawTable:        spec.RawTable,
		CuratedTable:    spec.CuratedTable,
	}
}

func statusOf(result *pipeline.Result) runStatus {
	status := runStatus{
		Entity:    result.Entity,
		RunID:     result.RunID,
		State:     string(result.State),
		Extracted: result.Extracted,
		RawRows:   result.RawRows,
		Upserted:  result.Upserted,
		Duration:  result.Duration.String(),
		StartedAt: result.StartedAt,
	}

	if !result.Watermark.IsZero() {
		wm := result.Watermark.UTC().Format(time.RFC3339)
		status.Watermark = &wm
	}

	if result.Err != nil {
		status.Error = result.Err.Error()
	}

	return status
}
