package warehouse

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitalops/liftoff/pkg/registry"
	"github.com/orbitalops/liftoff/pkg/transform"
)

func coresSpec(t *testing.T) *registry.EntitySpec {
	t.Helper()

	spec := &registry.EntitySpec{
		Name:       "cores",
		Endpoint:   "/v4/cores",
		PrimaryKey: "core_id",
		Columns:    []string{"core_id", "serial", "reuse_count"},
	}
	spec.SetDefaults()
	require.NoError(t, spec.Validate())

	return spec
}

func coresFrame(records ...map[string]any) *transform.Frame {
	frame := transform.NewFrame(records)
	frame.Project([]string{"core_id", "serial", "reuse_count"})

	return frame
}

func TestCuratedLoader_Upsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)

	defer mock.Close()

	stmt := regexp.QuoteMeta(
		`INSERT INTO "curated_cores" ("core_id", "serial", "reuse_count") ` +
			`VALUES ($1, $2, $3), ($4, $5, $6) ` +
			`ON CONFLICT ("core_id") DO UPDATE SET "serial" = EXCLUDED."serial", "reuse_count" = EXCLUDED."reuse_count"`,
	)

	mock.ExpectBegin()
	mock.ExpectExec(stmt).
		WithArgs("c1", "B1049", int64(5), "c2", "B1051", int64(8)).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	loader := NewCuratedLoader(testLogger(), mock)

	frame := coresFrame(
		map[string]any{"core_id": "c1", "serial": "B1049", "reuse_count": int64(5)},
		map[string]any{"core_id": "c2", "serial": "B1051", "reuse_count": int64(8)},
	)

	n, err := loader.Upsert(context.Background(), coresSpec(t), frame)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCuratedLoader_EmptyFrame(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)

	defer mock.Close()

	loader := NewCuratedLoader(testLogger(), mock)

	n, err := loader.Upsert(context.Background(), coresSpec(t), coresFrame())
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCuratedLoader_IntegrityErrorSurfacesAsPersistence(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)

	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO").
		WillReturnError(errors.New(`null value in column "serial" violates not-null constraint`))
	mock.ExpectRollback()

	loader := NewCuratedLoader(testLogger(), mock)

	frame := coresFrame(map[string]any{"core_id": "c1", "serial": nil, "reuse_count": int64(0)})

	_, err = loader.Upsert(context.Background(), coresSpec(t), frame)
	require.ErrorIs(t, err, ErrPersistence)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildUpsert_PrimaryKeyOnlyDoesNothingOnConflict(t *testing.T) {
	spec := &registry.EntitySpec{
		Name:       "tags",
		Endpoint:   "/v4/tags",
		PrimaryKey: "tag",
		Columns:    []string{"tag"},
	}
	spec.SetDefaults()

	frame := transform.NewFrame([]map[string]any{{"tag": "reused"}})
	frame.Project([]string{"tag"})

	stmt, args, err := buildUpsert(spec, frame)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(stmt, "DO NOTHING"))
	assert.Equal(t, []any{"reused"}, args)
}

func TestBuildUpsert_SerialisesNestedValues(t *testing.T) {
	spec := coresSpec(t)

	frame := coresFrame(map[string]any{
		"core_id":     "c1",
		"serial":      "B1049",
		"reuse_count": []any{"unexpected", "shape"},
	})

	_, args, err := buildUpsert(spec, frame)
	require.NoError(t, err)
	assert.Equal(t, `["unexpected","shape"]`, args[2])
}
