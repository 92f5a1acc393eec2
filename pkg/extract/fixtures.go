package extract

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
)

//go:embed fixtures/*.json
var fixtureFS embed.FS

var (
	// ErrNoFixture is returned when no fixture set exists for an entity
	ErrNoFixture = errors.New("no fixture set for entity")
)

// Fixture returns the embedded fixture collection for an entity. Fixtures
// preserve the exact shape of live responses so the rest of the pipeline
// cannot tell the two apart.
func Fixture(entity string) ([]map[string]any, error) {
	content, err := fixtureFS.ReadFile("fixtures/" + entity + ".json")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoFixture, entity)
	}

	var records []map[string]any
	if err := json.Unmarshal(content, &records); err != nil {
		return nil, fmt.Errorf("fixture %s is not a JSON array: %w", entity, err)
	}

	return records, nil
}
