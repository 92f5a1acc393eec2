package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// specFile is the YAML shape of an entity spec document. A file may hold a
// single spec or a list under the entities key.
type specFile struct {
	Entities []*EntitySpec `yaml:"entities"`
}

// LoadDir walks a directory and registers every entity spec found in .yaml
// or .yml files. A missing directory is not an error; operators often run
// with only the builtin specs.
func LoadDir(r *Registry, dir string) error {
	err := filepath.Walk(dir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			if os.IsNotExist(walkErr) {
				return nil
			}

			return walkErr
		}

		if info.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		return loadFile(r, path)
	})
	if err != nil {
		return fmt.Errorf("failed to load entity specs from %s: %w", dir, err)
	}

	return nil
}

func loadFile(r *Registry, path string) error {
	content, err := os.ReadFile(path) //nolint:gosec // operator-provided spec path
	if err != nil {
		return err
	}

	var file specFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	specs := file.Entities
	if len(specs) == 0 {
		// Fall back to a single top-level spec document
		var single EntitySpec
		if err := yaml.Unmarshal(content, &single); err == nil && single.Name != "" {
			specs = []*EntitySpec{&single}
		}
	}

	for _, spec := range specs {
		if err := r.Register(spec); err != nil {
			return fmt.Errorf("failed to register %s from %s: %w", spec.Name, path, err)
		}
	}

	return nil
}

// RegisterBuiltin registers the shipped specs, skipping names already
// present so operator-provided specs win.
func RegisterBuiltin(r *Registry) error {
	for _, spec := range Builtin() {
		if _, err := r.Get(spec.Name); err == nil {
			continue
		}

		if err := r.Register(spec); err != nil {
			return err
		}
	}

	return nil
}
