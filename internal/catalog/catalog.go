// Package catalog loads the static scoring tables and wizard layout, and
// checks them before anything is allowed to score against them.
package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"accreditation/internal/model"
)

//go:embed default.yaml
var defaultCatalog []byte

// Parse decodes a YAML catalog document
func Parse(data []byte) (*model.Catalog, error) {
	var c model.Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	return &c, nil
}

// Default returns the catalog compiled into the binary
func Default() (*model.Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog from path. An empty path selects the embedded default.
func Load(path string) (*model.Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(data)
}
