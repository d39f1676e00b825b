// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package phenomena defines the catalog of consciousness phenomena that
// evidence items are tagged with.
package phenomena

import (
	_ "embed"
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Phenomenon describes one catalog entry with its biological and AI markers.
type Phenomenon struct {
	ID                string   `json:"id" yaml:"id"`
	Name              string   `json:"name" yaml:"name"`
	Description       string   `json:"description" yaml:"description"`
	BiologicalMarkers []string `json:"biological_markers" yaml:"biological_markers"`
	AIMarkers         []string `json:"ai_markers" yaml:"ai_markers"`
}

// Catalog is an ordered set of phenomena.
type Catalog struct {
	Phenomena []Phenomenon `json:"phenomena" yaml:"phenomena"`
}

// ByID returns the phenomenon with the given ID, or false when unknown.
func (c *Catalog) ByID(id string) (Phenomenon, bool) {
	for _, p := range c.Phenomena {
		if p.ID == id {
			return p, true
		}
	}
	return Phenomenon{}, false
}

// IDs returns phenomenon identifiers in catalog order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.Phenomena))
	for i, p := range c.Phenomena {
		ids[i] = p.ID
	}
	return ids
}

// Load returns the catalog at path, or the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading catalog %s: %w", path, err)
		}
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if len(c.Phenomena) == 0 {
		return nil, fmt.Errorf("catalog contains no phenomena")
	}
	for i, p := range c.Phenomena {
		if p.ID == "" {
			return nil, fmt.Errorf("catalog entry %d has no id", i)
		}
	}
	return &c, nil
}
