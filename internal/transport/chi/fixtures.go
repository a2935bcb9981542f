package chi

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Fixtures maps a relation name to its records.
type Fixtures map[string][]map[string]any

type fixtureFile struct {
	Relations Fixtures `yaml:"relations"`
}

// LoadFixtures reads a YAML (or JSON) fixture file of the form
//
//	relations:
//	  article:
//	    - {id: 1, name: first}
func LoadFixtures(path string) (Fixtures, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read fixtures %s: %w", path, err)
	}
	return ParseFixtures(data)
}

// ParseFixtures decodes fixture data. Records without an id are rejected
// since the search endpoint filters and pages by id.
func ParseFixtures(data []byte) (Fixtures, error) {
	var f fixtureFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	if f.Relations == nil {
		f.Relations = Fixtures{}
	}
	for rel, items := range f.Relations {
		for i, item := range items {
			if _, ok := item["id"]; !ok {
				return nil, fmt.Errorf("fixture %s[%d]: missing id", rel, i)
			}
		}
	}
	return f.Relations, nil
}
