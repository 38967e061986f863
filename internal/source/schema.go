package source

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ToniPaltus/airflow-intro/internal/dataset"
)

// Schema declares column kinds so they are not inferred. Columns absent from
// the schema are still inferred.
//
// Example file:
//
//	columns:
//	  at: timestamp
//	  content: string
//	time_layouts:
//	  - "2006-01-02"
type Schema struct {
	Columns     map[string]dataset.Kind
	TimeLayouts []string
}

type schemaFile struct {
	Columns     map[string]string `yaml:"columns"`
	TimeLayouts []string          `yaml:"time_layouts"`
}

// LoadSchema reads a YAML schema file.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return ParseSchema(data)
}

// ParseSchema parses YAML schema content.
func ParseSchema(data []byte) (*Schema, error) {
	var raw schemaFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	s := &Schema{
		Columns:     make(map[string]dataset.Kind, len(raw.Columns)),
		TimeLayouts: raw.TimeLayouts,
	}
	for name, kindName := range raw.Columns {
		kind, err := dataset.ParseKind(kindName)
		if err != nil {
			return nil, fmt.Errorf("schema column %q: %w", name, err)
		}
		s.Columns[name] = kind
	}
	return s, nil
}
