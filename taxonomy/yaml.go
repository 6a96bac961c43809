package taxonomy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the YAML layout of a catalog file.
//
//	version: "1"
//	vertex_types:
//	  - name: Hash
//	  - name: MD5 Hash
//	    super: Hash
//	    expr: size(text) == 32
//	transaction_types:
//	  - name: Correlation
type File struct {
	Version          string       `yaml:"version,omitempty"`
	IncludeDefaults  bool         `yaml:"include_defaults,omitempty"`
	VertexTypes      []Definition `yaml:"vertex_types,omitempty"`
	TransactionTypes []Definition `yaml:"transaction_types,omitempty"`
}

// Definitions flattens the file into registration order, defaults first when
// IncludeDefaults is set. The section a definition appears in sets its category.
func (f File) Definitions() []Definition {
	var defs []Definition
	if f.IncludeDefaults {
		defs = append(defs, DefaultDefinitions()...)
	}
	for _, d := range f.VertexTypes {
		d.Category = CategoryVertex
		defs = append(defs, d)
	}
	for _, d := range f.TransactionTypes {
		d.Category = CategoryTransaction
		defs = append(defs, d)
	}
	return defs
}

// ParseYAML builds a catalog from YAML bytes.
func ParseYAML(data []byte) (*Catalog, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return NewCatalog(f.Definitions()...)
}

// LoadFile reads and parses a YAML catalog file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}
