package plugin

import "github.com/zero-day-ai/graphkit/schema"

// MethodDescriptor describes one method of a plugin.
type MethodDescriptor struct {
	Name         string      `json:"name"`
	Description  string      `json:"description,omitempty"`
	InputSchema  schema.JSON `json:"input_schema"`
	OutputSchema schema.JSON `json:"output_schema"`
}

// Descriptor is the static description of a plugin.
type Descriptor struct {
	Name        string             `json:"name"`
	Version     string             `json:"version"`
	Description string             `json:"description,omitempty"`
	Methods     []MethodDescriptor `json:"methods"`
}

// ToDescriptor extracts the descriptor of p.
func ToDescriptor(p Plugin) Descriptor {
	return Descriptor{
		Name:        p.Name(),
		Version:     p.Version(),
		Description: p.Description(),
		Methods:     p.Methods(),
	}
}
