package tools

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/nimbusworks/workspace-assistant/internal/core/domain"
)

//go:embed manifest.yaml
var manifestYAML []byte

type manifestFile struct {
	Tools []manifestTool `yaml:"tools"`
}

type manifestTool struct {
	Name        string                   `yaml:"name"`
	Description string                   `yaml:"description"`
	Destructive bool                     `yaml:"destructive"`
	Effect      string                   `yaml:"effect"`
	Parameters  map[string]manifestParam `yaml:"parameters"`
}

type manifestParam struct {
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
	Required    bool   `yaml:"required"`
}

// LoadManifest parses the embedded tool manifest into descriptors in file
// order.
func LoadManifest() ([]domain.ToolDescriptor, error) {
	return parseManifest(manifestYAML)
}

func parseManifest(data []byte) ([]domain.ToolDescriptor, error) {
	var file manifestFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse tool manifest: %w", err)
	}
	if len(file.Tools) == 0 {
		return nil, fmt.Errorf("tool manifest declares no tools")
	}

	out := make([]domain.ToolDescriptor, 0, len(file.Tools))
	for _, tool := range file.Tools {
		if tool.Name == "" {
			return nil, fmt.Errorf("tool manifest entry without a name")
		}
		if tool.Destructive && tool.Effect == "" {
			return nil, fmt.Errorf("destructive tool %q needs an effect description", tool.Name)
		}
		out = append(out, domain.ToolDescriptor{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  buildParameterSchema(tool.Parameters),
			Destructive: tool.Destructive,
			Effect:      tool.Effect,
		})
	}
	return out, nil
}

func buildParameterSchema(params map[string]manifestParam) map[string]any {
	properties := make(map[string]any, len(params))
	required := make([]string, 0, len(params))
	for name, param := range params {
		prop := map[string]any{"type": param.Type}
		if param.Type == "" {
			prop["type"] = "string"
		}
		if param.Description != "" {
			prop["description"] = param.Description
		}
		properties[name] = prop
		if param.Required {
			required = append(required, name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		sort.Strings(required)
		schema["required"] = required
	}
	return schema
}

// NewCatalogFromManifest declares every manifest tool into a fresh catalog.
// Handlers are bound separately by the connector layer.
func NewCatalogFromManifest() (*Catalog, error) {
	descriptors, err := LoadManifest()
	if err != nil {
		return nil, err
	}
	catalog := NewCatalog()
	for _, desc := range descriptors {
		if err := catalog.Declare(desc); err != nil {
			return nil, err
		}
	}
	return catalog, nil
}
