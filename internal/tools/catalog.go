// Package tools holds the static registry of callable workspace actions.
package tools

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nimbusworks/workspace-assistant/internal/core/domain"
	"github.com/nimbusworks/workspace-assistant/internal/core/ports"
)

// Catalog maps tool names to their descriptors and connector-backed
// handlers. Declarations and bindings happen at process start; afterwards
// the catalog is read-only and safe to share across queries.
type Catalog struct {
	descriptors map[string]domain.ToolDescriptor
	handlers    map[string]ports.ToolHandler
	order       []string
}

func NewCatalog() *Catalog {
	return &Catalog{
		descriptors: make(map[string]domain.ToolDescriptor),
		handlers:    make(map[string]ports.ToolHandler),
	}
}

// Declare registers a tool descriptor. Destructive tools always carry a
// confirmed flag in their schema so the model can satisfy the guardrail.
func (c *Catalog) Declare(desc domain.ToolDescriptor) error {
	name := strings.TrimSpace(desc.Name)
	if name == "" {
		return fmt.Errorf("tool name is required")
	}
	if _, exists := c.descriptors[name]; exists {
		return fmt.Errorf("tool %q declared twice", name)
	}
	if desc.Parameters == nil {
		desc.Parameters = map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		}
	}
	if desc.Destructive {
		injectConfirmedField(desc.Parameters)
	}
	c.descriptors[name] = desc
	c.order = append(c.order, name)
	return nil
}

// Bind attaches the connector handler for a declared tool.
func (c *Catalog) Bind(name string, handler ports.ToolHandler) error {
	if _, ok := c.descriptors[name]; !ok {
		return domain.WrapError(domain.ErrToolNotFound, "bind handler", fmt.Errorf("%q is not declared", name))
	}
	if handler == nil {
		return fmt.Errorf("handler for %q is nil", name)
	}
	c.handlers[name] = handler
	return nil
}

// Validate reports declared tools that never got a handler bound.
func (c *Catalog) Validate() error {
	missing := make([]string, 0)
	for _, name := range c.order {
		if _, ok := c.handlers[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("tools without a bound connector: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Schemas serializes every descriptor in declaration order into the
// chat-completion tool format.
func (c *Catalog) Schemas() []map[string]any {
	out := make([]map[string]any, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.descriptors[name].ToolSchema())
	}
	return out
}

func (c *Catalog) Descriptor(name string) (domain.ToolDescriptor, bool) {
	desc, ok := c.descriptors[name]
	return desc, ok
}

func (c *Catalog) Handler(name string) (ports.ToolHandler, bool) {
	handler, ok := c.handlers[name]
	return handler, ok
}

// Descriptors returns all declared tools in declaration order.
func (c *Catalog) Descriptors() []domain.ToolDescriptor {
	out := make([]domain.ToolDescriptor, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.descriptors[name])
	}
	return out
}

func injectConfirmedField(params map[string]any) {
	props, ok := params["properties"].(map[string]any)
	if !ok {
		props = map[string]any{}
		params["properties"] = props
	}
	if _, exists := props["confirmed"]; !exists {
		props["confirmed"] = map[string]any{
			"type":        "boolean",
			"default":     false,
			"description": "Must be true to execute this destructive action.",
		}
	}
}
