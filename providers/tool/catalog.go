package tool

import (
	"strings"
	"sync"

	"github.com/leofalp/webresearch/providers/ai"
)

// Catalog is a registry of tools keyed by case-insensitive name. It remembers
// registration order so tool declarations are sent to the model stably.
type Catalog struct {
	mu    sync.RWMutex
	tools map[string]GenericTool
	order []string
}

// NewCatalog creates a new empty tool catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		tools: make(map[string]GenericTool),
	}
}

// NewCatalogWithTools creates a catalog pre-populated with tools.
func NewCatalogWithTools(tools ...GenericTool) *Catalog {
	catalog := NewCatalog()
	catalog.AddTools(tools...)
	return catalog
}

// AddTools registers tools under their ToolInfo().Name. A tool with the same
// name replaces the earlier one but keeps its position.
func (c *Catalog) AddTools(tools ...GenericTool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range tools {
		key := strings.ToLower(t.ToolInfo().Name)
		if _, exists := c.tools[key]; !exists {
			c.order = append(c.order, key)
		}
		c.tools[key] = t
	}
}

// Get retrieves a tool by name (case-insensitive).
func (c *Catalog) Get(name string) (GenericTool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tool, exists := c.tools[strings.ToLower(name)]
	return tool, exists
}

// Has reports whether a tool with the given name is registered.
func (c *Catalog) Has(name string) bool {
	_, exists := c.Get(name)
	return exists
}

// Remove removes a tool by name and reports whether it was present.
func (c *Catalog) Remove(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := strings.ToLower(name)
	if _, exists := c.tools[key]; !exists {
		return false
	}
	delete(c.tools, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// Size returns the number of tools in the catalog.
func (c *Catalog) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tools)
}

// Descriptions returns the declarations of all tools in registration order.
func (c *Catalog) Descriptions() []ai.ToolDescription {
	c.mu.RLock()
	defer c.mu.RUnlock()

	descriptions := make([]ai.ToolDescription, 0, len(c.order))
	for _, key := range c.order {
		descriptions = append(descriptions, c.tools[key].ToolInfo())
	}
	return descriptions
}
