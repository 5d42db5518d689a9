package toolbox

import (
	"context"
	"encoding/json"
	"fmt"
)

// Box is a registry of tools. Listing order follows registration order so
// the served tool list is stable across runs.
type Box struct {
	names []string
	tools map[string]Tool
}

// New creates an empty Box.
func New() *Box {
	return &Box{tools: make(map[string]Tool)}
}

// Register adds tools to the Box. Re-registering a name replaces the tool
// but keeps its original position.
func (b *Box) Register(tools ...Tool) {
	for _, t := range tools {
		if _, exists := b.tools[t.Name]; !exists {
			b.names = append(b.names, t.Name)
		}
		b.tools[t.Name] = t
	}
}

// Get returns a tool by name.
func (b *Box) Get(name string) (Tool, bool) {
	t, ok := b.tools[name]
	return t, ok
}

// Tools returns all registered tools in registration order.
func (b *Box) Tools() []Tool {
	result := make([]Tool, 0, len(b.names))
	for _, name := range b.names {
		result = append(result, b.tools[name])
	}

	return result
}

// Call executes the named tool. Unknown names are an error; handler errors
// pass through unwrapped so callers can inspect them.
func (b *Box) Call(ctx context.Context, name string, input json.RawMessage) (string, error) {
	t, ok := b.tools[name]
	if !ok {
		return "", fmt.Errorf("toolbox: tool not found: %s", name)
	}

	return t.Handler(ctx, input)
}
