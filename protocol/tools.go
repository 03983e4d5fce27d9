package protocol

import (
	"context"
	"fmt"
	"sync"
)

// ToolHandler executes one tool invocation. The returned string becomes
// the text content of the call result. Returned errors carrying a
// validation code become protocol-level invalid-params errors; any other
// error becomes an isError tool result.
type ToolHandler func(ctx context.Context, args map[string]any) (string, error)

// Tool is a named operation exposed to the connected peer.
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
	Handler     ToolHandler
}

// Prompt is a named descriptive prompt exposed to the connected peer.
type Prompt struct {
	Name        string
	Description string
	Text        string
}

// Registry holds the tools and prompts a protocol server exposes.
type Registry struct {
	mu      sync.RWMutex
	tools   []*Tool
	prompts []*Prompt
	byName  map[string]*Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*Tool),
	}
}

// RegisterTool registers a tool. Names must be unique.
func (r *Registry) RegisterTool(tool *Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[tool.Name]; ok {
		return fmt.Errorf("tool %s already registered", tool.Name)
	}
	r.byName[tool.Name] = tool
	r.tools = append(r.tools, tool)
	return nil
}

// RegisterPrompt registers a prompt.
func (r *Registry) RegisterPrompt(prompt *Prompt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = append(r.prompts, prompt)
}

// Tool looks up a tool by name.
func (r *Registry) Tool(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byName[name]
	return t, ok
}

// Tools returns the registered tools in registration order.
func (r *Registry) Tools() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Tool(nil), r.tools...)
}

// Prompts returns the registered prompts in registration order.
func (r *Registry) Prompts() []*Prompt {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Prompt(nil), r.prompts...)
}
