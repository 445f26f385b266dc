package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/stepgraph/pkg/domain"
)

// ErrToolNameEmpty is returned when registering a tool without a name.
var ErrToolNameEmpty = errors.New("tool name is empty")

// ErrNilTool is returned when registering a nil tool.
var ErrNilTool = errors.New("tool is nil")

// Tool is a named unit of computation over the shared state.
// Transform receives the current state and returns the state that replaces it.
// Implementations must not retain or mutate the input after returning.
type Tool interface {
	Transform(ctx context.Context, state domain.State) (domain.State, error)
}

// ToolFunc adapts a plain function to the Tool interface.
type ToolFunc func(ctx context.Context, state domain.State) (domain.State, error)

// Transform calls f.
func (f ToolFunc) Transform(ctx context.Context, state domain.State) (domain.State, error) {
	return f(ctx, state)
}

// Describer is implemented by tools that expose a human-readable description.
type Describer interface {
	Description() string
}

// Resolver looks tools up by exact name.
type Resolver interface {
	Resolve(name string) (Tool, error)
}

// Registry manages the available tools.
// It is built once at startup and read concurrently by runs afterwards.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// RegisterOption configures a single Register call.
type RegisterOption func(*registerConfig)

type registerConfig struct {
	replace bool
}

// WithReplace allows Register to overwrite an existing binding.
func WithReplace() RegisterOption {
	return func(c *registerConfig) {
		c.replace = true
	}
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register binds name to tool.
// It fails with domain.ErrToolAlreadyRegistered if name is taken, unless WithReplace is given.
func (r *Registry) Register(name string, tool Tool, opts ...RegisterOption) error {
	if name == "" {
		return ErrToolNameEmpty
	}
	if tool == nil {
		return fmt.Errorf("%w: %q", ErrNilTool, name)
	}

	var cfg registerConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists && !cfg.replace {
		return fmt.Errorf("%w: %q", domain.ErrToolAlreadyRegistered, name)
	}
	r.tools[name] = tool
	return nil
}

// RegisterFunc is a shorthand for Register(name, ToolFunc(fn), opts...).
func (r *Registry) RegisterFunc(name string, fn func(ctx context.Context, state domain.State) (domain.State, error), opts ...RegisterOption) error {
	if fn == nil {
		return fmt.Errorf("%w: %q", ErrNilTool, name)
	}
	return r.Register(name, ToolFunc(fn), opts...)
}

// MustRegister is like Register but panics on error. Intended for startup wiring.
func (r *Registry) MustRegister(name string, tool Tool, opts ...RegisterOption) {
	if err := r.Register(name, tool, opts...); err != nil {
		panic(err)
	}
}

// Resolve looks up a tool by exact name.
// Returns an error wrapping domain.ErrToolNotRegistered if the tool is not found.
func (r *Registry) Resolve(name string) (Tool, error) {
	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrToolNotRegistered, name)
	}
	return tool, nil
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Info describes a registered tool for listing endpoints.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// List returns name and description of every tool, sorted by name.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Info, 0, len(r.tools))
	for name, tool := range r.tools {
		info := Info{Name: name}
		if d, ok := tool.(Describer); ok {
			info.Description = d.Description()
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
