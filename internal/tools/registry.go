package tools

import (
	"context"
	"reflect"

	"github.com/crystaldolphin/toolagent/internal/schema"
)

// Tool is the capability the loop dispatches to by name.
// *Descriptor is the standard implementation.
type Tool interface {
	Name() string
	Describe() schema.ToolSchema
	Invoke(ctx context.Context, arguments map[string]any) (string, error)
}

// Registry holds a fixed, ordered set of named tools. It is never mutated
// after construction, so concurrent sessions may share one.
type Registry struct {
	order   []string
	tools   map[string]Tool
	schemas []schema.ToolSchema
}

// NewRegistry builds a Registry from ts in the given order. It fails with
// *schema.DuplicateToolError when two tools share a name.
func NewRegistry(ts ...Tool) (*Registry, error) {
	r := &Registry{
		order:   make([]string, 0, len(ts)),
		tools:   make(map[string]Tool, len(ts)),
		schemas: make([]schema.ToolSchema, 0, len(ts)),
	}
	for _, t := range ts {
		if isNil(t) {
			return nil, &schema.ConfigurationError{Msg: "nil tool"}
		}
		name := t.Name()
		if _, dup := r.tools[name]; dup {
			return nil, &schema.DuplicateToolError{Name: name}
		}
		r.order = append(r.order, name)
		r.tools[name] = t
		r.schemas = append(r.schemas, t.Describe())
	}
	return r, nil
}

// Get returns the tool with the given name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.order) }

// Schemas returns every tool schema in registration order.
func (r *Registry) Schemas() []schema.ToolSchema {
	out := make([]schema.ToolSchema, len(r.schemas))
	for i, s := range r.schemas {
		out[i] = s.Clone()
	}
	return out
}

// isNil also catches a typed nil such as (*Descriptor)(nil).
func isNil(t Tool) bool {
	if t == nil {
		return true
	}
	v := reflect.ValueOf(t)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return v.IsNil()
	}
	return false
}
