// Package tools provides the built-in tool set dispatched by the executor:
// file manipulation, bounded shell commands, and git operations. Every tool
// validates its parameter map against a typed form before touching the
// filesystem or spawning a process, so malformed steps fail at validation
// rather than mid-side-effect.
package tools

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jllopis/praxis/pkg/core"
)

// ParamValidator is implemented by tools that can check a parameter map
// without executing. The iterator uses it to reject remediation params that
// no longer fit the tool's schema.
type ParamValidator interface {
	ValidateParams(params map[string]any) error
}

// Registry holds the fixed tool set injected into an executor. Lookup is by
// tool name; registration order is preserved for catalog rendering.
type Registry struct {
	order  []string
	byName map[string]core.Tool
}

// NewRegistry creates a registry seeded with the given tools.
func NewRegistry(ts ...core.Tool) *Registry {
	r := &Registry{byName: make(map[string]core.Tool)}
	for _, t := range ts {
		r.Register(t)
	}
	return r
}

// Register adds a tool, replacing any previous tool with the same name.
func (r *Registry) Register(t core.Tool) {
	name := t.Name()
	if _, exists := r.byName[name]; !exists {
		r.order = append(r.order, name)
	}
	r.byName[name] = t
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (core.Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Tools returns the registered tools in registration order.
func (r *Registry) Tools() []core.Tool {
	out := make([]core.Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Subset returns a registry containing only the allowed tools. An empty
// allow list keeps everything; deny wins over allow.
func (r *Registry) Subset(allow, deny []string) *Registry {
	allowed := make(map[string]bool, len(allow))
	for _, name := range allow {
		allowed[name] = true
	}
	denied := make(map[string]bool, len(deny))
	for _, name := range deny {
		denied[name] = true
	}

	out := &Registry{byName: make(map[string]core.Tool)}
	for _, name := range r.order {
		if denied[name] {
			continue
		}
		if len(allowed) > 0 && !allowed[name] {
			continue
		}
		out.Register(r.byName[name])
	}
	return out
}

// Catalog renders the tool set for inclusion in a planning prompt: one block
// per tool with its name, description, and JSON parameter schema.
func (r *Registry) Catalog() string {
	var b strings.Builder
	for _, name := range r.order {
		t := r.byName[name]
		schema, err := json.Marshal(t.ParameterSchema())
		if err != nil {
			schema = []byte("{}")
		}
		fmt.Fprintf(&b, "- %s: %s\n  parameters: %s\n", t.Name(), t.Description(), schema)
	}
	return b.String()
}

// Param accessors tolerate the loose typing of JSON-decoded maps.

func stringParam(params map[string]any, key string) (string, bool) {
	v, ok := params[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func boolParam(params map[string]any, key string, def bool) bool {
	v, ok := params[key]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

// intParam accepts int and float64 encodings; JSON numbers decode as float64.
func intParam(params map[string]any, key string) (int, bool) {
	switch v := params[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n), true
		}
	}
	return 0, false
}

// stringSliceParam accepts []string and []any-of-string encodings.
func stringSliceParam(params map[string]any, key string) ([]string, bool) {
	switch v := params[key].(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

func invalidParams(err error) core.ExecutionResult {
	return core.Failuref("invalid parameters: %v", err)
}

// operationEnum renders a sorted enum list for schema descriptions.
func operationEnum(ops map[string]bool) []string {
	out := make([]string, 0, len(ops))
	for op := range ops {
		out = append(out, op)
	}
	sort.Strings(out)
	return out
}
