package strategy

import (
	"fmt"
	"sort"
)

// Registry is an immutable id -> Spec lookup built once at startup.
type Registry struct {
	specs       map[string]Spec
	ids         []string
	performance []string
}

// Info is the listing shape served to clients.
type Info struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ParameterInfo `json:"parameters"`
}

// NewRegistry indexes specs by ID. Duplicate IDs are rejected.
// performanceIDs names the specs covered by the scheduled refresh; each
// must be registered.
func NewRegistry(specs []Spec, performanceIDs []string) (*Registry, error) {
	r := &Registry{specs: make(map[string]Spec, len(specs))}
	for _, s := range specs {
		if _, dup := r.specs[s.ID()]; dup {
			return nil, fmt.Errorf("duplicate strategy id %q", s.ID())
		}
		r.specs[s.ID()] = s
		r.ids = append(r.ids, s.ID())
	}
	sort.Strings(r.ids)
	for _, id := range performanceIDs {
		if _, ok := r.specs[id]; !ok {
			return nil, fmt.Errorf("performance id %q: %w", id, ErrUnknownStrategy)
		}
		r.performance = append(r.performance, id)
	}
	sort.Strings(r.performance)
	return r, nil
}

// DefaultRegistry holds the protective, vigilant and demo specs. The demo
// spec is left out of the scheduled refresh.
func DefaultRegistry() *Registry {
	r, err := NewRegistry([]Spec{NewProtective(), NewVigilant(), NewDemo()}, []string{"paa", "vaa"})
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Get(id string) (Spec, error) {
	s, ok := r.specs[id]
	if !ok {
		return nil, fmt.Errorf("strategy %s: %w", id, ErrUnknownStrategy)
	}
	return s, nil
}

func (r *Registry) IDs() []string { return cloneTickers(r.ids) }

func (r *Registry) PerformanceIDs() []string { return cloneTickers(r.performance) }

// Describe returns listing metadata keyed by strategy ID.
func (r *Registry) Describe() map[string]Info {
	out := make(map[string]Info, len(r.specs))
	for id, s := range r.specs {
		out[id] = Info{
			Name:        s.Name(),
			Description: s.Description(),
			Parameters:  s.Parameters(),
		}
	}
	return out
}
