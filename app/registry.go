package app

import (
	"fmt"

	"statlab/domain/analysis"
	"statlab/ports"
)

// Registry maps analysis kinds to their analyzers.
type Registry struct {
	analyzers map[analysis.Kind]ports.Analyzer
}

// NewRegistry builds a registry from the given analyzers. Registering two
// analyzers for the same kind is a wiring bug and panics at startup.
func NewRegistry(analyzers ...ports.Analyzer) *Registry {
	r := &Registry{analyzers: make(map[analysis.Kind]ports.Analyzer, len(analyzers))}
	for _, a := range analyzers {
		if _, dup := r.analyzers[a.Kind()]; dup {
			panic(fmt.Sprintf("duplicate analyzer registered for kind %q", a.Kind()))
		}
		r.analyzers[a.Kind()] = a
	}
	return r
}

// Get returns the analyzer for a kind
func (r *Registry) Get(kind analysis.Kind) (ports.Analyzer, error) {
	a, ok := r.analyzers[kind]
	if !ok {
		return nil, fmt.Errorf("no analyzer registered for kind %q", kind)
	}
	return a, nil
}

// Kinds lists the registered kinds in the canonical order
func (r *Registry) Kinds() []analysis.Kind {
	var kinds []analysis.Kind
	for _, k := range analysis.AllKinds() {
		if _, ok := r.analyzers[k]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}
