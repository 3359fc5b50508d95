package service

import (
	"fmt"

	"github.com/suatgpt/suatgpt-backend/internal/core/domain"
)

// StaticModelRouter resolves model keys against a fixed routing table.
type StaticModelRouter struct {
	routes   map[string]domain.Route
	fallback domain.Route
}

// NewStaticModelRouter copies routes into an immutable table. The entry for
// domain.DefaultModelKey must be present; it answers every unknown key.
func NewStaticModelRouter(routes []domain.Route) (*StaticModelRouter, error) {
	table := make(map[string]domain.Route, len(routes))
	for _, r := range routes {
		if _, dup := table[r.Key]; dup {
			return nil, fmt.Errorf("model router: duplicate route %q", r.Key)
		}
		table[r.Key] = r
	}

	fallback, ok := table[domain.DefaultModelKey]
	if !ok {
		return nil, fmt.Errorf("model router: default route %q missing", domain.DefaultModelKey)
	}
	return &StaticModelRouter{routes: table, fallback: fallback}, nil
}

// Resolve never fails: unknown or empty keys map to the default route.
func (r *StaticModelRouter) Resolve(modelKey string) domain.Route {
	if route, ok := r.routes[modelKey]; ok {
		return route
	}
	return r.fallback
}
