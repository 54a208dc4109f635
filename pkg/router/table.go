package router

import (
	"github.com/vango-dev/routefilter/pkg/filter"
)

// Route is a route table entry.
type Route struct {
	// Pattern is the route pattern, also the key for keyed hooks.
	Pattern string `json:"pattern"`

	// Handler is the handler name. It is empty for routes registered with a
	// handler function.
	Handler string `json:"handler"`
}

type tableEntry struct {
	route   Route
	pattern *Pattern
}

// Table is an ordered route table keyed by pattern.
// It is not safe for concurrent use.
type Table struct {
	entries []*tableEntry
	index   map[string]int
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{index: make(map[string]int)}
}

// Add registers pattern for handler. Re-adding an existing pattern replaces
// its handler and keeps its position.
func (t *Table) Add(pattern, handler string) error {
	if i, ok := t.index[pattern]; ok {
		t.entries[i].route.Handler = handler
		return nil
	}

	compiled, err := CompilePattern(pattern)
	if err != nil {
		return err
	}
	t.index[pattern] = len(t.entries)
	t.entries = append(t.entries, &tableEntry{
		route:   Route{Pattern: pattern, Handler: handler},
		pattern: compiled,
	})
	return nil
}

// Lookup returns the route registered under pattern.
func (t *Table) Lookup(pattern string) (Route, bool) {
	i, ok := t.index[pattern]
	if !ok {
		return Route{}, false
	}
	return t.entries[i].route, true
}

// Routes returns the routes in insertion order.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.route
	}
	return out
}

// Len returns the number of routes.
func (t *Table) Len() int { return len(t.entries) }

// Match finds the route for fragment. When several patterns match, the most
// recently added one wins.
func (t *Table) Match(fragment string) (Route, filter.Params, bool) {
	for i := len(t.entries) - 1; i >= 0; i-- {
		e := t.entries[i]
		if params, ok := e.pattern.Match(fragment); ok {
			return e.route, params, true
		}
	}
	return Route{}, nil, false
}
