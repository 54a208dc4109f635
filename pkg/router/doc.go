// Package router implements fragment routing with before and after filters.
//
// The router provides:
//   - An ordered, mutable route table mapping patterns to handler names
//   - Pattern matching with named, optional and splat parameters
//   - Dispatch through a filter.Interceptor so hooks can veto or defer routes
//
// # Patterns
//
//	""                  → matches the empty fragment
//	"page/:id"          → "page/2"            params ["2"]
//	"page/:id(/:edit)"  → "page/2"            params ["2", missing]
//	                      "page/2/edit"       params ["2", "edit"]
//	"files/*path"       → "files/a/b.txt"     params ["a/b.txt"]
//
// Parameters are positional. A query string ("?q=1") is ignored for matching
// and not passed to handlers.
//
// # Usage
//
//	r := router.New()
//	r.Handle("index", index)
//	r.Handle("page", page)
//	r.Route("", "index")
//	r.Route("page/:id(/:edit)", "page")
//
//	r.Before = filter.Keyed(map[string]filter.Hook{
//	    "*":        requireSession,
//	    "page/:id(/:edit)": loadPage,
//	})
//
//	d, err := r.Navigate(ctx, "page/2")
//	// d.Status() is completed, aborted, failed or pending
//
// Before and After are read on every navigation, so they can be replaced
// between navigations. Routes added after construction dispatch and resolve
// hooks exactly like the initial ones.
package router
