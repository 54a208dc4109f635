package router

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/vango-dev/routefilter/pkg/deferred"
	"github.com/vango-dev/routefilter/pkg/filter"
)

// harness records what hooks and handlers saw, like an application cache.
type harness struct {
	route       filter.Params
	routeCalls  int
	beforeRoute string
	before      filter.Params
	afterRoute  string
	after       filter.Params
	beforeKeyed map[string]bool
	afterKeyed  map[string]bool
}

func newHarness() *harness {
	return &harness{beforeKeyed: map[string]bool{}, afterKeyed: map[string]bool{}}
}

func (h *harness) handler() filter.Handler {
	return func(_ context.Context, params filter.Params) error {
		h.route = params
		h.routeCalls++
		return nil
	}
}

func (h *harness) beforeHook() filter.Hook {
	return filter.HookFunc(func(_ context.Context, route string, params filter.Params) (filter.Outcome, error) {
		h.beforeRoute, h.before = route, params
		return filter.Continue, nil
	})
}

func (h *harness) afterHook() filter.Hook {
	return filter.HookFunc(func(_ context.Context, route string, params filter.Params) (filter.Outcome, error) {
		h.afterRoute, h.after = route, params
		return filter.Continue, nil
	})
}

// keyed records key in *m at call time, so resetting the map between
// navigations is observed.
func (h *harness) keyed(m *map[string]bool, key string) filter.Hook {
	return filter.HookFunc(func(context.Context, string, filter.Params) (filter.Outcome, error) {
		(*m)[key] = true
		return filter.Continue, nil
	})
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(t *testing.T, h *harness, routes []Route, opts ...Option) *Router {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	r, err := NewFromTable(routes, map[string]filter.Handler{
		"index": h.handler(),
		"page":  h.handler(),
	}, opts...)
	if err != nil {
		t.Fatalf("NewFromTable: %v", err)
	}
	return r
}

func navigate(t *testing.T, r *Router, fragment string) *filter.Dispatch {
	t.Helper()
	d, err := r.Navigate(context.Background(), fragment)
	if err != nil {
		t.Fatalf("Navigate(%q): %v", fragment, err)
	}
	return d
}

func TestBasicNavigation(t *testing.T) {
	h := newHarness()
	r := newTestRouter(t, h, []Route{{"", "index"}, {"page/:id(/:edit)", "page"}})

	navigate(t, r, "")
	if len(h.route) != 0 || h.routeCalls != 1 {
		t.Errorf("index params = %v, calls = %d", h.route, h.routeCalls)
	}

	navigate(t, r, "page/2")
	if got := h.route.String(); got != "2," {
		t.Errorf("page/2 params = %q, want %q", got, "2,")
	}
	if _, ok := h.route.Get(1); ok {
		t.Error("optional edit param should be missing")
	}

	navigate(t, r, "page/2/edit")
	if got := h.route.String(); got != "2,edit" {
		t.Errorf("page/2/edit params = %q, want %q", got, "2,edit")
	}
	if r.Fragment() != "page/2/edit" {
		t.Errorf("Fragment() = %q", r.Fragment())
	}
}

func TestSingleBeforeAndAfter(t *testing.T) {
	h := newHarness()
	r := newTestRouter(t, h, []Route{{"", "index"}, {"page/:id(/:edit)", "page"}})
	r.Before = filter.Single(h.beforeHook())
	r.After = filter.Single(h.afterHook())

	navigate(t, r, "")
	if h.before == nil {
		t.Error("before not triggered")
	}
	if h.after == nil {
		t.Error("after not triggered")
	}

	navigate(t, r, "page/2")
	if v, _ := h.before.Get(0); v != "2" {
		t.Errorf("before param = %q, want 2", v)
	}
	if v, _ := h.after.Get(0); v != "2" {
		t.Errorf("after param = %q, want 2", v)
	}
	if h.beforeRoute != "page/:id(/:edit)" || h.afterRoute != "page/:id(/:edit)" {
		t.Errorf("hook routes = %q, %q", h.beforeRoute, h.afterRoute)
	}

	navigate(t, r, "page/2/edit")
	if h.before.String() != "2,edit" || h.after.String() != "2,edit" {
		t.Errorf("hook params = %q, %q; want 2,edit", h.before.String(), h.after.String())
	}
}

func TestReturnAbortFromReplacedBefore(t *testing.T) {
	h := newHarness()
	r := newTestRouter(t, h, []Route{{"", "index"}, {"page/:id", "page"}})
	r.Before = filter.Single(h.beforeHook())
	r.After = filter.Single(h.afterHook())

	navigate(t, r, "page/foo")
	prevRoute := h.route.String()

	var seen string
	r.Before = filter.Single(filter.HookFunc(func(_ context.Context, _ string, params filter.Params) (filter.Outcome, error) {
		seen, _ = params.Get(0)
		if seen == "bar" {
			return filter.Abort, nil
		}
		return filter.Continue, nil
	}))
	h.afterRoute = "unchanged"

	d := navigate(t, r, "page/bar")
	if seen != "bar" {
		t.Errorf("before saw %q, want bar", seen)
	}
	if d.Status() != filter.StatusAborted {
		t.Errorf("status = %v, want aborted", d.Status())
	}
	if h.route.String() != prevRoute {
		t.Errorf("handler ran: route = %q, want %q", h.route.String(), prevRoute)
	}
	if h.afterRoute != "unchanged" {
		t.Errorf("after ran: %q", h.afterRoute)
	}
}

func TestKeyedHooksOnlyFireForTheirRoute(t *testing.T) {
	routes := []Route{{"", "index"}, {"page/:id", "page"}, {"foo/:id", "page"}}
	fragments := map[string]string{"": "", "page/:id": "page/1", "foo/:id": "foo/1"}

	for _, target := range routes {
		t.Run(target.Pattern, func(t *testing.T) {
			h := newHarness()
			r := newTestRouter(t, h, routes)
			before := map[string]filter.Hook{}
			after := map[string]filter.Hook{}
			for _, route := range routes {
				before[route.Pattern] = h.keyed(&h.beforeKeyed, route.Pattern)
				after[route.Pattern] = h.keyed(&h.afterKeyed, route.Pattern)
			}
			r.Before = filter.Keyed(before)
			r.After = filter.Keyed(after)

			navigate(t, r, fragments[target.Pattern])

			for _, other := range routes {
				want := other.Pattern == target.Pattern
				if h.beforeKeyed[other.Pattern] != want {
					t.Errorf("before[%q] fired = %v, want %v", other.Pattern, h.beforeKeyed[other.Pattern], want)
				}
				if h.afterKeyed[other.Pattern] != want {
					t.Errorf("after[%q] fired = %v, want %v", other.Pattern, h.afterKeyed[other.Pattern], want)
				}
			}
		})
	}
}

func TestDoubleBoundHandlers(t *testing.T) {
	h := newHarness()
	r := newTestRouter(t, h, []Route{{"", "index"}, {"page/:id", "page"}, {"foo/:id", "page"}})

	navigate(t, r, "page/2")
	if h.route.String() != "2" {
		t.Errorf("page/2 params = %q", h.route.String())
	}
	navigate(t, r, "foo/3")
	if h.route.String() != "3" {
		t.Errorf("foo/3 params = %q", h.route.String())
	}
}

func TestAdHocRoute(t *testing.T) {
	h := newHarness()
	r := newTestRouter(t, h, []Route{{"", "index"}, {"page/:id", "page"}, {"foo/:id", "page"}})
	r.Before = filter.Keyed(map[string]filter.Hook{"bar/:id": h.keyed(&h.beforeKeyed, "bar/:id")})

	if err := r.Route("bar/:id", "page"); err != nil {
		t.Fatalf("Route: %v", err)
	}
	navigate(t, r, "bar/2")

	if h.route.String() != "2" {
		t.Errorf("bar/2 params = %q, want 2", h.route.String())
	}
	if !h.beforeKeyed["bar/:id"] {
		t.Error("keyed before hook for ad hoc route did not fire")
	}
	routes := r.Routes()
	if routes[len(routes)-1] != (Route{"bar/:id", "page"}) {
		t.Errorf("ad hoc route not appended: %v", routes)
	}
}

func TestDeferredBefore(t *testing.T) {
	h := newHarness()
	r := newTestRouter(t, h, []Route{{"page/:id", "page"}})

	var def *deferred.Deferred
	r.Before = filter.Single(filter.HookFunc(func(_ context.Context, route string, params filter.Params) (filter.Outcome, error) {
		def = deferred.New()
		h.beforeRoute, h.before = route, params
		return filter.Pending(def.Promise()), nil
	}))
	r.After = filter.Single(h.afterHook())

	d := navigate(t, r, "page/foo")
	if h.beforeRoute != "page/:id" || h.before.String() != "foo" {
		t.Errorf("before = %q %q", h.beforeRoute, h.before.String())
	}
	if h.routeCalls != 0 || h.after != nil {
		t.Fatal("handler or after ran before the deferred resolved")
	}
	if d.Status() != filter.StatusPending {
		t.Errorf("status = %v, want pending", d.Status())
	}

	def.Resolve()

	if h.routeCalls != 1 || h.route.String() != "foo" {
		t.Errorf("handler calls = %d params = %q", h.routeCalls, h.route.String())
	}
	if h.afterRoute != "page/:id" || h.after.String() != "foo" {
		t.Errorf("after = %q %q", h.afterRoute, h.after.String())
	}
}

func TestWildcardBeforeAbort(t *testing.T) {
	h := newHarness()
	r := newTestRouter(t, h, []Route{{"page/:id", "page"}})
	r.Before = filter.Keyed(map[string]filter.Hook{
		"*": filter.HookFunc(func(_ context.Context, _ string, params filter.Params) (filter.Outcome, error) {
			h.beforeKeyed["*"] = true
			if v, _ := params.Get(0); v == "789" {
				return filter.Abort, nil
			}
			return filter.Continue, nil
		}),
		"page/:id": h.keyed(&h.beforeKeyed, "page/:id"),
		"foo/:id":  h.keyed(&h.beforeKeyed, "foo/:id"),
	})

	navigate(t, r, "page/123")
	if !h.beforeKeyed["*"] || !h.beforeKeyed["page/:id"] || h.beforeKeyed["foo/:id"] {
		t.Errorf("page/123 fired %v", h.beforeKeyed)
	}
	if h.routeCalls != 1 {
		t.Errorf("handler calls = %d, want 1", h.routeCalls)
	}

	h.beforeKeyed = map[string]bool{}
	navigate(t, r, "page/789")
	if !h.beforeKeyed["*"] || h.beforeKeyed["page/:id"] || h.beforeKeyed["foo/:id"] {
		t.Errorf("page/789 fired %v", h.beforeKeyed)
	}
	if h.routeCalls != 1 {
		t.Errorf("handler ran after abort, calls = %d", h.routeCalls)
	}

	navigate(t, r, "page/456")
	if !h.beforeKeyed["page/:id"] {
		t.Errorf("page/456 fired %v, want page/:id recorded", h.beforeKeyed)
	}
}

func TestNavigateWithoutTrigger(t *testing.T) {
	h := newHarness()
	r := newTestRouter(t, h, []Route{{"page/:id", "page"}})

	d, err := r.Navigate(context.Background(), "#page/1", WithoutTrigger())
	if err != nil || d != nil {
		t.Fatalf("Navigate = %v, %v", d, err)
	}
	if h.routeCalls != 0 {
		t.Error("handler ran without trigger")
	}
	if r.Fragment() != "page/1" {
		t.Errorf("Fragment() = %q", r.Fragment())
	}
}

func TestNavigateErrors(t *testing.T) {
	h := newHarness()
	r := newTestRouter(t, h, []Route{{"page/:id", "page"}})

	if _, err := r.Navigate(context.Background(), "missing"); !errors.Is(err, ErrNoMatch) {
		t.Errorf("err = %v, want ErrNoMatch", err)
	}
	if err := r.Route("x", "nope"); !errors.Is(err, ErrUnknownHandler) {
		t.Errorf("err = %v, want ErrUnknownHandler", err)
	}
	if err := r.Route("x(", "page"); !errors.Is(err, ErrInvalidPattern) {
		t.Errorf("err = %v, want ErrInvalidPattern", err)
	}

	r.Handle("page", nil)
	if _, err := r.Navigate(context.Background(), "page/1"); !errors.Is(err, ErrUnknownHandler) {
		t.Errorf("err = %v, want ErrUnknownHandler after removing handler", err)
	}
}

func TestRouteFunc(t *testing.T) {
	r := New(WithLogger(quietLogger()))

	var got string
	err := r.RouteFunc("hello/:name", func(_ context.Context, params filter.Params) error {
		got, _ = params.Get(0)
		return nil
	})
	if err != nil {
		t.Fatalf("RouteFunc: %v", err)
	}
	navigate(t, r, "/hello/gopher")
	if got != "gopher" {
		t.Errorf("param = %q, want gopher", got)
	}
	if routes := r.Routes(); len(routes) != 1 || routes[0].Handler != "" {
		t.Errorf("Routes() = %v", routes)
	}
}

func TestMatch(t *testing.T) {
	h := newHarness()
	r := newTestRouter(t, h, []Route{{"page/:id(/:edit)", "page"}})

	route, params, ok := r.Match("#page/4/edit")
	if !ok || route.Pattern != "page/:id(/:edit)" || params.String() != "4,edit" {
		t.Errorf("Match = %v %v %v", route, params, ok)
	}
	if h.routeCalls != 0 {
		t.Error("Match must not dispatch")
	}
}

func TestNavigateIgnoresQuery(t *testing.T) {
	h := newHarness()
	r := newTestRouter(t, h, []Route{{"page/:id", "page"}, {"files/*path", "page"}})

	navigate(t, r, "page/7?tab=2")
	if h.route.String() != "7" {
		t.Errorf("page/7?tab=2 params = %q, want 7", h.route.String())
	}
	if r.Fragment() != "page/7?tab=2" {
		t.Errorf("Fragment() = %q", r.Fragment())
	}

	navigate(t, r, "files/a/b?raw=1")
	if h.route.String() != "a/b" {
		t.Errorf("files/a/b?raw=1 params = %q, want a/b", h.route.String())
	}

	_, params, ok := r.Match("files/x?y")
	if !ok || params.String() != "x" {
		t.Errorf("Match = %v %v", params, ok)
	}
}
