package app

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/vango-dev/routefilter/internal/config"
	"github.com/vango-dev/routefilter/internal/errors"
	"github.com/vango-dev/routefilter/pkg/filter"
	"github.com/vango-dev/routefilter/pkg/loop"
	"go.opentelemetry.io/otel/trace/noop"
)

const testConfig = `{
  "name": "test",
  "routes": [
    {"pattern": "", "handler": "home"},
    {"pattern": "page/:id", "handler": "page"},
    {"pattern": "held/:id", "handler": "page"}
  ],
  "before": {
    "routes": {
      "*": {"type": "deny", "param": 0, "values": ["789"]},
      "held/:id": {"type": "gate"}
    }
  },
  "after": {"all": {"type": "log"}},
  "server": {"address": ":7000", "metrics_path": "-", "events": false}
}`

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func build(t *testing.T, opts ...Option) (*App, *[]string) {
	t.Helper()
	cfg, err := config.Parse("test.json", []byte(testConfig))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	var calls []string
	opts = append([]Option{
		WithHandler("page", func(_ context.Context, p filter.Params) error {
			calls = append(calls, "page:"+p.String())
			return nil
		}),
		WithRegistry(prometheus.NewRegistry()),
		WithTracerProvider(noop.NewTracerProvider()),
	}, opts...)

	a, err := Build(cfg, quiet(), opts...)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return a, &calls
}

func TestBuildRoutesInOrder(t *testing.T) {
	a, _ := build(t)

	routes := a.Router.Routes()
	want := []string{"", "page/:id", "held/:id"}
	if len(routes) != len(want) {
		t.Fatalf("Routes() = %+v", routes)
	}
	for i, p := range want {
		if routes[i].Pattern != p {
			t.Errorf("Routes()[%d] = %q, want %q", i, routes[i].Pattern, p)
		}
	}

	names := a.Handlers()
	if len(names) != 2 || names[0] != "home" || names[1] != "page" {
		t.Errorf("Handlers() = %v, want [home page]", names)
	}
}

func TestNavigateThroughConfiguredHooks(t *testing.T) {
	a, calls := build(t)
	ctx := context.Background()

	d, err := a.Router.Navigate(ctx, "page/1")
	if err != nil || d.Status() != filter.StatusCompleted {
		t.Fatalf("page/1 = %v, %v", d.Status(), err)
	}

	d, err = a.Router.Navigate(ctx, "page/789")
	if err != nil || d.Status() != filter.StatusAborted {
		t.Fatalf("page/789 = %v, %v", d.Status(), err)
	}

	// The unconfigured "home" handler logs and completes.
	d, err = a.Router.Navigate(ctx, "")
	if err != nil || d.Status() != filter.StatusCompleted {
		t.Fatalf("home = %v, %v", d.Status(), err)
	}

	if len(*calls) != 1 || (*calls)[0] != "page:1" {
		t.Errorf("calls = %v, want [page:1]", *calls)
	}
}

func TestGateHoldsDispatch(t *testing.T) {
	a, calls := build(t)

	d, err := a.Router.Navigate(context.Background(), "held/5")
	if err != nil || d.Status() != filter.StatusPending {
		t.Fatalf("held/5 = %v, %v", d.Status(), err)
	}

	tickets := a.Gate.Pending()
	if len(tickets) != 1 || tickets[0].Route != "held/:id" {
		t.Fatalf("tickets = %+v", tickets)
	}
	if err := a.Gate.Resolve(tickets[0].ID); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if d.Status() != filter.StatusCompleted {
		t.Errorf("status after resolve = %v", d.Status())
	}
	if len(*calls) != 1 || (*calls)[0] != "page:5" {
		t.Errorf("calls = %v, want [page:5]", *calls)
	}
	if a.Tracing.Active() != 0 {
		t.Errorf("open spans = %d", a.Tracing.Active())
	}
}

func TestMetricsRecorded(t *testing.T) {
	a, _ := build(t)
	_, _ = a.Router.Navigate(context.Background(), "page/1")

	n, err := testutil.GatherAndCount(a.Registry, "routefilter_dispatches_total")
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if n != 1 {
		t.Errorf("dispatch series = %d, want 1", n)
	}
}

func TestExtraObserver(t *testing.T) {
	var kinds []filter.EventKind
	a, _ := build(t, WithObserver(filter.ObserverFunc(func(ev filter.Event) {
		kinds = append(kinds, ev.Kind)
	})))

	_, _ = a.Router.Navigate(context.Background(), "page/2")
	if len(kinds) == 0 || kinds[0] != filter.EventStarted || kinds[len(kinds)-1] != filter.EventCompleted {
		t.Errorf("events = %v", kinds)
	}
}

func TestServerConfig(t *testing.T) {
	a, _ := build(t)

	sc := a.ServerConfig()
	if sc.Address != ":7000" || sc.MetricsPath != "" || sc.Events {
		t.Errorf("ServerConfig() = %+v", sc)
	}

	_, err := a.Server()
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Code != "R300" {
		t.Errorf("Server() without loop error = %v, want R300", err)
	}

	a, _ = build(t, WithLoop(loop.New(0)))
	srv, err := a.Server()
	if err != nil || srv == nil {
		t.Errorf("Server() = %v, %v", srv, err)
	}
}

func TestBuildRejectsUnknownHookType(t *testing.T) {
	cfg := config.New()
	cfg.Before.All = &config.HookConfig{Type: "block"}

	_, err := Build(cfg, quiet(), WithRegistry(prometheus.NewRegistry()))
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Code != "R102" {
		t.Errorf("Build() error = %v, want R102", err)
	}
}

func TestEventsOriginsAllowlist(t *testing.T) {
	cfg := config.New()
	cfg.Server.EventsOrigins = []string{"https://dashboard.example"}
	a, err := Build(cfg, quiet(), WithRegistry(prometheus.NewRegistry()))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer a.Hub.Close()

	ts := httptest.NewServer(a.Hub)
	defer ts.Close()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"https://dashboard.example"}})
	if err != nil {
		t.Fatalf("allowed origin rejected: %v", err)
	}
	conn.Close()

	if _, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"https://other.example"}}); err == nil {
		t.Error("unlisted origin accepted")
	}
}
