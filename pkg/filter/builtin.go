package filter

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/vango-dev/routefilter/pkg/deferred"
)

// LogHook returns a hook that logs every call and continues.
func LogHook(logger *slog.Logger) Hook {
	if logger == nil {
		logger = slog.Default()
	}
	return HookFunc(func(ctx context.Context, route string, params Params) (Outcome, error) {
		logger.InfoContext(ctx, "route dispatch", "route", route, "params", params.String())
		return Continue, nil
	})
}

// DenyParam returns a hook that aborts when the parameter at index is present
// and equals one of values.
func DenyParam(index int, values ...string) Hook {
	denied := make(map[string]struct{}, len(values))
	for _, v := range values {
		denied[v] = struct{}{}
	}
	return HookFunc(func(_ context.Context, _ string, params Params) (Outcome, error) {
		v, ok := params.Get(index)
		if !ok {
			return Continue, nil
		}
		if _, deny := denied[v]; deny {
			return Abort, nil
		}
		return Continue, nil
	})
}

// ErrUnknownTicket indicates a gate ticket does not exist or already settled.
var ErrUnknownTicket = errors.New("filter: unknown gate ticket")

// ErrGateRejected is the default reason for Gate.Reject.
var ErrGateRejected = errors.New("filter: gate rejected")

// Ticket is a dispatch held at a Gate.
type Ticket struct {
	ID      string    `json:"id"`
	Route   string    `json:"route"`
	Params  []string  `json:"params"`
	Created time.Time `json:"created"`
}

type gateEntry struct {
	ticket Ticket
	seq    uint64
	d      *deferred.Deferred
}

// Gate holds dispatches until they are explicitly resolved or rejected.
// Its hook returns a pending outcome for every call.
type Gate struct {
	mu      sync.Mutex
	seq     uint64
	pending map[string]*gateEntry
}

// NewGate creates an empty gate.
func NewGate() *Gate {
	return &Gate{pending: make(map[string]*gateEntry)}
}

// Hook returns the gate's hook.
func (g *Gate) Hook() Hook {
	return HookFunc(func(_ context.Context, route string, params Params) (Outcome, error) {
		d := deferred.New()

		g.mu.Lock()
		g.seq++
		id := "t" + strconv.FormatUint(g.seq, 10)
		g.pending[id] = &gateEntry{
			ticket: Ticket{ID: id, Route: route, Params: params.Strings(), Created: time.Now()},
			seq:    g.seq,
			d:      d,
		}
		g.mu.Unlock()

		return Pending(d.Promise()), nil
	})
}

// Pending returns the held tickets, oldest first.
func (g *Gate) Pending() []Ticket {
	g.mu.Lock()
	entries := make([]*gateEntry, 0, len(g.pending))
	for _, e := range g.pending {
		entries = append(entries, e)
	}
	g.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	tickets := make([]Ticket, len(entries))
	for i, e := range entries {
		tickets[i] = e.ticket
	}
	return tickets
}

// Resolve releases the dispatch held by ticket id.
func (g *Gate) Resolve(id string) error {
	e, err := g.take(id)
	if err != nil {
		return err
	}
	e.d.Resolve()
	return nil
}

// Reject aborts the dispatch held by ticket id.
func (g *Gate) Reject(id string, reason error) error {
	e, err := g.take(id)
	if err != nil {
		return err
	}
	if reason == nil {
		reason = ErrGateRejected
	}
	e.d.Reject(reason)
	return nil
}

func (g *Gate) take(id string) (*gateEntry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.pending[id]
	if !ok {
		return nil, ErrUnknownTicket
	}
	delete(g.pending, id)
	return e, nil
}
