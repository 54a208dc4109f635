package deferred

import (
	"errors"
	"testing"
)

func TestResolveRunsCallbacksInOrder(t *testing.T) {
	d := New()

	var order []int
	d.Promise().Then(func() { order = append(order, 1) }, nil)
	d.Promise().Then(func() { order = append(order, 2) }, nil)

	if len(order) != 0 {
		t.Fatalf("callbacks ran before resolve: %v", order)
	}
	if !d.Resolve() {
		t.Fatal("expected first Resolve to settle")
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("order = %v, want [1 2]", order)
	}
	if got := d.Promise().State(); got != StateFulfilled {
		t.Errorf("state = %v, want fulfilled", got)
	}
}

func TestSettlesOnce(t *testing.T) {
	d := New()

	fulfilled, rejected := 0, 0
	d.Promise().Then(func() { fulfilled++ }, func(error) { rejected++ })

	d.Resolve()
	if d.Resolve() {
		t.Error("second Resolve should report false")
	}
	if d.Reject(errors.New("late")) {
		t.Error("Reject after Resolve should report false")
	}
	if fulfilled != 1 || rejected != 0 {
		t.Errorf("fulfilled=%d rejected=%d, want 1 and 0", fulfilled, rejected)
	}
	if d.Promise().Err() != nil {
		t.Errorf("Err() = %v, want nil", d.Promise().Err())
	}
}

func TestRejectPassesReason(t *testing.T) {
	d := New()
	want := errors.New("denied")

	var got error
	d.Promise().Then(func() { t.Error("fulfilled callback must not run") }, func(err error) { got = err })
	d.Reject(want)

	if !errors.Is(got, want) {
		t.Errorf("reason = %v, want %v", got, want)
	}
	if d.Promise().State() != StateRejected {
		t.Errorf("state = %v, want rejected", d.Promise().State())
	}
}

func TestRejectNilUsesDefaultReason(t *testing.T) {
	p := Rejected(nil)
	if !errors.Is(p.Err(), ErrRejected) {
		t.Errorf("Err() = %v, want ErrRejected", p.Err())
	}
}

func TestThenAfterSettlementRunsImmediately(t *testing.T) {
	p := Resolved()

	called := false
	p.Then(func() { called = true }, nil)
	if !called {
		t.Error("Then on a settled promise should run the callback immediately")
	}

	select {
	case <-p.Done():
	default:
		t.Error("Done should be closed after settlement")
	}
}

func TestSettleFromAnotherGoroutine(t *testing.T) {
	d := New()
	go d.Resolve()

	<-d.Promise().Done()
	if d.Promise().State() != StateFulfilled {
		t.Errorf("state = %v, want fulfilled", d.Promise().State())
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StatePending, "pending"},
		{StateFulfilled, "fulfilled"},
		{StateRejected, "rejected"},
		{State(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
