package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/vango-dev/routefilter/internal/app"
	"github.com/vango-dev/routefilter/internal/errors"
	"github.com/vango-dev/routefilter/pkg/filter"
	"github.com/vango-dev/routefilter/pkg/router"
	"github.com/vango-dev/routefilter/pkg/routepath"
)

// Gate modes for the navigate command.
const (
	gateHold    = "hold"
	gateResolve = "resolve"
	gateReject  = "reject"
)

func navigateCmd(opts *rootOptions) *cobra.Command {
	var (
		gate      string
		noTrigger bool
	)

	cmd := &cobra.Command{
		Use:   "navigate <fragment>...",
		Short: "Dispatch fragments through the configured hooks",
		Long: `Navigate to each fragment in turn and print the outcome.

Each line shows the fragment, the matched route, its parameters and the
final status. Dispatches held by a gate hook stay pending unless --gate
releases or rejects them.

Examples:
  routefilter navigate page/1 page/789
  routefilter navigate --gate=resolve held/5
  routefilter navigate --no-trigger page/1`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch gate {
			case gateHold, gateResolve, gateReject:
			default:
				return errors.New("R900").WithDetailf("--gate must be hold, resolve or reject, got %q", gate)
			}

			a, err := loadApp(cmd, opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			var navOpts []router.NavigateOption
			if noTrigger {
				navOpts = append(navOpts, router.WithoutTrigger())
			}

			return navigateAll(cmd.Context(), a, cmd.OutOrStdout(), args, gate, navOpts...)
		},
	}

	cmd.Flags().StringVar(&gate, "gate", gateHold, "What to do with gated dispatches: hold, resolve or reject")
	cmd.Flags().BoolVar(&noTrigger, "no-trigger", false, "Record the fragment without dispatching")

	return cmd
}

// navigateAll dispatches each fragment in order and prints the outcome. It
// returns the first navigation error, including failures of dispatches that
// resumed after the gate released them.
func navigateAll(ctx context.Context, a *app.App, out io.Writer, fragments []string, gate string, opts ...router.NavigateOption) error {
	var failed error
	for _, fragment := range fragments {
		d, err := a.Router.Navigate(ctx, fragment, opts...)
		if d != nil && d.Status() == filter.StatusPending {
			settleGate(a.Gate, gate)
			if err == nil && d.Status() == filter.StatusFailed {
				err = d.Err()
			}
		}
		printDispatch(out, fragment, d, err)
		if err != nil && failed == nil {
			failed = navigationError(err)
		}
	}
	return failed
}

// settleGate releases or rejects every held ticket according to mode.
func settleGate(g *filter.Gate, mode string) {
	for _, t := range g.Pending() {
		switch mode {
		case gateResolve:
			_ = g.Resolve(t.ID)
		case gateReject:
			_ = g.Reject(t.ID, nil)
		}
	}
}

func printDispatch(w io.Writer, fragment string, d *filter.Dispatch, err error) {
	switch {
	case d == nil && err == nil:
		fmt.Fprintf(w, "%-20s skipped\n", fragment)
	case d == nil:
		fmt.Fprintf(w, "%-20s error: %v\n", fragment, err)
	default:
		line := fmt.Sprintf("%-20s %-20s [%s] %s", fragment, d.Route(), d.Params(), d.Status())
		if reason := d.Reason(); reason != nil {
			line += fmt.Sprintf(" (%v)", reason)
		}
		if err != nil {
			line += fmt.Sprintf(": %v", err)
		}
		fmt.Fprintln(w, line)
	}
}

func navigationError(err error) *errors.Error {
	code := "R202"
	switch {
	case stderrors.Is(err, router.ErrNoMatch):
		code = "R200"
	case stderrors.Is(err, router.ErrUnknownHandler):
		code = "R201"
	case stderrors.Is(err, routepath.ErrBackslashInFragment), stderrors.Is(err, routepath.ErrNullByteInFragment):
		code = "R203"
	}
	return errors.New(code).WithDetail(err.Error()).Wrap(err)
}
