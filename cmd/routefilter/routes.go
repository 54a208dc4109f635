package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vango-dev/routefilter/internal/config"
)

func routesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the route table and hooks",
		Long: `List the configured routes in registration order, followed by the
before and after hook registries.

When more than one pattern matches a fragment, the route listed last wins.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tPATTERN\tHANDLER")
			for i, r := range a.Router.Routes() {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, displayPattern(r.Pattern), r.Handler)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			fmt.Fprintln(out)
			printHooks(out, "before", a.Config.Before)
			printHooks(out, "after", a.Config.After)
			return nil
		},
	}
}

func printHooks(w io.Writer, phase string, hc config.HooksConfig) {
	switch {
	case hc.All != nil:
		fmt.Fprintf(w, "%s: all routes -> %s\n", phase, describeHook(*hc.All))
	case len(hc.Routes) > 0:
		fmt.Fprintf(w, "%s:\n", phase)
		for _, key := range hc.Keys() {
			fmt.Fprintf(w, "  %s -> %s\n", displayPattern(key), describeHook(hc.Routes[key]))
		}
	default:
		fmt.Fprintf(w, "%s: none\n", phase)
	}
}

func describeHook(hc config.HookConfig) string {
	if hc.Type == config.HookDeny {
		return fmt.Sprintf("deny param %d in [%s]", hc.Param, strings.Join(hc.Values, ", "))
	}
	return hc.Type
}

// displayPattern shows the empty pattern readably.
func displayPattern(p string) string {
	if p == "" {
		return `""`
	}
	return p
}
