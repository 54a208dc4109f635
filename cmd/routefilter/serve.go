package main

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vango-dev/routefilter/internal/app"
	"github.com/vango-dev/routefilter/internal/errors"
	"github.com/vango-dev/routefilter/pkg/loop"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the router over HTTP",
		Long: `Start the HTTP surface for the configured router.

Endpoints:
  POST /navigate              {"fragment": "page/1"}
  GET  /routes                list routes
  POST /routes                {"pattern": "...", "handler": "..."}
  GET  /gates                 list held dispatches
  POST /gates/{id}/resolve    release a held dispatch
  POST /gates/{id}/reject     abort a held dispatch
  GET  /events                WebSocket stream of dispatch events
  GET  /metrics               Prometheus metrics

Examples:
  routefilter serve
  routefilter serve --address=127.0.0.1:9000
  routefilter serve --config=s3://configs/routefilter.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts, address)
		},
	}

	cmd.Flags().StringVarP(&address, "address", "a", "", "Listen address (default from routefilter.json)")

	return cmd
}

func runServe(cmd *cobra.Command, opts *rootOptions, address string) error {
	l := loop.New(0)
	a, err := loadApp(cmd, opts, cmd.ErrOrStderr(), app.WithLoop(l))
	if err != nil {
		return err
	}
	if address != "" {
		a.Config.Server.Address = address
	}

	srv, err := a.Server()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	loopErr := make(chan error, 1)
	go func() {
		loopErr <- l.Run(ctx)
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "%s listening on %s (%d routes)\n",
		a.Config.Name, a.Config.Server.Address, len(a.Router.Routes()))

	if err := srv.Run(ctx); err != nil {
		return errors.New("R300").WithDetail(err.Error()).Wrap(err)
	}

	cancel()
	if err := <-loopErr; err != nil && !stderrors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
