package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vango-dev/routefilter/internal/app"
	"github.com/vango-dev/routefilter/internal/config"
	"github.com/vango-dev/routefilter/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootOptions are the flags shared by all commands.
type rootOptions struct {
	config   string
	logLevel string
	noColor  bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		errors.Print(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "routefilter",
		Short: "Route dispatch with before and after hooks",
		Long: `routefilter dispatches navigation fragments to route handlers
through configurable before and after hooks.

Hooks can log, deny a dispatch based on a route parameter, or hold it
at a gate until it is released over HTTP. The route table and hook
registries are read from routefilter.json.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				errors.DisableColors()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.config, "config", "c", config.ConfigFileName,
		"Configuration file, directory or s3://bucket/key")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override the configured log level")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored error output")

	rootCmd.AddCommand(
		routesCmd(opts),
		navigateCmd(opts),
		serveCmd(opts),
		versionCmd(),
	)
	return rootCmd
}

// loadApp reads the configuration and builds the app. Logs go to w.
func loadApp(cmd *cobra.Command, opts *rootOptions, w io.Writer, appOpts ...app.Option) (*app.App, error) {
	cfg, err := config.Load(cmd.Context(), opts.config)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	logger := newLogger(cfg.Log, w)
	slog.SetDefault(logger)
	return app.Build(cfg, logger, appOpts...)
}

func newLogger(lc config.LogConfig, w io.Writer) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: lc.SlogLevel()}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}
