package main

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

// globals carries the persistent flags and the seams tests replace.
type globals struct {
	configPath  string
	metricsAddr string
	verbose     bool

	out        io.Writer
	prompter   Prompter
	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer
	build      func(ctx context.Context, g *globals) (*app, error)

	metricsServer *http.Server
}

func newGlobals(out io.Writer, prompter Prompter) *globals {
	return &globals{
		out:      out,
		prompter: prompter,
		gatherer: prometheus.DefaultGatherer,
		build:    buildApp,
	}
}

// withApp builds the shared clients, runs fn and releases them.
func (g *globals) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := g.build(ctx, g)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func newRootCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "grant-portal",
		Short:         "Apply for grants and review applications from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.startMetrics()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return g.stopMetrics()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.SetOut(g.out)

	flags := cmd.PersistentFlags()
	flags.StringVar(&g.configPath, "config", "", "path to a config file (default: configs/config.yaml)")
	flags.StringVar(&g.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while the command runs")
	flags.BoolVarP(&g.verbose, "verbose", "v", false, "debug logging, including spans")

	cmd.AddCommand(
		newApplyCommand(g),
		newLoginCommand(g),
		newLogoutCommand(g),
		newWhoamiCommand(g),
		newRegisterCommand(g),
		newForgotPasswordCommand(g),
		newResetPasswordCommand(g),
		newAdminCommand(g),
		newOptionsCommand(g),
		newHistoryCommand(g),
	)
	return cmd
}

// startMetrics serves /metrics and /health on --metrics-addr for the
// lifetime of the command.
func (g *globals) startMetrics() error {
	if g.metricsAddr == "" {
		return nil
	}
	ln, err := net.Listen("tcp", g.metricsAddr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	g.metricsServer = srv
	go func() { _ = srv.Serve(ln) }()
	return nil
}

// stopMetrics is safe to call more than once.
func (g *globals) stopMetrics() error {
	if g.metricsServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := g.metricsServer.Shutdown(ctx)
	g.metricsServer = nil
	return err
}
