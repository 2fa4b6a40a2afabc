package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jrsteele09/go-sink-client/session"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewKeepCommand runs the Session Keeper in the foreground until interrupted
// or until the session ends.
func NewKeepCommand(rootOpts *RootOptions) *cobra.Command {
	var interval time.Duration
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "keep",
		Short: "Keep the session alive by refreshing it on a fixed cadence",
		Long: `Refresh the stored session every --interval (default SINK_REFRESH_INTERVAL,
4 minutes) until SIGINT/SIGTERM or until a refresh fails and the session ends.
With --metrics-addr the refresh and logout counters are served on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			if !cmd.Flags().Changed("interval") {
				interval = rootOpts.Config.GetRefreshInterval()
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return rootOpts.withApp(ctx, out, func(a *app) error {
				if metricsAddr != "" {
					server := &http.Server{Addr: metricsAddr, Handler: metricsHandler(a)}
					go listenAndServe(server)
					defer shutdown(server)
				}

				keeper := session.NewKeeper(a.session, interval, session.WithKeeperMetrics(a.metrics))
				keeper.Start(ctx)
				defer keeper.Stop()
				out.Notice("Keeping session alive, refreshing every %s", interval)

				select {
				case <-ctx.Done():
					return out.Success(map[string]string{"stopped": "signal"}, "Stopped")
				case <-a.sessionEnded():
					_ = out.Error(codeSession, "Session ended", nil)
					return NewExitError(ExitLoginNeeded, "session ended")
				}
			})
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", session.DefaultRefreshInterval, "refresh cadence")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	return cmd
}

func metricsHandler(a *app) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	return mux
}

func listenAndServe(server *http.Server) {
	log.Info().Str("addr", server.Addr).Msg("Serving metrics")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Err(err).Msg("Metrics server stopped")
	}
}

func shutdown(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Err(err).Msg("Metrics server shutdown")
	}
}
