package cli

import (
	"context"
	"net/http"
	"sync"

	"github.com/jrsteele09/go-sink-client/apiclient"
	"github.com/jrsteele09/go-sink-client/credentials"
	"github.com/jrsteele09/go-sink-client/internal/config"
	"github.com/jrsteele09/go-sink-client/internal/metrics"
	"github.com/jrsteele09/go-sink-client/internal/telemetry"
	"github.com/jrsteele09/go-sink-client/session"
	"github.com/jrsteele09/go-sink-client/token"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// app is everything a command needs, built from configuration.
type app struct {
	store    credentials.Store
	session  *session.Client
	api      *apiclient.Client
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	ended     chan struct{}
	endedOnce sync.Once
	closers   []func(context.Context) error
}

func newApp(ctx context.Context, cfg config.Config, out *OutputFormatter) (*app, error) {
	a := &app{
		registry: prometheus.NewRegistry(),
		ended:    make(chan struct{}),
	}
	a.metrics = metrics.New(a.registry)
	a.closers = append(a.closers, telemetry.Setup(ctx, cfg.GetAppName(), cfg.GetOtelEndpoint(), cfg.GetOtelInsecure()))

	store, err := a.openStore(cfg)
	if err != nil {
		return nil, err
	}
	a.store = store

	log.Debug().Str("env", cfg.GetEnv()).Str("store", string(cfg.GetStoreKind())).Str("api", cfg.GetAPIBaseURL()).Msg("Session client configured")

	entryPoint := cfg.GetLoginEntryPoint()
	options := []session.ClientOption{
		session.WithBaseURL(cfg.GetAPIBaseURL()),
		session.WithHTTPClient(&http.Client{Timeout: cfg.GetRequestTimeout()}),
		session.WithMetrics(a.metrics),
		session.WithLoginRedirect(func(_ context.Context, reason error) {
			if reason == nil {
				return
			}
			a.endedOnce.Do(func() {
				out.Notice("Session ended (%s), run `%s` to sign in again.", apiclient.UserMessage(reason), entryPoint)
				close(a.ended)
			})
		}),
	}
	if issuer := cfg.GetOIDCIssuer(); issuer != "" {
		verifier, err := token.NewOIDCVerifier(ctx, issuer)
		if err != nil {
			return nil, errors.Wrap(err, "[newApp] OIDC verifier")
		}
		options = append(options, session.WithVerifier(verifier))
	}

	a.session, err = session.New(store, options...)
	if err != nil {
		return nil, err
	}
	a.api = apiclient.New(a.session, apiclient.WithTimeout(cfg.GetRequestTimeout()))
	return a, nil
}

func (a *app) openStore(cfg config.Config) (credentials.Store, error) {
	switch cfg.GetStoreKind() {
	case config.StoreMemory:
		return credentials.NewInMemoryStore(), nil
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.GetRedisPassword(),
		})
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		return credentials.NewRedisStore(client, cfg.GetRedisPrefix()), nil
	default:
		store, err := credentials.NewFileStore(cfg.GetDataFolder())
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

// sessionEnded is closed the first time the session is ended by a failure.
func (a *app) sessionEnded() <-chan struct{} {
	return a.ended
}

func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			log.Err(err).Msg("Failed to release resource")
		}
	}
}

// withApp builds the app for one command run and releases it afterwards.
func (o *RootOptions) withApp(ctx context.Context, out *OutputFormatter, run func(*app) error) error {
	a, err := newApp(ctx, o.Config, out)
	if err != nil {
		_ = out.Error(codeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "configuration", err)
	}
	defer a.close(context.WithoutCancel(ctx))
	return run(a)
}
