package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/abase/abase-manager/apiclient"
	"github.com/abase/abase-manager/authapi"
	"github.com/abase/abase-manager/clientstore"
	"github.com/abase/abase-manager/clientstore/memrepo"
	"github.com/abase/abase-manager/clientstore/sqliterepo"
	"github.com/abase/abase-manager/internal/config"
	apperrors "github.com/abase/abase-manager/internal/errors"
	"github.com/abase/abase-manager/internal/logging"
	"github.com/abase/abase-manager/notify"
	"github.com/abase/abase-manager/realtime"
	"github.com/abase/abase-manager/realtime/metrics"
	"github.com/abase/abase-manager/realtime/ssetransport"
	"github.com/abase/abase-manager/realtime/wstransport"
	"github.com/abase/abase-manager/session"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Watcher stopped with error")
	}
	log.Info().Msg("Watcher stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(c.GetEnv(), c.GetLogLevel())
	displayAppname(c.GetAppName())

	store, closeStore, err := openStore(c.GetStorePath())
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := context.Background()
	api := apiclient.New(c.GetAPIURL(), apiclient.WithOnError(func(e *apiclient.APIError) {
		log.Warn().Int("status", e.Status).Str("code", e.Code).Msg(e.Message)
	}))

	var opts []session.ManagerOption
	if c.GetOIDCDiscovery() && c.GetOIDCIssuer() != "" {
		provider, err := oidc.NewProvider(ctx, c.GetOIDCIssuer())
		if err != nil {
			return fmt.Errorf("oidc discovery: %w", err)
		}
		opts = append(opts, session.WithOIDCProvider(provider))
	}

	nav := session.NavigatorFunc(func(path string) {
		log.Info().Str("path", path).Msg("Navigate")
	})
	sessions, err := session.New(c, authapi.New(api), store, nav, opts...)
	if err != nil {
		return err
	}
	sessions.Attach(api)

	reg := prometheus.NewRegistry()
	metricsServer := startMetrics(c.GetMetricsAddr(), reg)

	toaster := notify.NewToaster(nil, notify.WithEnabled(c.GetRealtimeNotifications()))
	client := realtime.NewClient(sessions, newTransport(c), watchHandlers(),
		realtime.WithAutoReconnect(c.GetAutoReconnect()),
		realtime.WithReconnectInterval(c.GetReconnectInterval()),
		realtime.WithMaxReconnectAttempts(c.GetMaxReconnectAttempts()),
		realtime.WithNotifier(realtime.NotifierFunc(func(ev realtime.Event) {
			log.Info().Str("event_type", ev.Type).Str("subject_id", ev.SubjectID).RawJSON("data", nonEmptyJSON(ev.Data)).Msg("Event")
			toaster.Notify(ev)
		})),
		realtime.WithOnNotice(toaster.Show),
		realtime.WithMetrics(metrics.New(reg)),
	)
	unbind := realtime.Bind(sessions, client)

	if err := startSession(ctx, c, sessions); err != nil {
		log.Warn().Err(err).Msg("No session, waiting for stop signal")
	}

	waitForStopSignal()

	unbind()
	if c.GetStorePath() == "" {
		// Nothing survives the process, so the refresh token is revoked.
		sessions.Logout(ctx)
	}
	return shutdown(metricsServer)
}

// startSession resumes a stored session, falling back to a local login with
// the configured credentials.
func startSession(ctx context.Context, c config.Config, sessions *session.Manager) error {
	err := sessions.Restore(ctx)
	if err == nil {
		s, _ := sessions.Current()
		log.Info().Str("subject_id", s.SubjectID).Str("name", s.DisplayName).Msg("Session restored")
		return nil
	}
	if !apperrors.Is(err, apperrors.ErrNoSession) {
		log.Warn().Err(err).Msg("Stored session discarded")
	}

	if c.GetIdentifier() == "" {
		return errors.New("ABASE_IDENTIFIER is not set")
	}
	return sessions.LoginLocal(ctx, c.GetIdentifier(), c.GetSecret())
}

func openStore(path string) (clientstore.Repo, func(), error) {
	if path == "" {
		return memrepo.New(), func() {}, nil
	}
	repo, err := sqliterepo.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return repo, func() {
		if err := repo.Close(); err != nil {
			log.Err(err).Msg("Closing client store")
		}
	}, nil
}

func newTransport(c config.RealtimeConfig) realtime.Transport {
	if c.GetRealtimeTransport() == config.TransportWebSocket {
		return wstransport.New(c.GetRealtimeURL())
	}
	return ssetransport.New(c.GetRealtimeURL())
}

// watchHandlers logs a refresh for every feature area an event touches.
func watchHandlers() realtime.Handlers {
	refresh := func(area string) func() {
		return func() { log.Debug().Str("area", area).Msg("Refresh") }
	}
	return realtime.Merge(
		realtime.CadastrosHandlers(refresh("cadastros")),
		realtime.AnaliseHandlers(refresh("analise")),
		realtime.TesourariaHandlers(refresh("tesouraria")),
	)
}

func nonEmptyJSON(b []byte) []byte {
	if len(b) == 0 {
		return []byte("null")
	}
	return b
}

func startMetrics(addr string, reg *prometheus.Registry) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info().Str("addr", addr).Msg("Metrics listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Err(err).Msg("Metrics server failed")
		}
	}()
	return server
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	if server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
