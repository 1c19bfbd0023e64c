package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/nhle/readonme/internal/api"
	"github.com/nhle/readonme/internal/app"
	"github.com/nhle/readonme/internal/catalog"
	"github.com/nhle/readonme/internal/credential"
	"github.com/nhle/readonme/internal/library"
	"github.com/nhle/readonme/internal/logger"
	"github.com/nhle/readonme/internal/model"
	"github.com/nhle/readonme/internal/notify"
	"github.com/nhle/readonme/internal/review"
	"github.com/nhle/readonme/internal/session"
	"github.com/nhle/readonme/internal/store"
	"github.com/nhle/readonme/internal/stream"
	appsync "github.com/nhle/readonme/internal/sync"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "readonme: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := pflag.StringP("config", "c", model.DefaultConfigPath(), "path to the YAML config file")
	pflag.Parse()

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ring, err := credential.Open()
	if err != nil {
		return fmt.Errorf("opening keyring: %w", err)
	}

	cache, err := store.NewSQLiteStore(cfg.Cache.Path)
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	defer func() {
		if err := cache.Close(); err != nil {
			log.Warn("closing cache", zap.Error(err))
		}
	}()

	// The session reads the token the client sends, so the client takes a
	// late-bound token source.
	var sess *session.Manager
	client := api.NewClient(
		cfg.Server.BaseURL,
		cfg.RequestTimeout(),
		func(ctx context.Context) (string, error) { return sess.Token(ctx) },
		api.WithLogger(log.Named("api")),
	)
	sess = session.New(client, ring, log.Named("session"))

	inbox := notify.New(client, log.Named("notify"))
	reviews := review.New(client, log.Named("review"))
	books := library.NewService(client, cache, log.Named("library"))
	browse := catalog.NewService(client, log.Named("catalog"))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	alerts := appsync.NewTeaAlerter(0)
	dialer := stream.NewHTTPDialer(cfg.Server.BaseURL, cfg.Stream.Path, nil, log.Named("stream"))
	listener := appsync.NewListener(dialer, sess.Token, inbox,
		appsync.WithLogger(log.Named("listener")),
		appsync.WithAlerter(alerts),
		appsync.WithReconnectDelay(cfg.ReconnectDelay()),
		appsync.WithRegisterer(reg),
	)
	defer listener.Close()

	unsubscribe := sess.Subscribe(listener.SetAuthenticated)
	defer unsubscribe()

	if cfg.Debug.MetricsAddr != "" {
		srv := serveMetrics(cfg.Debug.MetricsAddr, reg, log)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	restoreCtx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout())
	if err := sess.Restore(restoreCtx); err != nil {
		log.Info("session not restored", zap.Error(err))
	}
	cancel()
	// Restore only notifies on a change; a session that was already
	// settled still needs its first cycle.
	listener.SetAuthenticated(sess.Authenticated())

	root := app.New(app.Deps{
		Session: sess,
		Inbox:   inbox,
		Reviews: reviews,
		Library: books,
		Catalog: browse,
		Stream:  listener,
		Alerts:  alerts,
		Log:     log,
		Timeout: cfg.RequestTimeout(),

		Config:     cfg,
		ConfigPath: *configPath,
	})
	defer root.Close()

	log.Info("starting", zap.String("server", cfg.Server.BaseURL))
	if _, err := tea.NewProgram(root, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("running ui: %w", err)
	}
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	return srv
}
