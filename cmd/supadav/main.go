// Command supadav serves a Supabase contacts table as a read-only CardDAV
// address book.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"supadav/internal/auth"
	"supadav/internal/dav"
	"supadav/internal/platform/config"
	"supadav/internal/platform/metrics"
	"supadav/internal/storage"
	"supadav/internal/supabase"
	"supadav/internal/vcard"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	client := supabase.New(cfg.SupabaseURL, cfg.ServiceKey, cfg.AnonKey,
		supabase.WithLogger(logger))

	store := storage.New(
		countingSource{inner: client, errs: m.FetchErrors},
		storage.WithLogger(logger),
		storage.WithEncoder(vcard.NewEncoder(vcard.WithLogger(logger))))

	handler := dav.New(cfg.Prefix, store, dav.WithLogger(logger))

	authenticator := auth.NewGoTrueAuthenticator(client, logger)
	requireAuth := auth.Middleware(authenticator, cfg.Realm,
		auth.WithFailureHook(m.AuthFailures.Inc))

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Get("/.well-known/carddav", handler.ServeWellKnown)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Handle(handler.Prefix()+"*", requireAuth(m.Instrument(handler)))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting CardDAV server",
			"addr", cfg.Addr, "prefix", handler.Prefix())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// countingSource increments the fetch error counter on failed fetches.
type countingSource struct {
	inner storage.ContactSource
	errs  prometheus.Counter
}

func (c countingSource) FetchContacts(ctx context.Context) ([]vcard.ContactRecord, error) {
	records, err := c.inner.FetchContacts(ctx)
	if err != nil {
		c.errs.Inc()
	}
	return records, err
}
