// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/auth"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/config"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/database"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/events"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/handler"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/logger"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/logger/sl"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/metrics"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/qrcode"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/repository"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/repository/memory"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/service"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/tracing"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config.yml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.Setup(cfg.Env)
	log.Info("starting event ticketing",
		slog.String("env", cfg.Env),
		slog.String("storage", cfg.Storage),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", sl.Err(err))
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, cfg.Env)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("tracing shutdown", sl.Err(err))
		}
	}()

	// ── 1. QR cache and event publisher (both optional) ───────────────────
	var cache qrcode.Cache
	rdb, err := qrcode.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		cache = qrcode.NewRedisCache(rdb, cfg.Redis.QRTTL)
		log.Info("qr cache enabled", slog.String("backend", "redis"))
	}
	renderer := qrcode.NewRenderer(cache, log)

	var publisher service.EventPublisher = events.Nop{}
	if cfg.AMQP.URL != "" {
		p, err := events.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			return err
		}
		defer p.Close()
		publisher = p
		log.Info("publishing ticket events", slog.String("exchange", cfg.AMQP.Exchange))
	}

	// ── 2. Storage ────────────────────────────────────────────────────────
	var deps service.Deps
	switch cfg.Storage {
	case config.StoragePostgres:
		pool, err := database.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return err
		}
		defer pool.Close()
		if cfg.Database.Migrate {
			if err := database.Migrate(ctx, pool); err != nil {
				return err
			}
		}
		timeout := cfg.Database.QueryTimeout
		deps = service.Deps{
			Tx:        database.NewTransactor(pool, timeout),
			Events:    repository.NewEventRepository(pool, timeout),
			Ledger:    repository.NewLedger(pool, timeout),
			Tickets:   repository.NewTicketRepository(pool, timeout),
			Attendees: repository.NewAttendeeRepository(pool, timeout),
		}
	case config.StorageMemory:
		store := memory.New()
		deps = service.Deps{
			Tx:        store,
			Events:    store.Events(),
			Ledger:    store.Ledger(),
			Tickets:   store.Tickets(),
			Attendees: store.Attendees(),
		}
		log.Warn("using in-memory storage; data is lost on restart")
	}

	// ── 3. Wire up layers ─────────────────────────────────────────────────
	deps.QR = renderer
	deps.Publisher = publisher
	deps.Metrics = metrics.New(prometheus.DefaultRegisterer)
	deps.Log = log

	router := handler.NewRouter(handler.RouterDeps{
		Events:   service.NewEventService(deps.Events, deps.Tickets),
		Tickets:  service.NewTicketService(deps),
		Verifier: auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Metrics:  promhttp.Handler(),
		Log:      log,
	})

	// ── 4. Serve until the context is cancelled ───────────────────────────
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ErrorLog:     slog.NewLogLogger(log.Handler(), slog.LevelError),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}
