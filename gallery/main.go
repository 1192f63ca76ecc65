package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"

	"golang.org/x/sync/errgroup"

	"morty.dev/characters/gallery/adapters/auth"
	"morty.dev/characters/gallery/adapters/db"
	"morty.dev/characters/gallery/adapters/events"
	gallerygrpc "morty.dev/characters/gallery/adapters/grpc"
	"morty.dev/characters/gallery/adapters/janitor"
	"morty.dev/characters/gallery/adapters/memory"
	"morty.dev/characters/gallery/adapters/rest"
	"morty.dev/characters/gallery/adapters/rest/middleware"
	"morty.dev/characters/gallery/adapters/rickmorty"
	"morty.dev/characters/gallery/config"
	"morty.dev/characters/gallery/core"
)

const driverMemory = "memory"

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "server configuration file")
	flag.Parse()

	cfg := config.MustLoad(configPath)
	log := mustMakeLogger(cfg.LogLevel)

	// Graceful shutdown using Ctrl+C
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
}

type kvStore interface {
	core.KV
	core.Pinger
}

// openStore returns the favorites store and a function releasing it.
func openStore(log *slog.Logger, cfg config.DBConfig) (kvStore, func(), error) {
	switch cfg.Driver {
	case driverMemory:
		return memory.New(), func() {}, nil
	case db.DriverPostgres, db.DriverSQLite:
		store, err := db.New(log, cfg.Driver, cfg.Address)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to db: %w", err)
		}
		if err := store.Migrate(); err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("failed to migrate db: %w", err)
		}
		return store, func() {
			if err := store.Close(); err != nil {
				log.Error("failed to close db", "error", err)
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown db driver %q", cfg.Driver)
	}
}

// newAuth builds the session signer. Without a configured secret the key is
// kept in the store so cookies stay valid across restarts.
func newAuth(ctx context.Context, store core.KV, cfg config.SessionConfig) (*auth.Service, error) {
	secret, err := auth.LoadSecret(ctx, store, cfg.Secret)
	if err != nil {
		return nil, err
	}
	svc, err := auth.New(secret, cfg.TTL)
	if err != nil {
		return nil, fmt.Errorf("failed to init auth service: %w", err)
	}
	return svc, nil
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	log.Info("starting gallery server")
	log.Debug("debug messages are enabled")

	// KV adapter
	store, closeStore, err := openStore(log, cfg.DB)
	if err != nil {
		return err
	}
	defer closeStore()

	// Character API adapter
	chars, err := rickmorty.NewClient(cfg.API.URL, cfg.API.Timeout, cfg.API.Attempts, log)
	if err != nil {
		return fmt.Errorf("failed to create api client: %w", err)
	}

	pingers := map[string]core.Pinger{
		"api": chars,
		"kv":  store,
	}
	opts := []core.Option{core.WithFilterConcurrency(cfg.FilterConcurrency)}

	// nats publisher
	if cfg.BrokerAddress != "" {
		pub, err := events.NewPublisher(log, cfg.BrokerAddress)
		if err != nil {
			return fmt.Errorf("failed to connect to nats: %w", err)
		}
		defer pub.Close()
		pingers["broker"] = pub
		opts = append(opts, core.WithEvents(pub))
	}

	authSvc, err := newAuth(ctx, store, cfg.Session)
	if err != nil {
		return err
	}

	// Core service
	sessions, err := core.NewSessions(log, chars, store, opts...)
	if err != nil {
		return fmt.Errorf("failed to create sessions: %w", err)
	}
	defer sessions.Close()

	idle := janitor.New(log, sessions, cfg.Session.Idle)
	idle.Start(ctx)
	defer idle.Stop()

	tmpl, err := rest.ParseTemplates()
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}

	sessionMw := middleware.SessionMiddleware(log, authSvc)
	concurrencyLimiter := middleware.NewConcurrencyLimiter(cfg.RequestConcurrency, cfg.HTTPConfig.Timeout)
	rateLimiter := middleware.NewRateLimiter(ctx, cfg.EventRate)

	mux := http.NewServeMux()

	mux.Handle("GET /{$}", sessionMw(rest.NewPageHandler(log, tmpl)))
	mux.Handle("GET /api/ping", rest.NewPingHandler(log, pingers))

	mux.Handle("POST /api/events/start", sessionMw(concurrencyLimiter.Wrap(rest.NewStartHandler(log, sessions, tmpl))))
	mux.Handle("POST /api/events/input", sessionMw(concurrencyLimiter.Wrap(rest.NewInputHandler(log, sessions, tmpl))))
	mux.Handle("POST /api/events/scroll", sessionMw(rateLimiter.Wrap(rest.NewScrollHandler(log, sessions, tmpl))))
	mux.Handle("POST /api/events/filter", sessionMw(concurrencyLimiter.Wrap(rest.NewFilterHandler(log, sessions, tmpl))))
	mux.Handle("POST /api/events/refresh", sessionMw(concurrencyLimiter.Wrap(rest.NewRefreshHandler(log, sessions, tmpl))))

	mux.Handle("POST /api/favorites/{id}/toggle", sessionMw(rest.NewToggleHandler(log, sessions)))
	mux.Handle("GET /api/favorites", sessionMw(rest.NewFavoritesHandler(log, sessions)))

	httpLis, err := net.Listen("tcp", cfg.HTTPConfig.Address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	grpcLis, err := net.Listen("tcp", cfg.GRPCAddress)
	if err != nil {
		_ = httpLis.Close()
		return fmt.Errorf("failed to listen: %w", err)
	}

	server := http.Server{
		ReadTimeout: cfg.HTTPConfig.Timeout,
		Handler:     mux,
	}
	healthSrv := gallerygrpc.NewServer(log, pingers, 0)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Running HTTP server", "address", httpLis.Addr().String())
		if err := server.Serve(httpLis); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Info("Running gRPC health server", "address", grpcLis.Addr().String())
		if err := healthSrv.Serve(gctx, grpcLis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Debug("shutting down server")
		if err := server.Shutdown(context.Background()); err != nil {
			log.Error("erroneous shutdown", "error", err)
		}
		return nil
	})
	return g.Wait()
}

func mustMakeLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "ERROR":
		level = slog.LevelError
	default:
		panic("unknown log level: " + levelStr)
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
