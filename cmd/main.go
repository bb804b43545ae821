package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwrk-planet/chat-relay/config"
	"github.com/cwrk-planet/chat-relay/internal/memory"
	"github.com/cwrk-planet/chat-relay/internal/postgres"
	"github.com/cwrk-planet/chat-relay/internal/service"
	"github.com/cwrk-planet/chat-relay/internal/sqlite"
	grpcx "github.com/cwrk-planet/chat-relay/internal/transport/grpc"
	httpx "github.com/cwrk-planet/chat-relay/internal/transport/http"
	"github.com/cwrk-planet/chat-relay/internal/transport/ws"
	"github.com/cwrk-planet/chat-relay/pkg/logger"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.ParseEnv(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		Level:     logger.ParseLevel(cfg.Logging.Level),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting chat-relay",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version, "storage", cfg.Storage.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- storage ---
	store, closeStore, err := openStore(ctx, cfg.Storage)
	if err != nil {
		slog.Error("storage init failed", "driver", cfg.Storage.Driver, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	// --- services ---
	chatSvc, err := service.NewChatService(store)
	if err != nil {
		slog.Error("chat service init failed", "err", err)
		os.Exit(1)
	}

	// --- WS registry & server ---
	registry := ws.NewRegistry()
	wsServer := ws.NewServer(registry, chatSvc, ws.Config{
		PingInterval:   cfg.WS.PingIntervalDur(),
		WriteTimeout:   cfg.WS.WriteTimeoutDur(),
		SendBuffer:     cfg.WS.SendBuffer,
		MaxMessageSize: cfg.WS.MaxMessageSize,
	})

	// --- HTTP ---
	handler := httpx.NewHandler(chatSvc, registry)
	router := httpx.NewRouter(handler, wsServer.HandleWS, httpx.RouterOptions{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		RequestTimeout: cfg.HTTP.RequestTimeoutDur(),
	})
	httpSrv := &http.Server{
		Addr:        cfg.HTTP.Addr,
		Handler:     router,
		ReadTimeout: cfg.HTTP.ReadTimeoutDur(),
		// WriteTimeout не ставим: он обрывал бы долгие WS-сессии
		ReadHeaderTimeout: cfg.HTTP.ReadTimeoutDur(),
		IdleTimeout:       cfg.HTTP.IdleTimeoutDur(),
	}

	// --- gRPC: relay + health ---
	grpcSrv := grpcx.NewServer(chatSvc)

	// --- run both servers ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		slog.Info("grpc listen", "addr", cfg.GRPC.Addr)
		grpcSrv.SetServing(true)
		if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc: %w", err)
		}
		return nil
	})

	// --- graceful shutdown ---
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		grpcSrv.SetServing(false)

		ctxShutdown, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(ctxShutdown); err != nil {
			slog.Warn("http shutdown", "err", err)
		}
		// Shutdown не ждёт hijacked-соединения, WS закрываем сами
		if n := registry.CloseAll(); n > 0 {
			slog.Info("ws connections closed", "count", n)
		}
		grpcSrv.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("server error", "err", err)
	}
	slog.Info("stopped")
}

func openStore(ctx context.Context, cfg config.Storage) (service.Store, func(), error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := postgres.New(ctx, postgres.Config{
			DSN:               cfg.Postgres.DSN,
			MaxConns:          cfg.Postgres.MaxConns,
			MinConns:          cfg.Postgres.MinConns,
			MaxConnLifetime:   parseDuration(cfg.Postgres.MaxConnLifetime),
			MaxConnIdleTime:   parseDuration(cfg.Postgres.MaxConnIdleTime),
			HealthCheckPeriod: parseDuration(cfg.Postgres.HealthCheckPeriod),
			ApplicationName:   "chat-relay",
		})
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewStore(db), db.Close, nil

	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewStore(db), func() { _ = db.Close() }, nil

	case config.DriverMemory:
		slog.Warn("memory storage: history is lost on restart")
		return memory.NewStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

// пустое или битое значение даёт 0, и pgxpool оставляет свой дефолт
func parseDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
