package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/rs/cors"
	"google.golang.org/grpc"

	"github.com/twinpulse/twinpulse/internal/alerts"
	"github.com/twinpulse/twinpulse/internal/api"
	"github.com/twinpulse/twinpulse/internal/auth"
	"github.com/twinpulse/twinpulse/internal/config"
	"github.com/twinpulse/twinpulse/internal/engine"
	"github.com/twinpulse/twinpulse/internal/metrics"
	"github.com/twinpulse/twinpulse/internal/probe"
	"github.com/twinpulse/twinpulse/internal/ws"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file; built-in defaults when empty")
	envFile := flag.String("env-file", ".env", "load environment variables from this file if it exists")
	flag.Parse()

	level := new(slog.LevelVar)
	slog.SetDefault(newLogger("json", level))

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to load env file", "path", *envFile, "err", err)
		os.Exit(1)
	}

	slog.Info("twinpulse starting", "config", *configPath)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			slog.Error("failed to load config", "err", err)
			os.Exit(1)
		}
	}
	level.Set(cfg.Log.SlogLevel())
	slog.SetDefault(newLogger(cfg.Log.Format, level))

	slog.Info("config loaded",
		"machine", cfg.Machine.ID,
		"tick_interval", cfg.Telemetry.TickInterval,
		"history_capacity", cfg.Telemetry.HistoryCapacity,
		"http_port", cfg.Server.HTTPPort,
		"grpc_port", cfg.Server.GRPCPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"webhooks", len(cfg.Alerts.Webhooks),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Engine seeds its history at construction.
	eng, err := engine.New(engine.OptionsFromConfig(cfg))
	if err != nil {
		slog.Error("failed to build engine", "err", err)
		os.Exit(1)
	}

	hub := ws.New(eng, cfg.Server.CORS.AllowedOrigins)
	go hub.Run(ctx)

	notifier := alerts.NewNotifier(cfg.Machine.ID, cfg.Alerts)
	health := probe.New(eng.Snapshot().MachineStatus)

	clock := engine.NewClock(eng, cfg.Telemetry.TickInterval)
	clock.Subscribe(hub.Publish)
	clock.Subscribe(health.Observe)
	clock.Subscribe(func(u engine.Update) { notifier.Notify(u.Fired) })
	go func() {
		if err := clock.Run(ctx); err != nil {
			slog.Error("telemetry clock stopped", "err", err)
			cancel()
		}
	}()

	// Hot reload: thresholds and log level apply live. Everything else needs
	// a restart.
	if *configPath != "" {
		go func() {
			err := config.Watch(ctx, *configPath, func(next *config.Config) {
				level.Set(next.Log.SlogLevel())
				if err := eng.SetThresholds(next.Thresholds); err != nil {
					slog.Warn("config: thresholds rejected", "err", err)
					return
				}
				slog.Info("live settings applied", "level", next.Log.SlogLevel().String())
			})
			if err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
		}()
	}

	// gRPC health probe with optional API key authentication.
	var grpcSrv *grpc.Server
	if cfg.Server.GRPCPort > 0 {
		a := cfg.Server.Auth
		grpcSrv = grpc.NewServer(
			grpc.UnaryInterceptor(auth.APIKeyInterceptor(a.Mode, a.EffectiveHeader(), a.Key())),
			grpc.StreamInterceptor(auth.APIKeyStreamInterceptor(a.Mode, a.EffectiveHeader(), a.Key())),
		)
		health.Register(grpcSrv)

		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
		if err != nil {
			slog.Error("failed to listen on gRPC port",
				"port", cfg.Server.GRPCPort, "err", err)
			os.Exit(1)
		}
		go func() {
			slog.Info("gRPC health probe listening", "port", cfg.Server.GRPCPort)
			if err := grpcSrv.Serve(lis); err != nil {
				slog.Error("gRPC server stopped", "err", err)
			}
		}()
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           newHTTPHandler(cfg, eng, hub),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("twinpulse shutting down")

	health.Shutdown()
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
	notifier.Close()
}

// newLogger returns a JSON logger, or a coloured console logger for
// format "console". level stays adjustable after construction.
func newLogger(format string, level slog.Leveler) *slog.Logger {
	if format == "console" {
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// newHTTPHandler mounts the REST API, the WebSocket stream and /metrics, and
// applies API key auth and CORS.
func newHTTPHandler(cfg *config.Config, eng *engine.Engine, hub *ws.Hub) http.Handler {
	a := cfg.Server.Auth
	guard := func(h http.Handler) http.Handler {
		return auth.Middleware(a.Mode, a.EffectiveHeader(), a.Key(), h)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", guard(api.New(eng, cfg.Machine.ID)))
	mux.Handle("/ws/stream", guard(hub))
	mux.Handle("/metrics", metrics.Handler(eng, cfg.Machine.ID))

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.Server.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", a.EffectiveHeader()},
	})
	return c.Handler(mux)
}
