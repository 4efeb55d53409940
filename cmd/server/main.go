package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"unlock-relay/internal/config"
	"unlock-relay/internal/domain"
	"unlock-relay/internal/handler"
	"unlock-relay/internal/logging"
	"unlock-relay/internal/metrics"
	"unlock-relay/internal/repository"
	"unlock-relay/internal/service"
	"unlock-relay/internal/websocket"

	_ "github.com/go-kivik/kivik/v4/couchdb"

	"github.com/go-kivik/kivik/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const serviceName = "unlock-relay"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging, serviceName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	devices, err := loadRegistry(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to load device registry", "error", err)
		os.Exit(1)
	}
	deviceRepo, err := repository.NewDeviceRepository(devices)
	if err != nil {
		logger.Error("invalid device registry", "error", err)
		os.Exit(1)
	}
	logger.Info("device registry loaded", "devices", len(deviceRepo.List()))

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	eventRepo := repository.NewEventRepository()

	wsManager := websocket.NewManager(
		cfg.WebSocket.MaxConnections,
		cfg.WebSocket.WriteWait,
		cfg.WebSocket.PongWait,
		cfg.WebSocket.PingPeriod,
		logger,
	)
	go wsManager.Run(ctx)

	commandService := service.NewCommandService(deviceRepo, eventRepo,
		service.WithLogger(logger.With("component", "commands")),
		service.WithMetrics(m),
	)
	authService := service.NewAuthService(deviceRepo, cfg.Admin.APIKey, cfg.JWT.Secret, cfg.JWT.Expiration, m)
	eventService := service.NewEventService(eventRepo)
	eventService.Subscribe(wsManager.BroadcastEvent)

	r := handler.NewRouter(handler.RouterDeps{
		Commands: commandService,
		Auth:     authService,
		Events:   eventService,
		Manager:  wsManager,
		Gatherer: registry,
		CORS:     cfg.CORS,
		Logger:   logger,
	})

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting unlock relay", "addr", addr, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// loadRegistry merges the configured device sources in order: file, env,
// CouchDB. Later sources override earlier entries for the same id.
func loadRegistry(ctx context.Context, cfg *config.Config, logger *logging.Logger) ([]*domain.Device, error) {
	var devices []*domain.Device

	if cfg.Registry.File != "" {
		fromFile, err := repository.LoadDevicesFromFile(cfg.Registry.File)
		if err != nil {
			return nil, err
		}
		logger.Info("loaded devices from file", "path", cfg.Registry.File, "devices", len(fromFile))
		devices = append(devices, fromFile...)
	}

	if cfg.Registry.DeviceKeys != "" {
		fromEnv, err := repository.ParseDeviceKeys(cfg.Registry.DeviceKeys)
		if err != nil {
			return nil, fmt.Errorf("invalid DEVICE_KEYS: %w", err)
		}
		devices = append(devices, fromEnv...)
	}

	if cfg.Registry.CouchDBSource {
		couchURL := fmt.Sprintf("http://%s:%s@%s:%s",
			cfg.Database.User,
			cfg.Database.Password,
			cfg.Database.Host,
			cfg.Database.Port,
		)

		client, err := kivik.New("couch", couchURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to CouchDB: %w", err)
		}
		defer client.Close()

		loadCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		fromCouch, err := repository.NewCouchDeviceSource(client, cfg.Database.Name).LoadDevices(loadCtx)
		if err != nil {
			return nil, err
		}
		logger.Info("loaded devices from CouchDB", "host", cfg.Database.Host, "db", cfg.Database.Name, "devices", len(fromCouch))
		devices = append(devices, fromCouch...)
	}

	return devices, nil
}
