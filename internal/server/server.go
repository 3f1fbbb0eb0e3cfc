// FilePath: internal/server/server.go
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rainwatch/rainhub/api"
	"github.com/rainwatch/rainhub/internal/config"
	"github.com/rainwatch/rainhub/internal/database"
	"github.com/rainwatch/rainhub/internal/events"
	"github.com/rainwatch/rainhub/internal/hubservice"
	"github.com/rainwatch/rainhub/internal/monitoring"
	"github.com/rainwatch/rainhub/internal/repository/files"
	"github.com/rainwatch/rainhub/internal/repository/postgres"
	"github.com/rainwatch/rainhub/internal/repository/timescale"
	"github.com/rainwatch/rainhub/internal/weather"
	nuts "github.com/vaudience/go-nuts"
)

// Server represents our HTTP server
type Server struct {
	config     *config.Config
	srv        *http.Server
	hubservice *hubservice.HubService
	monitoring *monitoring.Service
}

// New creates a new server instance
func New(cfg *config.Config) *Server {
	return &Server{config: cfg}
}

// Start begins listening for requests
func (s *Server) Start() error {
	// Initialize database connections
	tsdb := initTimescaleDB(s.config.Database.TimescaleDB)
	appDB := initAppDB(s.config.Database.AppDB)

	// Initialize services
	s.hubservice = initializeHubService(s.config, appDB, tsdb)
	s.monitoring = monitoring.NewService()

	weatherSvc := initializeWeather(s.config, appDB)

	// Set up cleanup event handlers
	s.setupCleanupHandlers()

	// Assemble router
	router := api.NewRouter(s.hubservice, weatherSvc, s.config)
	router.ServeUploads(s.hubservice.Blobs.BasePath())

	s.srv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port),
		Handler:      router.Handler(),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}

	// Start server
	go func() {
		nuts.L.Infof("[Server] Starting server on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			nuts.L.Errorf("[Server] Error starting server: %v", err)
			os.Exit(1)
		}
	}()

	return s.waitForShutdown()
}

// waitForShutdown waits for interrupt signal and gracefully shuts down the server
func (s *Server) waitForShutdown() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	nuts.L.Infof("[Server] Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}

	nuts.L.Infof("[Server] Server shut down successfully")
	return nil
}

func (s *Server) setupCleanupHandlers() {
	// Handle device deletion events
	s.hubservice.Cleanup.OnCleanup("device.deleted", func(key string) {
		nuts.L.Infof("[Cleanup] Device %s and all associated data deleted", key)
		s.monitoring.RecordEvent("device_deletion", map[string]string{
			"device_key": key,
		})
	})

	// Handle image deletion events
	s.hubservice.Cleanup.OnCleanup("images.deleted", func(key string) {
		nuts.L.Infof("[Cleanup] All images for device %s deleted", key)
		s.monitoring.RecordEvent("images_deletion", map[string]string{
			"device_key": key,
		})
	})
}

// initializeHubService creates and configures the hub service
func initializeHubService(cfg *config.Config, appDB, tsdb database.DB) *hubservice.HubService {
	// Initialize repositories
	devices, err := postgres.NewDeviceRepository(appDB)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to initialize device repository: %v", err)
	}
	images, err := postgres.NewImageRepository(appDB)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to initialize image repository: %v", err)
	}
	rain, err := timescale.NewRainReadingRepository(tsdb)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to initialize rain reading repository: %v", err)
	}

	blobs, err := files.NewStore(files.StoreConfig{
		BasePath:     cfg.FileStore.BasePath,
		PublicPrefix: cfg.FileStore.PublicPrefix,
	})
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to initialize blob store: %v", err)
	}

	// Event fan-out over redis pub/sub
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	publisher, err := events.NewRedisPublisher(ctx, cfg.Redis)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to connect event publisher: %v", err)
	}

	// Create and return hub service
	return hubservice.New(devices, rain, images, blobs, publisher, cfg.FileStore)
}

func initializeWeather(cfg *config.Config, appDB database.DB) *weather.Service {
	cache, err := postgres.NewWeatherCacheRepository(appDB)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to initialize weather cache repository: %v", err)
	}
	provider := weather.NewOpenWeatherProvider(cfg.Weather)
	return weather.NewService(cache, provider, cfg.Weather.CacheTTL)
}

func initTimescaleDB(cfg config.PostgresConfig) database.DB {
	wrappedDB, err := database.NewTimescaleDB(cfg)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to connect to TimescaleDB: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wrappedDB.Ping(ctx); err != nil {
		nuts.L.Fatalf("[Server] Failed to ping TimescaleDB: %v", err)
	}
	return wrappedDB
}

func initAppDB(cfg config.PostgresConfig) database.DB {
	wrappedDB, err := database.NewPostgresDB(cfg)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to connect to AppDB: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wrappedDB.Ping(ctx); err != nil {
		nuts.L.Fatalf("[Server] Failed to ping AppDB: %v", err)
	}
	return wrappedDB
}
