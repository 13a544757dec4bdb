package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"mycontroller/adapters"
	"mycontroller/adapters/mydocker"
	"mycontroller/adapters/myredis"
	"mycontroller/domain"
	"mycontroller/handlers"
	"mycontroller/interfaces"
	"mycontroller/service"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/labstack/echo/v4"
)

func main() {
	// Initialize logger
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.WithPrefix(logger, "ts", log.DefaultTimestampUTC)
	logger = log.WithPrefix(logger, "caller", log.DefaultCaller)

	level.Info(logger).Log("msg", "Starting MyController service")

	// Load configuration
	config, err := LoadConfig()
	if err != nil {
		level.Error(logger).Log("msg", "Failed to load configuration", "err", err)
		os.Exit(1)
	}
	level.Info(logger).Log(
		"msg", "Configuration loaded",
		"service_port_http", config.HTTPPort,
		"base_url", config.BaseURL,
		"image", config.Workload.Image,
		"network", config.Workload.Network,
		"idle_timeout", config.Lifecycle.IdleTimeout,
		"provision_timeout", config.Lifecycle.ProvisionTimeout,
	)
	if strings.HasPrefix(config.BaseURL, "http://localhost") {
		level.Warn(logger).Log("msg", "REVERSE_PROXY_BASE_URL points at localhost; session URLs will only work from this host")
	}

	// Connect to the container runtime
	var runtime interfaces.Runtime
	{
		cli, err := mydocker.NewClient()
		if err != nil {
			level.Error(logger).Log("msg", "Failed to create container runtime client", "err", err)
			os.Exit(1)
		}
		if err := mydocker.Ping(context.Background(), cli, 5*time.Second); err != nil {
			level.Error(logger).Log("msg", "Failed to connect to container runtime", "err", err)
			os.Exit(1)
		}
		level.Info(logger).Log("msg", "Connected to container runtime")

		runtime = mydocker.DockerRuntime(cli, config.Workload.Network, config.Workload.InternalPort, logger)
	}

	// Session journal (optional, enables crash recovery)
	var journal interfaces.Cache[domain.SessionRecord]
	if config.Redis.Addr != "" {
		redisClient, err := myredis.NewRedisUniversalClient(config.Redis.Addr)
		if err != nil {
			level.Error(logger).Log("msg", "Failed to create Redis client", "err", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			level.Error(logger).Log("msg", "Failed to connect to Redis", "err", err)
			os.Exit(1)
		}
		level.Info(logger).Log("msg", "Connected to Redis, session journal enabled")

		marshal := func(r domain.SessionRecord) ([]byte, error) { return json.Marshal(r) }
		unmarshal := func(b []byte) (domain.SessionRecord, error) {
			var r domain.SessionRecord
			err := json.Unmarshal(b, &r)
			return r, err
		}
		journal = myredis.NewCache[domain.SessionRecord](redisClient, "session", marshal, unmarshal)
	} else {
		level.Info(logger).Log("msg", "REDIS_ADDR not set, session journal disabled")
	}

	// Route table (optional declarative registration; labels always apply)
	var routeTable interfaces.RouteTable
	if config.ProxyRegistrationURL != "" {
		routeTable = adapters.RouteTableHTTP(config.ProxyRegistrationURL, &http.Client{Timeout: 10 * time.Second})
		level.Info(logger).Log("msg", "Declarative route registration enabled", "url", config.ProxyRegistrationURL)
	} else {
		routeTable = adapters.NopRouteTable()
	}

	// Build the controller
	registry := service.NewRegistry(service.NewTimeProvider(time.Now))
	publisher := service.NewRoutePublisher(routeTable, config.Workload, registry.Snapshot, logger)
	controller := service.NewLifecycleManager(
		registry,
		runtime,
		publisher,
		journal,
		config.Workload,
		config.Lifecycle,
		service.NewTimeProvider(time.Now),
		logger,
	)

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	if err := controller.Recover(runCtx); err != nil {
		level.Error(logger).Log("msg", "Failed to recover sessions from journal", "err", err)
		os.Exit(1)
	}
	controller.Run(runCtx)
	go publisher.Run(runCtx, config.PublishInterval)

	// Create HTTPServer
	httpServer := handlers.NewHTTPServer(controller, config.BaseURL, config.Workload.StripPrefix, logger)

	// Create HTTP server (Echo)
	var e *echo.Echo
	{
		e = echo.New()
		e.HideBanner = true
		service.RegisterErrorHandler(e, logger)
		handlers.RegisterHandlers(e, httpServer)
	}

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	// Start server in a goroutine
	go func() {
		addr := fmt.Sprintf(":%d", config.HTTPPort)
		level.Info(logger).Log("msg", "Starting HTTP server", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			level.Error(logger).Log("msg", "HTTP server error", "err", err)
		}
	}()

	// Wait for interrupt signal
	<-quit
	level.Info(logger).Log("msg", "Shutting down server...")

	// Stop background loops first so no new transition races the shutdown
	runCancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		level.Error(logger).Log("msg", "Error during server shutdown", "err", err)
	}

	level.Info(logger).Log("msg", "Server stopped")
}
