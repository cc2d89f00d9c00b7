package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"connecthub/integrations/internal/config"
	"connecthub/integrations/internal/handler"
	"connecthub/integrations/internal/provider"
	"connecthub/integrations/internal/repository"
	"connecthub/integrations/internal/service"
)

func main() {
	// 1. Load configuration (fails fast on missing provider credentials)
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Initialize logger
	var logger *zap.Logger
	if cfg.Log.Format == "json" {
		logger, _ = zap.NewProduction()
	} else {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	// 3. Initialize state store (Redis or in-memory)
	var stateStore repository.StateStore
	switch cfg.State.Backend {
	case "redis":
		redisClient, err := config.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		stateStore = repository.NewRedisStateStore(redisClient)
		logger.Info("using Redis state store")
	case "memory":
		stateStore = repository.NewMemoryStateStore()
		logger.Info("using in-memory state store")
	default:
		logger.Fatal("unknown state backend", zap.String("backend", cfg.State.Backend))
	}

	// 4. Initialize providers and connectors
	hubspot := provider.NewHubSpot(cfg.Providers.HubSpot)
	airtable := provider.NewAirtable(cfg.Providers.Airtable)
	notion := provider.NewNotion(cfg.Providers.Notion)

	connectors := map[string]*service.Connector{
		hubspot.Name():  service.NewConnector(hubspot, stateStore, logger),
		airtable.Name(): service.NewConnector(airtable, stateStore, logger),
		notion.Name():   service.NewConnector(notion, stateStore, logger),
	}

	// 5. Handlers and router
	integrationHandler := handler.NewIntegrationHandler(connectors, hubspot, airtable)
	router := handler.SetupRouter(cfg, logger, integrationHandler)

	// 6. HTTP server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server exited gracefully")
}
