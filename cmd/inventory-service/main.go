package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/labstock/labstock-backend/internal/inventory/events"
	"github.com/labstock/labstock-backend/internal/inventory/handler"
	"github.com/labstock/labstock-backend/internal/inventory/repository"
	"github.com/labstock/labstock-backend/internal/inventory/service"
	"github.com/labstock/labstock-backend/pkg/config"
	"github.com/labstock/labstock-backend/pkg/database"
	"github.com/labstock/labstock-backend/pkg/httputil"
	"github.com/labstock/labstock-backend/pkg/logger"
	"github.com/labstock/labstock-backend/pkg/messaging"
)

const serviceName = "inventory-service"

func main() {
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(serviceName, cfg.Server.Environment)

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// The broker is optional: without it the service runs with event
	// publishing disabled.
	var publisher *messaging.Publisher
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Warn().Err(err).Msg("rabbitmq unavailable, events disabled")
	} else {
		defer rmq.Close()
		publisher, err = messaging.NewPublisher(rmq, messaging.ExchangeInventoryEvents, serviceName, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to create publisher, events disabled")
			publisher = nil
		}
	}

	reagentRepo := repository.NewReagentRepository(db)
	lotRepo := repository.NewLotRepository(db)
	historyRepo := repository.NewHistoryRepository(db)

	var eventPublisher *events.InventoryEventPublisher
	if publisher != nil {
		eventPublisher = events.NewInventoryEventPublisher(publisher, log)
	}

	inventoryService := service.NewInventoryService(reagentRepo, lotRepo, historyRepo, eventPublisher, log)
	ledgerService := service.NewLedgerService(db, reagentRepo, lotRepo, historyRepo, eventPublisher, log)

	router := chi.NewRouter()
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", "X-Actor"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	router.Use(httputil.RequestID)
	router.Use(httputil.Logger(log))
	router.Use(httputil.Recoverer(log))
	router.Use(httputil.ActorMiddleware)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := map[string]interface{}{
			"service":  serviceName,
			"database": db.Health(r.Context()),
		}
		if rmq != nil {
			health["rabbitmq"] = rmq.Health()
		}
		httputil.JSON(w, http.StatusOK, health)
	})

	router.Route("/api/v1", func(r chi.Router) {
		handler.NewScanHandler(inventoryService, log).RegisterRoutes(r)
		handler.NewReagentHandler(inventoryService, ledgerService, log).RegisterRoutes(r)
		handler.NewLedgerHandler(ledgerService, log).RegisterRoutes(r)
		handler.NewHistoryHandler(inventoryService, log).RegisterRoutes(r)
		handler.NewOrderHandler(inventoryService, log).RegisterRoutes(r)
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("starting inventory service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	log.Info().Msg("server stopped")
}
