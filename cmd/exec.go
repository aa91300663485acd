package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"

	"ticket-platform/config"
	"ticket-platform/internal/clock"
	"ticket-platform/internal/handlers"
	"ticket-platform/internal/services"
	"ticket-platform/internal/store"
	"ticket-platform/monitoring"
	"ticket-platform/security"
	"ticket-platform/utils"

	_ "ticket-platform/migrations"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	// Initialize PubNub (optional, realtime availability and check-in feeds)
	var pn *pubnub.PubNub
	if cfg.PubNubPublishKey != "" && cfg.PubNubSubscribeKey != "" {
		pnConfig := pubnub.NewConfig()
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey
		pn = pubnub.NewPubNub(pnConfig)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize services
	recordStore := store.New(app)
	clk := clock.System()

	inventoryService := services.NewInventoryService(recordStore, clk, cfg)
	issuerService := services.NewIssuerService(recordStore, clk, utils.GenerateValidationCode)
	validationService := services.NewValidationService(recordStore, clk, redisClient, cfg)
	availabilityService := services.NewAvailabilityService(recordStore, redisClient, cfg)
	eventService := services.NewEventService(recordStore, clk)
	ticketService := services.NewTicketService(
		recordStore,
		inventoryService,
		issuerService,
		validationService,
		availabilityService,
		redisClient,
		pn,
		cfg,
	)

	// Initialize handlers
	eventHandler := handlers.NewEventHandler(app, eventService, availabilityService)
	purchaseHandler := handlers.NewPurchaseHandler(app, ticketService)
	validationHandler := handlers.NewValidationHandler(app, ticketService, validationService)
	rateLimiter := security.NewRateLimiter(redisClient)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// Start the availability snapshot collector
	if cfg.EnableMetrics {
		monitoring.NewMonitor(ctx, redisClient, cfg.MetricsInterval)
	}

	// Setup graceful shutdown
	go handleShutdown(cancel)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Event management endpoints
		e.Router.POST("/api/v1/events", eventHandler.CreateEvent)
		e.Router.GET("/api/v1/events", eventHandler.ListEvents)
		e.Router.GET("/api/v1/events/{eventId}", eventHandler.GetEvent)
		e.Router.PUT("/api/v1/events/{eventId}", eventHandler.UpdateEvent)
		e.Router.PUT("/api/v1/ticket-types/{ticketTypeId}", eventHandler.UpdateTicketType)

		// Availability endpoint
		e.Router.GET("/api/v1/ticket-types/{ticketTypeId}/availability", eventHandler.GetAvailability).
			BindFunc(rateLimiter.AntiBot())

		// Purchase endpoints
		e.Router.POST("/api/v1/events/{eventId}/ticket-types/{ticketTypeId}/purchase", purchaseHandler.Purchase)
		e.Router.GET("/api/v1/tickets", purchaseHandler.ListTickets)

		// Validation endpoints
		e.Router.POST("/api/v1/ticket-validations", validationHandler.Validate).
			BindFunc(rateLimiter.ValidationRateLimit(60, time.Minute))
		e.Router.GET("/api/v1/tickets/{ticketId}/validations", validationHandler.History)

		// Prometheus metrics
		if cfg.EnableMetrics {
			e.Router.GET("/metrics", apis.WrapStdHandler(promhttp.Handler()))
		}

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")

		return e.Next()
	})

	return app.Start()
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
