// File: servly/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"servly/config"
	"servly/cron"
	"servly/database"
	bookingRepo "servly/database/repository/booking"
	providerRepo "servly/database/repository/provider"
	serviceRepo "servly/database/repository/service"
	"servly/handlers"
	"servly/middleware"
	"servly/routes"
	"servly/services/booking"
	"servly/services/realtime"
	"servly/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()
	utils.InitEventClient()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(cors.Default())
	router.Use(middleware.RateLimitMiddleware())

	// Repositories.
	bookings := bookingRepo.NewMongoBookingRepo()
	providers := providerRepo.NewMongoProviderRepo()
	services := serviceRepo.NewMongoServiceRepo()

	// Event fan-out: commands publish through redis, the bridge
	// relays inbound messages to local SSE subscribers.
	hub := realtime.NewHub(logger)
	bridge := realtime.NewRedisBridge(utils.GetEventClient(), hub, logger)
	bridge.Start()

	timeoutScheduler := cron.NewTimeoutScheduler()

	dispatcher := &booking.Dispatcher{
		Providers:       providers,
		Policy:          booking.DispatchPolicy(config.AppConfig.DispatchPolicy),
		Timeouts:        timeoutScheduler,
		ResponseTimeout: time.Duration(config.AppConfig.TargetedResponseTimeoutMin) * time.Minute,
		Logger:          logger,
	}

	engine := &booking.DefaultBookingEngine{
		Repo:                  bookings,
		Providers:             providers,
		Services:              services,
		Dispatch:              dispatcher,
		Events:                bridge,
		DefaultCommissionRate: config.AppConfig.DefaultCommissionRate,
		Logger:                logger,
	}

	worker := cron.InitTimeoutWorker(engine)

	bookingHandler := handlers.NewBookingHandler(engine, logger)
	providerHandler := handlers.NewProviderHandler(providers, logger)
	eventsHandler := handlers.NewEventsHandler(hub, engine, logger)
	routes.RegisterRoutes(router, bookingHandler, providerHandler, eventsHandler)

	utils.StartHealthMonitor(
		[]*redis.Client{utils.GetCacheClient(), utils.GetEventClient()},
		database.MongoClient,
	)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	worker.Shutdown()
	if err := timeoutScheduler.Close(); err != nil {
		logger.Sugar().Warnf("main: failed to close timeout scheduler: %v", err)
	}
	bridge.Stop()

	logger.Sugar().Info("main: server stopped gracefully")
}
