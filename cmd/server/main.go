package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/booking-core/internal/config"
	"github.com/smarttransit/booking-core/internal/database"
	"github.com/smarttransit/booking-core/internal/handlers"
	"github.com/smarttransit/booking-core/internal/kafka"
	"github.com/smarttransit/booking-core/internal/middleware"
	"github.com/smarttransit/booking-core/internal/services"
	"github.com/smarttransit/booking-core/pkg/jwt"
	"github.com/smarttransit/booking-core/pkg/sms"
	"github.com/stripe/stripe-go/v82/client"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting SmartTransit Booking Core")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Booking store
	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to open booking store: %v", err)
	}
	defer closeStore()

	// Drafts and seat holds
	var (
		draftStore database.DraftStore
		holdStore  database.SeatHoldStore
	)
	if cfg.Redis.Addr != "" {
		logger.Infof("Connecting to Redis at %s...", cfg.Redis.Addr)
		redisClient, err := database.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer func(c *redis.Client) { _ = c.Close() }(redisClient)
		draftStore = database.NewRedisDraftStore(redisClient, cfg.Redis.KeyPrefix)
		holdStore = database.NewRedisSeatHoldStore(redisClient, cfg.Redis.KeyPrefix)
		logger.Info("Redis connection established")
	} else {
		logger.Warn("REDIS_ADDR not set, keeping drafts and seat holds in memory")
		draftStore = database.NewMemoryDraftStore()
		holdStore = database.NewMemorySeatHoldStore()
	}
	if !cfg.Booking.SeatHoldEnabled {
		holdStore = nil
	}

	// Booking events
	producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
	if err != nil {
		logger.Fatalf("Failed to create Kafka producer: %v", err)
	}
	defer producer.Close()

	// SMS gateway
	var smsGateway sms.Gateway
	if cfg.SMS.Mode == "production" {
		smsGateway = sms.NewHTTPGateway(sms.HTTPConfig{
			APIURL:             cfg.SMS.APIURL,
			Username:           cfg.SMS.Username,
			Password:           cfg.SMS.Password,
			Mask:               cfg.SMS.Mask,
			DefaultCountryCode: cfg.SMS.DefaultCountryCode,
		})
	} else {
		smsGateway = sms.NewLogGateway(logger)
	}
	logger.Infof("SMS gateway: %s", smsGateway.GetName())

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)

	layoutService := services.NewSeatLayoutService(cfg.Booking.MaxRows, services.RemainderPolicy(cfg.Booking.RemainderPolicy))
	pricingService := services.NewPricingService(services.AddOnRates{
		Insurance:       cfg.Booking.InsuranceRate,
		RefundGuarantee: cfg.Booking.RefundGuaranteeRate,
		BoardingPass:    cfg.Booking.BoardingPassRate,
	}, cfg.Booking.Currency)

	notificationService := services.NewNotificationService(smsGateway, producer, logger)
	availabilityService := services.NewAvailabilityService(store, layoutService, holdStore, logger)
	draftService := services.NewDraftService(draftStore, store, layoutService, holdStore, services.DraftConfig{
		TTL:          cfg.Booking.DraftTTL,
		HoldsEnabled: cfg.Booking.SeatHoldEnabled,
		HoldTTL:      cfg.Booking.SeatHoldTTL,
	}, logger)
	bookingService := services.NewBookingService(
		store,
		draftService,
		layoutService,
		pricingService,
		services.RandomReferenceGenerator{},
		notificationService,
		cfg.Booking.ReferenceMaxAttempts,
		logger,
	)
	lifecycleService := services.NewLifecycleService(store, notificationService, logger)
	ticketService := services.NewTicketService(store, bookingService)

	var paymentService *services.PaymentService
	if cfg.Payment.StripeSecretKey != "" {
		stripeClient := client.New(cfg.Payment.StripeSecretKey, nil)
		paymentService = services.NewPaymentService(stripeClient.PaymentIntents, bookingService, lifecycleService, logger)
		logger.Info("Stripe payments enabled")
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set, payment endpoints disabled")
	}

	cronService := services.NewCronService(lifecycleService, cfg.Booking.SweepSchedule, cfg.Booking.PendingPaymentTimeout, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}

	// Initialize handlers
	routes := handlers.Routes{
		JWT:          jwtService,
		RateLimiter:  middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, logger),
		Availability: handlers.NewAvailabilityHandler(availabilityService, logger),
		Drafts:       handlers.NewDraftHandler(draftService, bookingService, logger),
		Bookings:     handlers.NewBookingHandler(bookingService, lifecycleService, paymentService, ticketService, logger),
		Admin:        handlers.NewAdminHandler(lifecycleService, cronService, logger),
		Logger:       logger,
	}

	// Setup router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", healthCheckHandler(store))
	handlers.RegisterRoutes(router, routes)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	logger.Info("Stopping cron service...")
	cronService.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Waiting for pending notifications...")
	notificationService.Wait()

	logger.Info("Server exited successfully")
}

// openStore builds the configured booking store and its cleanup func
func openStore(cfg *config.Config, logger *logrus.Logger) (database.BookingStore, func(), error) {
	switch cfg.Storage.Driver {
	case "memory":
		logger.Warn("Using in-memory booking store, data is lost on restart")
		store := database.NewMemoryStore()
		if cfg.Storage.SeedDemo {
			tripID, err := store.SeedDemo(time.Now())
			if err != nil {
				return nil, nil, fmt.Errorf("seed demo trip: %w", err)
			}
			logger.WithField("trip_id", tripID).Info("Seeded demo trip")
		}
		return store, func() {}, nil
	default:
		logger.Info("Connecting to database...")
		db, err := database.NewConnection(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ping database: %w", err)
		}
		logger.Info("Database connection established")
		return database.NewPostgresStore(db), func() { db.Close() }, nil
	}
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": time.Since(start).Milliseconds(),
			"user_agent": c.Request.UserAgent(),
			"has_auth":   c.GetHeader("Authorization") != "",
		}

		if user, ok := middleware.GetUserContext(c); ok {
			fields["member_id"] = user.MemberID.String()
			fields["roles"] = user.Roles
		}

		entry := logger.WithFields(fields)

		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
			return
		}

		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler reports store reachability
func healthCheckHandler(store database.BookingStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
