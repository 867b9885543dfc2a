package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rental-backend/internal/auth"
	"rental-backend/internal/availability"
	"rental-backend/internal/cache"
	"rental-backend/internal/config"
	"rental-backend/internal/database"
	"rental-backend/internal/db"
	"rental-backend/internal/gateway"
	"rental-backend/internal/handlers"
	"rental-backend/internal/health"
	h "rental-backend/internal/http"
	"rental-backend/internal/lock"
	"rental-backend/internal/logger"
	"rental-backend/internal/middleware"
	"rental-backend/internal/notify"
	"rental-backend/internal/repositories"
	"rental-backend/internal/services"
	"rental-backend/internal/storage"
	"rental-backend/migrations"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Parse command-line flags
	port := flag.Int("port", 0, "Server port (overrides config)")
	migrateOnly := flag.Bool("migrate", false, "Run database migrations and exit")
	flag.Parse()

	// Load configuration
	cfg := config.Load()
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	log := logger.WithComponent("main")

	if *port != 0 {
		cfg.Server.Port = *port
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Database unavailable: %v", err)
	}
	defer pool.Close()
	log.Infof("Connected to database %s@%s:%d", cfg.Database.Name, cfg.Database.Host, cfg.Database.Port)

	// Run database migrations
	// Uses embedded migrations for standalone binary operation
	log.Info("Running database migrations...")
	migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = database.NewMigrator(pool, migrations.FS).RunMigrations(migrateCtx)
	cancel()
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	if *migrateOnly {
		log.Info("Migrations applied, exiting")
		return
	}

	// Initialize Redis (optional - graceful fallback to in-process locks and no cache)
	var locker lock.Locker
	var redisHealth func() bool
	if err := cache.Init(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
		log.Warnf("[Redis] Unavailable: %v (using in-process locks, caching disabled)", err)
		locker = lock.NewKeyedMutex()
	} else {
		log.Info("[Redis] Connected successfully")
		locker = lock.NewRedisLocker(cache.GetClient(), cfg.Locks.TTL)
		redisHealth = cache.IsHealthy
	}
	defer cache.Close()

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg)

	// Initialize repositories
	userRepo := repositories.NewUserRepository(pool)
	propertyRepo := repositories.NewPropertyRepository(pool)
	bookingRepo := repositories.NewBookingRepository(pool)
	paymentRepo := repositories.NewPaymentRepository(pool)
	auditRepo := repositories.NewAuditLogRepository(pool)
	loginLogRepo := repositories.NewLoginLogRepository(pool)
	txManager := db.NewTxManager(pool)

	index := availability.NewIndex(bookingRepo, locker, cfg.Locks.WaitTimeout)

	cardGateway, err := gateway.New(cfg)
	if err != nil {
		log.Fatalf("Card gateway: %v", err)
	}
	log.Infof("Card payments via %s", cardGateway.Name())

	var receipts storage.ReceiptStore
	if cfg.Receipts.Bucket != "" {
		s3Store, err := storage.NewS3ReceiptStore(ctx, cfg)
		if err != nil {
			log.Fatalf("Receipt storage: %v", err)
		}
		receipts = s3Store
	} else {
		log.Warn("RECEIPTS_BUCKET not set, receipt uploads disabled")
	}

	hub := notify.NewHub()
	go hub.Run()
	defer hub.Stop()

	// Initialize services
	userService := services.NewUserService(userRepo, jwtManager)
	propertyService := services.NewPropertyService(propertyRepo)
	bookingService := services.NewBookingService(
		bookingRepo,
		propertyRepo,
		paymentRepo,
		auditRepo,
		txManager,
		index,
		locker,
		cfg.Locks.WaitTimeout,
		hub,
	)
	paymentService := services.NewPaymentService(
		paymentRepo,
		bookingService,
		cardGateway,
		cfg.Payments.CardTimeout,
		receipts,
		cfg.Receipts.MaxBytes,
	)
	reviewService := services.NewReviewService(bookingService, paymentRepo)

	scheduler, err := services.StartCompletionJob(bookingService, cfg.Scheduler.CompletionCron)
	if err != nil {
		log.Fatalf("Completion job: %v", err)
	}
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			log.WithError(err).Warn("scheduler shutdown")
		}
	}()

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(health.NewHealthChecker(pool, redisHealth))
	authHandler := handlers.NewAuthHandler(userService, loginLogRepo)
	propertyHandler := handlers.NewPropertyHandler(propertyService, bookingService)
	bookingHandler := handlers.NewBookingHandler(bookingService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	reviewHandler := handlers.NewReviewHandler(reviewService)
	eventsHandler := handlers.NewEventsHandler(hub)
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, userRepo)

	router := h.NewRouter(authHandler, propertyHandler, bookingHandler, paymentHandler, reviewHandler, eventsHandler, healthHandler, authMiddleware)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           middleware.NewCORS(cfg)(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Server running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down...")
	case err := <-errCh:
		log.WithError(err).Error("server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown incomplete")
	}
}
