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

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/skillswap/service-booking/internal/application"
	"github.com/skillswap/service-booking/internal/config"
	bookingDomain "github.com/skillswap/service-booking/internal/domain/booking"
	bookingEvents "github.com/skillswap/service-booking/internal/events"
	"github.com/skillswap/service-booking/internal/handler"
	"github.com/skillswap/service-booking/internal/repository"
	"github.com/skillswap/service-booking/internal/scheduler"
	"github.com/skillswap/service-booking/pkg/auth"
	"github.com/skillswap/service-booking/pkg/database"
	"github.com/skillswap/service-booking/pkg/health"
	"github.com/skillswap/service-booking/pkg/kafka"
	"github.com/skillswap/service-booking/pkg/logger"
	"github.com/skillswap/service-booking/pkg/middleware"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewNamed(cfg.AppEnv, "service-booking")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	policy, err := cfg.BookingConfig.Policy()
	if err != nil {
		log.Fatal("invalid booking configuration", zap.Error(err))
	}

	log.Info("starting service-booking",
		zap.String("port", cfg.Port),
		zap.Duration("overlap_buffer", policy.OverlapBuffer),
		zap.String("timezone", policy.Location.String()),
		zap.Duration("pending_ttl", policy.PendingTTL),
	)

	// Connect to database
	dbConfig := database.PostgresConfig{
		Host:     cfg.DBConfig.Host,
		Port:     cfg.DBConfig.Port,
		User:     cfg.DBConfig.User,
		Password: cfg.DBConfig.Password,
		DBName:   cfg.DBConfig.DBName,
		SSLMode:  cfg.DBConfig.SSLMode,
	}
	db, err := database.Connect(dbConfig, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(
			&repository.BookingModel{},
			&repository.CreditAccountModel{},
			&repository.WalletTransactionModel{},
			&repository.SkillModel{},
		); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(dbConfig.DatabaseURL(), "migrations", log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("failed to get sql.DB", zap.Error(err))
	}
	historyReader := repository.NewSqlxWalletHistoryReader(sqlx.NewDb(sqlDB, "pgx"))

	jwtManager := auth.NewJWTManager(
		cfg.JWTConfig.Secret,
		cfg.JWTConfig.AccessTTL,
		cfg.JWTConfig.RefreshTTL,
	)

	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()
	notifier := bookingEvents.NewKafkaNotifier(kafkaProducer, log)

	// Application services
	uow := repository.NewGormUnitOfWork(db)
	clock := application.SystemClock{}

	bookingService := application.NewBookingService(
		uow,
		bookingDomain.NewHourlyPricingStrategy(),
		notifier,
		clock,
		policy,
		log,
	)
	walletService := application.NewWalletService(uow, historyReader, clock, log)
	skillService := application.NewSkillService(uow.Skills(), clock, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	groupID := cfg.KafkaConfig.GroupPrefix + "booking-service"
	inbound := bookingEvents.NewInboundConsumer(
		cfg.KafkaConfig.Brokers,
		groupID,
		bookingService,
		skillService,
		log,
	)
	defer func() { _ = inbound.Close() }()

	go func() {
		log.Info("starting inbound event consumer")
		if err := inbound.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("inbound event consumer error", zap.Error(err))
		}
	}()

	expiryJob, err := scheduler.NewExpiryJob(bookingService, cfg.BookingConfig.ExpirySchedule, log)
	if err != nil {
		log.Fatal("failed to create expiry job", zap.Error(err))
	}
	expiryDone := make(chan struct{})
	go func() {
		defer close(expiryDone)
		expiryJob.Start(ctx)
	}()

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware())

	health.NewHandler(db, "service-booking").RegisterRoutes(router)

	handler.NewBookingHandler(bookingService).RegisterRoutes(&router.RouterGroup, jwtManager)
	handler.NewWalletHandler(walletService).RegisterRoutes(&router.RouterGroup, jwtManager)
	handler.NewSkillHandler(skillService).RegisterRoutes(&router.RouterGroup, jwtManager)
	handler.NewAdminHandler(bookingService, walletService).RegisterRoutes(&router.RouterGroup, jwtManager)

	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down service-booking...")

	// Stops the consumer and the expiry schedule.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}
	select {
	case <-expiryDone:
	case <-shutdownCtx.Done():
		log.Warn("expiry sweep still running at shutdown")
	}

	log.Info("service-booking stopped")
}
