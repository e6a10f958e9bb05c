package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/hwplan-api/internal/config"
	"github.com/noah-isme/hwplan-api/internal/database"
	"github.com/noah-isme/hwplan-api/internal/handler"
	"github.com/noah-isme/hwplan-api/internal/middleware"
	"github.com/noah-isme/hwplan-api/internal/repository"
	"github.com/noah-isme/hwplan-api/internal/router"
	"github.com/noah-isme/hwplan-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	zerolog.SetGlobalLevel(cfg.LogLevel)
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL, &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not set, calendar cache and cross-node events disabled")
	}

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Drain()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	validate := validator.New(validator.WithRequiredStructEnabled())

	itemRepo := repository.NewItemRepository(db)
	chunkRepo := repository.NewChunkRepository(db)
	runRepo := repository.NewScheduleRunRepository(db)
	userRepo := repository.NewUserRepository(db)

	events := service.NewScheduleEvents(redisClient, cfg.EventsChannel, natsConn, logger)
	events.Start(ctx)

	scheduleService := service.NewScheduleService(chunkRepo, runRepo, events, cfg.Location, logger)
	policyService := service.NewPolicyService(userRepo, cfg.DefaultPolicy(), validate, logger)
	calendarService := service.NewCalendarService(chunkRepo, redisClient, cfg.CalendarCacheTTL, cfg.Location, logger)
	itemService := service.NewItemService(itemRepo, chunkRepo, scheduleService, policyService, calendarService, events, validate, cfg.Location, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ItemHandler:           handler.NewItemHandler(itemService, logger),
		CalendarHandler:       handler.NewCalendarHandler(calendarService, logger),
		SettingsHandler:       handler.NewSettingsHandler(policyService, logger),
		ScheduleStreamHandler: handler.NewScheduleStreamHandler(events, logger),
		JWTMiddleware:         middleware.JWTProtected(cfg.JWTSecret),
		WriteRateLimiter:      middleware.RateLimit("schedule", cfg.RateLimitMax, cfg.RateLimitWindow),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	logger.Info().Str("address", cfg.HTTPAddress()).Str("timezone", cfg.Location.String()).Msg("hwplan api started")

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
