package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"game-prereg-system/config"
	"game-prereg-system/database"
	"game-prereg-system/handlers"
	"game-prereg-system/middleware"
	"game-prereg-system/services"
	"game-prereg-system/utils"
	"game-prereg-system/workers"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	cfg := config.LoadConfig()

	loc, err := time.LoadLocation(cfg.Stats.Timezone)
	if err != nil {
		log.Printf("⚠️  Unknown TIMEZONE %q, counting days in UTC", cfg.Stats.Timezone)
		loc = time.UTC
	}

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		log.Fatal("failed to initialize database:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Auth attempt state: Redis when configured so every instance shares it
	var attempts services.AttemptStore
	if cfg.Redis.URL != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if _, err := redisClient.Ping(ctx).Result(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		attempts = services.NewRedisAttemptStore(redisClient, cfg.RateLimit.LockoutDuration)
		log.Println("✅ Auth rate limiting backed by Redis")
	} else {
		log.Println("⚠️  REDIS_URL not set, auth rate limiting is process-local")
		attempts = services.NewMemoryAttemptStore()
	}

	feed := services.NewLiveFeed()
	identityService := services.NewIdentityService(db)
	referralService := services.NewReferralService(db)
	rewardService := services.NewRewardService(db)
	statsService := services.NewStatsService(db, feed, loc)
	registrationService := services.NewRegistrationService(db, identityService, referralService, rewardService, statsService)

	limiter := services.NewRateLimiter(attempts, cfg.RateLimit.MaxAttempts, cfg.RateLimit.LockoutDuration)
	authProvider := services.NewAuthProviderClient(cfg.Auth.ProviderURL, cfg.Auth.ProviderKey)
	authService := services.NewAuthService(identityService, limiter, authProvider, cfg.Auth.RedirectURL)

	var reportService *services.ReportService
	if cfg.R2.Enabled() {
		uploader, err := utils.NewR2Uploader(ctx, cfg.R2.AccountID, cfg.R2.AccessKeyID, cfg.R2.AccessKeySecret, cfg.R2.Bucket)
		if err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		reportService = services.NewReportService(db, statsService, rewardService, uploader, cfg.SiteName)
	} else {
		log.Println("⚠️  R2 credentials not set, daily report export disabled")
	}

	sched, err := services.StartStatsScheduler(ctx, statsService, reportService, loc)
	if err != nil {
		log.Fatal("failed to start scheduler:", err)
	}
	defer func() {
		if err := sched.Shutdown(); err != nil {
			log.Printf("Scheduler shutdown error: %v", err)
		}
	}()

	// Cross-instance counter updates
	if database.IsPostgres(db) {
		listener := workers.NewStatsListener(cfg.Database.URL, statsService)
		go func() {
			if err := listener.Run(ctx); err != nil {
				log.Printf("❌ Stats listener failed, falling back to polling: %v", err)
				workers.PollStats(ctx, statsService, cfg.Stats.PollInterval)
			}
		}()
	} else {
		go workers.PollStats(ctx, statsService, cfg.Stats.PollInterval)
	}

	app := fiber.New(fiber.Config{
		AppName:   cfg.SiteName,
		BodyLimit: 1 * 1024 * 1024,
	})
	app.Use(recover.New())

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Accept-Language, Authorization, X-Requested-With, X-Request-ID, Cache-Control",
		ExposeHeaders:    "Content-Length, Content-Type, Retry-After",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	throttle := middleware.NewIPRateLimiter(cfg.RateLimit.IPPerSecond, cfg.RateLimit.IPBurst)
	defer throttle.Stop()

	// /s/* carries the gateway's X-User-ID; /s/admin/* also needs the service token
	secured := app.Group("/s", middleware.UserContextMiddleware())
	admin := secured.Group("/admin", middleware.ServiceTokenMiddleware(cfg.AdminServiceToken))

	handlers.SetupRegistrationRoutes(app, registrationService, identityService, throttle.Handler())
	handlers.SetupReferralRoutes(app, secured, identityService, referralService)
	handlers.SetupRewardRoutes(app, secured, rewardService)
	handlers.SetupStatsRoutes(app, statsService)
	handlers.SetupAuthRoutes(app, authService, throttle.Handler())
	handlers.SetupAdminRoutes(admin, statsService, reportService)

	app.Get("/health", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Context())
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok", "subscribers": feed.SubscriberCount()})
	})

	go func() {
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", cfg.Server.Port)
	log.Printf("✅ CORS configured for origins: %s", strings.Join(cfg.AllowedOrigins, ","))

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
