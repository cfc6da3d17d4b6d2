package main

import (
	"context"
	"errors"
	"lingochat/backend/internal/api/handler"
	"lingochat/backend/internal/auth"
	"lingochat/backend/internal/chathub"
	"lingochat/backend/internal/config"
	"lingochat/backend/internal/localization"
	"lingochat/backend/internal/moderation"
	"lingochat/backend/internal/storage"
	"lingochat/backend/internal/tasks"
	"lingochat/backend/internal/telegram"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const relayBackoff = 2 * time.Second

func setupDependencies(cfg *config.Config) *storage.Service {
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Fatalf("Failed to connect Redis: %v", err)
		}
	}

	s := storage.NewStorageService(db, rdb)
	if err := s.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return s
}

// setupAlerts connects the Telegram bot when configured. The bot is nil when alerts
// are disabled.
func setupAlerts(cfg *config.Config) (moderation.Alerter, *tgbotapi.BotAPI) {
	if !cfg.AlertsEnabled() {
		log.Println("WARNING: Telegram is not configured, moderation alerts are disabled")
		return telegram.NopAlerter{}, nil
	}

	bot, err := telegram.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Printf("ERROR: Telegram bot unavailable, alerts are disabled: %v", err)
		return telegram.NopAlerter{}, nil
	}
	return telegram.NewAlerter(bot, cfg.TelegramAdminChatID), bot
}

func main() {
	log.Println("Starting LingoChat Backend...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Storage and shared services
	s := setupDependencies(cfg)
	loc, err := localization.Default()
	if err != nil {
		log.Fatalf("Failed to load locales: %v", err)
	}
	authn := auth.NewAuthenticator(cfg.JWTSecret, s)

	// 2. Chat hub and cross-replica relay
	hub := chathub.NewManagerService(s, authn, loc, chathub.Options{
		PersistTimeout: cfg.PersistTimeout,
		Language:       cfg.DefaultLanguage,
	})
	if s.Redis != nil {
		relay := chathub.NewRelay(s, hub.Group, cfg.NodeID)
		hub.SetRelay(relay)
		go relay.RunWithRetry(ctx, relayBackoff)
		defer relay.Close()
	}

	// 3. Moderation, alerts and the pending-report digest
	alerts, bot := setupAlerts(cfg)
	mod := moderation.NewService(s, alerts, loc)
	if bot != nil {
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		commands := telegram.NewCommandBot(bot, cfg.TelegramAdminChatID, mod, s)
		go commands.Run(ctx, bot.GetUpdatesChan(u))
	}

	digest := tasks.NewReportDigest(s, alerts, loc)
	if err := digest.Start(cfg.ReportDigestSchedule); err != nil {
		log.Fatalf("Invalid REPORT_DIGEST_SCHEDULE %q: %v", cfg.ReportDigestSchedule, err)
	}
	defer digest.Stop()

	// 4. Gin and routing
	r := gin.Default()
	h := handler.NewHandler(hub, s, mod, loc, cfg.DefaultLanguage)
	h.RegisterRoutes(r)

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Printf("INFO: Listening on %s (node %s)", server.Addr, cfg.NodeID)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("INFO: Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Graceful shutdown failed: %v", err)
	}
}
