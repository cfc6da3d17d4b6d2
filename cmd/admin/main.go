package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"lingochat/backend/internal/auth"
	"lingochat/backend/internal/chathub"
	"lingochat/backend/internal/config"
	"lingochat/backend/internal/localization"
	"lingochat/backend/internal/models"
	"lingochat/backend/internal/moderation"
	"lingochat/backend/internal/storage"
	"lingochat/backend/internal/telegram"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const usage = `Usage: admin <command> [args]

  token <user_id> [hours]                 issue an access token (24h by default)
  ban <user_id> [hours]                   ban a user (24h by default)
  unban <user_id>
  reports [status]                        list reports, all statuses when omitted
  resolve <report_id> <status> [notes]    status: reviewing, resolved or rejected
  leave <room_id> <user_id>               remove a user from a room`

const defaultHours = 24

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	}
	s := storage.NewStorageService(db, rdb)

	ctx := context.Background()
	command, args := os.Args[1], os.Args[2:]

	switch command {
	case "token":
		requireArgs(args, 1, "admin token <user_id> [hours]")
		userID := mustID(args[0])
		token, err := issueToken(ctx, s, cfg.JWTSecret, userID, optionalHours(args, 1))
		if err != nil {
			log.Fatalf("Error issuing token: %v", err)
		}
		fmt.Println(token)
	case "ban":
		requireArgs(args, 1, "admin ban <user_id> [hours]")
		userID := mustID(args[0])
		hours := optionalHours(args, 1)
		if err := s.BanUser(ctx, userID, time.Duration(hours)*time.Hour); err != nil {
			log.Fatalf("Error banning user: %v", err)
		}
		fmt.Printf("User %d has been banned for %dh.\n", userID, hours)
	case "unban":
		requireArgs(args, 1, "admin unban <user_id>")
		userID := mustID(args[0])
		if err := s.UnbanUser(ctx, userID); err != nil {
			log.Fatalf("Error unbanning user: %v", err)
		}
		fmt.Printf("User %d has been unbanned.\n", userID)
	case "reports":
		var status models.ReportStatus
		if len(args) > 0 {
			status = models.ReportStatus(args[0])
		}
		reports, err := newModeration(s).List(ctx, status)
		if err != nil {
			log.Fatalf("Error listing reports: %v", err)
		}
		printReports(reports)
	case "resolve":
		requireArgs(args, 2, "admin resolve <report_id> <status> [notes]")
		reportID := mustID(args[0])
		notes := strings.Join(args[2:], " ")
		report, err := newModeration(s).Resolve(ctx, reportID, models.ReportStatus(args[1]), notes)
		if err != nil {
			log.Fatalf("Error resolving report: %v", err)
		}
		fmt.Printf("Report %d is now %s.\n", report.ID, report.Status)
	case "leave":
		requireArgs(args, 2, "admin leave <room_id> <user_id>")
		roomID, userID := mustID(args[0]), mustID(args[1])
		if err := leaveRoom(ctx, s, cfg, roomID, userID); err != nil {
			log.Fatalf("Error leaving room: %v", err)
		}
		fmt.Printf("User %d has left room %d.\n", userID, roomID)
	default:
		fmt.Println("Unknown command")
		fmt.Println(usage)
		os.Exit(1)
	}
}

func requireArgs(args []string, n int, help string) {
	if len(args) < n {
		fmt.Println("Usage:", help)
		os.Exit(1)
	}
}

func mustID(raw string) uint {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		fmt.Printf("Invalid id %q. Please provide a positive integer.\n", raw)
		os.Exit(1)
	}
	return uint(id)
}

func optionalHours(args []string, i int) int {
	if len(args) <= i {
		return defaultHours
	}
	hours, err := strconv.Atoi(args[i])
	if err != nil || hours <= 0 {
		fmt.Println("Invalid duration. Please provide a positive number of hours.")
		os.Exit(1)
	}
	return hours
}

// issueToken checks the user exists before signing a token for them.
func issueToken(ctx context.Context, s *storage.Service, secret string, userID uint, hours int) (string, error) {
	if _, err := s.GetUserByID(ctx, userID); err != nil {
		return "", err
	}
	return auth.NewAuthenticator(secret, s).GenerateToken(userID, time.Duration(hours)*time.Hour)
}

func newModeration(s *storage.Service) *moderation.Service {
	return moderation.NewService(s, telegram.NopAlerter{}, nil)
}

// leaveRoom runs the same leave flow as the REST endpoint. With Redis configured the
// room_event reaches connected clients through the relay.
func leaveRoom(ctx context.Context, s *storage.Service, cfg *config.Config, roomID, userID uint) error {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	loc, err := localization.Default()
	if err != nil {
		return err
	}

	hub := chathub.NewManagerService(s, auth.NewAuthenticator(cfg.JWTSecret, s), loc, chathub.Options{
		PersistTimeout: cfg.PersistTimeout,
		Language:       cfg.DefaultLanguage,
	})
	if s.Redis != nil {
		relay := chathub.NewRelay(s, hub.Group, cfg.NodeID)
		defer relay.Close()
		hub.SetRelay(relay)
	}
	return hub.LeaveRoom(ctx, roomID, user)
}

func printReports(reports []models.Report) {
	if len(reports) == 0 {
		fmt.Println("No reports.")
		return
	}
	for _, r := range reports {
		fmt.Printf("#%d\t%s\t%s\treporter=%d\t%s\t%s\n",
			r.ID, r.Status, r.ReportType, r.ReporterID, r.CreatedAt.Format(time.RFC3339), r.Reason)
	}
}
