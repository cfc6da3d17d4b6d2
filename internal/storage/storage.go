package storage

import (
	"context"
	"errors"
	"lingochat/backend/internal/models"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrNoBroker is returned by broker calls when Redis is not configured.
	ErrNoBroker = errors.New("redis broker not configured")
)

type UserStore interface {
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	IsUserBanned(ctx context.Context, id uint) (bool, error)
	BanUser(ctx context.Context, id uint, duration time.Duration) error
	UnbanUser(ctx context.Context, id uint) error
}

type RoomStore interface {
	GetRoomByID(ctx context.Context, id uint) (*models.ChatRoom, error)
	ListRoomsForUser(ctx context.Context, userID uint) ([]models.ChatRoom, error)
	// GetParticipantStatus returns nil without error when no status row exists.
	GetParticipantStatus(ctx context.Context, roomID, userID uint) (*models.ParticipantStatus, error)
	// IsParticipantActive treats a missing status row as active.
	IsParticipantActive(ctx context.Context, roomID, userID uint) (bool, error)
	DeactivateParticipant(ctx context.Context, roomID, userID uint) error
}

type MessageStore interface {
	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessageByID(ctx context.Context, id uint) (*models.Message, error)
	ListMessages(ctx context.Context, roomID, beforeID uint, limit int) ([]models.Message, error)
	MarkRoomRead(ctx context.Context, roomID, userID uint) (int64, error)
	AddReaction(ctx context.Context, messageID, userID uint) (bool, error)
	RemoveReaction(ctx context.Context, messageID, userID uint) (bool, error)
	ListReactions(ctx context.Context, roomID uint) ([]models.HeartReaction, error)
}

type ReportStore interface {
	SaveReport(ctx context.Context, report *models.Report) error
	GetReportByID(ctx context.Context, id uint) (*models.Report, error)
	ListReports(ctx context.Context, status models.ReportStatus) ([]models.Report, error)
	UpdateReport(ctx context.Context, report *models.Report) error
	CountReportsByStatus(ctx context.Context, status models.ReportStatus) (int64, error)
}

type Broker interface {
	PublishEvent(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) *redis.PubSub
}

// Storage is everything the service binaries need from PostgreSQL and Redis.
type Storage interface {
	UserStore
	RoomStore
	MessageStore
	ReportStore
	Broker
	Ping(ctx context.Context) error
}

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// NewStorageService Constructor. rdb may be nil.
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
	}
}

// AutoMigrate creates or updates every table the messaging core touches.
func (s *Service) AutoMigrate() error {
	return s.DB.AutoMigrate(
		&models.User{},
		&models.ChatRoom{},
		&models.ParticipantStatus{},
		&models.Message{},
		&models.ReadStatus{},
		&models.HeartReaction{},
		&models.Report{},
	)
}

// Ping checks PostgreSQL and, when configured, Redis.
func (s *Service) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return err
	}
	if s.Redis != nil {
		return s.Redis.Ping(ctx).Err()
	}
	return nil
}

// GetUserByID loads an identity record.
func (s *Service) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		log.Printf("ERROR: Failed to load user %d: %v", id, err)
		return nil, err
	}
	return &user, nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
