// Package moderation files and resolves reports raised from chat rooms.
package moderation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"lingochat/backend/internal/config"
	"lingochat/backend/internal/localization"
	"lingochat/backend/internal/models"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"
)

var (
	// ErrInvalidReport wraps every validation failure of a report or a resolution.
	ErrInvalidReport = errors.New("invalid report")
	// ErrNotParticipant is returned when the reporter is not one of the room's users.
	ErrNotParticipant = errors.New("reporter is not a participant of this room")
)

// Store is the persistence the moderation service needs.
type Store interface {
	GetRoomByID(ctx context.Context, id uint) (*models.ChatRoom, error)
	GetMessageByID(ctx context.Context, id uint) (*models.Message, error)
	ListMessages(ctx context.Context, roomID, beforeID uint, limit int) ([]models.Message, error)
	SaveReport(ctx context.Context, report *models.Report) error
	GetReportByID(ctx context.Context, id uint) (*models.Report, error)
	ListReports(ctx context.Context, status models.ReportStatus) ([]models.Report, error)
	UpdateReport(ctx context.Context, report *models.Report) error
}

// Alerter pushes a plain-text notice to the moderators.
type Alerter interface {
	Alert(ctx context.Context, text string) error
}

// ReportInput is what a participant submits.
type ReportInput struct {
	ReporterID uint              `json:"-" validate:"required"`
	RoomID     uint              `json:"-" validate:"required"`
	ReportType models.ReportType `json:"report_type" validate:"required,oneof=user message room"`
	MessageID  *uint             `json:"message_id" validate:"required_if=ReportType message"`
	Reason     string            `json:"reason" validate:"required,max=1000"`
}

// evidenceMessage is one entry of the snapshot stored on a report.
type evidenceMessage struct {
	ID          uint               `json:"id"`
	SenderID    uint               `json:"sender_id"`
	Content     string             `json:"content"`
	MessageType models.MessageType `json:"message_type"`
	CreatedAt   time.Time          `json:"created_at"`
}

type Service struct {
	store     Store
	alerts    Alerter
	localizer *localization.Localizer
	validate  *validator.Validate
}

// NewService creates a moderation service. alerts may be nil.
func NewService(s Store, alerts Alerter, loc *localization.Localizer) *Service {
	return &Service{
		store:     s,
		alerts:    alerts,
		localizer: loc,
		validate:  validator.New(),
	}
}

// FileReport validates the input, snapshots the conversation and stores a pending report.
func (s *Service) FileReport(ctx context.Context, in ReportInput) (*models.Report, error) {
	in.Reason = strings.TrimSpace(in.Reason)
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}

	room, err := s.store.GetRoomByID(ctx, in.RoomID)
	if err != nil {
		return nil, err
	}
	partnerID, ok := room.PartnerOf(in.ReporterID)
	if !ok {
		return nil, ErrNotParticipant
	}

	report := &models.Report{
		ReporterID:     in.ReporterID,
		ReportedRoomID: &room.ID,
		ReportType:     in.ReportType,
		Reason:         in.Reason,
		Status:         models.ReportPending,
	}

	switch in.ReportType {
	case models.ReportMessage:
		msg, err := s.store.GetMessageByID(ctx, *in.MessageID)
		if err != nil {
			return nil, err
		}
		if msg.RoomID != room.ID || msg.SenderID == in.ReporterID {
			return nil, fmt.Errorf("%w: message %d cannot be reported from room %d", ErrInvalidReport, msg.ID, room.ID)
		}
		report.ReportedMessageID = &msg.ID
		report.ReportedUserID = &msg.SenderID
	default:
		report.ReportedUserID = &partnerID
	}

	report.Evidence, err = s.snapshot(ctx, room.ID)
	if err != nil {
		log.Printf("WARNING: Could not snapshot room %d for report: %v", room.ID, err)
	}

	if err := s.store.SaveReport(ctx, report); err != nil {
		return nil, err
	}

	log.Printf("INFO: Report %d (%s) filed by user %d in room %d", report.ID, report.ReportType, report.ReporterID, room.ID)
	s.alert(ctx, s.text("alert.report_filed", report.ReportType, report.ID, room.ID, report.ReporterID, report.Reason))
	return report, nil
}

func (s *Service) snapshot(ctx context.Context, roomID uint) (datatypes.JSON, error) {
	msgs, err := s.store.ListMessages(ctx, roomID, 0, config.ReportEvidenceMessages)
	if err != nil {
		return nil, err
	}

	evidence := make([]evidenceMessage, 0, len(msgs))
	for _, m := range msgs {
		evidence = append(evidence, evidenceMessage{
			ID:          m.ID,
			SenderID:    m.SenderID,
			Content:     m.Content,
			MessageType: m.MessageType,
			CreatedAt:   m.CreatedAt,
		})
	}

	data, err := json.Marshal(evidence)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

// Resolve moves a report to a review outcome and records the moderator's notes.
func (s *Service) Resolve(ctx context.Context, id uint, status models.ReportStatus, notes string) (*models.Report, error) {
	switch status {
	case models.ReportReviewing, models.ReportResolved, models.ReportRejected:
	default:
		return nil, fmt.Errorf("%w: status %q", ErrInvalidReport, status)
	}

	report, err := s.store.GetReportByID(ctx, id)
	if err != nil {
		return nil, err
	}

	report.Status = status
	if notes = strings.TrimSpace(notes); notes != "" {
		report.AdminNotes = notes
	}
	if err := s.store.UpdateReport(ctx, report); err != nil {
		return nil, err
	}

	log.Printf("INFO: Report %d moved to %s", report.ID, status)
	return report, nil
}

// List returns reports with the given status, or all of them for an empty status.
func (s *Service) List(ctx context.Context, status models.ReportStatus) ([]models.Report, error) {
	return s.store.ListReports(ctx, status)
}

func (s *Service) text(key string, args ...any) string {
	if s.localizer == nil {
		return fmt.Sprint(append([]any{key}, args...)...)
	}
	return s.localizer.Format(localization.FallbackLanguage, key, args...)
}

func (s *Service) alert(ctx context.Context, text string) {
	if s.alerts == nil {
		return
	}
	if err := s.alerts.Alert(ctx, text); err != nil {
		log.Printf("WARNING: Failed to send moderation alert: %v", err)
	}
}
