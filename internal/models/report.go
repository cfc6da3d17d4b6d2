package models

import (
	"time"

	"gorm.io/datatypes"
)

type ReportType string

const (
	ReportUser    ReportType = "user"
	ReportMessage ReportType = "message"
	ReportRoom    ReportType = "room"
)

type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportReviewing ReportStatus = "reviewing"
	ReportResolved  ReportStatus = "resolved"
	ReportRejected  ReportStatus = "rejected"
)

// Report is a moderation complaint filed from inside a chat room.
type Report struct {
	ID                uint         `gorm:"primaryKey" json:"id"`
	ReporterID        uint         `gorm:"not null;index" json:"reporter_id"`
	ReportedUserID    *uint        `gorm:"index" json:"reported_user_id"`
	ReportedMessageID *uint        `json:"reported_message_id"`
	ReportedRoomID    *uint        `gorm:"index" json:"reported_room_id"`
	ReportType        ReportType   `gorm:"type:varchar(20);not null" json:"report_type"`
	Reason            string       `gorm:"type:text;not null" json:"reason"`
	Status            ReportStatus `gorm:"type:varchar(20);not null;default:pending;index" json:"status"`
	AdminNotes        string       `gorm:"type:text" json:"admin_notes"`
	// Evidence is a snapshot of the latest room messages taken when the report is filed.
	Evidence  datatypes.JSON `gorm:"type:jsonb" json:"evidence"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
