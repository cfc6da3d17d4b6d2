package models

import "time"

// MessageType tags ordinary text and platform-authored messages.
type MessageType string

const (
	MessageText        MessageType = "text"
	MessageSystemJoin  MessageType = "system_join"
	MessageSystemLeave MessageType = "system_leave"
	MessageSystemInfo  MessageType = "system_info"
)

// IsSystem reports whether the message was authored by the platform.
func (t MessageType) IsSystem() bool {
	return t == MessageSystemJoin || t == MessageSystemLeave || t == MessageSystemInfo
}

// Message is a persisted chat line. It is never updated once written.
type Message struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	RoomID      uint        `gorm:"not null;index:idx_room_msg" json:"room_id"`
	SenderID    uint        `gorm:"not null;index" json:"sender_id"`
	Content     string      `gorm:"type:text;not null" json:"content"`
	MessageType MessageType `gorm:"type:varchar(20);not null;default:text" json:"message_type"`
	CreatedAt   time.Time   `gorm:"index:idx_room_msg" json:"created_at"`

	ReadStatuses   []ReadStatus    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	HeartReactions []HeartReaction `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// ReadStatus records that a user has read a message. Unique per (message, user).
type ReadStatus struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MessageID uint      `gorm:"not null;uniqueIndex:idx_read_message_user" json:"message_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_read_message_user" json:"user_id"`
	ReadAt    time.Time `gorm:"autoCreateTime" json:"read_at"`
}

func (ReadStatus) TableName() string {
	return "message_read_statuses"
}

// HeartReaction is a per-user heart on a message. Unique per (message, user).
type HeartReaction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MessageID uint      `gorm:"not null;uniqueIndex:idx_heart_message_user" json:"message_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_heart_message_user" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
