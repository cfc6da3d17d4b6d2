package models

import "time"

// ParticipantStatus tracks whether a user is still part of a room.
// A missing row means the user never left and is treated as active.
type ParticipantStatus struct {
	ID       uint       `gorm:"primaryKey" json:"id"`
	RoomID   uint       `gorm:"not null;uniqueIndex:idx_participant_room_user" json:"room_id"`
	UserID   uint       `gorm:"not null;uniqueIndex:idx_participant_room_user" json:"user_id"`
	IsActive bool       `gorm:"not null" json:"is_active"`
	JoinedAt time.Time  `gorm:"autoCreateTime" json:"joined_at"`
	LeftAt   *time.Time `json:"left_at"`
}

func (ParticipantStatus) TableName() string {
	return "chat_room_participants"
}
