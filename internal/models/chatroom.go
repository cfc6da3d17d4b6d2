package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrSelfRoom is returned when a room would pair a user with themselves.
var ErrSelfRoom = errors.New("a chat room needs two distinct participants")

// ChatRoom represents a 1-on-1 conversation between two matched users.
// Rooms are created by the matching workflow; the pair is stored with User1ID < User2ID
// so the unique index covers the unordered pair.
type ChatRoom struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	User1ID   uint      `gorm:"not null;uniqueIndex:idx_room_pair" json:"user1_id"`
	User2ID   uint      `gorm:"not null;uniqueIndex:idx_room_pair" json:"user2_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User1 User `gorm:"foreignKey:User1ID" json:"-"`
	User2 User `gorm:"foreignKey:User2ID" json:"-"`
}

// BeforeCreate orders the pair and rejects rooms with a single user.
func (r *ChatRoom) BeforeCreate(tx *gorm.DB) error {
	if r.User1ID == r.User2ID {
		return ErrSelfRoom
	}
	if r.User1ID > r.User2ID {
		r.User1ID, r.User2ID = r.User2ID, r.User1ID
	}
	return nil
}

// HasParticipant reports whether userID is one of the two room members.
func (r *ChatRoom) HasParticipant(userID uint) bool {
	return userID != 0 && (r.User1ID == userID || r.User2ID == userID)
}

// PartnerOf returns the other member of the room.
func (r *ChatRoom) PartnerOf(userID uint) (uint, bool) {
	switch userID {
	case r.User1ID:
		return r.User2ID, true
	case r.User2ID:
		return r.User1ID, true
	}
	return 0, false
}
