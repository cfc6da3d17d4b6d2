package storage

import (
	"context"
	"errors"
	"lingochat/backend/internal/models"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetRoomByID loads a room by its primary key.
func (s *Service) GetRoomByID(ctx context.Context, id uint) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := s.DB.WithContext(ctx).First(&room, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		log.Printf("ERROR: Failed to get room %d: %v", id, err)
		return nil, err
	}
	return &room, nil
}

// ListRoomsForUser returns the rooms the user belongs to, most recently active first.
func (s *Service) ListRoomsForUser(ctx context.Context, userID uint) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	err := s.DB.WithContext(ctx).
		Preload("User1").
		Preload("User2").
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("updated_at desc").
		Find(&rooms).Error
	if err != nil {
		log.Printf("ERROR: Failed to list rooms for user %d: %v", userID, err)
		return nil, err
	}
	return rooms, nil
}

func (s *Service) GetParticipantStatus(ctx context.Context, roomID, userID uint) (*models.ParticipantStatus, error) {
	var status models.ParticipantStatus
	err := s.DB.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		First(&status).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func (s *Service) IsParticipantActive(ctx context.Context, roomID, userID uint) (bool, error) {
	status, err := s.GetParticipantStatus(ctx, roomID, userID)
	if err != nil {
		return false, err
	}
	return status == nil || status.IsActive, nil
}

// DeactivateParticipant marks the user as having left the room, creating the status row if needed.
func (s *Service) DeactivateParticipant(ctx context.Context, roomID, userID uint) error {
	now := time.Now()
	status := models.ParticipantStatus{
		RoomID:   roomID,
		UserID:   userID,
		IsActive: false,
		LeftAt:   &now,
	}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"is_active": false, "left_at": now}),
	}).Create(&status).Error
}

// CreateMessage stores the message, marks it read for its sender and bumps the room's updated_at.
func (s *Service) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.MessageType == "" {
		msg.MessageType = models.MessageText
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}

		if !msg.MessageType.IsSystem() {
			own := models.ReadStatus{MessageID: msg.ID, UserID: msg.SenderID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&own).Error; err != nil {
				return err
			}
		}

		return tx.Model(&models.ChatRoom{}).
			Where("id = ?", msg.RoomID).
			Update("updated_at", msg.CreatedAt).Error
	})
	if isForeignKeyViolation(err) {
		return ErrNotFound
	}
	if err != nil {
		log.Printf("ERROR: Failed to save message for room %d: %v", msg.RoomID, err)
		return err
	}
	return nil
}

func (s *Service) GetMessageByID(ctx context.Context, id uint) (*models.Message, error) {
	var msg models.Message
	err := s.DB.WithContext(ctx).First(&msg, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListMessages pages backwards from beforeID (0 = newest) and returns the page oldest first.
func (s *Service) ListMessages(ctx context.Context, roomID, beforeID uint, limit int) ([]models.Message, error) {
	q := s.DB.WithContext(ctx).Where("room_id = ?", roomID)
	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}

	var msgs []models.Message
	if err := q.Order("id desc").Limit(limit).Find(&msgs).Error; err != nil {
		log.Printf("ERROR: Failed to list messages for room %d: %v", roomID, err)
		return nil, err
	}

	// reverse to chronological
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// MarkRoomRead creates read statuses for every message in the room not sent by the user
// and returns how many were new.
func (s *Service) MarkRoomRead(ctx context.Context, roomID, userID uint) (int64, error) {
	db := s.DB.WithContext(ctx)

	var unread []uint
	err := db.Model(&models.Message{}).
		Where("room_id = ? AND sender_id <> ?", roomID, userID).
		Where("NOT EXISTS (SELECT 1 FROM message_read_statuses rs WHERE rs.message_id = messages.id AND rs.user_id = ?)", userID).
		Pluck("id", &unread).Error
	if err != nil {
		return 0, err
	}
	if len(unread) == 0 {
		return 0, nil
	}

	rows := make([]models.ReadStatus, 0, len(unread))
	for _, id := range unread {
		rows = append(rows, models.ReadStatus{MessageID: id, UserID: userID})
	}

	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
	if res.Error != nil {
		log.Printf("ERROR: Failed to mark room %d read for user %d: %v", roomID, userID, res.Error)
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// AddReaction creates the heart if absent. created is false when it already existed.
func (s *Service) AddReaction(ctx context.Context, messageID, userID uint) (bool, error) {
	reaction := models.HeartReaction{MessageID: messageID, UserID: userID}
	res := s.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&reaction)
	if isForeignKeyViolation(res.Error) {
		return false, ErrNotFound
	}
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RemoveReaction deletes the heart if present. deleted is false when there was nothing to remove.
func (s *Service) RemoveReaction(ctx context.Context, messageID, userID uint) (bool, error) {
	res := s.DB.WithContext(ctx).
		Where("message_id = ? AND user_id = ?", messageID, userID).
		Delete(&models.HeartReaction{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Service) ListReactions(ctx context.Context, roomID uint) ([]models.HeartReaction, error) {
	var reactions []models.HeartReaction
	err := s.DB.WithContext(ctx).
		Joins("JOIN messages ON messages.id = heart_reactions.message_id").
		Where("messages.room_id = ?", roomID).
		Order("heart_reactions.created_at asc").
		Find(&reactions).Error
	if err != nil {
		return nil, err
	}
	return reactions, nil
}
