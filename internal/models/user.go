package models

import (
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// User is the identity record owned by the account service.
// The messaging core only reads it to resolve bearer credentials and to label events.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"uniqueIndex;not null" json:"username"`
	Nickname  string         `json:"nickname"`
	Languages pq.StringArray `gorm:"type:text[]" json:"languages"` // native and target language codes
	IsStaff   bool           `json:"is_staff"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
}

// BeforeCreate normalizes the username and language codes before the row is written.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	u.Username = strings.TrimSpace(u.Username)
	for i, lang := range u.Languages {
		u.Languages[i] = strings.ToLower(strings.TrimSpace(lang))
	}
	return
}

// DisplayName returns the nickname when set, otherwise the username.
func (u *User) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Username
}
