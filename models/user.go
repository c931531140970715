package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User ist ein über Google OAuth authentifizierter Benutzer.
type User struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	GoogleID string `json:"-" gorm:"uniqueIndex;not null"`
	Email    string `json:"email" gorm:"index;not null"`
	Name     string `json:"name"`
	Picture  string `json:"picture"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// TableName gibt explizit den Tabellennamen an.
func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
