package models

import "time"

// AuthUser is an account of the selfhosted auth backend.
type AuthUser struct {
	ID           string `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AuthUser) TableName() string {
	return "auth_users"
}

type RefreshToken struct {
	Token     string     `gorm:"size:64;primaryKey" json:"-"`
	UserID    string     `gorm:"type:uuid;index;not null" json:"user_id"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at"`

	CreatedAt time.Time `json:"created_at"`
}

func (RefreshToken) TableName() string {
	return "auth_refresh_tokens"
}
