package model

import "time"

// RefreshToken stores the sha256 hash of an opaque refresh token. Tokens
// are single-use: rotation marks the old row used.
type RefreshToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TokenHash string    `gorm:"type:char(64);uniqueIndex:uk_token_hash;not null" json:"-"`
	UserID    uint      `gorm:"not null;index:idx_refresh_user" json:"user_id"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	Used      bool      `gorm:"not null;default:false" json:"used"`
	CreatedAt time.Time `json:"created_at"`
}

func (RefreshToken) TableName() string { return "refresh_tokens" }
