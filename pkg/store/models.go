package store

import "time"

// GORM models used for persistence.
type UserModel struct {
	ID           string `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	Name         string `gorm:"not null"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}

// RefreshTokenModel rows are soft-invalidated, never deleted.
type RefreshTokenModel struct {
	ID        string    `gorm:"primaryKey"`
	TokenHash string    `gorm:"uniqueIndex;not null"`
	UserID    string    `gorm:"not null;index"`
	Valid     bool      `gorm:"not null;default:true"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

type StoryModel struct {
	ID         string `gorm:"primaryKey"`
	Title      string `gorm:"not null"`
	Content    string `gorm:"type:text;not null"`
	AgeRange   string `gorm:"not null"`
	Author     string
	Characters string
	Setting    string
	UserID     string    `gorm:"not null;index"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

type IllustrationModel struct {
	ID        string    `gorm:"primaryKey"`
	URL       string    `gorm:"not null"`
	S3Key     string    `gorm:"not null"`
	Type      string    `gorm:"not null"`
	StoryID   string    `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null"`
}

type AudioModel struct {
	ID        string    `gorm:"primaryKey"`
	URL       string    `gorm:"not null"`
	S3Key     string    `gorm:"not null"`
	StoryID   string    `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time `gorm:"not null"`
}
