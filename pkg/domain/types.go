package domain

import "time"

type IllustrationType string

const (
	IllustrationCover IllustrationType = "cover"
	IllustrationScene IllustrationType = "illustration"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserRef is the shallow owner projection embedded in story responses.
type UserRef struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Story struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	Content       string            `json:"content"`
	AgeRange      string            `json:"ageRange"`
	Author        string            `json:"author"`
	Characters    string            `json:"characters,omitempty"`
	Setting       string            `json:"setting,omitempty"`
	UserID        string            `json:"userId"`
	User          *UserRef          `json:"user,omitempty"`
	Illustrations []IllustrationRef `json:"illustrations,omitempty"`
	Audio         *AudioRef         `json:"audio,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// IllustrationRef is the illustration projection embedded in story listings.
type IllustrationRef struct {
	URL  string           `json:"url"`
	Type IllustrationType `json:"type"`
}

// AudioRef is the audio projection embedded in story listings.
type AudioRef struct {
	URL string `json:"url"`
}

type Illustration struct {
	ID        string           `json:"id"`
	URL       string           `json:"url"`
	S3Key     string           `json:"s3Key"`
	Type      IllustrationType `json:"type"`
	StoryID   string           `json:"storyId"`
	CreatedAt time.Time        `json:"createdAt"`
}

type Audio struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	S3Key     string    `json:"s3Key"`
	StoryID   string    `json:"storyId"`
	CreatedAt time.Time `json:"createdAt"`
}

// RefreshToken is a whitelist row. The raw token is never stored, only its
// hash; rows are soft-invalidated on rotation or revocation, never deleted.
type RefreshToken struct {
	ID        string    `json:"id"`
	TokenHash string    `json:"-"`
	UserID    string    `json:"userId"`
	Valid     bool      `json:"valid"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// StoryPrompt carries the user-supplied generation inputs.
type StoryPrompt struct {
	AgeRange   string `json:"ageRange"`
	Title      string `json:"title,omitempty"`
	Characters string `json:"characters,omitempty"`
	Setting    string `json:"setting,omitempty"`
}
