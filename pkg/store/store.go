package store

import "talespin/pkg/domain"

// Store defines persistence for users, refresh tokens, and story content.
// Lookups return (value, found, error) so callers can tell absence from
// storage failure.
type Store interface {
	// users
	CreateUser(domain.User) error
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)

	// refresh token whitelist
	CreateRefreshToken(domain.RefreshToken) error
	GetRefreshTokenByHash(hash string) (domain.RefreshToken, bool, error)
	InvalidateRefreshToken(id string) error
	RevokeUserRefreshTokens(userID string) error

	// stories
	CreateStory(domain.Story) error
	GetStory(id string) (domain.Story, bool, error)
	ListStories() ([]domain.Story, error)
	ListStoriesByUser(userID string) ([]domain.Story, error)
	DeleteStory(id string) error

	// illustrations
	CreateIllustration(domain.Illustration) error
	GetIllustration(id string) (domain.Illustration, bool, error)
	ListIllustrationsByStory(storyID string) ([]domain.Illustration, error)

	// audio
	CreateAudio(domain.Audio) error
	GetAudioByStory(storyID string) (domain.Audio, bool, error)
}
