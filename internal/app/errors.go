package app

import "errors"

// Sentinel errors the HTTP layer translates to statuses. Messages that reach
// clients keep the wording the API has always used.
var (
	ErrMissingFields = errors.New("missing required fields")

	ErrEmailTaken         = errors.New("User already exists.")
	ErrUserNotFound       = errors.New("User not found")
	ErrInvalidCredentials = errors.New("Invalid login credentials.")

	// ErrInvalidRefreshToken covers absent, invalidated, and expired tokens
	// alike so a caller cannot probe which one it was.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	ErrStoryNotFound        = errors.New("Story not found")
	ErrIllustrationNotFound = errors.New("Illustration not found")
	ErrNoStoriesForUser     = errors.New("No stories found for this user")

	// ErrForbidden means authenticated but not the owner.
	ErrForbidden = errors.New("not authorized")

	// ErrGeneration wraps failures of the generative backend.
	ErrGeneration = errors.New("generation failed")
)
