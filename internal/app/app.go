package app

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"talespin/internal/util"
	"talespin/pkg/ai"
	"talespin/pkg/auth"
	"talespin/pkg/domain"
	"talespin/pkg/storage"
	"talespin/pkg/store"
)

// Config wires runtime configuration and injectable dependencies. Nil
// dependency fields are built from the connection settings, so tests can
// substitute fakes while production wiring stays in one place.
type Config struct {
	DatabaseURL string
	JWTSecret   string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration

	OpenAI      ai.Options
	ObjectStore storage.MinioSettings

	Store      store.Store
	Tokens     *auth.TokenManager
	Text       ai.TextGenerator
	Image      ai.ImageGenerator
	Speech     ai.SpeechGenerator
	Objects    storage.ObjectStore
	HTTPClient *http.Client
}

// App is the core application service: session lifecycle, story content, and
// generation orchestration over injected collaborators.
type App struct {
	store      store.Store
	tokens     *auth.TokenManager
	text       ai.TextGenerator
	image      ai.ImageGenerator
	speech     ai.SpeechGenerator
	objects    storage.ObjectStore
	httpClient *http.Client
	refreshTTL time.Duration
}

// New constructs the application.
func New(cfg Config) (*App, error) {
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = 30 * 24 * time.Hour
	}

	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}

	tokens := cfg.Tokens
	if tokens == nil {
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("jwt secret required")
		}
		tokens = auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTTL)
	}

	if cfg.Text == nil || cfg.Image == nil || cfg.Speech == nil {
		client := ai.NewOpenAIClient(cfg.OpenAI)
		if cfg.Text == nil {
			cfg.Text = client
		}
		if cfg.Image == nil {
			cfg.Image = client
		}
		if cfg.Speech == nil {
			cfg.Speech = client
		}
	}

	objects := cfg.Objects
	if objects == nil {
		var err error
		objects, err = storage.NewMinioStore(
			cfg.ObjectStore.Endpoint,
			cfg.ObjectStore.Region,
			cfg.ObjectStore.AccessKey,
			cfg.ObjectStore.SecretKey,
			cfg.ObjectStore.Bucket,
			cfg.ObjectStore.PublicBaseURL,
			cfg.ObjectStore.UseSSL,
		)
		if err != nil {
			return nil, fmt.Errorf("init object store: %w", err)
		}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}

	return &App{
		store:      dataStore,
		tokens:     tokens,
		text:       cfg.Text,
		image:      cfg.Image,
		speech:     cfg.Speech,
		objects:    objects,
		httpClient: httpClient,
		refreshTTL: cfg.RefreshTTL,
	}, nil
}

// Register creates a user, hashes the password, and issues a whitelisted
// token pair.
func (a *App) Register(email, password, name string) (domain.TokenPair, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" || strings.TrimSpace(name) == "" {
		return domain.TokenPair{}, ErrMissingFields
	}
	_, exists, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return domain.TokenPair{}, ErrEmailTaken
	}
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	user := domain.User{
		ID:           util.NewID(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.CreateUser(user); err != nil {
		return domain.TokenPair{}, fmt.Errorf("save user: %w", err)
	}
	return a.issueTokens(user.ID)
}

// Login validates credentials and issues a whitelisted token pair. Earlier
// refresh tokens stay valid: concurrent sessions are allowed.
func (a *App) Login(email, password string) (domain.TokenPair, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return domain.TokenPair{}, ErrMissingFields
	}
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.TokenPair{}, ErrUserNotFound
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return domain.TokenPair{}, ErrInvalidCredentials
	}
	return a.issueTokens(user.ID)
}

// Refresh rotates a refresh token: the presented token is looked up by hash,
// rejected if unknown, invalidated, or expired, then retired and replaced by
// a freshly whitelisted pair.
func (a *App) Refresh(refreshToken string) (domain.TokenPair, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return domain.TokenPair{}, ErrMissingFields
	}
	row, ok, err := a.store.GetRefreshTokenByHash(auth.HashRefreshToken(refreshToken))
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("lookup refresh token: %w", err)
	}
	if !ok {
		return domain.TokenPair{}, ErrInvalidRefreshToken
	}
	// Two independent guards: a still-flagged-valid row past its expiry is
	// rejected, and an invalidated row is rejected regardless of expiry.
	if !row.Valid {
		return domain.TokenPair{}, ErrInvalidRefreshToken
	}
	if !time.Now().UTC().Before(row.ExpiresAt) {
		return domain.TokenPair{}, ErrInvalidRefreshToken
	}
	user, found, err := a.store.GetUserByID(row.UserID)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("fetch user: %w", err)
	}
	if !found {
		return domain.TokenPair{}, ErrInvalidRefreshToken
	}
	if err := a.store.InvalidateRefreshToken(row.ID); err != nil {
		return domain.TokenPair{}, fmt.Errorf("invalidate refresh token: %w", err)
	}
	return a.issueTokens(user.ID)
}

// RevokeRefreshTokens invalidates every refresh token owned by the user.
// Idempotent; revoking a user with no tokens succeeds.
func (a *App) RevokeRefreshTokens(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrMissingFields
	}
	if err := a.store.RevokeUserRefreshTokens(userID); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}

// VerifyAccess checks an access token's signature and expiry. Stateless; a
// revoked refresh token does not retract an already-issued access token.
func (a *App) VerifyAccess(token string) (string, error) {
	return a.tokens.Verify(token)
}

func (a *App) issueTokens(userID string) (domain.TokenPair, error) {
	pair, err := a.tokens.Pair(userID)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("issue tokens: %w", err)
	}
	now := time.Now().UTC()
	row := domain.RefreshToken{
		ID:        util.NewID(),
		TokenHash: auth.HashRefreshToken(pair.RefreshToken),
		UserID:    userID,
		Valid:     true,
		ExpiresAt: now.Add(a.refreshTTL),
		CreatedAt: now,
	}
	if err := a.store.CreateRefreshToken(row); err != nil {
		return domain.TokenPair{}, fmt.Errorf("whitelist refresh token: %w", err)
	}
	return pair, nil
}

// CreateStoryInput is the manual story creation payload.
type CreateStoryInput struct {
	Title      string
	Content    string
	Author     string
	AgeRange   string
	Characters string
	Setting    string
	UserID     string
}

// CreateStory persists a manually written story after verifying the owner
// exists and matches the caller.
func (a *App) CreateStory(callerID string, in CreateStoryInput) (domain.Story, error) {
	if in.Title == "" || in.Content == "" || in.AgeRange == "" || in.UserID == "" {
		return domain.Story{}, ErrMissingFields
	}
	user, ok, err := a.store.GetUserByID(in.UserID)
	if err != nil {
		return domain.Story{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.Story{}, ErrUserNotFound
	}
	if in.UserID != callerID {
		return domain.Story{}, ErrForbidden
	}
	now := time.Now().UTC()
	story := domain.Story{
		ID:         util.NewID(),
		Title:      in.Title,
		Content:    in.Content,
		AgeRange:   in.AgeRange,
		Author:     in.Author,
		Characters: in.Characters,
		Setting:    in.Setting,
		UserID:     in.UserID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := a.store.CreateStory(story); err != nil {
		return domain.Story{}, fmt.Errorf("save story: %w", err)
	}
	story.User = &domain.UserRef{Name: user.Name, Email: user.Email}
	return story, nil
}

// GetStory returns one story with its owner projection.
func (a *App) GetStory(id string) (domain.Story, error) {
	story, ok, err := a.store.GetStory(id)
	if err != nil {
		return domain.Story{}, fmt.Errorf("fetch story: %w", err)
	}
	if !ok {
		return domain.Story{}, ErrStoryNotFound
	}
	a.attachUser(&story)
	return story, nil
}

// ListStories returns all stories with owner, illustration, and audio
// projections.
func (a *App) ListStories() ([]domain.Story, error) {
	stories, err := a.store.ListStories()
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	for i := range stories {
		a.attachUser(&stories[i])
		a.attachMedia(&stories[i])
	}
	return stories, nil
}

// ListUserStories returns a user's stories, newest first.
func (a *App) ListUserStories(userID string) ([]domain.Story, error) {
	stories, err := a.store.ListStoriesByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	if len(stories) == 0 {
		return nil, ErrNoStoriesForUser
	}
	for i := range stories {
		a.attachUser(&stories[i])
	}
	return stories, nil
}

// DeleteStory removes a story with its illustrations and audio. Only the
// owner may delete; anything else is forbidden and leaves all rows intact.
func (a *App) DeleteStory(id, callerID string) error {
	story, ok, err := a.store.GetStory(id)
	if err != nil {
		return fmt.Errorf("fetch story: %w", err)
	}
	if !ok {
		return ErrStoryNotFound
	}
	if story.UserID != callerID {
		return ErrForbidden
	}
	if err := a.store.DeleteStory(id); err != nil {
		return fmt.Errorf("delete story: %w", err)
	}
	return nil
}

// GetIllustration returns one illustration.
func (a *App) GetIllustration(id string) (domain.Illustration, error) {
	il, ok, err := a.store.GetIllustration(id)
	if err != nil {
		return domain.Illustration{}, fmt.Errorf("fetch illustration: %w", err)
	}
	if !ok {
		return domain.Illustration{}, ErrIllustrationNotFound
	}
	return il, nil
}

// ListStoryIllustrations returns a story's illustrations.
func (a *App) ListStoryIllustrations(storyID string) ([]domain.Illustration, error) {
	if _, err := a.GetStory(storyID); err != nil {
		return nil, err
	}
	ils, err := a.store.ListIllustrationsByStory(storyID)
	if err != nil {
		return nil, fmt.Errorf("list illustrations: %w", err)
	}
	return ils, nil
}

func (a *App) attachUser(story *domain.Story) {
	user, ok, err := a.store.GetUserByID(story.UserID)
	if err != nil || !ok {
		return
	}
	story.User = &domain.UserRef{Name: user.Name, Email: user.Email}
}

func (a *App) attachMedia(story *domain.Story) {
	if ils, err := a.store.ListIllustrationsByStory(story.ID); err == nil {
		for _, il := range ils {
			story.Illustrations = append(story.Illustrations, domain.IllustrationRef{URL: il.URL, Type: il.Type})
		}
	}
	if audio, ok, err := a.store.GetAudioByStory(story.ID); err == nil && ok {
		story.Audio = &domain.AudioRef{URL: audio.URL}
	}
}
