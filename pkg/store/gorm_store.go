package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"talespin/pkg/domain"
)

const migrateLockID int64 = 52815281

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(
			&UserModel{},
			&RefreshTokenModel{},
			&StoryModel{},
			&IllustrationModel{},
			&AudioModel{},
		); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// CreateUser inserts a new user row.
func (s *GormStore) CreateUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Create(&model).Error
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// CreateRefreshToken whitelists a refresh token row.
func (s *GormStore) CreateRefreshToken(t domain.RefreshToken) error {
	model := refreshTokenToModel(t)
	return s.db.Create(&model).Error
}

// GetRefreshTokenByHash looks a whitelist row up by token hash.
func (s *GormStore) GetRefreshTokenByHash(hash string) (domain.RefreshToken, bool, error) {
	var model RefreshTokenModel
	if err := s.db.Where("token_hash = ?", hash).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.RefreshToken{}, false, nil
		}
		return domain.RefreshToken{}, false, err
	}
	return refreshTokenFromModel(model), true, nil
}

// InvalidateRefreshToken soft-deletes a single whitelist row.
func (s *GormStore) InvalidateRefreshToken(id string) error {
	return s.db.Model(&RefreshTokenModel{}).
		Where("id = ?", id).
		Update("valid", false).Error
}

// RevokeUserRefreshTokens soft-deletes every whitelist row owned by the user.
// Matching zero rows is fine.
func (s *GormStore) RevokeUserRefreshTokens(userID string) error {
	return s.db.Model(&RefreshTokenModel{}).
		Where("user_id = ?", userID).
		Update("valid", false).Error
}

// CreateStory inserts a story row.
func (s *GormStore) CreateStory(story domain.Story) error {
	model := storyToModel(story)
	return s.db.Create(&model).Error
}

// GetStory retrieves a story.
func (s *GormStore) GetStory(id string) (domain.Story, bool, error) {
	var model StoryModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Story{}, false, nil
		}
		return domain.Story{}, false, err
	}
	return storyFromModel(model), true, nil
}

// ListStories returns all stories ordered by created_at.
func (s *GormStore) ListStories() ([]domain.Story, error) {
	return s.listStories("created_at ASC")
}

// ListStoriesByUser returns a user's stories, newest first.
func (s *GormStore) ListStoriesByUser(userID string) ([]domain.Story, error) {
	return s.listStories("created_at DESC", "user_id = ?", userID)
}

func (s *GormStore) listStories(order string, conds ...any) ([]domain.Story, error) {
	var models []StoryModel
	tx := s.db.Order(order)
	if len(conds) > 0 {
		tx = tx.Where(conds[0], conds[1:]...)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Story, 0, len(models))
	for _, m := range models {
		res = append(res, storyFromModel(m))
	}
	return res, nil
}

// DeleteStory removes the story and its illustrations and audio in one
// transaction.
func (s *GormStore) DeleteStory(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&IllustrationModel{}, "story_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&AudioModel{}, "story_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&StoryModel{}, "id = ?", id).Error
	})
}

// CreateIllustration inserts an illustration row.
func (s *GormStore) CreateIllustration(il domain.Illustration) error {
	model := illustrationToModel(il)
	return s.db.Create(&model).Error
}

// GetIllustration retrieves an illustration.
func (s *GormStore) GetIllustration(id string) (domain.Illustration, bool, error) {
	var model IllustrationModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Illustration{}, false, nil
		}
		return domain.Illustration{}, false, err
	}
	return illustrationFromModel(model), true, nil
}

// ListIllustrationsByStory returns a story's illustrations in creation order.
func (s *GormStore) ListIllustrationsByStory(storyID string) ([]domain.Illustration, error) {
	var models []IllustrationModel
	if err := s.db.Where("story_id = ?", storyID).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Illustration, 0, len(models))
	for _, m := range models {
		res = append(res, illustrationFromModel(m))
	}
	return res, nil
}

// CreateAudio inserts the audio row for a story (one per story).
func (s *GormStore) CreateAudio(a domain.Audio) error {
	model := audioToModel(a)
	return s.db.Create(&model).Error
}

// GetAudioByStory returns the story's audio row, if present.
func (s *GormStore) GetAudioByStory(storyID string) (domain.Audio, bool, error) {
	var model AudioModel
	if err := s.db.Where("story_id = ?", storyID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Audio{}, false, nil
		}
		return domain.Audio{}, false, err
	}
	return audioFromModel(model), true, nil
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Email:        m.Email,
		Name:         m.Name,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func refreshTokenToModel(t domain.RefreshToken) RefreshTokenModel {
	return RefreshTokenModel{
		ID:        t.ID,
		TokenHash: t.TokenHash,
		UserID:    t.UserID,
		Valid:     t.Valid,
		ExpiresAt: t.ExpiresAt,
		CreatedAt: t.CreatedAt,
	}
}

func refreshTokenFromModel(m RefreshTokenModel) domain.RefreshToken {
	return domain.RefreshToken{
		ID:        m.ID,
		TokenHash: m.TokenHash,
		UserID:    m.UserID,
		Valid:     m.Valid,
		ExpiresAt: m.ExpiresAt,
		CreatedAt: m.CreatedAt,
	}
}

func storyToModel(s domain.Story) StoryModel {
	return StoryModel{
		ID:         s.ID,
		Title:      s.Title,
		Content:    s.Content,
		AgeRange:   s.AgeRange,
		Author:     s.Author,
		Characters: s.Characters,
		Setting:    s.Setting,
		UserID:     s.UserID,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}

func storyFromModel(m StoryModel) domain.Story {
	return domain.Story{
		ID:         m.ID,
		Title:      m.Title,
		Content:    m.Content,
		AgeRange:   m.AgeRange,
		Author:     m.Author,
		Characters: m.Characters,
		Setting:    m.Setting,
		UserID:     m.UserID,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func illustrationToModel(il domain.Illustration) IllustrationModel {
	return IllustrationModel{
		ID:        il.ID,
		URL:       il.URL,
		S3Key:     il.S3Key,
		Type:      string(il.Type),
		StoryID:   il.StoryID,
		CreatedAt: il.CreatedAt,
	}
}

func illustrationFromModel(m IllustrationModel) domain.Illustration {
	return domain.Illustration{
		ID:        m.ID,
		URL:       m.URL,
		S3Key:     m.S3Key,
		Type:      domain.IllustrationType(m.Type),
		StoryID:   m.StoryID,
		CreatedAt: m.CreatedAt,
	}
}

func audioToModel(a domain.Audio) AudioModel {
	return AudioModel{
		ID:        a.ID,
		URL:       a.URL,
		S3Key:     a.S3Key,
		StoryID:   a.StoryID,
		CreatedAt: a.CreatedAt,
	}
}

func audioFromModel(m AudioModel) domain.Audio {
	return domain.Audio{
		ID:        m.ID,
		URL:       m.URL,
		S3Key:     m.S3Key,
		StoryID:   m.StoryID,
		CreatedAt: m.CreatedAt,
	}
}
