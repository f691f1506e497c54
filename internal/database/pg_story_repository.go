package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"bedtime-server/internal/interfaces"
	"bedtime-server/internal/models"
)

// Compile-time check to ensure pgStoryRepository implements StoryRepository
var _ interfaces.StoryRepository = (*pgStoryRepository)(nil)

type pgStoryRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgStoryRepository creates a new PostgreSQL-backed StoryRepository.
func NewPgStoryRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.StoryRepository {
	return &pgStoryRepository{
		db:     db,
		logger: logger.Named("PgStoryRepo"),
	}
}

// storyRow mirrors the stories table for scany; settings is raw JSON.
type storyRow struct {
	ID                 uuid.UUID `db:"id"`
	UserID             uuid.UUID `db:"user_id"`
	Title              string    `db:"title"`
	Content            string    `db:"content"`
	AudioURL           string    `db:"audio_url"`
	BackgroundMusicURL string    `db:"background_music_url"`
	Settings           []byte    `db:"settings"`
	CreatedAt          time.Time `db:"created_at"`
}

func (r storyRow) toModel() (models.Story, error) {
	story := models.Story{
		ID:                 r.ID,
		UserID:             r.UserID,
		Title:              r.Title,
		Content:            r.Content,
		AudioURL:           r.AudioURL,
		BackgroundMusicURL: r.BackgroundMusicURL,
		CreatedAt:          r.CreatedAt,
	}
	if len(r.Settings) > 0 {
		if err := json.Unmarshal(r.Settings, &story.Settings); err != nil {
			return story, fmt.Errorf("failed to decode story settings: %w", err)
		}
	}
	return story, nil
}

// Save inserts a completed story. Single attempt: persistence failures are
// surfaced to the caller, not retried here.
func (r *pgStoryRepository) Save(ctx context.Context, story *models.Story) error {
	settingsJSON, err := json.Marshal(story.Settings)
	if err != nil {
		return fmt.Errorf("%w: failed to encode settings: %v", models.ErrPersistence, err)
	}

	query := `INSERT INTO stories (id, user_id, title, content, audio_url, background_music_url, settings, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	r.logger.Debug("Executing query", zap.String("query", query), zap.String("storyID", story.ID.String()))
	_, err = r.db.Exec(ctx, query,
		story.ID, story.UserID, story.Title, story.Content,
		story.AudioURL, story.BackgroundMusicURL, settingsJSON, story.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert story", zap.Error(err), zap.String("storyID", story.ID.String()))
		return fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}
	r.logger.Info("Story saved",
		zap.String("storyID", story.ID.String()), zap.String("userID", story.UserID.String()))
	return nil
}

// GetByID retrieves a single story.
func (r *pgStoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Story, error) {
	query := `SELECT id, user_id, title, content, audio_url, background_music_url, settings, created_at
	          FROM stories WHERE id = $1`
	var row storyRow
	err := pgxscan.Get(ctx, r.db, &row, query, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrStoryNotFound
		}
		r.logger.Error("Failed to get story by id", zap.Error(err), zap.String("id", id.String()))
		return nil, fmt.Errorf("failed to get story from postgres: %w", err)
	}
	story, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &story, nil
}

// ListByUser returns the user's stories, newest first.
func (r *pgStoryRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Story, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT id, user_id, title, content, audio_url, background_music_url, settings, created_at
	          FROM stories WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	var rows []storyRow
	if err := pgxscan.Select(ctx, r.db, &rows, query, userID, limit, offset); err != nil {
		r.logger.Error("Failed to list stories", zap.Error(err), zap.String("userID", userID.String()))
		return nil, fmt.Errorf("failed to list stories from postgres: %w", err)
	}
	stories := make([]models.Story, 0, len(rows))
	for _, row := range rows {
		story, err := row.toModel()
		if err != nil {
			return nil, err
		}
		stories = append(stories, story)
	}
	return stories, nil
}
