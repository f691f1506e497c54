package interfaces

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"bedtime-server/internal/models"
)

// DBTX abstracts a pgx pool or transaction so repositories can run inside
// either.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// StoryRepository persists completed stories. Save is a single attempt;
// callers surface failures instead of retrying the storage boundary.
type StoryRepository interface {
	Save(ctx context.Context, story *models.Story) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Story, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Story, error)
}

// APIKeyRepository stores named provider secrets.
type APIKeyRepository interface {
	GetActiveByName(ctx context.Context, name string) (*models.APIKey, error)
	Upsert(ctx context.Context, key *models.APIKey) error
	List(ctx context.Context) ([]models.APIKey, error)
	SetActive(ctx context.Context, name string, active bool) error
}

// UserRepository stores registered accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// TokenRepository stores refresh tokens with a TTL.
type TokenRepository interface {
	SaveRefreshToken(ctx context.Context, userID uuid.UUID, token string, ttl time.Duration) error
	GetUserIDByRefreshToken(ctx context.Context, token string) (uuid.UUID, error)
	DeleteRefreshToken(ctx context.Context, token string) error
}

// AudioStore persists a synthesized narration binary and returns an
// opaque URL the browser can play back.
type AudioStore interface {
	Save(ctx context.Context, storyID uuid.UUID, data []byte) (string, error)
}
