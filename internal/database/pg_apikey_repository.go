package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"bedtime-server/internal/interfaces"
	"bedtime-server/internal/models"
)

var _ interfaces.APIKeyRepository = (*pgAPIKeyRepository)(nil)

type pgAPIKeyRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgAPIKeyRepository creates a new PostgreSQL-backed APIKeyRepository.
func NewPgAPIKeyRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.APIKeyRepository {
	return &pgAPIKeyRepository{
		db:     db,
		logger: logger.Named("PgAPIKeyRepo"),
	}
}

// GetActiveByName returns the key only when it exists AND is active.
// A missing or deactivated key is a configuration error, not a provider one.
func (r *pgAPIKeyRepository) GetActiveByName(ctx context.Context, name string) (*models.APIKey, error) {
	query := `SELECT key_name, key_value, is_active, updated_at FROM api_keys WHERE key_name = $1`
	var key models.APIKey
	err := pgxscan.Get(ctx, r.db, &key, query, name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: api key %q is not configured", models.ErrConfiguration, name)
		}
		r.logger.Error("Failed to get api key", zap.Error(err), zap.String("name", name))
		return nil, fmt.Errorf("failed to get api key from postgres: %w", err)
	}
	if !key.IsActive {
		return nil, fmt.Errorf("%w: api key %q is deactivated", models.ErrConfiguration, name)
	}
	return &key, nil
}

// Upsert inserts or replaces the key value and reactivates it.
func (r *pgAPIKeyRepository) Upsert(ctx context.Context, key *models.APIKey) error {
	query := `INSERT INTO api_keys (key_name, key_value, is_active, updated_at)
	          VALUES ($1, $2, $3, now())
	          ON CONFLICT (key_name)
	          DO UPDATE SET key_value = EXCLUDED.key_value, is_active = EXCLUDED.is_active, updated_at = now()`
	_, err := r.db.Exec(ctx, query, key.Name, key.Value, key.IsActive)
	if err != nil {
		r.logger.Error("Failed to upsert api key", zap.Error(err), zap.String("name", key.Name))
		return fmt.Errorf("failed to upsert api key: %w", err)
	}
	r.logger.Info("API key updated", zap.String("name", key.Name), zap.Bool("active", key.IsActive))
	return nil
}

// List returns all configured keys. Values are included for the admin
// panel; the transport layer decides what to expose.
func (r *pgAPIKeyRepository) List(ctx context.Context) ([]models.APIKey, error) {
	query := `SELECT key_name, key_value, is_active, updated_at FROM api_keys ORDER BY key_name`
	var keys []models.APIKey
	if err := pgxscan.Select(ctx, r.db, &keys, query); err != nil {
		r.logger.Error("Failed to list api keys", zap.Error(err))
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	return keys, nil
}

// SetActive toggles a key without touching its value.
func (r *pgAPIKeyRepository) SetActive(ctx context.Context, name string, active bool) error {
	query := `UPDATE api_keys SET is_active = $2, updated_at = now() WHERE key_name = $1`
	tag, err := r.db.Exec(ctx, query, name, active)
	if err != nil {
		r.logger.Error("Failed to toggle api key", zap.Error(err), zap.String("name", name))
		return fmt.Errorf("failed to toggle api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: api key %q is not configured", models.ErrConfiguration, name)
	}
	r.logger.Info("API key toggled", zap.String("name", name), zap.Bool("active", active))
	return nil
}
