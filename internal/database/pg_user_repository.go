package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"bedtime-server/internal/interfaces"
	"bedtime-server/internal/models"
)

var _ interfaces.UserRepository = (*pgUserRepository)(nil)

type pgUserRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgUserRepository creates a new PostgreSQL-backed UserRepository.
func NewPgUserRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.UserRepository {
	return &pgUserRepository{
		db:     db,
		logger: logger.Named("PgUserRepo"),
	}
}

// CreateUser inserts a new user record. Uniqueness violations are mapped
// onto the domain sentinels so handlers can answer 409 precisely.
func (r *pgUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (id, username, email, password_hash, roles, is_banned, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Exec(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash, user.Roles, user.IsBanned, user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if strings.Contains(pgErr.ConstraintName, "email") {
				return models.ErrEmailAlreadyExists
			}
			return models.ErrUserAlreadyExists
		}
		r.logger.Error("Failed to create user", zap.Error(err), zap.String("username", user.Username))
		return fmt.Errorf("failed to create user in postgres: %w", err)
	}
	r.logger.Info("User created", zap.String("userID", user.ID.String()), zap.String("username", user.Username))
	return nil
}

// GetUserByEmail retrieves a user by email.
func (r *pgUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT id, username, email, password_hash, roles, is_banned, created_at
	          FROM users WHERE email = $1`
	return r.getOne(ctx, query, email)
}

// GetUserByID retrieves a user by ID.
func (r *pgUserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT id, username, email, password_hash, roles, is_banned, created_at
	          FROM users WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *pgUserRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.Roles, &user.IsBanned, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		r.logger.Error("Failed to get user", zap.Error(err))
		return nil, fmt.Errorf("failed to get user from postgres: %w", err)
	}
	return &user, nil
}
