package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"bedtime-server/internal/interfaces"
	"bedtime-server/internal/models"
)

const minPasswordLength = 8

// Claims are the JWT claims carried by an access token.
type Claims struct {
	UserID string   `json:"uid"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

// Service handles registration, login and token lifecycle. Access tokens
// are stateless JWTs, refresh tokens live in Redis with a TTL and are
// rotated on every refresh.
type Service struct {
	users      interfaces.UserRepository
	tokens     interfaces.TokenRepository
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *zap.Logger
}

// NewService creates the auth service.
func NewService(
	users interfaces.UserRepository,
	tokens interfaces.TokenRepository,
	jwtSecret string,
	accessTTL, refreshTTL time.Duration,
	logger *zap.Logger,
) *Service {
	return &Service{
		users:      users,
		tokens:     tokens,
		jwtSecret:  []byte(jwtSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		logger:     logger.Named("AuthService"),
	}
}

// Register creates a new account with the default user role.
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" || email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: username and a valid email are required", models.ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", models.ErrInvalidInput, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Roles:        []string{models.RoleUser},
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User registered", zap.String("userID", user.ID.String()))
	return user, nil
}

// Login verifies credentials and issues a token pair. Wrong email and
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*models.TokenPair, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, models.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, models.ErrInvalidCredentials
	}
	if user.IsBanned {
		return nil, models.ErrForbidden
	}
	return s.issuePair(ctx, user)
}

// Refresh rotates a refresh token: the old one is invalidated and a fresh
// pair is issued. A reused token fails with ErrTokenNotFound.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	userID, err := s.tokens.GetUserIDByRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.DeleteRefreshToken(ctx, refreshToken); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsBanned {
		return nil, models.ErrForbidden
	}
	return s.issuePair(ctx, user)
}

// Logout invalidates a refresh token. The access token simply expires.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.tokens.DeleteRefreshToken(ctx, refreshToken)
}

// ValidateAccessToken parses and verifies an access token.
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, models.ErrTokenExpired
		}
		return nil, models.ErrTokenInvalid
	}
	if !token.Valid {
		return nil, models.ErrTokenInvalid
	}
	return claims, nil
}

func (s *Service) issuePair(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	now := time.Now()
	claims := &Claims{
		UserID: user.ID.String(),
		Roles:  user.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshToken, err := randomToken()
	if err != nil {
		return nil, err
	}
	if err := s.tokens.SaveRefreshToken(ctx, user.ID, refreshToken, s.refreshTTL); err != nil {
		return nil, err
	}

	return &models.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
