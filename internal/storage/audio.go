package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bedtime-server/internal/interfaces"
	"bedtime-server/internal/models"
)

var _ interfaces.AudioStore = (*fsAudioStore)(nil)

// fsAudioStore writes narration files to a local directory that the HTTP
// server exposes as static content.
type fsAudioStore struct {
	dir     string
	baseURL string
	logger  *zap.Logger
}

// NewFSAudioStore creates the audio directory if needed and returns a store
// that yields URLs under baseURL.
func NewFSAudioStore(dir, baseURL string, logger *zap.Logger) (interfaces.AudioStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audio directory %s: %w", dir, err)
	}
	return &fsAudioStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.Named("AudioStore"),
	}, nil
}

func (s *fsAudioStore) Save(ctx context.Context, storyID uuid.UUID, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := storyID.String() + ".mp3"
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Error("Failed to write audio file", zap.Error(err), zap.String("path", path))
		return "", fmt.Errorf("%w: failed to write audio file: %v", models.ErrPersistence, err)
	}
	s.logger.Info("Audio file written",
		zap.String("storyID", storyID.String()), zap.Int("bytes", len(data)))
	return s.baseURL + "/" + name, nil
}
