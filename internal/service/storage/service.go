package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"

	"linguachat-backend/internal/database"
	apperrors "linguachat-backend/pkg/errors"
	"linguachat-backend/pkg/logger"
)

// maxAvatarSize caps avatar uploads at 5 MiB
const maxAvatarSize = 5 * 1024 * 1024

var allowedAvatarTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Service handles avatar object storage
type Service struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

// NewService creates a storage service. baseURL is the public address
// objects are served from, typically the MinIO endpoint itself.
func NewService(db *database.MinIOClient, baseURL string) *Service {
	return &Service{
		client:  db.Client,
		bucket:  db.Bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// UploadAvatar stores a user's avatar and returns its public URL. The
// object key embeds a fresh UUID so a re-upload never overwrites the old
// avatar while clients still reference it.
func (s *Service) UploadAvatar(ctx context.Context, userID uuid.UUID, reader io.Reader, size int64, contentType string) (string, error) {
	ext, allowed := allowedAvatarTypes[contentType]
	if !allowed {
		return "", apperrors.ValidationError("unsupported avatar type: " + contentType)
	}
	if size <= 0 || size > maxAvatarSize {
		return "", apperrors.ValidationError("avatar must be between 1 byte and 5 MiB")
	}

	objectName := path.Join("avatars", userID.String(), uuid.New().String()+ext)

	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", apperrors.StorageError(fmt.Errorf("failed to upload avatar: %w", err))
	}

	logger.Info("avatar uploaded",
		zap.String("user_id", userID.String()),
		zap.String("object", objectName),
	)
	return fmt.Sprintf("%s/%s/%s", s.baseURL, s.bucket, objectName), nil
}

// DeleteAvatar removes a previously uploaded avatar by its public URL.
// Unknown URLs are ignored so stale references never block settings updates.
func (s *Service) DeleteAvatar(ctx context.Context, avatarURL string) error {
	prefix := fmt.Sprintf("%s/%s/", s.baseURL, s.bucket)
	if !strings.HasPrefix(avatarURL, prefix) {
		return nil
	}
	objectName := strings.TrimPrefix(avatarURL, prefix)

	if err := s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return apperrors.StorageError(fmt.Errorf("failed to delete avatar: %w", err))
	}
	return nil
}
