package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
)

// MediaStorage is the slice of object storage the media service needs.
type MediaStorage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Bucket() string
}

// MediaService stores uploaded images and shapes the public URLs
// persisted on user records.
type MediaService struct {
	storage       MediaStorage
	publicBaseURL string
}

func NewMediaService(storage MediaStorage, publicBaseURL string) *MediaService {
	return &MediaService{
		storage:       storage,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// Upload writes the image under a fresh key in the given folder
// ("avatars" or "covers") and returns its public URL.
func (s *MediaService) Upload(ctx context.Context, folder, filename string, data []byte) (string, error) {
	key := folder + "/" + uuid.NewString() + strings.ToLower(path.Ext(filename))
	contentType := http.DetectContentType(data)

	if err := s.storage.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	return s.publicURL(key), nil
}

func (s *MediaService) publicURL(key string) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key
	}
	return "/" + s.storage.Bucket() + "/" + key
}
