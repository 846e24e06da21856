package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidImage rejects payloads that are not well-formed base64 data URLs.
var ErrInvalidImage = errors.New("invalid image payload")

var imageExtensions = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// ImageStorage persists decoded images and hands back the URL they are
// reachable under.
type ImageStorage interface {
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// ImageService turns client-submitted data URLs into stored images.
type ImageService struct {
	storage ImageStorage
}

func NewImageService(storage ImageStorage) *ImageService {
	return &ImageService{storage: storage}
}

// SaveRecipeImage stores a recipe illustration and returns its URL.
func (s *ImageService) SaveRecipeImage(ctx context.Context, dataURL string) (string, error) {
	return s.save(ctx, "recipes", dataURL)
}

// SaveAvatar stores a user avatar and returns its URL.
func (s *ImageService) SaveAvatar(ctx context.Context, dataURL string) (string, error) {
	return s.save(ctx, "avatars", dataURL)
}

// Delete removes a previously stored image. Callers treat failures as
// best-effort cleanup since the referencing row is already updated.
func (s *ImageService) Delete(ctx context.Context, url string) error {
	return s.storage.Delete(ctx, url)
}

func (s *ImageService) save(ctx context.Context, prefix, dataURL string) (string, error) {
	data, ext, contentType, err := decodeDataURL(dataURL)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("%s/%s.%s", prefix, uuid.New().String(), ext)
	return s.storage.Save(ctx, key, data, contentType)
}

// decodeDataURL parses a "data:image/<ext>;base64,<payload>" string.
func decodeDataURL(dataURL string) (data []byte, ext, contentType string, err error) {
	header, payload, found := strings.Cut(dataURL, ",")
	if !found {
		return nil, "", "", ErrInvalidImage
	}

	header = strings.TrimPrefix(header, "data:image/")
	ext = strings.TrimSuffix(header, ";base64")
	if ext == header {
		return nil, "", "", ErrInvalidImage
	}

	contentType, ok := imageExtensions[strings.ToLower(ext)]
	if !ok {
		return nil, "", "", ErrInvalidImage
	}

	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil || len(data) == 0 {
		return nil, "", "", ErrInvalidImage
	}

	return data, strings.ToLower(ext), contentType, nil
}
