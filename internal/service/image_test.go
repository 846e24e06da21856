package service

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDataURL(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("fake image bytes"))

	data, ext, contentType, err := decodeDataURL("data:image/png;base64," + payload)
	require.NoError(t, err)
	assert.Equal(t, []byte("fake image bytes"), data)
	assert.Equal(t, "png", ext)
	assert.Equal(t, "image/png", contentType)

	// Extension case is normalized, jpg and jpeg share a content type.
	_, ext, contentType, err = decodeDataURL("data:image/JPG;base64," + payload)
	require.NoError(t, err)
	assert.Equal(t, "jpg", ext)
	assert.Equal(t, "image/jpeg", contentType)
}

func TestDecodeDataURLRejectsMalformedPayloads(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("fake image bytes"))

	for name, input := range map[string]string{
		"no comma":            "data:image/png;base64",
		"missing base64 mark": "data:image/png," + payload,
		"not an image":        "data:text/plain;base64," + payload,
		"unsupported type":    "data:image/tiff;base64," + payload,
		"bad base64":          "data:image/png;base64,@@@@",
		"empty payload":       "data:image/png;base64,",
	} {
		t.Run(name, func(t *testing.T) {
			_, _, _, err := decodeDataURL(input)
			assert.ErrorIs(t, err, ErrInvalidImage)
		})
	}
}

func TestImageServiceKeysByPurpose(t *testing.T) {
	storage := &captureStorage{}
	svc := NewImageService(storage)
	payload := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("img"))

	_, err := svc.SaveRecipeImage(context.Background(), payload)
	require.NoError(t, err)
	assert.Regexp(t, `^recipes/[0-9a-f-]+\.png$`, storage.lastKey)

	_, err = svc.SaveAvatar(context.Background(), payload)
	require.NoError(t, err)
	assert.Regexp(t, `^avatars/[0-9a-f-]+\.png$`, storage.lastKey)
}

type captureStorage struct {
	lastKey string
}

func (c *captureStorage) Save(_ context.Context, key string, _ []byte, _ string) (string, error) {
	c.lastKey = key
	return "/media/" + key, nil
}

func (c *captureStorage) Delete(context.Context, string) error {
	return nil
}
