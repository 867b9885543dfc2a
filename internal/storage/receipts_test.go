package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-backend/internal/config"
)

func TestObjectKeyLayout(t *testing.T) {
	key := ObjectKey(42, ".png")
	assert.True(t, strings.HasPrefix(key, "receipts/42/"), key)
	assert.True(t, strings.HasSuffix(key, ".png"), key)
	assert.NotEqual(t, key, ObjectKey(42, ".png"))
}

func TestExtension(t *testing.T) {
	ext, ok := Extension("IMAGE/JPEG")
	require.True(t, ok)
	assert.Equal(t, ".jpg", ext)

	_, ok = Extension("text/html")
	assert.False(t, ok)
}

func TestNewS3ReceiptStoreRequiresBucket(t *testing.T) {
	_, err := NewS3ReceiptStore(context.Background(), &config.Config{})
	assert.Error(t, err)
}

func TestNewS3ReceiptStorePublicURL(t *testing.T) {
	cfg := &config.Config{}
	cfg.Receipts.Bucket = "rental-receipts"
	cfg.Receipts.Region = "auto"
	cfg.Receipts.Endpoint = "http://localhost:9000"
	cfg.Receipts.AccessKey = "minio"
	cfg.Receipts.SecretKey = "minio123"
	cfg.Receipts.PublicBaseURL = "https://cdn.example.com/"

	s, err := NewS3ReceiptStore(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com", s.baseURL)

	_, err = s.Put(context.Background(), 1, "r.gif", "image/gif", strings.NewReader("x"), 1)
	assert.Error(t, err)
}
