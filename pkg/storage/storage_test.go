package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestExtractPublicID(t *testing.T) {
	cases := map[string]string{
		"https://res.cloudinary.com/demo/image/upload/v123456789/folder/sample.jpg": "folder/sample",
		"https://res.cloudinary.com/demo/image/upload/folder/sample.png":            "folder/sample",
		"https://res.cloudinary.com/demo/raw/upload/v1/video.mp4":                   "video",
		"https://res.cloudinary.com/demo/image/upload/":                             "",
		"https://example.com/no/upload-segment.png":                                 "",
	}

	for in, want := range cases {
		assert.Equal(t, want, extractPublicID(in), in)
	}
}

func TestPublicIDFromKey(t *testing.T) {
	assert.Equal(t, "attachments/report", publicIDFromKey("attachments/report.pdf"))
	assert.Equal(t, "folder/sample", publicIDFromKey("https://res.cloudinary.com/demo/image/upload/v12/folder/sample.jpg"))
}

func TestNormalizeEndpoint(t *testing.T) {
	host, secure := normalizeEndpoint("https://s3.example.com/", false)
	assert.Equal(t, "s3.example.com", host)
	assert.True(t, secure)

	host, secure = normalizeEndpoint("http://minio:9000", true)
	assert.Equal(t, "minio:9000", host)
	assert.False(t, secure)

	host, secure = normalizeEndpoint("minio:9000", true)
	assert.Equal(t, "minio:9000", host)
	assert.True(t, secure)
}

func TestNewS3StorageValidatesInput(t *testing.T) {
	_, err := NewS3Storage("", "k", "s", "bucket", false, zap.NewNop())
	assert.Error(t, err)

	_, err = NewS3Storage("minio:9000", "k", "s", "", false, zap.NewNop())
	assert.Error(t, err)
}

func TestNoopStorageRefuses(t *testing.T) {
	err := NewNoopStorage().DeleteObject(context.Background(), "key")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
