// Package storage keeps uploaded image bytes outside the database.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BlobStore saves and loads opaque objects by key.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// NewImageKey returns a date-partitioned key for a new image.
func NewImageKey(now time.Time) string {
	return fmt.Sprintf("images/%d/%02d/%02d/%s", now.Year(), now.Month(), now.Day(), uuid.New())
}
