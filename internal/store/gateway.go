// Package store provides the object-store gateway used for job input audio
// and transcript output.
package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("object not found")

// Gateway is a blocking get/put byte store. No internal retries; callers
// treat any non-success as an immediate failure.
type Gateway interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// TranscriptKey returns the object key of the transcript for a file.
func TranscriptKey(fileID string) string {
	return fmt.Sprintf("transcripts/%s.json", fileID)
}
