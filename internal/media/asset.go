package media

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrStorageUnavailable indicates no durable storage backend is configured.
	ErrStorageUnavailable = errors.New("media storage unavailable")
	// ErrEmptyPath indicates an upload was requested without a local file.
	ErrEmptyPath = errors.New("media: local path is required")
	// ErrInvalidKey indicates a storage key that is empty or escapes its root.
	ErrInvalidKey = errors.New("media: invalid storage key")
)

// Asset describes a file persisted to durable storage.
type Asset struct {
	URL string
	// Key locates the asset inside its storage backend.
	Key string
	// Duration is the media length in seconds; zero for images or unknown durations.
	Duration float64
}

// AssetStorage persists named content and returns its public location. Delete of a
// missing key is not an error.
type AssetStorage interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	Delete(ctx context.Context, name string) error
}

// DurationProber reports the playback length of a local media file in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}
