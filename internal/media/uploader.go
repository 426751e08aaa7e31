package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/videotube/backend/internal/logging"
	"github.com/videotube/backend/internal/metrics"
)

// Kind groups stored objects by media type.
type Kind string

const (
	KindVideo Kind = "videos"
	KindImage Kind = "images"
	KindFile  Kind = "files"
)

var videoExtensions = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
}

var imageExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".webp": {}, ".avif": {}, ".svg": {},
}

// Uploader moves locally staged files to durable storage.
type Uploader struct {
	storage AssetStorage
	prober  DurationProber
}

// NewUploader constructs an Uploader. prober may be nil, in which case durations are zero.
func NewUploader(storage AssetStorage, prober DurationProber) *Uploader {
	return &Uploader{storage: storage, prober: prober}
}

// Upload persists the file at localPath and returns its public URL along with the
// playback duration for videos. The local file is removed once the attempt finishes,
// whether or not it succeeded.
func (u *Uploader) Upload(ctx context.Context, localPath string) (Asset, error) {
	if strings.TrimSpace(localPath) == "" {
		return Asset{}, ErrEmptyPath
	}
	defer func() {
		if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
			logging.FromContext(ctx).Warn("remove staged upload", "path", localPath, "error", err)
		}
	}()

	if u == nil || u.storage == nil {
		return Asset{}, ErrStorageUnavailable
	}

	ctx, span := logging.StartSpan(ctx, "media.upload")
	defer span.End()
	logger := logging.FromContext(ctx)

	f, err := os.Open(localPath)
	if err != nil {
		return Asset{}, fmt.Errorf("open staged upload: %w", err)
	}
	defer f.Close()

	kind, err := classify(f, localPath)
	if err != nil {
		span.Fail(err)
		return Asset{}, err
	}
	span.Annotate("kind", string(kind))

	var asset Asset
	if kind == KindVideo && u.prober != nil {
		duration, err := u.prober.Duration(ctx, localPath)
		if err != nil {
			logger.Warn("probe video duration", "path", localPath, "error", err)
		} else {
			asset.Duration = duration
		}
	}

	key := path.Join(string(kind), uuid.NewString()+strings.ToLower(filepath.Ext(localPath)))
	asset.URL, err = u.storage.Save(ctx, key, f)
	if err != nil {
		metrics.MediaUploads.WithLabelValues(string(kind), "error").Inc()
		span.Fail(err)
		return Asset{}, fmt.Errorf("store %s: %w", kind, err)
	}
	metrics.MediaUploads.WithLabelValues(string(kind), "ok").Inc()

	asset.Key = key
	span.Annotate("key", key)
	logger.Info("media uploaded", "kind", string(kind), "key", key)
	return asset, nil
}

// Discard deletes a stored asset, undoing an Upload whose result is not going to be
// referenced. Assets without a key are ignored.
func (u *Uploader) Discard(ctx context.Context, asset Asset) error {
	if asset.Key == "" {
		return nil
	}
	if u == nil || u.storage == nil {
		return ErrStorageUnavailable
	}
	if err := u.storage.Delete(ctx, asset.Key); err != nil {
		return fmt.Errorf("discard %s: %w", asset.Key, err)
	}
	logging.FromContext(ctx).Info("media discarded", "key", asset.Key)
	return nil
}

// classify picks the storage kind from the file extension, falling back to content
// sniffing. The reader is rewound before returning.
func classify(f io.ReadSeeker, name string) (Kind, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := videoExtensions[ext]; ok {
		return KindVideo, nil
	}
	if _, ok := imageExtensions[ext]; ok {
		return KindImage, nil
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("sniff staged upload: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind staged upload: %w", err)
	}

	contentType := http.DetectContentType(head[:n])
	switch {
	case strings.HasPrefix(contentType, "video/"):
		return KindVideo, nil
	case strings.HasPrefix(contentType, "image/"):
		return KindImage, nil
	default:
		return KindFile, nil
	}
}
