package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/videotube/backend/internal/logging"
	"github.com/videotube/backend/internal/media"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100

	multipartMemory = 32 << 20
)

// decodeJSON reads a JSON request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logging.FromContext(r.Context()).Warn("invalid request payload", "error", err)
		return badRequest("invalid request body")
	}
	return nil
}

// pathID parses a UUID path parameter and returns its canonical form.
func pathID(r *http.Request, name string) (string, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return "", badRequest(fmt.Sprintf("invalid %s", name))
	}
	return id.String(), nil
}

// pagination reads the 1-based page and limit query parameters. Missing values fall
// back to defaults and limits above the maximum are clamped.
func pagination(r *http.Request) (int, int, error) {
	page, err := positiveQueryInt(r, "page", defaultPage)
	if err != nil {
		return 0, 0, err
	}
	limit, err := positiveQueryInt(r, "limit", defaultLimit)
	if err != nil {
		return 0, 0, err
	}
	return page, min(limit, maxLimit), nil
}

func positiveQueryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return 0, badRequest(fmt.Sprintf("%s must be a positive integer", key))
	}
	return value, nil
}

// Staging controls how multipart file fields are written to local disk before they are
// handed to the media uploader.
type Staging struct {
	Dir      string
	MaxBytes int64
}

// parseMultipart parses the request form within the configured size limit. The
// returned cleanup releases the parser's temporary files.
func (s Staging) parseMultipart(w http.ResponseWriter, r *http.Request) (func(), error) {
	if s.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.MaxBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return func() {}, newAPIError(http.StatusRequestEntityTooLarge, "upload exceeds the maximum allowed size")
		}
		logging.FromContext(r.Context()).Warn("invalid multipart payload", "error", err)
		return func() {}, badRequest("invalid multipart body")
	}
	return func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}, nil
}

// stage copies the named file field to a local temporary file, keeping the original
// extension. It returns an empty path when the field is absent.
func (s Staging) stage(r *http.Request, field string) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", badRequest(fmt.Sprintf("invalid %s upload", field))
	}
	defer file.Close()

	dir := s.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	tmp, err := os.CreateTemp(dir, field+"-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create staged file: %w", err)
	}
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write staged file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close staged file: %w", err)
	}
	return tmp.Name(), nil
}

// discard removes a staged file that never reached the uploader.
func discard(path string) {
	if path != "" {
		_ = os.Remove(path)
	}
}

// discardAssets removes uploads that no stored record points at. Failures are logged
// and otherwise ignored.
func discardAssets(ctx context.Context, uploader MediaUploader, assets ...media.Asset) {
	for _, asset := range assets {
		if err := uploader.Discard(ctx, asset); err != nil {
			logging.FromContext(ctx).Warn("discard uploaded media failed", "key", asset.Key, "error", err)
		}
	}
}

func formValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.FormValue(key))
}
