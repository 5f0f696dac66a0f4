package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"lukechampine.com/blake3"

	"github.com/codebuildervaibhav/lecture-grader/internal/apperr"
	"github.com/codebuildervaibhav/lecture-grader/internal/types"
)

var (
	videoKeyPattern = regexp.MustCompile(`^[0-9a-f]{64}(\.[a-z0-9]{1,8})?$`)
	extPattern      = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)
)

// VideoStore keeps lecture recordings on local disk under content-addressed
// keys: the blake3 digest of the bytes plus the original extension. Identical
// uploads share a key; different uploads never collide, whatever their names.
type VideoStore struct {
	dir string
}

// NewVideoStore creates the store directory if needed.
func NewVideoStore(dir string) (*VideoStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create video directory: %w", err)
	}
	return &VideoStore{dir: dir}, nil
}

// Save streams r to disk while hashing it, then moves the file under its key.
func (vs *VideoStore) Save(r io.Reader, originalName, source string) (*types.StoredVideo, error) {
	tmp, err := os.CreateTemp(vs.dir, "incoming-*")
	if err != nil {
		return nil, apperr.Newf(apperr.KindStorage, "save video", "failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	h := blake3.New(32, nil)
	size, err := io.Copy(io.MultiWriter(tmp, h), r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, apperr.Newf(apperr.KindStorage, "save video", "failed to write video: %w", err)
	}
	if size == 0 {
		return nil, apperr.Newf(apperr.KindInvalidInput, "save video", "empty video file")
	}

	key := fmt.Sprintf("%x%s", h.Sum(nil), videoExt(originalName))
	path := filepath.Join(vs.dir, key)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.Rename(tmpPath, path); err != nil {
			return nil, apperr.Newf(apperr.KindStorage, "save video", "failed to store video: %w", err)
		}
	}

	return &types.StoredVideo{
		Key:          key,
		OriginalName: sanitizeFilename(originalName),
		Source:       source,
		Size:         size,
		Path:         path,
		CreatedAt:    time.Now(),
	}, nil
}

// Resolve maps a key returned by Save to its local path.
func (vs *VideoStore) Resolve(key string) (string, error) {
	if !videoKeyPattern.MatchString(key) {
		return "", apperr.Newf(apperr.KindInvalidInput, "resolve video", "invalid video reference %q", key)
	}
	path := filepath.Join(vs.dir, key)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", apperr.Newf(apperr.KindNotFound, "resolve video", "video %s not found", key)
		}
		return "", apperr.New(apperr.KindStorage, "resolve video", err)
	}
	return path, nil
}

func videoExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if !extPattern.MatchString(ext) {
		return ""
	}
	return ext
}
