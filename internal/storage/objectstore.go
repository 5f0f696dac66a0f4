package storage

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/codebuildervaibhav/lecture-grader/internal/types"
)

// ObjectStore writes a payload under a freshly generated key and returns a
// publicly readable URL for it.
type ObjectStore interface {
	Store(ctx context.Context, data []byte, originalName string) (*types.UploadedAsset, error)
	Backend() string
}

// NewObjectKey returns a collision-free key that keeps the original file name
// (and so its extension) readable: "<uuid>_<name>".
func NewObjectKey(originalName string) string {
	name := sanitizeFilename(originalName)
	if name == "" {
		name = "upload"
	}
	return fmt.Sprintf("%s_%s", uuid.New().String(), name)
}

// sanitizeFilename strips directories and characters that are unsafe in
// object keys and local paths.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	invalid := []string{":", "*", "?", "\"", "<", ">", "|"}
	for _, ch := range invalid {
		name = strings.ReplaceAll(name, ch, "_")
	}
	if len(name) > 100 {
		ext := filepath.Ext(name)
		if len(ext) > 10 {
			ext = ""
		}
		cut := 100 - len(ext)
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = name[:cut] + ext
	}
	return name
}

func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr)
}
