// Package blob stores uploaded files and hands back their public URLs.
package blob

import (
	"context"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	"eduplatform-backend/errs"
)

const MaxUploadSize = 10 << 20

type Store interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	// Delete is a no-op for missing keys.
	Delete(ctx context.Context, key string) error
}

// File is an upload that has already been read from the request.
type File struct {
	Name string
	Data []byte
}

var (
	Images = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

	Documents = []string{"application/pdf", "image/jpeg", "image/png"}

	Media = []string{
		"image/jpeg", "image/png", "image/gif", "image/webp",
		"application/pdf", "text/plain; charset=utf-8",
		"video/mp4", "video/webm", "audio/mpeg", "audio/wave", "application/ogg",
	}
)

// Validate sniffs the content type and checks it against allowed.
func Validate(f *File, allowed []string) (string, error) {
	if len(f.Data) == 0 {
		return "", errs.ErrBadRequest
	}
	if len(f.Data) > MaxUploadSize {
		return "", errs.ErrFileTooLarge
	}

	ct := http.DetectContentType(f.Data)
	for _, a := range allowed {
		if ct == a {
			return ct, nil
		}
	}
	return "", errs.ErrUnsupportedFile
}

// NewKey builds a collision-free key under prefix, keeping the extension.
func NewKey(prefix, filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, "\\", "/"))))
	if len(ext) > 8 {
		ext = ""
	}
	return prefix + "/" + uuid.NewString() + ext
}
