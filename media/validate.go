// Package media checks and prepares photos and clips before they are stored.
package media

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	MaxImageSize int64 = 5 << 20
	MaxVideoSize int64 = 50 << 20
)

var (
	ErrUnsupportedType = errors.New("only JPG, PNG, WebP and GIF images or MP4/MOV clips are supported")
	ErrTooLarge        = errors.New("file exceeds the size limit")
	ErrContentMismatch = errors.New("file content does not match its declared type")
	ErrEmpty           = errors.New("file is empty")
)

var sizeLimits = map[string]int64{
	"image/jpeg":      MaxImageSize,
	"image/png":       MaxImageSize,
	"image/webp":      MaxImageSize,
	"image/gif":       MaxImageSize,
	"video/mp4":       MaxVideoSize,
	"video/quicktime": MaxVideoSize,
}

// CanonicalType normalises a declared content type: parameters are dropped and
// the non-standard image/jpg is read as image/jpeg.
func CanonicalType(contentType string) string {
	ct, _, _ := strings.Cut(contentType, ";")
	ct = strings.ToLower(strings.TrimSpace(ct))
	if ct == "image/jpg" {
		return "image/jpeg"
	}
	return ct
}

func IsVideo(contentType string) bool {
	return strings.HasPrefix(CanonicalType(contentType), "video/")
}

// Validate checks a file's declared type and size against the allow list and
// confirms the leading bytes agree with the declared type.
func Validate(contentType string, size int64, head []byte) error {
	ct := CanonicalType(contentType)
	limit, ok := sizeLimits[ct]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	if size <= 0 || len(head) == 0 {
		return ErrEmpty
	}
	if size > limit {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, size, limit)
	}
	if !sniffed(head, ct) {
		return fmt.Errorf("%w: declared %s", ErrContentMismatch, ct)
	}
	return nil
}

// sniffed reports whether head is content of type ct or of one of its
// subtypes in the same media class, e.g. an M4V or 3GP file declared as mp4.
func sniffed(head []byte, ct string) bool {
	detected := mimetype.Detect(head)
	class, _, _ := strings.Cut(ct, "/")
	if !strings.HasPrefix(detected.String(), class+"/") {
		return false
	}
	for m := detected; m != nil; m = m.Parent() {
		if m.Is(ct) {
			return true
		}
	}
	return false
}

// Extension returns the file extension used when storing content of type ct.
func Extension(contentType string) string {
	switch CanonicalType(contentType) {
	case "image/jpeg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	case "video/mp4":
		return "mp4"
	case "video/quicktime":
		return "mov"
	}
	return "bin"
}
