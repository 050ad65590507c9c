package media

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp"
)

type CompressOptions struct {
	Enabled  bool
	MaxWidth int
	Quality  int
}

var DefaultCompressOptions = CompressOptions{Enabled: true, MaxWidth: 1200, Quality: 80}

// Compressible reports whether content of this type is re-encoded before
// upload. GIFs keep their animation and clips pass through untouched.
func Compressible(contentType string) bool {
	switch CanonicalType(contentType) {
	case "image/jpeg", "image/png", "image/webp":
		return true
	}
	return false
}

// NeedsCompress reports whether the image is wider than MaxWidth. Narrower
// images, and every image when compression is off, are stored as uploaded.
func NeedsCompress(r io.Reader, opts CompressOptions) (bool, error) {
	if !opts.Enabled || opts.MaxWidth <= 0 {
		return false, nil
	}
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return false, fmt.Errorf("decode image: %w", err)
	}
	return cfg.Width > opts.MaxWidth, nil
}

// Compress decodes an image, applies its EXIF orientation, narrows it to
// MaxWidth keeping the aspect ratio and re-encodes it as JPEG.
func Compress(r io.Reader, opts CompressOptions) ([]byte, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	if opts.MaxWidth > 0 && img.Bounds().Dx() > opts.MaxWidth {
		img = imaging.Resize(img, opts.MaxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(opts.Quality)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// TakenAt reads the capture time recorded in a photo's EXIF data.
func TakenAt(r io.Reader) (time.Time, bool) {
	x, err := exif.Decode(r)
	if err != nil {
		return time.Time{}, false
	}
	t, err := x.DateTime()
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
