// Package media prepares uploaded car photos for storage.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
)

// ErrNotImage is returned when the upload cannot be decoded as an image.
var ErrNotImage = errors.New("file is not a supported image")

const (
	defaultMaxWidth = 1600
	defaultQuality  = 85
)

// Options bounds the stored image.
type Options struct {
	MaxWidth    int
	JPEGQuality int
}

// PrepareJPEG decodes r (JPEG, PNG, GIF, BMP or TIFF), applies the EXIF
// orientation, shrinks it to MaxWidth keeping the aspect ratio and
// re-encodes it as JPEG.
func PrepareJPEG(r io.Reader, opts Options) ([]byte, error) {
	if opts.MaxWidth <= 0 {
		opts.MaxWidth = defaultMaxWidth
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = defaultQuality
	}

	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	if img.Bounds().Dx() > opts.MaxWidth {
		img = imaging.Resize(img, opts.MaxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(opts.JPEGQuality)); err != nil {
		return nil, fmt.Errorf("encoding jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
