// Package payload turns user-supplied images into search payloads.
package payload

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/nfnt/resize"
)

// MaxUploadSide bounds the longest side of an uploaded image; larger images
// are downscaled before encoding.
const MaxUploadSide = 1600

const dataURLPrefix = "data:image/png;base64,"

var ErrEmptyImage = errors.New("empty image")

// EncodeImage returns img as a base64 PNG data URL.
func EncodeImage(img image.Image) (string, error) {
	if img == nil {
		return "", ErrEmptyImage
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return "", ErrEmptyImage
	}
	if b.Dx() > MaxUploadSide || b.Dy() > MaxUploadSide {
		img = resize.Thumbnail(MaxUploadSide, MaxUploadSide, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeImage is the inverse of EncodeImage.
func DecodeImage(dataURL string) (image.Image, error) {
	if len(dataURL) < len(dataURLPrefix) || dataURL[:len(dataURLPrefix)] != dataURLPrefix {
		return nil, fmt.Errorf("not a png data url")
	}
	raw, err := base64.StdEncoding.DecodeString(dataURL[len(dataURLPrefix):])
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}
	return img, nil
}

// IsDataURL reports whether s already carries inline image data.
func IsDataURL(s string) bool {
	return len(s) > 5 && s[:5] == "data:"
}
