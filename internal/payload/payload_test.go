package payload

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeImage_RoundTrip(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 12, 8))
	encoded, err := EncodeImage(src)
	require.NoError(t, err)
	assert.True(t, IsDataURL(encoded))

	decoded, err := DecodeImage(encoded)
	require.NoError(t, err)
	assert.Equal(t, 12, decoded.Bounds().Dx())
	assert.Equal(t, 8, decoded.Bounds().Dy())
}

func TestEncodeImage_DownscalesLargeImages(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, MaxUploadSide*2, MaxUploadSide))
	encoded, err := EncodeImage(src)
	require.NoError(t, err)

	decoded, err := DecodeImage(encoded)
	require.NoError(t, err)
	assert.Equal(t, MaxUploadSide, decoded.Bounds().Dx())
	assert.Equal(t, MaxUploadSide/2, decoded.Bounds().Dy())
}

func TestEncodeImage_Empty(t *testing.T) {
	_, err := EncodeImage(nil)
	assert.ErrorIs(t, err, ErrEmptyImage)

	_, err = EncodeImage(image.NewRGBA(image.Rectangle{}))
	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestIsDataURL(t *testing.T) {
	assert.True(t, IsDataURL("data:image/png;base64,AA"))
	assert.False(t, IsDataURL("https://example.com/a.png"))
	assert.False(t, IsDataURL("data:"))
}
