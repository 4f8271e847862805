package storage

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestReadImage_AcceptsPNG(t *testing.T) {
	data, err := ReadImage(bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)
}

func TestReadImage_RejectsText(t *testing.T) {
	_, err := ReadImage(bytes.NewReader([]byte("hello world")))
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestReadImage_RejectsOversized(t *testing.T) {
	big := append(append([]byte{}, pngHeader...), make([]byte, MaxImageSize)...)
	_, err := ReadImage(bytes.NewReader(big))
	assert.ErrorIs(t, err, ErrImageTooLarge)
}

func TestCloudinaryUploader_NotConfigured(t *testing.T) {
	u, err := NewCloudinaryUploader("", "swapbnb")
	require.NoError(t, err)

	_, err = u.UploadImage(context.Background(), "homes", "x", pngHeader)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
