package utils

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessImage_ResizesWideImages(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2400, 100))
	for x := 0; x < 2400; x++ {
		src.Set(x, 50, color.RGBA{R: 200, A: 255})
	}
	var in bytes.Buffer
	require.NoError(t, png.Encode(&in, src))

	out, contentType, err := ProcessImage(&in)
	require.NoError(t, err)
	assert.Contains(t, []string{"image/webp", "image/jpeg"}, contentType)

	var decoded image.Image
	if contentType == "image/webp" {
		decoded, err = webp.Decode(bytes.NewReader(out))
	} else {
		decoded, _, err = image.Decode(bytes.NewReader(out))
	}
	require.NoError(t, err)
	assert.Equal(t, 2000, decoded.Bounds().Dx())
}

func TestProcessImage_RejectsNonImages(t *testing.T) {
	_, _, err := ProcessImage(strings.NewReader("not an image"))
	assert.Error(t, err)
}
