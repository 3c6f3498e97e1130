package artwork

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solidcopy/multitag/internal/model"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestProbe(t *testing.T) {
	info, err := Probe(pngBytes(t, 3, 2), "")
	require.NoError(t, err)
	assert.Equal(t, Info{MIME: "image/png", Width: 3, Height: 2}, info)

	info, err = Probe(pngBytes(t, 1, 1), "image/x-custom")
	require.NoError(t, err)
	assert.Equal(t, "image/x-custom", info.MIME)

	_, err = Probe(nil, "image/png")
	assert.Error(t, err)

	info, err = Probe([]byte("not an image at all"), "")
	assert.Error(t, err)
	assert.Equal(t, "text/plain; charset=utf-8", info.MIME)
}

func TestImage(t *testing.T) {
	img, err := Image(model.KindCoverFront, pngBytes(t, 4, 4), "", "front")
	require.NoError(t, err)
	assert.Equal(t, 4, img.Width)
	assert.Equal(t, "front", img.Description)

	_, err = Image(model.KindCoverFront, []byte{1, 2, 3}, "image/png", "")
	var pictureErr *model.InvalidPictureError
	require.True(t, errors.As(err, &pictureErr))
	assert.Equal(t, model.KindCoverFront, pictureErr.Kind)

	_, err = Image(model.ImageKind(40), pngBytes(t, 1, 1), "", "")
	assert.Error(t, err)
}

func TestDecodedKeepsBrokenData(t *testing.T) {
	img := Decoded(model.KindOther, []byte{1, 2, 3}, "image/jpeg", "")
	assert.Equal(t, "image/jpeg", img.MIME)
	assert.Equal(t, 0, img.Width)
	assert.Equal(t, []byte{1, 2, 3}, img.Data)
}
