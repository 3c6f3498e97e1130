package vorbis

import (
	"bytes"
	"image"
	"image/gif"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solidcopy/multitag/internal/ledger"
	"github.com/solidcopy/multitag/internal/model"
	"github.com/solidcopy/multitag/internal/separator"
)

func TestCommentsRoundTrip(t *testing.T) {
	c := NewComments("test vendor")
	require.NoError(t, c.Set("artist", []string{"A", "B"}))
	require.NoError(t, c.Set("COMMENT", []string{"hello"}))

	parsed, err := ParseComments(c.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "test vendor", parsed.Vendor())
	assert.Equal(t, []string{"ARTIST=A", "ARTIST=B", "COMMENT=hello"}, parsed.Entries())
}

func TestRemoveDropsAliases(t *testing.T) {
	c := NewComments("v")
	c.block.Comments = []string{"ORGANIZATION=x", "Label=y", "TITLE=t"}
	c.Remove("label")
	assert.Equal(t, []string{"TITLE=t"}, c.Entries())
}

func TestSetEmptyRemoves(t *testing.T) {
	c := NewComments("v")
	c.block.Comments = []string{"TITLE=t"}
	require.NoError(t, c.Set("title", nil))
	assert.Empty(t, c.Entries())
}

func TestDecodeSkipsPictures(t *testing.T) {
	c := NewComments("v")
	c.block.Comments = []string{"TITLE=t", "METADATA_BLOCK_PICTURE=AAAA", "=novalue"}
	track := model.NewTrack("a.ogg", model.FormatOGG)
	c.Decode(track, separator.For(model.FormatOGG, model.DefaultSeparators()))

	assert.Equal(t, []string{"t"}, track.Values("title"))
	assert.True(t, track.HasOpaque("METADATA_BLOCK_PICTURE"))
	assert.Len(t, track.Warnings, 1)
}

func TestPictureEntries(t *testing.T) {
	c := NewComments("v")
	c.block.Comments = []string{"TITLE=t", "metadata_block_picture=abc"}
	assert.Equal(t, []string{"abc"}, c.PictureEntries())
	assert.Equal(t, []string{"TITLE=t"}, c.Entries())

	c.AddPictureEntry("def")
	assert.Equal(t, []string{"TITLE=t", "METADATA_BLOCK_PICTURE=def"}, c.Entries())
}

func TestPictures(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 5, 4))))

	front, err := NewPicture(ledger.AddPicture{Kind: model.KindCoverFront, Data: buf.Bytes(), Description: "f"})
	require.NoError(t, err)
	assert.Equal(t, uint32(5), front.Width)

	decoded, err := DecodePicture(EncodePicture(front))
	require.NoError(t, err)
	assert.Equal(t, front, decoded)

	buf.Reset()
	require.NoError(t, gif.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1)), nil))
	back, err := NewPicture(ledger.AddPicture{Kind: model.KindCoverBack, Data: buf.Bytes()})
	require.NoError(t, err)
	assert.Equal(t, "image/gif", back.MIME)

	var pictures Pictures
	pictures.Replace(front)
	pictures.Replace(back)
	pictures.Replace(decoded)
	require.Len(t, pictures.All(), 2)

	track := model.NewTrack("a.flac", model.FormatFLAC)
	pictures.Decode(track)
	assert.Len(t, track.Images, 2)

	pictures.Remove(model.KindCoverBack)
	assert.Len(t, pictures.All(), 1)

	_, err = NewPicture(ledger.AddPicture{Kind: model.KindCoverFront, Data: []byte("nope")})
	assert.Error(t, err)
}
