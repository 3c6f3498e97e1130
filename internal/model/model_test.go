package model

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStars(t *testing.T) {
	tests := []struct {
		rating uint8
		stars  int
	}{
		{0, 1},
		{1, 1},
		{51, 1},
		{52, 2},
		{128, 3},
		{204, 4},
		{255, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.stars, Stars(tt.rating), "rating %d", tt.rating)
	}
	assert.Equal(t, 3, Popularimeter{Rating: 128}.Stars())
}

func TestImageKindNames(t *testing.T) {
	for k := KindOther; k <= KindPublisherLogo; k++ {
		parsed, err := ParseImageKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}

	kind, err := ParseImageKind("COVERFRONT")
	require.NoError(t, err)
	assert.Equal(t, KindCoverFront, kind)
	assert.Equal(t, ImageKind(3), KindCoverFront)
	assert.Equal(t, ImageKind(20), KindPublisherLogo)

	_, err = ParseImageKind("poster")
	assert.Error(t, err)
	assert.False(t, ImageKind(21).Valid())
}

func TestTrackSetImageReplacesKind(t *testing.T) {
	track := NewTrack("a.mp3", FormatMP3)
	track.SetImage(Image{Kind: KindCoverBack, Data: []byte{1}})
	track.SetImage(Image{Kind: KindCoverFront, Data: []byte{2}})
	track.SetImage(Image{Kind: KindCoverFront, Data: []byte{3}})

	require.Len(t, track.Images, 2)
	assert.Equal(t, KindCoverFront, track.Images[0].Kind)
	front, ok := track.Image(KindCoverFront)
	require.True(t, ok)
	assert.Equal(t, []byte{3}, front.Data)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err   error
		class string
	}{
		{&IOError{Op: "open", Path: "x", Err: fs.ErrNotExist}, ClassIO},
		{fmt.Errorf("save: %w", &IOError{Op: "lock", Path: "x", Err: ErrLocked}), ClassIO},
		{&FormatError{Reason: "bad header"}, ClassFormat},
		{&UnsupportedFormatError{Ext: ".wav"}, ClassUnsupportedFormat},
		{&UnsupportedOperationError{Op: "setPopularimeter", Format: FormatFLAC}, ClassUnsupportedOperation},
		{&EncodingError{Key: "title"}, ClassEncoding},
		{&UnknownTagKeyError{Key: "A=B"}, ClassUnknownTagKey},
		{&InvalidPictureError{Kind: KindCoverFront}, ClassInvalidPicture},
		{errors.New("other"), ClassUnknown},
		{nil, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.class, Classify(tt.err), "%v", tt.err)
	}
}

func TestIOErrorPredicates(t *testing.T) {
	err := &IOError{Op: "open", Path: "x", Err: fs.ErrNotExist}
	assert.True(t, err.NotFound())
	assert.False(t, err.Locked())
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	locked := &IOError{Op: "lock", Path: "x", Err: ErrLocked}
	assert.True(t, locked.Locked())
	assert.True(t, errors.Is(locked, ErrLocked))
}
