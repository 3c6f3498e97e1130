package ledger

import (
	"strconv"

	"github.com/solidcopy/multitag/internal/model"
)

// Change is one edit operation. The set of implementations is closed.
type Change interface {
	// Op is the wire name of the operation.
	Op() string
	resource() string
}

const (
	OpRemove           = "remove"
	OpSetRaw           = "setRaw"
	OpAddPicture       = "addPicture"
	OpRemovePicture    = "removePicture"
	OpSetComments      = "setComments"
	OpSetUnsyncLyrics  = "setUnsyncLyrics"
	OpSetPopularimeter = "setPopularimeter"
)

type Remove struct {
	Tag string
}

type SetRaw struct {
	Tag    string
	Values []string
}

type AddPicture struct {
	Kind        model.ImageKind
	MIME        string
	Data        []byte
	Description string
}

type RemovePicture struct {
	Kind model.ImageKind
}

// SetComments replaces every comment of the track.
type SetComments struct {
	Comments []model.Comment
}

// SetUnsyncLyrics replaces every unsynchronised lyrics entry of the track.
type SetUnsyncLyrics struct {
	Lyrics []model.Lyrics
}

// SetPopularimeter replaces the rating frame. A nil Popularimeter removes it.
type SetPopularimeter struct {
	Popularimeter *model.Popularimeter
}

func (Remove) Op() string           { return OpRemove }
func (SetRaw) Op() string           { return OpSetRaw }
func (AddPicture) Op() string       { return OpAddPicture }
func (RemovePicture) Op() string    { return OpRemovePicture }
func (SetComments) Op() string      { return OpSetComments }
func (SetUnsyncLyrics) Op() string  { return OpSetUnsyncLyrics }
func (SetPopularimeter) Op() string { return OpSetPopularimeter }

func tagResource(tag string) string {
	return "tag:" + tag
}

func pictureResource(kind model.ImageKind) string {
	return "picture:" + strconv.Itoa(int(kind))
}

const (
	commentsResource      = "comments"
	lyricsResource        = "lyrics"
	popularimeterResource = "popularimeter"
)

func (c Remove) resource() string         { return tagResource(c.Tag) }
func (c SetRaw) resource() string         { return tagResource(c.Tag) }
func (c AddPicture) resource() string     { return pictureResource(c.Kind) }
func (c RemovePicture) resource() string  { return pictureResource(c.Kind) }
func (SetComments) resource() string      { return commentsResource }
func (SetUnsyncLyrics) resource() string  { return lyricsResource }
func (SetPopularimeter) resource() string { return popularimeterResource }
