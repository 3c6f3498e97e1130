package tagkey

import (
	"regexp"
	"strings"
)

// Frames with a dedicated change op or no text form.
const (
	FrameComment       = "COMM"
	FrameLyrics        = "USLT"
	FramePopularimeter = "POPM"
	FramePicture       = "APIC"
	FrameUserText      = "TXXX"
)

const txxxPrefix = FrameUserText + ":"

type id3Mapping struct {
	v24 string
	v23 string
}

var id3Frames = map[string]id3Mapping{
	Title:       {v24: "TIT2"},
	Artist:      {v24: "TPE1"},
	Album:       {v24: "TALB"},
	AlbumArtist: {v24: "TPE2"},
	Composer:    {v24: "TCOM"},
	Conductor:   {v24: "TPE3"},
	Genre:       {v24: "TCON"},
	Date:        {v24: "TDRC", v23: "TYER"},
	BPM:         {v24: "TBPM"},
	Key:         {v24: "TKEY"},
	Mood:        {v24: "TMOO", v23: txxxPrefix + "MOOD"},
	Lyricist:    {v24: "TEXT"},
	Remixer:     {v24: "TPE4"},
	Label:       {v24: "TPUB"},
	ISRC:        {v24: "TSRC"},
	Copyright:   {v24: "TCOP"},
	TrackNumber: {v24: "TRCK"},
	DiscNumber:  {v24: "TPOS"},
	Grouping:    {v24: "TIT1"},
	EncodedBy:   {v24: "TENC"},
}

// id3Aliases maps every native identifier back to its canonical key.
var id3Aliases = func() map[string]string {
	aliases := map[string]string{}
	for canonical, m := range id3Frames {
		aliases[m.v24] = canonical
		if m.v23 != "" {
			aliases[m.v23] = canonical
		}
	}
	return aliases
}()

var frameIDPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]{3}$`)

func IsFrameID(s string) bool {
	return frameIDPattern.MatchString(s)
}

// IsTextFrameID reports a T*** frame other than TXXX.
func IsTextFrameID(id string) bool {
	return IsFrameID(id) && id[0] == 'T' && id != FrameUserText
}

// ID3Target is where a folded key lives inside an ID3v2 tag.
type ID3Target struct {
	// FrameID is a text frame, TXXX, or another frame ID.
	FrameID string
	// Description is set for TXXX.
	Description string
}

func (t ID3Target) String() string {
	if t.FrameID == FrameUserText {
		return txxxPrefix + t.Description
	}
	return t.FrameID
}

func parseID3Native(native string) ID3Target {
	if strings.HasPrefix(native, txxxPrefix) {
		return ID3Target{FrameID: FrameUserText, Description: native[len(txxxPrefix):]}
	}
	return ID3Target{FrameID: native}
}

func foldID3(key string) string {
	if c := canonicalOf(key); c != "" {
		return c
	}
	upper := strings.ToUpper(key)
	if c, ok := id3Aliases[upper]; ok {
		return c
	}
	if len(key) > len(txxxPrefix) && strings.EqualFold(key[:len(txxxPrefix)], txxxPrefix) {
		return userTextKey(key[len(txxxPrefix):])
	}
	if IsFrameID(upper) {
		return upper
	}
	return userTextKey(key)
}

// userTextKey names a TXXX frame by its description, unless that would
// collide with a canonical key or a frame ID.
func userTextKey(description string) string {
	if c, ok := id3Aliases[txxxPrefix+strings.ToUpper(description)]; ok {
		return c
	}
	if IsCanonical(description) || IsFrameID(strings.ToUpper(description)) {
		return txxxPrefix + description
	}
	return description
}

// ID3Write returns the frame a folded key is written to for the given
// major version.
func ID3Write(folded string, version byte) ID3Target {
	if m, ok := id3Frames[folded]; ok {
		if version == 3 && m.v23 != "" {
			return parseID3Native(m.v23)
		}
		return parseID3Native(m.v24)
	}
	if strings.HasPrefix(folded, txxxPrefix) {
		return parseID3Native(folded)
	}
	if IsFrameID(folded) {
		return ID3Target{FrameID: folded}
	}
	return ID3Target{FrameID: FrameUserText, Description: folded}
}

// ID3Natives returns every frame a folded key may occupy, for removal.
func ID3Natives(folded string) []ID3Target {
	if m, ok := id3Frames[folded]; ok {
		targets := []ID3Target{parseID3Native(m.v24)}
		if m.v23 != "" {
			targets = append(targets, parseID3Native(m.v23))
		}
		return targets
	}
	return []ID3Target{ID3Write(folded, 4)}
}

// ID3Decode names a decoded text frame or TXXX description.
func ID3Decode(frameID, description string) string {
	if frameID == FrameUserText {
		return userTextKey(description)
	}
	if c, ok := id3Aliases[frameID]; ok {
		return c
	}
	return frameID
}
