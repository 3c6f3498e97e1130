// Package tagkey maps canonical tag keys to the native identifiers of each
// format and folds user supplied keys onto one resource name.
package tagkey

import (
	"golang.org/x/text/cases"

	"github.com/solidcopy/multitag/internal/model"
)

// Canonical keys shared by every format.
const (
	Title       = "title"
	Artist      = "artist"
	Album       = "album"
	AlbumArtist = "albumartist"
	Composer    = "composer"
	Conductor   = "conductor"
	Genre       = "genre"
	Date        = "date"
	Comment     = "comment"
	BPM         = "bpm"
	Key         = "key"
	Mood        = "mood"
	Lyricist    = "lyricist"
	Remixer     = "remixer"
	Label       = "label"
	ISRC        = "isrc"
	Copyright   = "copyright"
	TrackNumber = "tracknumber"
	DiscNumber  = "discnumber"
	Grouping    = "grouping"
	EncodedBy   = "encodedby"
)

var canonicalKeys = map[string]bool{
	Title: true, Artist: true, Album: true, AlbumArtist: true,
	Composer: true, Conductor: true, Genre: true, Date: true,
	Comment: true, BPM: true, Key: true, Mood: true, Lyricist: true,
	Remixer: true, Label: true, ISRC: true, Copyright: true,
	TrackNumber: true, DiscNumber: true, Grouping: true, EncodedBy: true,
}

// lower case-folds s. A Caser keeps state, so each call gets its own.
func lower(s string) string {
	return cases.Fold().String(s)
}

// IsCanonical reports whether key names a canonical concept, ignoring case.
func IsCanonical(key string) bool {
	return canonicalKeys[lower(key)]
}

// canonicalOf returns the canonical spelling of key, or "" when key is not
// canonical.
func canonicalOf(key string) string {
	k := lower(key)
	if canonicalKeys[k] {
		return k
	}
	return ""
}

// Fold returns the resource name key refers to in format. Aliases of one
// concept fold onto the same name, so "TCON" and "genre" are one resource
// for an mp3 file.
func Fold(format model.Format, key string) string {
	switch format {
	case model.FormatMP3:
		return foldID3(key)
	case model.FormatFLAC, model.FormatOGG:
		return foldVorbis(key)
	case model.FormatMP4:
		return foldMP4(key)
	default:
		if c := canonicalOf(key); c != "" {
			return c
		}
		return key
	}
}

// Values looks key up in track after folding it for the track's format.
func Values(track *model.Track, key string) []string {
	return track.Tags[Fold(track.Format, key)]
}
