package tagkey

import "strings"

var vorbisNames = map[string][]string{
	Title:       {"TITLE"},
	Artist:      {"ARTIST"},
	Album:       {"ALBUM"},
	AlbumArtist: {"ALBUMARTIST", "ALBUM ARTIST"},
	Composer:    {"COMPOSER"},
	Conductor:   {"CONDUCTOR"},
	Genre:       {"GENRE"},
	Date:        {"DATE"},
	Comment:     {"COMMENT", "DESCRIPTION"},
	BPM:         {"BPM"},
	Key:         {"INITIALKEY", "KEY"},
	Mood:        {"MOOD"},
	Lyricist:    {"LYRICIST"},
	Remixer:     {"REMIXER"},
	Label:       {"LABEL", "ORGANIZATION"},
	ISRC:        {"ISRC"},
	Copyright:   {"COPYRIGHT"},
	TrackNumber: {"TRACKNUMBER"},
	DiscNumber:  {"DISCNUMBER"},
	Grouping:    {"GROUPING"},
	EncodedBy:   {"ENCODEDBY", "ENCODED-BY"},
}

var vorbisAliases = func() map[string]string {
	aliases := map[string]string{}
	for canonical, names := range vorbisNames {
		for _, name := range names {
			aliases[name] = canonical
		}
	}
	return aliases
}()

// PictureField carries base64 picture blocks inside Ogg comment headers.
const PictureField = "METADATA_BLOCK_PICTURE"

func foldVorbis(key string) string {
	if c := canonicalOf(key); c != "" {
		return c
	}
	return VorbisDecode(key)
}

// VorbisDecode names a decoded comment field.
func VorbisDecode(field string) string {
	upper := strings.ToUpper(field)
	if c, ok := vorbisAliases[upper]; ok {
		return c
	}
	return upper
}

// VorbisWrite returns the field name a folded key is written under.
func VorbisWrite(folded string) string {
	if names, ok := vorbisNames[folded]; ok {
		return names[0]
	}
	return folded
}

// VorbisNatives returns every field name a folded key may occupy.
func VorbisNatives(folded string) []string {
	if names, ok := vorbisNames[folded]; ok {
		return names
	}
	return []string{folded}
}

// ValidVorbisField reports whether name is a legal comment field name:
// printable ASCII 0x20 through 0x7D, excluding '='.
func ValidVorbisField(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c < 0x20 || c > 0x7d || c == '=' {
			return false
		}
	}
	return true
}
