package tagkey

import (
	"strings"
)

// ITunesMean is the namespace of freeform items written by this package.
const ITunesMean = "com.apple.iTunes"

const (
	freeformAtom   = "----"
	freeformPrefix = freeformAtom + ":"
	copyrightSign  = 0xA9
)

// MP4Item identifies an ilst entry: a four byte atom, or a freeform
// "----" item named by mean and name.
type MP4Item struct {
	Atom [4]byte
	Mean string
	Name string
}

func (i MP4Item) Freeform() bool {
	return string(i.Atom[:]) == freeformAtom
}

func (i MP4Item) String() string {
	if i.Freeform() {
		return freeformPrefix + i.Mean + ":" + i.Name
	}
	return AtomName(i.Atom)
}

func atom(name string) MP4Item {
	a, _ := ParseAtom(name)
	return MP4Item{Atom: a}
}

func freeform(name string) MP4Item {
	return MP4Item{Atom: [4]byte{'-', '-', '-', '-'}, Mean: ITunesMean, Name: name}
}

var mp4Items = map[string][]MP4Item{
	Title:       {atom("©nam")},
	Artist:      {atom("©ART")},
	Album:       {atom("©alb")},
	AlbumArtist: {atom("aART")},
	Composer:    {atom("©wrt")},
	Conductor:   {freeform("CONDUCTOR")},
	Genre:       {atom("©gen"), atom("gnre")},
	Date:        {atom("©day")},
	Comment:     {atom("©cmt")},
	BPM:         {atom("tmpo")},
	Key:         {freeform("initialkey")},
	Mood:        {freeform("MOOD")},
	Lyricist:    {freeform("LYRICIST")},
	Remixer:     {freeform("REMIXER")},
	Label:       {freeform("LABEL")},
	ISRC:        {freeform("ISRC")},
	Copyright:   {atom("cprt")},
	TrackNumber: {atom("trkn")},
	DiscNumber:  {atom("disk")},
	Grouping:    {atom("©grp")},
	EncodedBy:   {atom("©too")},
}

// plainAtoms are the ilst atoms without a copyright sign that players
// read. Any other four letter key is written as an iTunes freeform item.
var plainAtoms = map[string]bool{
	"aART": true, "akID": true, "apID": true, "atID": true, "catg": true,
	"cmID": true, "cnID": true, "covr": true, "cpil": true, "cprt": true,
	"desc": true, "disk": true, "egid": true, "geID": true, "gnre": true,
	"hdvd": true, "keyw": true, "ldes": true, "ownr": true, "pcst": true,
	"pgap": true, "plID": true, "purd": true, "purl": true, "rtng": true,
	"sfID": true, "soaa": true, "soal": true, "soar": true, "soco": true,
	"sonm": true, "sosn": true, "stik": true, "tmpo": true, "trkn": true,
	"tven": true, "tves": true, "tvnn": true, "tvsh": true, "tvsn": true,
}

// knownAtom reports whether a is written as a bare ilst atom.
func knownAtom(a [4]byte) bool {
	return a[0] == copyrightSign || plainAtoms[string(a[:])]
}

var mp4Aliases = func() map[string]string {
	aliases := map[string]string{}
	for canonical, items := range mp4Items {
		for _, item := range items {
			aliases[itemAliasKey(item)] = canonical
		}
	}
	return aliases
}()

// itemAliasKey matches freeform names case-insensitively, atoms exactly.
func itemAliasKey(item MP4Item) string {
	if item.Freeform() {
		return freeformPrefix + strings.ToLower(item.Mean) + ":" + strings.ToLower(item.Name)
	}
	return string(item.Atom[:])
}

// ParseAtom converts a key such as "©nam" or "aART" to the atom bytes.
// The copyright sign maps to 0xA9; every other rune must be ASCII.
func ParseAtom(name string) ([4]byte, bool) {
	var a [4]byte
	i := 0
	for _, r := range name {
		if i == 4 {
			return a, false
		}
		switch {
		case r == '©':
			a[i] = copyrightSign
		case r > 0 && r < 0x80:
			a[i] = byte(r)
		default:
			return a, false
		}
		i++
	}
	return a, i == 4
}

// AtomName renders atom bytes as a key, 0xA9 becoming the copyright sign.
func AtomName(a [4]byte) string {
	var b strings.Builder
	for _, c := range a {
		if c == copyrightSign {
			b.WriteRune('©')
		} else {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// parseFreeform splits "----:mean:name".
func parseFreeform(key string) (MP4Item, bool) {
	if !strings.HasPrefix(key, freeformPrefix) {
		return MP4Item{}, false
	}
	mean, name, ok := strings.Cut(key[len(freeformPrefix):], ":")
	if !ok || mean == "" || name == "" {
		return MP4Item{}, false
	}
	item := freeform(name)
	item.Mean = mean
	return item, true
}

func foldMP4(key string) string {
	if c := canonicalOf(key); c != "" {
		return c
	}
	if item, ok := parseFreeform(key); ok {
		return MP4DecodeItem(item)
	}
	if a, ok := ParseAtom(key); ok && knownAtom(a) {
		return MP4DecodeItem(MP4Item{Atom: a})
	}
	return MP4DecodeItem(freeform(key))
}

// MP4DecodeItem names a decoded ilst entry. iTunes freeform items are named
// by their bare name unless that collides with a canonical key or a known
// atom. An unknown bare atom and the freeform item of the same name share
// one key.
func MP4DecodeItem(item MP4Item) string {
	if c, ok := mp4Aliases[itemAliasKey(item)]; ok {
		return c
	}
	if !item.Freeform() {
		return AtomName(item.Atom)
	}
	if item.Mean == ITunesMean && !IsCanonical(item.Name) && !strings.Contains(item.Name, ":") {
		if a, isAtom := ParseAtom(item.Name); !isAtom || !knownAtom(a) {
			return item.Name
		}
	}
	return item.String()
}

// MP4Write returns the item a folded key is written to.
func MP4Write(folded string) MP4Item {
	if items, ok := mp4Items[folded]; ok {
		return items[0]
	}
	if item, ok := parseFreeform(folded); ok {
		return item
	}
	if a, ok := ParseAtom(folded); ok && knownAtom(a) {
		return MP4Item{Atom: a}
	}
	return freeform(folded)
}

// MP4Natives returns every item a folded key may occupy.
func MP4Natives(folded string) []MP4Item {
	if items, ok := mp4Items[folded]; ok {
		return items
	}
	natives := []MP4Item{MP4Write(folded)}
	if a, ok := ParseAtom(folded); ok && !knownAtom(a) {
		natives = append(natives, MP4Item{Atom: a})
	}
	return natives
}

// SameMP4Item compares items the way decoding folds them.
func SameMP4Item(a, b MP4Item) bool {
	return itemAliasKey(a) == itemAliasKey(b)
}
