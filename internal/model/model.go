package model

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Format is the tag family of an audio file, chosen from its extension.
type Format string

const (
	FormatMP3  Format = "mp3"
	FormatFLAC Format = "flac"
	FormatOGG  Format = "ogg"
	FormatMP4  Format = "mp4"
)

// Track is the format-neutral snapshot of a file's metadata.
// It is read-only once decoded; edits go through a ledger.
type Track struct {
	Path   string
	Format Format
	// Tags maps a canonical key (title, artist, ...) or a raw native
	// identifier to its values in file order.
	Tags   map[string][]string
	Images []Image
	// ID3 is set only for mp3 files.
	ID3 *ID3Extras
	// Opaque lists keys of native items that are kept verbatim but have no
	// text form, such as binary frames or atoms.
	Opaque   []string
	Warnings []Warning
}

func NewTrack(path string, format Format) *Track {
	return &Track{
		Path:   path,
		Format: format,
		Tags:   map[string][]string{},
	}
}

func (t *Track) Values(key string) []string {
	return t.Tags[key]
}

func (t *Track) First(key string) string {
	values := t.Tags[key]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func (t *Track) HasTag(key string) bool {
	return len(t.Tags[key]) > 0
}

func (t *Track) HasOpaque(key string) bool {
	return slices.Contains(t.Opaque, key)
}

// AddOpaque records a native item without a text form.
func (t *Track) AddOpaque(key string) {
	if !t.HasOpaque(key) {
		t.Opaque = append(t.Opaque, key)
	}
}

// Keys returns the tag keys in sorted order.
func (t *Track) Keys() []string {
	keys := maps.Keys(t.Tags)
	slices.Sort(keys)
	return keys
}

func (t *Track) Image(kind ImageKind) (Image, bool) {
	for _, image := range t.Images {
		if image.Kind == kind {
			return image, true
		}
	}
	return Image{}, false
}

// SetImage stores image, replacing any image of the same kind.
func (t *Track) SetImage(image Image) {
	for i := range t.Images {
		if t.Images[i].Kind == image.Kind {
			t.Images[i] = image
			return
		}
	}
	t.Images = append(t.Images, image)
	slices.SortStableFunc(t.Images, func(a, b Image) int {
		return int(a.Kind) - int(b.Kind)
	})
}

func (t *Track) Warn(stage, message string) {
	t.Warnings = append(t.Warnings, Warning{Stage: stage, Message: message})
}

type Image struct {
	Kind        ImageKind
	MIME        string
	Width       int
	Height      int
	Description string
	Data        []byte
}

// ID3Extras holds the frames that only ID3v2 can carry.
type ID3Extras struct {
	Version       byte
	Comments      []Comment
	Lyrics        []Lyrics
	Popularimeter *Popularimeter
}

// Comment is a COMM frame. Language is a 3-letter ISO-639-2 code.
type Comment struct {
	Language    string `json:"language"`
	Description string `json:"description"`
	Text        string `json:"text"`
}

// Lyrics is a USLT frame.
type Lyrics struct {
	Language    string `json:"language"`
	Description string `json:"description"`
	Text        string `json:"text"`
}

type Popularimeter struct {
	Email   string `json:"email"`
	Counter uint64 `json:"counter"`
	Rating  uint8  `json:"rating"`
}

// Stars converts the 0-255 rating to a 1-5 star label.
func (p Popularimeter) Stars() int {
	return Stars(p.Rating)
}

func Stars(rating uint8) int {
	stars := (int(rating) + 50) / 51
	if stars < 1 {
		return 1
	}
	return stars
}
