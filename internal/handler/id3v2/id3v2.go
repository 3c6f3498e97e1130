package id3v2

import (
	"fmt"
	"io"
	"math"
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/bogem/id3v2/v2"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/solidcopy/multitag/internal/artwork"
	"github.com/solidcopy/multitag/internal/ledger"
	"github.com/solidcopy/multitag/internal/model"
	"github.com/solidcopy/multitag/internal/separator"
	"github.com/solidcopy/multitag/internal/tagkey"
)

const format = model.FormatMP3

// Document is an mp3 file's ID3v2 tag plus the location of its audio.
type Document struct {
	src        io.ReadSeeker
	tag        *id3v2.Tag
	audioStart int64
	version    byte
	latin1     bool
	warnings   []model.Warning
}

func Load(r io.ReadSeeker) (*Document, error) {
	raw, err := readRawTag(r)
	if err != nil {
		return nil, err
	}

	doc := &Document{src: r, version: 4}
	if raw == nil {
		doc.tag = id3v2.NewEmptyTag()
		return doc, nil
	}

	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	if end < raw.end {
		return nil, &model.FormatError{Reason: "ID3v2 tag extends past end of file"}
	}

	doc.audioStart = raw.end
	if raw.skipped {
		doc.tag = id3v2.NewEmptyTag()
		doc.warnings = raw.warnings
		return doc, nil
	}
	doc.tag, doc.warnings = raw.parse()
	doc.version = raw.version
	return doc, nil
}

func (d *Document) Track(path string, opts model.Options) *model.Track {
	track := model.NewTrack(path, format)
	track.Warnings = append(track.Warnings, d.warnings...)
	policy := separator.For(format, opts.Separators)
	extras := &model.ID3Extras{Version: d.version}
	track.ID3 = extras

	all := d.tag.AllFrames()
	ids := maps.Keys(all)
	slices.Sort(ids)

	for _, id := range ids {
		for _, frame := range all[id] {
			switch f := frame.(type) {
			case id3v2.TextFrame:
				if !tagkey.IsTextFrameID(id) {
					track.AddOpaque(tagkey.Fold(format, id))
					continue
				}
				key := tagkey.ID3Decode(id, "")
				track.Tags[key] = append(track.Tags[key], policy.Decode([]string{f.Text})...)
			case id3v2.UserDefinedTextFrame:
				key := tagkey.ID3Decode(tagkey.FrameUserText, f.Description)
				track.Tags[key] = append(track.Tags[key], policy.Decode([]string{f.Value})...)
			case id3v2.PictureFrame:
				kind := model.ImageKind(f.PictureType)
				if !kind.Valid() {
					track.Warn("id3v2", fmt.Sprintf("picture type %d read as other", f.PictureType))
					kind = model.KindOther
				}
				if _, exists := track.Image(kind); exists {
					track.Warn("id3v2", fmt.Sprintf("duplicate %s picture ignored", kind))
					continue
				}
				track.SetImage(artwork.Decoded(kind, f.Picture, f.MimeType, f.Description))
			case id3v2.CommentFrame:
				extras.Comments = append(extras.Comments, model.Comment{
					Language:    f.Language,
					Description: f.Description,
					Text:        f.Text,
				})
			case id3v2.UnsynchronisedLyricsFrame:
				extras.Lyrics = append(extras.Lyrics, model.Lyrics{
					Language:    f.Language,
					Description: f.ContentDescriptor,
					Text:        f.Lyrics,
				})
			case id3v2.PopularimeterFrame:
				extras.Popularimeter = &model.Popularimeter{
					Email:   f.Email,
					Counter: counterValue(f.Counter),
					Rating:  f.Rating,
				}
			default:
				track.AddOpaque(tagkey.Fold(format, id))
			}
		}
	}

	for key, values := range track.Tags {
		if len(values) == 0 {
			delete(track.Tags, key)
		}
	}
	return track
}

func counterValue(counter *big.Int) uint64 {
	if counter == nil || counter.Sign() < 0 {
		return 0
	}
	if !counter.IsUint64() {
		return math.MaxUint64
	}
	return counter.Uint64()
}

func (d *Document) Apply(changes []ledger.Change, opts model.Options) error {
	version := byte(3)
	if opts.ID3v24 {
		version = 4
	}
	policy := separator.For(format, opts.Separators)

	for _, change := range changes {
		var err error
		switch c := change.(type) {
		case ledger.Remove:
			err = d.remove(tagkey.Fold(format, c.Tag))
		case ledger.SetRaw:
			err = d.setRaw(tagkey.Fold(format, c.Tag), policy.Encode(c.Values), version)
		case ledger.AddPicture:
			err = d.addPicture(c)
		case ledger.RemovePicture:
			d.removePicture(c.Kind)
		case ledger.SetComments:
			err = d.setComments(c.Comments)
		case ledger.SetUnsyncLyrics:
			err = d.setLyrics(c.Lyrics)
		case ledger.SetPopularimeter:
			d.setPopularimeter(c.Popularimeter)
		default:
			err = &model.UnsupportedOperationError{Op: change.Op(), Format: format}
		}
		if err != nil {
			return err
		}
	}

	d.version = version
	d.latin1 = opts.ID3Latin1
	return nil
}

func (d *Document) remove(key string) error {
	switch key {
	case tagkey.FramePopularimeter:
		d.setPopularimeter(nil)
		return nil
	case tagkey.FrameComment:
		d.tag.DeleteFrames(tagkey.FrameComment)
		return nil
	case tagkey.FrameLyrics:
		d.tag.DeleteFrames(tagkey.FrameLyrics)
		return nil
	}
	for _, target := range tagkey.ID3Natives(key) {
		d.deleteTarget(target)
	}
	return nil
}

// deleteTarget removes a frame, or for TXXX only the frame with the
// target's description.
func (d *Document) deleteTarget(target tagkey.ID3Target) {
	if target.FrameID != tagkey.FrameUserText {
		d.tag.DeleteFrames(target.FrameID)
		return
	}
	d.filterFrames(tagkey.FrameUserText, func(f id3v2.Framer) bool {
		udtf, ok := f.(id3v2.UserDefinedTextFrame)
		return ok && strings.EqualFold(udtf.Description, target.Description)
	})
}

// filterFrames deletes the frames of id for which drop returns true.
func (d *Document) filterFrames(id string, drop func(id3v2.Framer) bool) {
	frames := d.tag.GetFrames(id)
	if len(frames) == 0 {
		return
	}
	d.tag.DeleteFrames(id)
	for _, f := range frames {
		if !drop(f) {
			d.tag.AddFrame(id, f)
		}
	}
}

func (d *Document) setRaw(key string, entries []string, version byte) error {
	if key == tagkey.Comment {
		return &model.UnknownTagKeyError{Key: key, Format: format, Reason: "ID3 comments are written with setComments"}
	}
	target := tagkey.ID3Write(key, version)
	if target.FrameID != tagkey.FrameUserText && !tagkey.IsTextFrameID(target.FrameID) {
		return &model.UnknownTagKeyError{Key: key, Format: format, Reason: target.FrameID + " is not a text frame"}
	}
	for _, entry := range entries {
		if !utf8.ValidString(entry) {
			return &model.EncodingError{Key: key, Reason: "value is not valid UTF-8"}
		}
	}

	for _, native := range tagkey.ID3Natives(key) {
		d.deleteTarget(native)
	}
	d.deleteTarget(target)
	if len(entries) == 0 {
		return nil
	}

	text := entries[0]
	if key == tagkey.Date && version == 3 && len(text) > 4 {
		text = text[:4]
	}
	d.writeText(target, text)
	return nil
}

func (d *Document) addPicture(c ledger.AddPicture) error {
	image, err := artwork.Image(c.Kind, c.Data, c.MIME, c.Description)
	if err != nil {
		return err
	}
	d.removePicture(c.Kind)
	d.tag.AddAttachedPicture(id3v2.PictureFrame{
		Encoding:    id3v2.EncodingUTF8,
		MimeType:    image.MIME,
		PictureType: byte(c.Kind),
		Description: image.Description,
		Picture:     image.Data,
	})
	return nil
}

func (d *Document) removePicture(kind model.ImageKind) {
	d.filterFrames(tagkey.FramePicture, func(f id3v2.Framer) bool {
		pf, ok := f.(id3v2.PictureFrame)
		return ok && pf.PictureType == byte(kind)
	})
}

func (d *Document) setComments(comments []model.Comment) error {
	d.tag.DeleteFrames(tagkey.FrameComment)
	for _, c := range comments {
		language, err := languageCode(c.Language)
		if err != nil {
			return err
		}
		d.tag.AddCommentFrame(id3v2.CommentFrame{
			Encoding:    id3v2.EncodingUTF8,
			Language:    language,
			Description: c.Description,
			Text:        c.Text,
		})
	}
	return nil
}

func (d *Document) setLyrics(lyrics []model.Lyrics) error {
	d.tag.DeleteFrames(tagkey.FrameLyrics)
	for _, l := range lyrics {
		language, err := languageCode(l.Language)
		if err != nil {
			return err
		}
		d.tag.AddUnsynchronisedLyricsFrame(id3v2.UnsynchronisedLyricsFrame{
			Encoding:          id3v2.EncodingUTF8,
			Language:          language,
			ContentDescriptor: l.Description,
			Lyrics:            l.Text,
		})
	}
	return nil
}

// languageCode checks an ISO-639-2 code. An empty code becomes "XXX",
// the ID3 marker for an unknown language.
func languageCode(language string) (string, error) {
	if language == "" {
		return "XXX", nil
	}
	if len(language) != 3 {
		return "", &model.EncodingError{Key: "language", Reason: fmt.Sprintf("%q is not a 3-letter code", language)}
	}
	for i := 0; i < 3; i++ {
		if language[i] >= utf8.RuneSelf {
			return "", &model.EncodingError{Key: "language", Reason: fmt.Sprintf("%q is not a 3-letter code", language)}
		}
	}
	return language, nil
}

func (d *Document) setPopularimeter(popm *model.Popularimeter) {
	d.tag.DeleteFrames(tagkey.FramePopularimeter)
	if popm == nil {
		return
	}
	d.tag.AddFrame(tagkey.FramePopularimeter, id3v2.PopularimeterFrame{
		Email:   popm.Email,
		Rating:  popm.Rating,
		Counter: new(big.Int).SetUint64(popm.Counter),
	})
}

// WriteTo writes the re-encoded tag followed by the original audio,
// including any ID3v1 trailer.
func (d *Document) WriteTo(w io.WriteSeeker) error {
	if err := d.prepare(); err != nil {
		return err
	}
	if _, err := d.tag.WriteTo(w); err != nil {
		return fmt.Errorf("write ID3v2 tag: %w", err)
	}
	if _, err := d.src.Seek(d.audioStart, io.SeekStart); err != nil {
		return err
	}
	if _, err := io.Copy(w, d.src); err != nil {
		return fmt.Errorf("copy audio: %w", err)
	}
	return nil
}
