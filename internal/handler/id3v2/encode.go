package id3v2

import (
	"fmt"
	"strings"

	"github.com/bogem/id3v2/v2"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/text/encoding/charmap"

	"github.com/solidcopy/multitag/internal/model"
	"github.com/solidcopy/multitag/internal/tagkey"
)

// versioned lists the keys whose frame differs between v2.3 and v2.4.
var versioned = []string{tagkey.Date, tagkey.Mood}

// prepare moves version-specific frames and re-encodes every frame for the
// target version.
func (d *Document) prepare() error {
	d.migrate()

	all := d.tag.AllFrames()
	ids := maps.Keys(all)
	slices.Sort(ids)

	type entry struct {
		id    string
		frame id3v2.Framer
	}
	var encoded []entry
	for _, id := range ids {
		for _, frame := range all[id] {
			f, err := d.encode(id, frame)
			if err != nil {
				return err
			}
			encoded = append(encoded, entry{id, f})
		}
	}

	d.tag.DeleteAllFrames()
	d.tag.SetVersion(d.version)
	for _, e := range encoded {
		d.tag.AddFrame(e.id, e.frame)
	}
	return nil
}

func (d *Document) migrate() {
	for _, key := range versioned {
		target := tagkey.ID3Write(key, d.version)
		for _, native := range tagkey.ID3Natives(key) {
			if native == target {
				continue
			}
			text, ok := d.text(native)
			if !ok {
				continue
			}
			d.deleteTarget(native)
			if _, exists := d.text(target); exists {
				continue
			}
			if key == tagkey.Date && d.version == 3 && len(text) > 4 {
				text = text[:4]
			}
			d.writeText(target, text)
		}
	}
}

func (d *Document) text(target tagkey.ID3Target) (string, bool) {
	for _, f := range d.tag.GetFrames(target.FrameID) {
		switch f := f.(type) {
		case id3v2.TextFrame:
			return f.Text, true
		case id3v2.UserDefinedTextFrame:
			if strings.EqualFold(f.Description, target.Description) {
				return f.Value, true
			}
		}
	}
	return "", false
}

func (d *Document) writeText(target tagkey.ID3Target, text string) {
	if target.FrameID == tagkey.FrameUserText {
		d.tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
			Encoding:    id3v2.EncodingUTF8,
			Description: target.Description,
			Value:       text,
		})
		return
	}
	d.tag.AddTextFrame(target.FrameID, id3v2.EncodingUTF8, text)
}

// encode returns frame with its text encoding set for the target version.
func (d *Document) encode(id string, frame id3v2.Framer) (id3v2.Framer, error) {
	switch f := frame.(type) {
	case id3v2.TextFrame:
		enc, err := d.encodingFor(id, f.Text)
		f.Encoding = enc
		return f, err
	case id3v2.UserDefinedTextFrame:
		enc, err := d.encodingFor(id, f.Description, f.Value)
		f.Encoding = enc
		return f, err
	case id3v2.PictureFrame:
		enc, err := d.encodingFor(id, f.Description)
		f.Encoding = enc
		return f, err
	case id3v2.CommentFrame:
		enc, err := d.encodingFor(id, f.Description, f.Text)
		f.Encoding = enc
		return f, err
	case id3v2.UnsynchronisedLyricsFrame:
		enc, err := d.encodingFor(id, f.ContentDescriptor, f.Lyrics)
		f.Encoding = enc
		return f, err
	case id3v2.PopularimeterFrame:
		if !isLatin1(f.Email) {
			return nil, &model.EncodingError{Key: id, Reason: "popularimeter email must be ISO-8859-1"}
		}
		return f, nil
	}
	return frame, nil
}

func (d *Document) encodingFor(id string, texts ...string) (id3v2.Encoding, error) {
	if d.version == 4 {
		return id3v2.EncodingUTF8, nil
	}
	for _, text := range texts {
		if isLatin1(text) {
			continue
		}
		if d.latin1 {
			return id3v2.EncodingISO, &model.EncodingError{
				Key:    id,
				Reason: fmt.Sprintf("%q is not representable in ISO-8859-1", text),
			}
		}
		return id3v2.EncodingUTF16, nil
	}
	return id3v2.EncodingISO, nil
}

func isLatin1(s string) bool {
	for _, r := range s {
		if _, ok := charmap.ISO8859_1.EncodeRune(r); !ok {
			return false
		}
	}
	return true
}
