package m4a

import (
	"unicode/utf8"

	"github.com/abema/go-mp4"
	"golang.org/x/exp/slices"

	"github.com/solidcopy/multitag/internal/artwork"
	"github.com/solidcopy/multitag/internal/ledger"
	"github.com/solidcopy/multitag/internal/model"
	"github.com/solidcopy/multitag/internal/separator"
	"github.com/solidcopy/multitag/internal/tagkey"
)

func (d *Document) Apply(changes []ledger.Change, opts model.Options) error {
	policy := separator.For(format, opts.Separators)
	for _, change := range changes {
		var err error
		switch c := change.(type) {
		case ledger.Remove:
			d.remove(tagkey.Fold(format, c.Tag))
		case ledger.SetRaw:
			err = d.setRaw(c.Tag, policy.Encode(c.Values))
		case ledger.AddPicture:
			err = d.addPicture(c)
		case ledger.RemovePicture:
			err = d.removePicture(c)
		default:
			err = &model.UnsupportedOperationError{
				Op:     change.Op(),
				Format: format,
				Reason: "only ID3v2 carries comment, lyrics and rating frames",
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// remove drops every item folded reaches and returns the index of the
// first one, or -1.
func (d *Document) remove(folded string) int {
	natives := tagkey.MP4Natives(folded)
	first := -1
	kept := d.items[:0]
	for _, it := range d.items {
		if matchesAny(it.id, natives) {
			if first < 0 {
				first = len(kept)
			}
			continue
		}
		kept = append(kept, it)
	}
	d.items = kept
	return first
}

func matchesAny(id tagkey.MP4Item, natives []tagkey.MP4Item) bool {
	for _, native := range natives {
		if tagkey.SameMP4Item(id, native) {
			return true
		}
	}
	return false
}

func (d *Document) setRaw(tag string, entries []string) error {
	folded := tagkey.Fold(format, tag)
	target := tagkey.MP4Write(folded)
	if target.Atom == atomCover {
		return &model.UnknownTagKeyError{Key: tag, Format: format, Reason: "cover art is edited with picture changes"}
	}

	it := &item{id: target}
	for _, entry := range entries {
		if !utf8.ValidString(entry) {
			return &model.EncodingError{Key: tag, Reason: "value is not valid UTF-8"}
		}
		value, err := encodeValue(tag, target.Atom, entry)
		if err != nil {
			return err
		}
		it.values = append(it.values, value)
	}

	at := d.remove(folded)
	if len(it.values) == 0 {
		return nil
	}
	d.insert(at, it)
	return nil
}

// insert places it at index at, or appends when at is negative.
func (d *Document) insert(at int, it *item) {
	if at < 0 || at >= len(d.items) {
		d.items = append(d.items, it)
		return
	}
	d.items = slices.Insert(d.items, at, it)
}

func (d *Document) covers() *item {
	for _, it := range d.items {
		if it.id.Atom == atomCover && !it.broken {
			return it
		}
	}
	return nil
}

func (d *Document) addPicture(c ledger.AddPicture) error {
	if c.Kind != model.KindCoverFront && c.Kind != model.KindOther {
		return &model.UnsupportedOperationError{
			Op:     c.Op(),
			Format: format,
			Reason: "covr holds only a front cover and other pictures",
		}
	}
	img, err := artwork.Image(c.Kind, c.Data, c.MIME, c.Description)
	if err != nil {
		return err
	}
	dataType, ok := coverType(img.MIME)
	if !ok {
		return &model.InvalidPictureError{Kind: c.Kind, Reason: img.MIME + " cannot be stored in covr"}
	}
	value := mp4.Data{DataType: dataType, Data: img.Data}

	covr := d.covers()
	if covr == nil {
		if c.Kind != model.KindCoverFront {
			return &model.UnsupportedOperationError{
				Op:     c.Op(),
				Format: format,
				Reason: "the first covr entry is the front cover, add it first",
			}
		}
		d.items = append(d.items, &item{id: tagkey.MP4Item{Atom: atomCover}, values: []mp4.Data{value}})
		return nil
	}

	covr.raw = nil
	index := 0
	if c.Kind == model.KindOther {
		index = 1
	}
	if index < len(covr.values) {
		covr.values[index] = value
	} else {
		covr.values = append(covr.values, value)
	}
	return nil
}

func (d *Document) removePicture(c ledger.RemovePicture) error {
	covr := d.covers()
	if covr == nil {
		return nil
	}
	switch c.Kind {
	case model.KindCoverFront:
		if len(covr.values) > 1 {
			return &model.UnsupportedOperationError{
				Op:     c.Op(),
				Format: format,
				Reason: "the front cover is the first covr entry and other pictures follow it",
			}
		}
		d.items = slices.DeleteFunc(d.items, func(it *item) bool { return it == covr })
	case model.KindOther:
		if len(covr.values) > 1 {
			covr.raw = nil
			covr.values = append(covr.values[:1], covr.values[2:]...)
		}
	}
	return nil
}
