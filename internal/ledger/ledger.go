// Package ledger records the edits made to one track between open and save.
package ledger

import (
	"github.com/solidcopy/multitag/internal/model"
	"github.com/solidcopy/multitag/internal/tagkey"
)

// Ledger is an ordered list of changes holding at most one change per
// resource. A resource is a tag key (after alias folding for the target
// format), a picture kind, or one of the comment, lyrics and
// popularimeter collections.
type Ledger struct {
	format  model.Format
	changes []Change
}

func New(format model.Format) *Ledger {
	return &Ledger{format: format}
}

// FromChanges builds a ledger for format by adding changes in order.
func FromChanges(format model.Format, changes []Change) *Ledger {
	l := New(format)
	for _, c := range changes {
		l.Add(c)
	}
	return l
}

func (l *Ledger) Format() model.Format { return l.format }

// Add appends c, dropping any earlier change to the same resource.
func (l *Ledger) Add(c Change) {
	c = l.normalize(c)
	res := c.resource()
	kept := l.changes[:0]
	for _, prev := range l.changes {
		if prev.resource() != res {
			kept = append(kept, prev)
		}
	}
	l.changes = append(kept, c)
}

// normalize folds tag keys and rewrites the removal of a dedicated ID3
// frame into the change that owns it.
func (l *Ledger) normalize(c Change) Change {
	switch c := c.(type) {
	case Remove:
		tag := tagkey.Fold(l.format, c.Tag)
		if l.format == model.FormatMP3 {
			switch tag {
			case tagkey.FramePopularimeter:
				return SetPopularimeter{}
			case tagkey.FrameComment:
				return SetComments{}
			case tagkey.FrameLyrics:
				return SetUnsyncLyrics{}
			}
		}
		return Remove{Tag: tag}
	case SetRaw:
		tag := tagkey.Fold(l.format, c.Tag)
		if allEmpty(c.Values) {
			return l.normalize(Remove{Tag: tag})
		}
		values := make([]string, len(c.Values))
		copy(values, c.Values)
		return SetRaw{Tag: tag, Values: values}
	default:
		return c
	}
}

func allEmpty(values []string) bool {
	for _, v := range values {
		if v != "" {
			return false
		}
	}
	return true
}

// Changes returns a copy of the recorded changes in order.
func (l *Ledger) Changes() []Change {
	out := make([]Change, len(l.changes))
	copy(out, l.changes)
	return out
}

func (l *Ledger) Len() int { return len(l.changes) }

func (l *Ledger) Empty() bool { return len(l.changes) == 0 }

func (l *Ledger) Clear() { l.changes = nil }

// Effective returns the changes that alter original. Removing something the
// original never had is dropped, so a key that was set and then removed
// during the session leaves the file as if it had not been touched.
func (l *Ledger) Effective(original *model.Track) []Change {
	var out []Change
	for _, c := range l.changes {
		if !l.alters(original, c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (l *Ledger) alters(original *model.Track, c Change) bool {
	switch c := c.(type) {
	case Remove:
		return original.HasTag(c.Tag) || original.HasOpaque(c.Tag)
	case RemovePicture:
		_, ok := original.Image(c.Kind)
		return ok
	case SetPopularimeter:
		if c.Popularimeter != nil {
			return true
		}
		return original.ID3 != nil && original.ID3.Popularimeter != nil
	case SetComments:
		if len(c.Comments) > 0 {
			return true
		}
		return original.ID3 != nil && len(original.ID3.Comments) > 0
	case SetUnsyncLyrics:
		if len(c.Lyrics) > 0 {
			return true
		}
		return original.ID3 != nil && len(original.ID3.Lyrics) > 0
	default:
		return true
	}
}
