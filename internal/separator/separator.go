// Package separator decides how a multi-valued field is laid out for each
// tag format.
package separator

import (
	"strings"

	"github.com/solidcopy/multitag/internal/model"
)

type Strategy int

const (
	// Native stores N values as N independent entries.
	Native Strategy = iota
	// Joined stores all values in one string.
	Joined
)

// id3NullSeparator is the ID3v2.4 native value separator. It is always
// honored on read so files written by other tools split correctly.
const id3NullSeparator = "\x00"

type Policy struct {
	Strategy Strategy
	Sep      string
	// SplitNull also splits on the ID3v2.4 NUL separator when reading.
	SplitNull bool
}

// For returns the policy for format under seps.
func For(format model.Format, seps model.Separators) Policy {
	switch format {
	case model.FormatMP3:
		sep := model.DefaultSeparator
		if seps.ID3 != nil && *seps.ID3 != "" {
			sep = *seps.ID3
		}
		return Policy{Strategy: Joined, Sep: sep, SplitNull: true}
	case model.FormatFLAC, model.FormatOGG:
		if seps.Vorbis == nil || *seps.Vorbis == "" {
			return Policy{Strategy: Native}
		}
		return Policy{Strategy: Joined, Sep: *seps.Vorbis}
	default:
		sep := seps.MP4
		if sep == "" {
			sep = model.DefaultSeparator
		}
		return Policy{Strategy: Joined, Sep: sep}
	}
}

// Encode turns values into the entries written to the file. Empty values
// are dropped; a nil result means the field should be removed.
func (p Policy) Encode(values []string) []string {
	kept := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	if p.Strategy == Native {
		return kept
	}
	return []string{strings.Join(kept, p.Sep)}
}

// Decode splits the entries read from the file back into values. The split
// is a literal substring split, so a value containing the separator comes
// back as two values.
func (p Policy) Decode(entries []string) []string {
	var values []string
	for _, entry := range entries {
		if p.SplitNull {
			entry = strings.TrimRight(entry, id3NullSeparator)
		}
		if entry == "" {
			continue
		}
		parts := []string{entry}
		if p.SplitNull && strings.Contains(entry, id3NullSeparator) {
			parts = strings.Split(entry, id3NullSeparator)
		}
		for _, part := range parts {
			if p.Strategy == Joined {
				values = append(values, strings.Split(part, p.Sep)...)
			} else {
				values = append(values, part)
			}
		}
	}
	return values
}
