package ledger

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/solidcopy/multitag/internal/model"
)

// wireChange is the JSON shape exchanged with the editing front end.
// Data is base64, as encoding/json does for []byte.
type wireChange struct {
	Type        string               `json:"type"`
	Tag         string               `json:"tag,omitempty"`
	Values      []string             `json:"values,omitempty"`
	Kind        string               `json:"kind,omitempty"`
	MIME        string               `json:"mime,omitempty"`
	Data        []byte               `json:"data,omitempty"`
	Description string               `json:"description,omitempty"`
	Comments    []model.Comment      `json:"comments,omitempty"`
	Lyrics      []model.Lyrics       `json:"lyrics,omitempty"`
	Popm        *model.Popularimeter `json:"popm,omitempty"`
}

// Decode reads a JSON array of changes.
func Decode(r io.Reader) ([]Change, error) {
	var wire []wireChange
	if err := json.NewDecoder(r).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}

	changes := make([]Change, 0, len(wire))
	for i, w := range wire {
		c, err := w.change()
		if err != nil {
			return nil, fmt.Errorf("ledger entry %d: %w", i, err)
		}
		changes = append(changes, c)
	}
	return changes, nil
}

func (w wireChange) change() (Change, error) {
	switch w.Type {
	case OpRemove:
		if w.Tag == "" {
			return nil, fmt.Errorf("%s: missing tag", w.Type)
		}
		return Remove{Tag: w.Tag}, nil
	case OpSetRaw:
		if w.Tag == "" {
			return nil, fmt.Errorf("%s: missing tag", w.Type)
		}
		return SetRaw{Tag: w.Tag, Values: w.Values}, nil
	case OpAddPicture:
		kind, err := model.ParseImageKind(w.Kind)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", w.Type, err)
		}
		if len(w.Data) == 0 {
			return nil, fmt.Errorf("%s: missing data", w.Type)
		}
		return AddPicture{Kind: kind, MIME: w.MIME, Data: w.Data, Description: w.Description}, nil
	case OpRemovePicture:
		kind, err := model.ParseImageKind(w.Kind)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", w.Type, err)
		}
		return RemovePicture{Kind: kind}, nil
	case OpSetComments:
		return SetComments{Comments: w.Comments}, nil
	case OpSetUnsyncLyrics:
		return SetUnsyncLyrics{Lyrics: w.Lyrics}, nil
	case OpSetPopularimeter:
		return SetPopularimeter{Popularimeter: w.Popm}, nil
	default:
		return nil, fmt.Errorf("unknown change type %q", w.Type)
	}
}

// Encode writes changes as an indented JSON array.
func Encode(w io.Writer, changes []Change) error {
	wire := make([]wireChange, 0, len(changes))
	for _, c := range changes {
		wire = append(wire, toWire(c))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(wire)
}

func toWire(c Change) wireChange {
	w := wireChange{Type: c.Op()}
	switch c := c.(type) {
	case Remove:
		w.Tag = c.Tag
	case SetRaw:
		w.Tag = c.Tag
		w.Values = c.Values
	case AddPicture:
		w.Kind = c.Kind.String()
		w.MIME = c.MIME
		w.Data = c.Data
		w.Description = c.Description
	case RemovePicture:
		w.Kind = c.Kind.String()
	case SetComments:
		w.Comments = c.Comments
	case SetUnsyncLyrics:
		w.Lyrics = c.Lyrics
	case SetPopularimeter:
		w.Popm = c.Popularimeter
	}
	return w
}
