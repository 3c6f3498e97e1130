package vorbis

import (
	"errors"

	"github.com/solidcopy/multitag/internal/ledger"
	"github.com/solidcopy/multitag/internal/model"
	"github.com/solidcopy/multitag/internal/separator"
	"github.com/solidcopy/multitag/internal/tagkey"
)

// Apply runs changes against comments and pictures. Errors carry format.
func Apply(format model.Format, comments *Comments, pictures *Pictures, changes []ledger.Change, opts model.Options) error {
	policy := separator.For(format, opts.Separators)
	for _, change := range changes {
		switch c := change.(type) {
		case ledger.Remove:
			comments.Remove(tagkey.Fold(format, c.Tag))
		case ledger.SetRaw:
			if err := comments.Set(tagkey.Fold(format, c.Tag), policy.Encode(c.Values)); err != nil {
				var keyErr *model.UnknownTagKeyError
				if errors.As(err, &keyErr) {
					keyErr.Format = format
				}
				return err
			}
		case ledger.AddPicture:
			pic, err := NewPicture(c)
			if err != nil {
				return err
			}
			pictures.Replace(pic)
		case ledger.RemovePicture:
			pictures.Remove(c.Kind)
		default:
			return &model.UnsupportedOperationError{
				Op:     change.Op(),
				Format: format,
				Reason: "only ID3v2 carries comment, lyrics and rating frames",
			}
		}
	}
	return nil
}
