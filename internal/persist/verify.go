package persist

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/dhowden/tag"

	"github.com/solidcopy/multitag/internal/handler"
	"github.com/solidcopy/multitag/internal/model"
)

var errAudioChanged = errors.New("audio data differs from the original")

// verify re-reads the written file before it replaces the original. The
// file must load again with our own decoder, decode with an independent
// reader where that reader understands the format, and keep the audio
// checksum where one exists independently of the tags.
func verify(h handler.FileHandler, original, written io.ReadSeeker) error {
	if _, err := written.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := h.Load(written); err != nil {
		return fmt.Errorf("reload: %w", err)
	}

	switch h.Format() {
	case model.FormatMP3, model.FormatFLAC:
		if _, err := written.Seek(0, io.SeekStart); err != nil {
			return err
		}
		if _, err := tag.ReadFrom(written); err != nil {
			return fmt.Errorf("independent read: %w", err)
		}
	}

	if !hasAudioSum(h.Format(), original) {
		return nil
	}
	before, err := sum(original)
	if err != nil {
		return fmt.Errorf("checksum original: %w", err)
	}
	after, err := sum(written)
	if err != nil {
		return fmt.Errorf("checksum written: %w", err)
	}
	if before != after {
		return errAudioChanged
	}
	return nil
}

// hasAudioSum reports whether tag.Sum hashes only the audio of r: FLAC
// frames, or the mdat of an M4A file.
func hasAudioSum(format model.Format, r io.ReadSeeker) bool {
	if format != model.FormatFLAC && format != model.FormatMP4 {
		return false
	}
	head := make([]byte, 11)
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return false
	}
	if _, err := io.ReadFull(r, head); err != nil {
		return false
	}
	return bytes.HasPrefix(head, []byte("fLaC")) || string(head[4:11]) == "ftypM4A"
}

func sum(r io.ReadSeeker) (string, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return tag.Sum(r)
}
