package flac

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-flac/go-flac"

	multitag "github.com/solidcopy/multitag/internal"
	"github.com/solidcopy/multitag/internal/handler/vorbis"
	"github.com/solidcopy/multitag/internal/ledger"
	"github.com/solidcopy/multitag/internal/model"
	"github.com/solidcopy/multitag/internal/separator"
)

const (
	format = model.FormatFLAC

	paddingSize  = 64
	maxBlockSize = 1<<24 - 1
)

type Blocks = []*flac.MetaDataBlock

// Document holds a FLAC file's metadata blocks. Frames stay in the source
// and are streamed on write.
type Document struct {
	src io.ReadSeeker
	// blocks are the blocks kept verbatim, STREAMINFO first.
	blocks   Blocks
	comments *vorbis.Comments
	pictures vorbis.Pictures
	// broken holds picture blocks that did not parse. They are written back
	// unchanged.
	broken     Blocks
	frameStart int64
	warnings   []model.Warning
}

func Load(r io.ReadSeeker) (*Document, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	flacFile, err := flac.ParseMetadata(r)
	if err != nil {
		return nil, &model.FormatError{Reason: "not a FLAC stream", Err: err}
	}
	frameStart, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	if err := checkSync(r); err != nil {
		return nil, err
	}

	doc := &Document{src: r, frameStart: frameStart}
	for i, block := range flacFile.Meta {
		if i == 0 && block.Type != flac.StreamInfo {
			return nil, &model.FormatError{Reason: "first metadata block is not STREAMINFO"}
		}
		switch block.Type {
		case flac.VorbisComment:
			if doc.comments != nil {
				doc.warn("dropped an extra VORBIS_COMMENT block")
				continue
			}
			comments, err := vorbis.ParseComments(block.Data)
			if err != nil {
				return nil, &model.FormatError{Reason: "corrupted VORBIS_COMMENT block", Err: err}
			}
			doc.comments = comments
		case flac.Picture:
			picture, err := vorbis.ParsePicture(block.Data)
			if err != nil {
				doc.warn(fmt.Sprintf("kept an unreadable PICTURE block: %v", err))
				doc.broken = append(doc.broken, block)
				continue
			}
			doc.pictures.Append(picture)
		case flac.Padding:
		default:
			doc.blocks = append(doc.blocks, block)
		}
	}
	if doc.comments == nil {
		doc.comments = vorbis.NewComments(multitag.Vendor)
	}
	return doc, nil
}

// checkSync verifies that audio frames follow the metadata.
func checkSync(r io.ReadSeeker) error {
	sync := make([]byte, 2)
	_, err := io.ReadFull(r, sync)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return &model.FormatError{Reason: "truncated FLAC stream", Err: err}
	}
	if sync[0] != 0xFF || sync[1]>>2 != 0x3E {
		return &model.FormatError{Reason: "missing frame sync code after metadata"}
	}
	return nil
}

func (d *Document) warn(message string) {
	d.warnings = append(d.warnings, model.Warning{Stage: "flac", Message: message})
}

func (d *Document) Track(path string, opts model.Options) *model.Track {
	track := model.NewTrack(path, format)
	track.Warnings = append(track.Warnings, d.warnings...)
	d.comments.Decode(track, separator.For(format, opts.Separators))
	d.pictures.Decode(track)
	return track
}

func (d *Document) Apply(changes []ledger.Change, opts model.Options) error {
	return vorbis.Apply(format, d.comments, &d.pictures, changes, opts)
}

func (d *Document) WriteTo(w io.WriteSeeker) error {
	blocks := append(Blocks{}, d.blocks...)
	blocks = append(blocks, d.comments.Block())
	for _, picture := range d.pictures.All() {
		block := picture.Marshal()
		blocks = append(blocks, &block)
	}
	blocks = append(blocks, d.broken...)
	blocks = append(blocks, &flac.MetaDataBlock{Type: flac.Padding, Data: make([]byte, paddingSize)})

	if _, err := w.Write([]byte("fLaC")); err != nil {
		return err
	}
	for i, block := range blocks {
		if len(block.Data) > maxBlockSize {
			return &model.FormatError{Reason: fmt.Sprintf("metadata block type %d exceeds %d bytes", block.Type, maxBlockSize)}
		}
		if _, err := w.Write(block.Marshal(i == len(blocks)-1)); err != nil {
			return err
		}
	}

	if _, err := d.src.Seek(d.frameStart, io.SeekStart); err != nil {
		return err
	}
	if _, err := io.Copy(w, d.src); err != nil {
		return fmt.Errorf("copy frames: %w", err)
	}
	return nil
}
