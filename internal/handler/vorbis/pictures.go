package vorbis

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/go-flac/flacpicture"
	"github.com/go-flac/go-flac"

	"github.com/solidcopy/multitag/internal/artwork"
	"github.com/solidcopy/multitag/internal/ledger"
	"github.com/solidcopy/multitag/internal/model"
)

// Pictures is the ordered set of picture blocks of a file.
type Pictures struct {
	list []*flacpicture.MetadataBlockPicture
}

func (p *Pictures) All() []*flacpicture.MetadataBlockPicture {
	return p.list
}

func (p *Pictures) Append(pic *flacpicture.MetadataBlockPicture) {
	p.list = append(p.list, pic)
}

// Replace drops every picture of pic's kind and appends pic.
func (p *Pictures) Replace(pic *flacpicture.MetadataBlockPicture) {
	p.Remove(model.ImageKind(pic.PictureType))
	p.list = append(p.list, pic)
}

func (p *Pictures) Remove(kind model.ImageKind) {
	kept := p.list[:0]
	for _, pic := range p.list {
		if model.ImageKind(pic.PictureType) != kind {
			kept = append(kept, pic)
		}
	}
	p.list = kept
}

// Decode adds the pictures to track, one per kind.
func (p *Pictures) Decode(track *model.Track) {
	for _, pic := range p.list {
		kind := model.ImageKind(pic.PictureType)
		if !kind.Valid() {
			track.Warn("vorbis", fmt.Sprintf("picture type %d read as other", pic.PictureType))
			kind = model.KindOther
		}
		if _, exists := track.Image(kind); exists {
			track.Warn("vorbis", fmt.Sprintf("duplicate %s picture ignored", kind))
			continue
		}
		image := artwork.Decoded(kind, pic.ImageData, pic.MIME, pic.Description)
		if image.Width == 0 && pic.Width != 0 {
			image.Width, image.Height = int(pic.Width), int(pic.Height)
		}
		track.SetImage(image)
	}
}

// NewPicture validates an added picture and builds its block.
func NewPicture(c ledger.AddPicture) (*flacpicture.MetadataBlockPicture, error) {
	image, err := artwork.Image(c.Kind, c.Data, c.MIME, c.Description)
	if err != nil {
		return nil, err
	}
	pic := &flacpicture.MetadataBlockPicture{
		PictureType: flacpicture.PictureType(c.Kind),
		MIME:        image.MIME,
		Description: image.Description,
		Width:       uint32(image.Width),
		Height:      uint32(image.Height),
		ImageData:   image.Data,
	}
	// Fills the color depth for jpeg and png.
	if err := pic.ParsePicture(); err != nil && !errors.Is(err, flacpicture.ErrorUnsupportedMIME) {
		return nil, &model.InvalidPictureError{Kind: c.Kind, Err: err}
	}
	return pic, nil
}

// ParsePicture decodes a picture block body.
func ParsePicture(data []byte) (*flacpicture.MetadataBlockPicture, error) {
	return flacpicture.ParseFromMetaDataBlock(flac.MetaDataBlock{Type: flac.Picture, Data: data})
}

// EncodePicture returns the base64 form used in Ogg comment headers.
func EncodePicture(pic *flacpicture.MetadataBlockPicture) string {
	return base64.StdEncoding.EncodeToString(pic.Marshal().Data)
}

func DecodePicture(value string) (*flacpicture.MetadataBlockPicture, error) {
	data, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, err
	}
	return ParsePicture(data)
}
