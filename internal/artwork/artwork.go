// Package artwork inspects embedded picture bytes.
package artwork

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/solidcopy/multitag/internal/model"
)

var errEmpty = errors.New("picture data is empty")

type Info struct {
	MIME   string
	Width  int
	Height int
}

// Probe decodes the image header of data. The declared MIME type wins when
// set; otherwise it is derived from the decoded format or sniffed.
func Probe(data []byte, declared string) (Info, error) {
	info := Info{MIME: strings.TrimSpace(declared)}
	if len(data) == 0 {
		return info, errEmpty
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if info.MIME == "" {
		if err == nil {
			info.MIME = "image/" + format
		} else {
			info.MIME = http.DetectContentType(data)
		}
	}
	if err != nil {
		return info, err
	}
	info.Width = cfg.Width
	info.Height = cfg.Height
	return info, nil
}

// Image builds a model.Image for kind, failing with an InvalidPictureError
// when data is not a decodable picture.
func Image(kind model.ImageKind, data []byte, mime, description string) (model.Image, error) {
	if !kind.Valid() {
		return model.Image{}, &model.InvalidPictureError{Kind: kind, Reason: "unknown kind"}
	}
	info, err := Probe(data, mime)
	if err != nil {
		return model.Image{}, &model.InvalidPictureError{Kind: kind, Err: err}
	}
	return model.Image{
		Kind:        kind,
		MIME:        info.MIME,
		Width:       info.Width,
		Height:      info.Height,
		Description: description,
		Data:        data,
	}, nil
}

// Decoded builds a model.Image from bytes read out of a file. Undecodable
// data is kept with whatever MIME type could be determined.
func Decoded(kind model.ImageKind, data []byte, mime, description string) model.Image {
	info, _ := Probe(data, mime)
	return model.Image{
		Kind:        kind,
		MIME:        info.MIME,
		Width:       info.Width,
		Height:      info.Height,
		Description: description,
		Data:        data,
	}
}
