package handler

import (
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/solidcopy/multitag/internal/handler/flac"
	"github.com/solidcopy/multitag/internal/handler/id3v2"
	"github.com/solidcopy/multitag/internal/handler/m4a"
	"github.com/solidcopy/multitag/internal/handler/ogg"
	"github.com/solidcopy/multitag/internal/ledger"
	"github.com/solidcopy/multitag/internal/model"
)

// Document is the native tag structure of one loaded file.
type Document interface {
	// Track decodes the native structure into a generic snapshot.
	Track(path string, opts model.Options) *model.Track
	// Apply edits the native structure in memory.
	Apply(changes []ledger.Change, opts model.Options) error
	// WriteTo serializes the edited file. The reader passed to Load must
	// still be open, since audio data is streamed from it.
	WriteTo(w io.WriteSeeker) error
}

type FileHandler interface {
	Format() model.Format
	Load(r io.ReadSeeker) (Document, error)
}

type loader func(io.ReadSeeker) (Document, error)

type fileHandler struct {
	format model.Format
	load   loader
}

func (h fileHandler) Format() model.Format { return h.format }

func (h fileHandler) Load(r io.ReadSeeker) (Document, error) {
	return h.load(r)
}

var (
	id3v2Handler = fileHandler{model.FormatMP3, func(r io.ReadSeeker) (Document, error) {
		doc, err := id3v2.Load(r)
		if err != nil {
			return nil, err
		}
		return doc, nil
	}}
	flacHandler = fileHandler{model.FormatFLAC, func(r io.ReadSeeker) (Document, error) {
		doc, err := flac.Load(r)
		if err != nil {
			return nil, err
		}
		return doc, nil
	}}
	oggHandler = fileHandler{model.FormatOGG, func(r io.ReadSeeker) (Document, error) {
		doc, err := ogg.Load(r)
		if err != nil {
			return nil, err
		}
		return doc, nil
	}}
	m4aHandler = fileHandler{model.FormatMP4, func(r io.ReadSeeker) (Document, error) {
		doc, err := m4a.Load(r)
		if err != nil {
			return nil, err
		}
		return doc, nil
	}}
)

var handlersByExtension = map[string]fileHandler{
	".mp3":  id3v2Handler,
	".flac": flacHandler,
	".ogg":  oggHandler,
	".oga":  oggHandler,
	".opus": oggHandler,
	".m4a":  m4aHandler,
	".m4b":  m4aHandler,
	".mp4":  m4aHandler,
}

// NewHandler selects the handler from the file extension alone.
func NewHandler(filePath string) (FileHandler, error) {
	extension := strings.ToLower(filepath.Ext(filePath))
	h, ok := handlersByExtension[extension]
	if !ok {
		return nil, &model.UnsupportedFormatError{Path: filePath, Ext: extension}
	}
	return h, nil
}

// Extensions lists the supported file extensions in sorted order.
func Extensions() []string {
	extensions := maps.Keys(handlersByExtension)
	slices.Sort(extensions)
	return extensions
}

// IsAudioFile reports whether filePath has a supported extension.
func IsAudioFile(filePath string) bool {
	_, ok := handlersByExtension[strings.ToLower(filepath.Ext(filePath))]
	return ok
}
