package id3v2

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/bogem/id3v2/v2"

	"github.com/solidcopy/multitag/internal/model"
	"github.com/solidcopy/multitag/internal/tagkey"
)

const (
	headerSize = 10

	flagUnsynchronisation = 0x80
	flagExtendedHeader    = 0x40
	flagFooter            = 0x10

	frameFlagUnsynchronisation = 0x02
	frameFlagDataLength        = 0x01
)

// rawTag is the ID3v2 tag found at the start of a file.
type rawTag struct {
	version byte
	// body holds the frames and padding, without header or extended header.
	body []byte
	// end is the offset of the first byte after the tag, footer included.
	end int64
	// skipped is set when the tag is in a version that is not decoded. Its
	// bytes are dropped on save.
	skipped  bool
	warnings []model.Warning
}

func syncsafe(b []byte) int64 {
	return int64(b[0])<<21 | int64(b[1])<<14 | int64(b[2])<<7 | int64(b[3])
}

func putSyncsafe(b []byte, n int) {
	b[0] = byte(n>>21) & 0x7f
	b[1] = byte(n>>14) & 0x7f
	b[2] = byte(n>>7) & 0x7f
	b[3] = byte(n) & 0x7f
}

// readRawTag reads the tag at the start of r. A nil tag means the file
// has none.
func readRawTag(r io.ReadSeeker) (*rawTag, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, nil
		}
		return nil, err
	}
	if string(header[:3]) != "ID3" {
		return nil, nil
	}

	version := header[3]
	if version < 2 || version > 4 {
		return nil, &model.FormatError{Reason: fmt.Sprintf("unsupported ID3v2.%d tag", version)}
	}
	flags := header[5]
	for _, b := range header[6:10] {
		if b&0x80 != 0 {
			return nil, &model.FormatError{Reason: "corrupted ID3v2 tag size"}
		}
	}

	size := syncsafe(header[6:10])
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, &model.FormatError{Reason: "truncated ID3v2 tag", Err: err}
	}

	end := headerSize + size
	if flags&flagFooter != 0 {
		end += headerSize
	}

	if version == 2 {
		return &rawTag{version: version, end: end, skipped: true, warnings: []model.Warning{{
			Stage:   "id3v2",
			Message: "ID3v2.2 tag skipped, a new tag replaces it on save",
		}}}, nil
	}

	unsynchronised := flags&flagUnsynchronisation != 0
	if unsynchronised && version == 3 {
		body = resync(body)
	}

	if flags&flagExtendedHeader != 0 {
		skip, err := extendedHeaderSize(body, version)
		if err != nil {
			return nil, err
		}
		body = body[skip:]
	}

	if version == 4 {
		body = decodeFrames(body, unsynchronised)
	}

	return &rawTag{version: version, body: body, end: end}, nil
}

// resync reverses unsynchronisation: every 0xFF 0x00 becomes 0xFF.
func resync(data []byte) []byte {
	return bytes.ReplaceAll(data, []byte{0xFF, 0x00}, []byte{0xFF})
}

// decodeFrames rewrites the unsynchronised frames of a v2.4 body as plain
// frames, dropping their data length indicator. Frames stop at the first
// padding byte or at a frame that overruns the body; the rest is kept as is
// for the salvaging parser.
func decodeFrames(body []byte, unsynchronised bool) []byte {
	out := make([]byte, 0, len(body))
	for len(body) >= headerSize && body[0] != 0 {
		size := syncsafe(body[4:8])
		if size > int64(len(body)-headerSize) {
			break
		}
		frame := body[:headerSize+size]
		body = body[headerSize+size:]

		flags := frame[9]
		if !unsynchronised && flags&frameFlagUnsynchronisation == 0 {
			out = append(out, frame...)
			continue
		}
		data := frame[headerSize:]
		if flags&frameFlagDataLength != 0 && len(data) >= 4 {
			data = data[4:]
		}
		data = resync(data)

		header := make([]byte, headerSize)
		copy(header, frame[:headerSize])
		putSyncsafe(header[4:8], len(data))
		header[9] = flags &^ (frameFlagUnsynchronisation | frameFlagDataLength)
		out = append(out, header...)
		out = append(out, data...)
	}
	return append(out, body...)
}

func extendedHeaderSize(body []byte, version byte) (int64, error) {
	if len(body) < 4 {
		return 0, &model.FormatError{Reason: "truncated ID3v2 extended header"}
	}
	var n int64
	if version == 4 {
		n = syncsafe(body[:4])
	} else {
		n = int64(binary.BigEndian.Uint32(body[:4])) + 4
	}
	if n < 4 || n > int64(len(body)) {
		return 0, &model.FormatError{Reason: "corrupted ID3v2 extended header"}
	}
	return n, nil
}

// standalone wraps frame bytes in a minimal tag header so the parser can
// read them on their own.
func standalone(version byte, frames []byte) []byte {
	buf := make([]byte, headerSize, headerSize+len(frames))
	copy(buf, "ID3")
	buf[3] = version
	putSyncsafe(buf[6:10], len(frames))
	return append(buf, frames...)
}

// parse decodes the raw tag. When the tag as a whole does not parse, each
// frame is parsed on its own and broken frames are skipped with a warning.
func (t *rawTag) parse() (*id3v2.Tag, []model.Warning) {
	tag, err := id3v2.ParseReader(bytes.NewReader(standalone(t.version, t.body)), id3v2.Options{Parse: true})
	if err == nil {
		return tag, nil
	}

	warnings := []model.Warning{{Stage: "id3v2", Message: fmt.Sprintf("tag did not parse, salvaging frames: %v", err)}}
	tag = id3v2.NewEmptyTag()
	tag.SetVersion(t.version)

	body := t.body
	for len(body) >= headerSize {
		id := string(body[:4])
		if body[0] == 0 {
			break
		}
		if !tagkey.IsFrameID(id) {
			warnings = append(warnings, model.Warning{Stage: "id3v2", Message: fmt.Sprintf("invalid frame id %q, remaining frames skipped", id)})
			break
		}

		var size int64
		if t.version == 4 {
			size = syncsafe(body[4:8])
		} else {
			size = int64(binary.BigEndian.Uint32(body[4:8]))
		}
		if size > int64(len(body)-headerSize) {
			warnings = append(warnings, model.Warning{Stage: "id3v2", Message: fmt.Sprintf("frame %s overruns the tag, remaining frames skipped", id)})
			break
		}

		frame := body[:headerSize+size]
		body = body[headerSize+size:]

		single, err := id3v2.ParseReader(bytes.NewReader(standalone(t.version, frame)), id3v2.Options{Parse: true})
		if err != nil {
			warnings = append(warnings, model.Warning{Stage: "id3v2", Message: fmt.Sprintf("skipped malformed %s frame: %v", id, err)})
			continue
		}
		for frameID, frames := range single.AllFrames() {
			for _, f := range frames {
				tag.AddFrame(frameID, f)
			}
		}
	}

	return tag, warnings
}
