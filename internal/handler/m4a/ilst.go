package m4a

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/abema/go-mp4"
	"golang.org/x/text/encoding/unicode"

	"github.com/solidcopy/multitag/internal/model"
	"github.com/solidcopy/multitag/internal/tagkey"
)

// Well-known type indicators of the data atom.
const (
	typeImplicit = 0
	typeUTF8     = 1
	typeUTF16    = 2
	typeJPEG     = 13
	typePNG      = 14
	typeInt      = 21
	typeBMP      = 27
)

var (
	boxMean = mp4.BoxType{'m', 'e', 'a', 'n'}
	boxName = mp4.BoxType{'n', 'a', 'm', 'e'}

	atomCover  = [4]byte{'c', 'o', 'v', 'r'}
	atomTrack  = [4]byte{'t', 'r', 'k', 'n'}
	atomDisc   = [4]byte{'d', 'i', 's', 'k'}
	atomGenreN = [4]byte{'g', 'n', 'r', 'e'}
)

// intAtoms are the integer items and their payload width.
var intAtoms = map[[4]byte]int{
	{'t', 'm', 'p', 'o'}: 2,
	{'c', 'p', 'i', 'l'}: 1,
	{'p', 'g', 'a', 'p'}: 1,
	{'s', 't', 'i', 'k'}: 1,
	{'r', 't', 'n', 'g'}: 1,
	{'p', 'c', 's', 't'}: 1,
	{'h', 'd', 'v', 'd'}: 1,
	{'t', 'v', 's', 'n'}: 4,
	{'t', 'v', 'e', 's'}: 4,
}

// item is one ilst entry.
type item struct {
	id     tagkey.MP4Item
	values []mp4.Data
	// raw is the item as read, written back while the item is untouched.
	raw []byte
	// broken marks an item whose children did not parse.
	broken bool
}

func (it *item) key() string {
	return tagkey.MP4DecodeItem(it.id)
}

func parseIlst(data []byte) ([]*item, []model.Warning) {
	var items []*item
	var warnings []model.Warning
	r := bytes.NewReader(data)
	for r.Len() >= mp4.SmallHeaderSize {
		bi, err := mp4.ReadBoxInfo(r)
		if err != nil || bi.Size < bi.HeaderSize || bi.Offset+bi.Size > uint64(len(data)) {
			warnings = append(warnings, model.Warning{Stage: "mp4", Message: "ilst ends with a truncated item, remainder dropped"})
			break
		}
		raw := data[bi.Offset : bi.Offset+bi.Size]
		it := &item{id: tagkey.MP4Item{Atom: bi.Type}, raw: raw}
		if err := it.parseChildren(raw[bi.HeaderSize:]); err != nil {
			it.broken = true
			warnings = append(warnings, model.Warning{Stage: "mp4", Message: fmt.Sprintf("kept unreadable item %s: %v", it.id, err)})
		}
		items = append(items, it)
		if _, err := bi.SeekToEnd(r); err != nil {
			break
		}
	}
	return items, warnings
}

func (it *item) parseChildren(payload []byte) error {
	r := bytes.NewReader(payload)
	for r.Len() > 0 {
		bi, err := mp4.ReadBoxInfo(r)
		if err != nil {
			return err
		}
		if bi.Size < bi.HeaderSize || bi.Offset+bi.Size > uint64(len(payload)) {
			return fmt.Errorf("child %s overruns its item", bi.Type)
		}
		body := payload[bi.Offset+bi.HeaderSize : bi.Offset+bi.Size]
		switch bi.Type {
		case boxMean, boxName:
			if len(body) < 4 {
				return fmt.Errorf("short %s box", bi.Type)
			}
			// Skip version and flags.
			if bi.Type == boxMean {
				it.id.Mean = string(body[4:])
			} else {
				it.id.Name = string(body[4:])
			}
		case mp4.BoxTypeData():
			var data mp4.Data
			if _, err := mp4.Unmarshal(bytes.NewReader(body), uint64(len(body)), &data, mp4.Context{UnderIlstMeta: true}); err != nil {
				return err
			}
			it.values = append(it.values, data)
		}
		if _, err := bi.SeekToEnd(r); err != nil {
			return err
		}
	}
	if it.id.Freeform() && (it.id.Mean == "" || it.id.Name == "") {
		return fmt.Errorf("freeform item without mean or name")
	}
	return nil
}

// texts decodes the values that have a text form.
func (it *item) texts() ([]string, bool) {
	var texts []string
	for _, v := range it.values {
		text, ok := decodeValue(it.id.Atom, v)
		if !ok {
			return nil, false
		}
		texts = append(texts, text)
	}
	return texts, len(texts) > 0
}

var utf16 = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

func decodeValue(atom [4]byte, v mp4.Data) (string, bool) {
	switch v.DataType {
	case typeUTF8:
		return string(v.Data), true
	case typeUTF16:
		text, err := utf16.NewDecoder().Bytes(v.Data)
		return string(text), err == nil
	case typeInt:
		n, ok := decodeInt(v.Data)
		return strconv.FormatInt(n, 10), ok
	case typeImplicit:
		switch atom {
		case atomTrack, atomDisc:
			if len(v.Data) < 6 {
				return "", false
			}
			number := binary.BigEndian.Uint16(v.Data[2:4])
			total := binary.BigEndian.Uint16(v.Data[4:6])
			if total == 0 {
				return strconv.Itoa(int(number)), true
			}
			return fmt.Sprintf("%d/%d", number, total), true
		case atomGenreN:
			if len(v.Data) < 2 {
				return "", false
			}
			return genreName(int(binary.BigEndian.Uint16(v.Data))), true
		}
		if _, ok := intAtoms[atom]; ok {
			n, ok := decodeInt(v.Data)
			return strconv.FormatInt(n, 10), ok
		}
	}
	return "", false
}

func decodeInt(b []byte) (int64, bool) {
	switch len(b) {
	case 1:
		return int64(int8(b[0])), true
	case 2:
		return int64(int16(binary.BigEndian.Uint16(b))), true
	case 4:
		return int64(int32(binary.BigEndian.Uint32(b))), true
	case 8:
		return int64(binary.BigEndian.Uint64(b)), true
	}
	return 0, false
}

// encodeValue builds the data atom for a text value written to atom.
func encodeValue(key string, atom [4]byte, text string) (mp4.Data, error) {
	switch atom {
	case atomTrack, atomDisc:
		numberText, totalText, _ := strings.Cut(text, "/")
		number, err := parseUint16(numberText)
		if err != nil {
			return mp4.Data{}, &model.EncodingError{Key: key, Reason: fmt.Sprintf("%q is not a number or number/total pair", text)}
		}
		total := 0
		if totalText != "" {
			if total, err = parseUint16(totalText); err != nil {
				return mp4.Data{}, &model.EncodingError{Key: key, Reason: fmt.Sprintf("%q is not a number or number/total pair", text)}
			}
		}
		size := 8
		if atom == atomDisc {
			size = 6
		}
		data := make([]byte, size)
		binary.BigEndian.PutUint16(data[2:4], uint16(number))
		binary.BigEndian.PutUint16(data[4:6], uint16(total))
		return mp4.Data{DataType: typeImplicit, Data: data}, nil
	}

	if width, ok := intAtoms[atom]; ok {
		n, err := strconv.ParseInt(text, 10, width*8)
		if err != nil {
			return mp4.Data{}, &model.EncodingError{Key: key, Reason: fmt.Sprintf("%q is not a %d-byte integer", text, width)}
		}
		data := make([]byte, 8)
		binary.BigEndian.PutUint64(data, uint64(n))
		return mp4.Data{DataType: typeInt, Data: data[8-width:]}, nil
	}

	return mp4.Data{DataType: typeUTF8, Data: []byte(text)}, nil
}

func parseUint16(s string) (int, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	return int(n), err
}

// coverType returns the data type for a cover image MIME type.
func coverType(mime string) (uint32, bool) {
	switch mime {
	case "image/jpeg", "image/jpg":
		return typeJPEG, true
	case "image/png":
		return typePNG, true
	case "image/bmp", "image/x-ms-bmp":
		return typeBMP, true
	}
	return 0, false
}

func coverMIME(dataType uint32) string {
	switch dataType {
	case typeJPEG:
		return "image/jpeg"
	case typePNG:
		return "image/png"
	case typeBMP:
		return "image/bmp"
	}
	return ""
}

// writeItem writes it as a fresh box.
func writeItem(w *mp4.Writer, it *item) error {
	if _, err := w.StartBox(&mp4.BoxInfo{Type: mp4.BoxType(it.id.Atom)}); err != nil {
		return err
	}
	if it.id.Freeform() {
		if err := writeString(w, boxMean, it.id.Mean); err != nil {
			return err
		}
		if err := writeString(w, boxName, it.id.Name); err != nil {
			return err
		}
	}
	for i := range it.values {
		if _, err := w.StartBox(&mp4.BoxInfo{Type: mp4.BoxTypeData()}); err != nil {
			return err
		}
		if _, err := mp4.Marshal(w, &it.values[i], mp4.Context{UnderIlstMeta: true}); err != nil {
			return err
		}
		if _, err := w.EndBox(); err != nil {
			return err
		}
	}
	_, err := w.EndBox()
	return err
}

// writeString writes a mean or name box: version, flags and the string.
func writeString(w *mp4.Writer, boxType mp4.BoxType, s string) error {
	if _, err := w.StartBox(&mp4.BoxInfo{Type: boxType}); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\x00\x00\x00\x00"+s); err != nil {
		return err
	}
	_, err := w.EndBox()
	return err
}
