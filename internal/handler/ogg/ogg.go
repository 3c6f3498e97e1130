// Package ogg edits the comment header of Ogg Vorbis and Ogg Opus files.
package ogg

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/solidcopy/multitag/internal/handler/vorbis"
	"github.com/solidcopy/multitag/internal/ledger"
	"github.com/solidcopy/multitag/internal/model"
	"github.com/solidcopy/multitag/internal/separator"
	"github.com/solidcopy/multitag/internal/tagkey"
)

const format = model.FormatOGG

type codec struct {
	name string
	// commentPrefix starts the comment packet.
	commentPrefix []byte
	// framing is appended after the comment data.
	framing []byte
	// headers is the number of header packets.
	headers int
}

var (
	codecVorbis = codec{name: "vorbis", commentPrefix: []byte("\x03vorbis"), framing: []byte{1}, headers: 3}
	codecOpus   = codec{name: "opus", commentPrefix: []byte("OpusTags"), headers: 2}
)

func detectCodec(ident []byte) (codec, error) {
	switch {
	case bytes.HasPrefix(ident, []byte("\x01vorbis")):
		return codecVorbis, nil
	case bytes.HasPrefix(ident, []byte("OpusHead")):
		return codecOpus, nil
	}
	return codec{}, &model.FormatError{Reason: "Ogg stream is neither Vorbis nor Opus"}
}

// Document holds the header packets of the first logical stream. Audio
// pages stay in the source and are streamed on write.
type Document struct {
	src      io.ReadSeeker
	codec    codec
	serial   uint32
	firstSeq uint32
	// headers are the header packets; headers[1] is replaced by comments.
	headers     [][]byte
	headerPages int
	headerEnd   int64
	comments    *vorbis.Comments
	pictures    vorbis.Pictures
	// broken keeps picture comments that did not decode.
	broken   []string
	warnings []model.Warning
}

func Load(r io.ReadSeeker) (*Document, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	pr := &packetReader{r: r}
	ident, err := pr.next()
	if err != nil {
		return nil, err
	}
	c, err := detectCodec(ident)
	if err != nil {
		return nil, err
	}

	headers := [][]byte{ident}
	for len(headers) < c.headers {
		packet, err := pr.next()
		if err != nil {
			return nil, err
		}
		headers = append(headers, packet)
	}
	if !bytes.HasPrefix(headers[1], c.commentPrefix) {
		return nil, &model.FormatError{Reason: fmt.Sprintf("missing %s comment header", c.name)}
	}
	if len(pr.queue) > 0 || !pr.boundary {
		return nil, &model.FormatError{Reason: "audio data shares a page with the header packets"}
	}

	headerEnd, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}

	comments, err := vorbis.ParseComments(headers[1][len(c.commentPrefix):])
	if err != nil {
		return nil, &model.FormatError{Reason: "corrupted comment header", Err: err}
	}

	doc := &Document{
		src:         r,
		codec:       c,
		serial:      pr.serial,
		firstSeq:    pr.firstSequence,
		headers:     headers,
		headerPages: pr.pages,
		headerEnd:   headerEnd,
		comments:    comments,
	}
	for _, value := range comments.PictureEntries() {
		picture, err := vorbis.DecodePicture(value)
		if err != nil {
			doc.warnings = append(doc.warnings, model.Warning{Stage: "ogg", Message: fmt.Sprintf("kept an unreadable picture comment: %v", err)})
			doc.broken = append(doc.broken, value)
			continue
		}
		doc.pictures.Append(picture)
	}
	return doc, nil
}

func (d *Document) Track(path string, opts model.Options) *model.Track {
	track := model.NewTrack(path, format)
	track.Warnings = append(track.Warnings, d.warnings...)
	d.comments.Decode(track, separator.For(format, opts.Separators))
	d.pictures.Decode(track)
	if len(d.broken) > 0 {
		track.AddOpaque(tagkey.PictureField)
	}
	return track
}

func (d *Document) Apply(changes []ledger.Change, opts model.Options) error {
	return vorbis.Apply(format, d.comments, &d.pictures, changes, opts)
}

func (d *Document) commentPacket() []byte {
	comments := d.comments.Clone()
	for _, picture := range d.pictures.All() {
		comments.AddPictureEntry(vorbis.EncodePicture(picture))
	}
	for _, value := range d.broken {
		comments.AddPictureEntry(value)
	}

	var packet []byte
	packet = append(packet, d.codec.commentPrefix...)
	packet = append(packet, comments.Bytes()...)
	return append(packet, d.codec.framing...)
}

// WriteTo writes fresh header pages and then every remaining page with its
// sequence number shifted by the change in header page count.
func (d *Document) WriteTo(w io.WriteSeeker) error {
	packets := append([][]byte{}, d.headers...)
	packets[1] = d.commentPacket()

	pages := paginate(d.serial, d.firstSeq, flagBOS, packets[:1])
	pages = append(pages, paginate(d.serial, d.firstSeq+uint32(len(pages)), 0, packets[1:])...)
	delta := uint32(len(pages) - d.headerPages)

	bw := bufio.NewWriter(w)
	for _, p := range pages {
		if _, err := bw.Write(p.bytes()); err != nil {
			return err
		}
	}

	if _, err := d.src.Seek(d.headerEnd, io.SeekStart); err != nil {
		return err
	}
	br := bufio.NewReader(d.src)
	for {
		p, err := readPage(br)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if p.serial == d.serial {
			p.sequence += delta
		}
		if _, err := bw.Write(p.bytes()); err != nil {
			return err
		}
	}
	return bw.Flush()
}
