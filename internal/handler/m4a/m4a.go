package m4a

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/abema/go-mp4"
	"github.com/orcaman/writerseeker"

	"github.com/solidcopy/multitag/internal/artwork"
	"github.com/solidcopy/multitag/internal/model"
	"github.com/solidcopy/multitag/internal/separator"
)

const format = model.FormatMP4

var (
	pathUdta = mp4.BoxPath{mp4.BoxTypeMoov(), mp4.BoxTypeUdta()}
	pathMeta = mp4.BoxPath{mp4.BoxTypeMoov(), mp4.BoxTypeUdta(), mp4.BoxTypeMeta()}
	pathIlst = mp4.BoxPath{mp4.BoxTypeMoov(), mp4.BoxTypeUdta(), mp4.BoxTypeMeta(), mp4.BoxTypeIlst()}

	handlerMdir = [4]byte{'m', 'd', 'i', 'r'}
)

// containers are rewritten child by child; any other box is copied.
var containers = map[mp4.BoxType]bool{
	mp4.BoxTypeMoov(): true,
	mp4.BoxTypeTrak(): true,
	mp4.BoxTypeMdia(): true,
	mp4.BoxTypeMinf(): true,
	mp4.BoxTypeStbl(): true,
	mp4.BoxTypeUdta(): true,
	mp4.BoxTypeMeta(): true,
}

func pathIs(path, want mp4.BoxPath) bool {
	if len(path) != len(want) {
		return false
	}
	for i := range path {
		if path[i] != want[i] {
			return false
		}
	}
	return true
}

// Document holds the ilst items of an MP4 file. Every other box stays in
// the source and is copied on write.
type Document struct {
	src  io.ReadSeeker
	top  []mp4.BoxInfo
	moov *mp4.BoxInfo
	// mdatAfterMoov reports whether chunk offsets point past the moov box.
	mdatAfterMoov bool
	hasUdta       bool
	hasMeta       bool
	hasIlst       bool
	items         []*item
	warnings      []model.Warning
}

func Load(r io.ReadSeeker) (*Document, error) {
	doc := &Document{src: r}
	var ilst []byte

	_, err := mp4.ReadBoxStructure(r, func(h *mp4.ReadHandle) (interface{}, error) {
		if len(h.Path) == 1 {
			doc.top = append(doc.top, h.BoxInfo)
		}
		switch {
		case pathIs(h.Path, mp4.BoxPath{mp4.BoxTypeMoov()}):
			if doc.moov != nil {
				return nil, &model.FormatError{Reason: "more than one moov box"}
			}
			bi := h.BoxInfo
			doc.moov = &bi
			return h.Expand()
		case pathIs(h.Path, pathUdta):
			doc.hasUdta = true
			return h.Expand()
		case pathIs(h.Path, pathMeta):
			doc.hasMeta = true
			return h.Expand()
		case pathIs(h.Path, pathIlst):
			doc.hasIlst = true
			var buf bytes.Buffer
			if _, err := h.ReadData(&buf); err != nil {
				return nil, err
			}
			ilst = buf.Bytes()
		}
		return nil, nil
	})
	if err != nil {
		var formatErr *model.FormatError
		if errors.As(err, &formatErr) {
			return nil, err
		}
		return nil, &model.FormatError{Reason: "unreadable MP4 box structure", Err: err}
	}
	if len(doc.top) == 0 || doc.top[0].Type != mp4.BoxTypeFtyp() {
		return nil, &model.FormatError{Reason: "missing ftyp box"}
	}
	if doc.moov == nil {
		return nil, &model.FormatError{Reason: "missing moov box"}
	}

	moovEnd := doc.moov.Offset + doc.moov.Size
	for _, bi := range doc.top {
		if bi.Type == mp4.BoxTypeMdat() && bi.Offset >= moovEnd {
			doc.mdatAfterMoov = true
		}
	}

	doc.items, doc.warnings = parseIlst(ilst)
	return doc, nil
}

func (d *Document) Track(path string, opts model.Options) *model.Track {
	track := model.NewTrack(path, format)
	track.Warnings = append(track.Warnings, d.warnings...)
	policy := separator.For(format, opts.Separators)

	for _, it := range d.items {
		if it.broken {
			track.AddOpaque(it.key())
			continue
		}
		if it.id.Atom == atomCover {
			d.decodeCovers(track, it)
			continue
		}
		texts, ok := it.texts()
		if !ok {
			track.AddOpaque(it.key())
			continue
		}
		key := it.key()
		track.Tags[key] = append(track.Tags[key], policy.Decode(texts)...)
	}
	for key, values := range track.Tags {
		if len(values) == 0 {
			delete(track.Tags, key)
		}
	}
	return track
}

// decodeCovers maps covr entries to pictures: the first is the front
// cover, the second is other, and further entries are only preserved.
func (d *Document) decodeCovers(track *model.Track, it *item) {
	for i, v := range it.values {
		kind := model.KindOther
		switch {
		case i == 0:
			kind = model.KindCoverFront
		case i > 1:
			track.Warn("mp4", fmt.Sprintf("cover %d preserved but not exposed", i+1))
			continue
		}
		if _, exists := track.Image(kind); exists {
			continue
		}
		track.SetImage(artwork.Decoded(kind, v.Data, coverMIME(v.DataType), ""))
	}
}

// WriteTo writes the rewritten moov box in place of the old one and copies
// every other top-level box.
func (d *Document) WriteTo(w io.WriteSeeker) error {
	moov, err := d.renderMoov(0)
	if err != nil {
		return err
	}
	delta := int64(len(moov)) - int64(d.moov.Size)
	if delta != 0 && d.mdatAfterMoov {
		if moov, err = d.renderMoov(delta); err != nil {
			return err
		}
	}

	mw := mp4.NewWriter(w)
	for i := range d.top {
		bi := &d.top[i]
		if bi.Offset == d.moov.Offset {
			if _, err := mw.Write(moov); err != nil {
				return err
			}
			continue
		}
		if err := mw.CopyBox(d.src, bi); err != nil {
			return fmt.Errorf("copy %s box: %w", bi.Type, err)
		}
	}
	return nil
}

func (d *Document) renderMoov(delta int64) ([]byte, error) {
	ws := &writerseeker.WriterSeeker{}
	w := mp4.NewWriter(ws)
	moov := *d.moov
	if _, err := mp4.ReadBoxStructureFromInternal(d.src, &moov, d.rewrite(w, delta)); err != nil {
		return nil, err
	}
	return io.ReadAll(ws.BytesReader())
}

func (d *Document) rewrite(w *mp4.Writer, delta int64) mp4.ReadHandler {
	moovEnd := d.moov.Offset + d.moov.Size
	return func(h *mp4.ReadHandle) (interface{}, error) {
		switch {
		case pathIs(h.Path, pathIlst):
			return nil, d.writeIlst(w)
		case delta != 0 && (h.BoxInfo.Type == mp4.BoxTypeStco() || h.BoxInfo.Type == mp4.BoxTypeCo64()):
			return nil, shiftChunkOffsets(w, h, moovEnd, delta)
		case containers[h.BoxInfo.Type]:
			return nil, d.rewriteContainer(w, h)
		}
		return nil, w.CopyBox(d.src, &h.BoxInfo)
	}
}

func (d *Document) rewriteContainer(w *mp4.Writer, h *mp4.ReadHandle) error {
	if _, err := w.StartBox(&mp4.BoxInfo{Type: h.BoxInfo.Type}); err != nil {
		return err
	}
	box, n, err := h.ReadPayload()
	if err != nil {
		return err
	}
	// A QuickTime style meta box has no version and flags.
	if n > 0 {
		if _, err := mp4.Marshal(w, box, h.BoxInfo.Context); err != nil {
			return err
		}
	}
	if _, err := h.Expand(); err != nil {
		return err
	}

	switch {
	case pathIs(h.Path, mp4.BoxPath{mp4.BoxTypeMoov()}) && !d.hasUdta:
		if err := d.writeUdta(w); err != nil {
			return err
		}
	case pathIs(h.Path, pathUdta) && !d.hasMeta:
		if err := d.writeMeta(w); err != nil {
			return err
		}
	case pathIs(h.Path, pathMeta) && !d.hasIlst:
		if err := d.writeIlst(w); err != nil {
			return err
		}
	}

	_, err = w.EndBox()
	return err
}

func (d *Document) writeUdta(w *mp4.Writer) error {
	if len(d.items) == 0 {
		return nil
	}
	if _, err := w.StartBox(&mp4.BoxInfo{Type: mp4.BoxTypeUdta()}); err != nil {
		return err
	}
	if err := d.writeMeta(w); err != nil {
		return err
	}
	_, err := w.EndBox()
	return err
}

func (d *Document) writeMeta(w *mp4.Writer) error {
	if len(d.items) == 0 {
		return nil
	}
	ctx := mp4.Context{UnderUdta: true}
	if _, err := w.StartBox(&mp4.BoxInfo{Type: mp4.BoxTypeMeta()}); err != nil {
		return err
	}
	if _, err := mp4.Marshal(w, &mp4.Meta{}, ctx); err != nil {
		return err
	}
	if _, err := w.StartBox(&mp4.BoxInfo{Type: mp4.BoxTypeHdlr()}); err != nil {
		return err
	}
	if _, err := mp4.Marshal(w, &mp4.Hdlr{HandlerType: handlerMdir}, ctx); err != nil {
		return err
	}
	if _, err := w.EndBox(); err != nil {
		return err
	}
	if err := d.writeIlst(w); err != nil {
		return err
	}
	_, err := w.EndBox()
	return err
}

func (d *Document) writeIlst(w *mp4.Writer) error {
	if _, err := w.StartBox(&mp4.BoxInfo{Type: mp4.BoxTypeIlst()}); err != nil {
		return err
	}
	for _, it := range d.items {
		if it.raw != nil {
			if _, err := w.Write(it.raw); err != nil {
				return err
			}
			continue
		}
		if err := writeItem(w, it); err != nil {
			return err
		}
	}
	_, err := w.EndBox()
	return err
}

// shiftChunkOffsets rewrites stco or co64 with every offset past the old
// moov box moved by delta.
func shiftChunkOffsets(w *mp4.Writer, h *mp4.ReadHandle, moovEnd uint64, delta int64) error {
	box, _, err := h.ReadPayload()
	if err != nil {
		return err
	}
	shift := func(offset uint64) uint64 {
		if offset >= moovEnd {
			return uint64(int64(offset) + delta)
		}
		return offset
	}

	switch b := box.(type) {
	case *mp4.Stco:
		for i, offset := range b.ChunkOffset {
			shifted := shift(uint64(offset))
			if shifted > 0xFFFFFFFF {
				return &model.FormatError{Reason: "chunk offset no longer fits in stco"}
			}
			b.ChunkOffset[i] = uint32(shifted)
		}
	case *mp4.Co64:
		for i, offset := range b.ChunkOffset {
			b.ChunkOffset[i] = shift(offset)
		}
	}

	if _, err := w.StartBox(&mp4.BoxInfo{Type: h.BoxInfo.Type}); err != nil {
		return err
	}
	if _, err := mp4.Marshal(w, box, h.BoxInfo.Context); err != nil {
		return err
	}
	_, err = w.EndBox()
	return err
}
