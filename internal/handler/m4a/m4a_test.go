package m4a

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"testing"

	"github.com/abema/go-mp4"
	"github.com/orcaman/writerseeker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solidcopy/multitag/internal/ledger"
	"github.com/solidcopy/multitag/internal/model"
	"github.com/solidcopy/multitag/internal/tagkey"
)

var audio = []byte("AUDIO-DATA")

var pathStco = mp4.BoxPath{mp4.BoxTypeMoov(), mp4.BoxTypeTrak(), mp4.BoxTypeMdia(), mp4.BoxTypeMinf(), mp4.BoxTypeStbl(), mp4.BoxTypeStco()}

func textItem(atom string, texts ...string) *item {
	a, _ := tagkey.ParseAtom(atom)
	it := &item{id: tagkey.MP4Item{Atom: a}}
	for _, text := range texts {
		it.values = append(it.values, mp4.Data{DataType: typeUTF8, Data: []byte(text)})
	}
	return it
}

func writeBox(t *testing.T, w *mp4.Writer, boxType mp4.BoxType, box mp4.IBox, ctx mp4.Context, children func()) {
	t.Helper()
	_, err := w.StartBox(&mp4.BoxInfo{Type: boxType})
	require.NoError(t, err)
	if box != nil {
		_, err = mp4.Marshal(w, box, ctx)
		require.NoError(t, err)
	}
	if children != nil {
		children()
	}
	_, err = w.EndBox()
	require.NoError(t, err)
}

// fixture builds ftyp, moov and mdat with the chunk offset pointing at the
// audio bytes. A nil items slice leaves out udta entirely.
func fixture(t *testing.T, items []*item) []byte {
	t.Helper()
	var offset uint32
	var out []byte
	for pass := 0; pass < 2; pass++ {
		ws := &writerseeker.WriterSeeker{}
		w := mp4.NewWriter(ws)
		ftyp := &mp4.Ftyp{MajorBrand: [4]byte{'M', '4', 'A', ' '}, CompatibleBrands: []mp4.CompatibleBrandElem{{CompatibleBrand: [4]byte{'i', 's', 'o', 'm'}}}}
		writeBox(t, w, mp4.BoxTypeFtyp(), ftyp, mp4.Context{}, nil)
		writeBox(t, w, mp4.BoxTypeMoov(), nil, mp4.Context{}, func() {
			writeBox(t, w, mp4.BoxTypeTrak(), nil, mp4.Context{}, func() {
				writeBox(t, w, mp4.BoxTypeMdia(), nil, mp4.Context{}, func() {
					writeBox(t, w, mp4.BoxTypeMinf(), nil, mp4.Context{}, func() {
						writeBox(t, w, mp4.BoxTypeStbl(), nil, mp4.Context{}, func() {
							stco := &mp4.Stco{EntryCount: 1, ChunkOffset: []uint32{offset}}
							writeBox(t, w, mp4.BoxTypeStco(), stco, mp4.Context{}, nil)
						})
					})
				})
			})
			if items == nil {
				return
			}
			ctx := mp4.Context{UnderUdta: true}
			writeBox(t, w, mp4.BoxTypeUdta(), nil, mp4.Context{}, func() {
				writeBox(t, w, mp4.BoxTypeMeta(), &mp4.Meta{}, ctx, func() {
					writeBox(t, w, mp4.BoxTypeHdlr(), &mp4.Hdlr{HandlerType: handlerMdir}, ctx, nil)
					writeBox(t, w, mp4.BoxTypeIlst(), nil, ctx, func() {
						for _, it := range items {
							require.NoError(t, writeItem(w, it))
						}
					})
				})
			})
		})
		pos, err := w.Seek(0, io.SeekCurrent)
		require.NoError(t, err)
		offset = uint32(pos) + mp4.SmallHeaderSize
		writeBox(t, w, mp4.BoxTypeMdat(), nil, mp4.Context{}, func() {
			_, err := w.Write(audio)
			require.NoError(t, err)
		})
		out, err = io.ReadAll(ws.BytesReader())
		require.NoError(t, err)
	}
	return out
}

func load(t *testing.T, data []byte) *Document {
	t.Helper()
	doc, err := Load(bytes.NewReader(data))
	require.NoError(t, err)
	return doc
}

func save(t *testing.T, doc *Document) []byte {
	t.Helper()
	ws := &writerseeker.WriterSeeker{}
	require.NoError(t, doc.WriteTo(ws))
	data, err := io.ReadAll(ws.BytesReader())
	require.NoError(t, err)
	return data
}

// audioAt follows the chunk offset and returns the bytes it points at.
func audioAt(t *testing.T, data []byte) []byte {
	t.Helper()
	boxes, err := mp4.ExtractBoxWithPayload(bytes.NewReader(data), nil, pathStco)
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	stco := boxes[0].Payload.(*mp4.Stco)
	start := int(stco.ChunkOffset[0])
	require.LessOrEqual(t, start+len(audio), len(data))
	return data[start : start+len(audio)]
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 2))))
	return buf.Bytes()
}

func jpegBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2)), nil))
	return buf.Bytes()
}

func TestTrack(t *testing.T) {
	mood := &item{
		id:     tagkey.MP4Item{Atom: [4]byte{'-', '-', '-', '-'}, Mean: tagkey.ITunesMean, Name: "MOOD"},
		values: []mp4.Data{{DataType: typeUTF8, Data: []byte("Calm")}},
	}
	trkn := &item{
		id:     tagkey.MP4Item{Atom: atomTrack},
		values: []mp4.Data{{DataType: typeImplicit, Data: []byte{0, 0, 0, 3, 0, 12, 0, 0}}},
	}
	gnre := &item{
		id:     tagkey.MP4Item{Atom: atomGenreN},
		values: []mp4.Data{{DataType: typeImplicit, Data: []byte{0, 18}}},
	}
	tmpo := &item{
		id:     tagkey.MP4Item{Atom: [4]byte{'t', 'm', 'p', 'o'}},
		values: []mp4.Data{{DataType: typeInt, Data: []byte{0, 128}}},
	}
	blob := &item{
		id:     tagkey.MP4Item{Atom: [4]byte{'x', 'i', 'd', ' '}},
		values: []mp4.Data{{DataType: 99, Data: []byte{1, 2, 3}}},
	}
	data := fixture(t, []*item{textItem("©nam", "Song"), textItem("©ART", "A, B"), mood, trkn, gnre, tmpo, blob})

	track := load(t, data).Track("a.m4a", model.DefaultOptions())
	assert.Equal(t, model.FormatMP4, track.Format)
	assert.Equal(t, "Song", track.First(tagkey.Title))
	assert.Equal(t, []string{"A", "B"}, track.Values(tagkey.Artist))
	assert.Equal(t, "Calm", track.First(tagkey.Mood))
	assert.Equal(t, "3/12", track.First(tagkey.TrackNumber))
	assert.Equal(t, "Rock", track.First(tagkey.Genre))
	assert.Equal(t, "128", track.First(tagkey.BPM))
	assert.True(t, track.HasOpaque("xid "))
}

func TestApplyShiftsChunkOffsets(t *testing.T) {
	data := fixture(t, []*item{textItem("©nam", "Song")})
	require.Equal(t, audio, audioAt(t, data))

	doc := load(t, data)
	require.NoError(t, doc.Apply([]ledger.Change{
		ledger.SetRaw{Tag: "title", Values: []string{"A much longer title than before"}},
		ledger.SetRaw{Tag: "tracknumber", Values: []string{"4/10"}},
		ledger.SetRaw{Tag: "LABEL", Values: []string{"Label"}},
	}, model.DefaultOptions()))
	out := save(t, doc)

	assert.Greater(t, len(out), len(data))
	assert.Equal(t, audio, audioAt(t, out))
	assert.Equal(t, audio, out[len(out)-len(audio):])

	track := load(t, out).Track("a.m4a", model.DefaultOptions())
	assert.Equal(t, "A much longer title than before", track.First(tagkey.Title))
	assert.Equal(t, "4/10", track.First(tagkey.TrackNumber))
	assert.Equal(t, "Label", track.First(tagkey.Label))
}

func TestUntouchedItemsKeepTheirBytes(t *testing.T) {
	odd := &item{
		id:     tagkey.MP4Item{Atom: [4]byte{'x', 'i', 'd', ' '}},
		values: []mp4.Data{{DataType: 99, Data: []byte{9, 8, 7}}},
	}
	data := fixture(t, []*item{odd, textItem("©nam", "Song")})
	doc := load(t, data)
	require.NoError(t, doc.Apply([]ledger.Change{ledger.Remove{Tag: "title"}}, model.DefaultOptions()))
	out := save(t, doc)

	assert.True(t, bytes.Contains(out, doc.items[0].raw))
	track := load(t, out).Track("a.m4a", model.DefaultOptions())
	assert.False(t, track.HasTag(tagkey.Title))
	assert.True(t, track.HasOpaque("xid "))
}

func TestCreatesMetadataBoxes(t *testing.T) {
	data := fixture(t, nil)
	doc := load(t, data)
	assert.Empty(t, doc.Track("a.m4a", model.DefaultOptions()).Tags)

	require.NoError(t, doc.Apply([]ledger.Change{
		ledger.SetRaw{Tag: "artist", Values: []string{"A", "B"}},
	}, model.DefaultOptions()))
	out := save(t, doc)

	assert.Equal(t, audio, audioAt(t, out))
	track := load(t, out).Track("a.m4a", model.DefaultOptions())
	assert.Equal(t, []string{"A", "B"}, track.Values(tagkey.Artist))

	boxes, err := mp4.ExtractBoxWithPayload(bytes.NewReader(out), nil, mp4.BoxPath{mp4.BoxTypeMoov(), mp4.BoxTypeUdta(), mp4.BoxTypeMeta(), mp4.BoxTypeHdlr()})
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	assert.Equal(t, handlerMdir, boxes[0].Payload.(*mp4.Hdlr).HandlerType)
}

func TestCovers(t *testing.T) {
	doc := load(t, fixture(t, []*item{textItem("©nam", "Song")}))
	opts := model.DefaultOptions()

	err := doc.Apply([]ledger.Change{ledger.AddPicture{Kind: model.KindOther, Data: pngBytes(t)}}, opts)
	var opErr *model.UnsupportedOperationError
	require.True(t, errors.As(err, &opErr), "other before front")

	require.NoError(t, doc.Apply([]ledger.Change{
		ledger.AddPicture{Kind: model.KindCoverFront, Data: jpegBytes(t)},
		ledger.AddPicture{Kind: model.KindOther, Data: pngBytes(t)},
	}, opts))
	track := load(t, save(t, doc)).Track("a.m4a", opts)
	require.Len(t, track.Images, 2)
	front, _ := track.Image(model.KindCoverFront)
	assert.Equal(t, "image/jpeg", front.MIME)
	other, _ := track.Image(model.KindOther)
	assert.Equal(t, "image/png", other.MIME)
	assert.Equal(t, 4, other.Width)

	err = doc.Apply([]ledger.Change{ledger.RemovePicture{Kind: model.KindCoverFront}}, opts)
	require.True(t, errors.As(err, &opErr), "front while other follows")

	err = doc.Apply([]ledger.Change{ledger.AddPicture{Kind: model.KindCoverBack, Data: pngBytes(t)}}, opts)
	require.True(t, errors.As(err, &opErr))

	require.NoError(t, doc.Apply([]ledger.Change{
		ledger.RemovePicture{Kind: model.KindOther},
		ledger.RemovePicture{Kind: model.KindCoverFront},
	}, opts))
	track = load(t, save(t, doc)).Track("a.m4a", opts)
	assert.Empty(t, track.Images)
	assert.Equal(t, "Song", track.First(tagkey.Title))
}

func TestExtraCoversArePreserved(t *testing.T) {
	covr := &item{id: tagkey.MP4Item{Atom: atomCover}}
	for i := 0; i < 3; i++ {
		covr.values = append(covr.values, mp4.Data{DataType: typePNG, Data: pngBytes(t)})
	}
	doc := load(t, fixture(t, []*item{covr}))
	track := doc.Track("a.m4a", model.DefaultOptions())
	assert.Len(t, track.Images, 2)
	assert.NotEmpty(t, track.Warnings)

	require.NoError(t, doc.Apply([]ledger.Change{ledger.SetRaw{Tag: "title", Values: []string{"T"}}}, model.DefaultOptions()))
	reloaded := load(t, save(t, doc))
	assert.Len(t, reloaded.covers().values, 3)
}

func TestApplyErrors(t *testing.T) {
	doc := load(t, fixture(t, []*item{}))
	opts := model.DefaultOptions()

	var encErr *model.EncodingError
	err := doc.Apply([]ledger.Change{ledger.SetRaw{Tag: "tracknumber", Values: []string{"three"}}}, opts)
	assert.True(t, errors.As(err, &encErr))
	err = doc.Apply([]ledger.Change{ledger.SetRaw{Tag: "bpm", Values: []string{"70000"}}}, opts)
	assert.True(t, errors.As(err, &encErr))

	var keyErr *model.UnknownTagKeyError
	err = doc.Apply([]ledger.Change{ledger.SetRaw{Tag: "covr", Values: []string{"x"}}}, opts)
	assert.True(t, errors.As(err, &keyErr))

	var opErr *model.UnsupportedOperationError
	err = doc.Apply([]ledger.Change{ledger.SetComments{}}, opts)
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, model.FormatMP4, opErr.Format)

	var picErr *model.InvalidPictureError
	err = doc.Apply([]ledger.Change{ledger.AddPicture{Kind: model.KindCoverFront, Data: []byte("not an image")}}, opts)
	assert.True(t, errors.As(err, &picErr))
}

func TestLoadErrors(t *testing.T) {
	var formatErr *model.FormatError

	_, err := Load(bytes.NewReader([]byte("ID3\x04\x00\x00\x00\x00\x00\x00")))
	assert.True(t, errors.As(err, &formatErr))

	ws := &writerseeker.WriterSeeker{}
	w := mp4.NewWriter(ws)
	writeBox(t, w, mp4.BoxTypeFtyp(), &mp4.Ftyp{MajorBrand: [4]byte{'M', '4', 'A', ' '}}, mp4.Context{}, nil)
	data, err := io.ReadAll(ws.BytesReader())
	require.NoError(t, err)
	_, err = Load(bytes.NewReader(data))
	assert.True(t, errors.As(err, &formatErr), "missing moov")
}

func TestEncodeValue(t *testing.T) {
	v, err := encodeValue("discnumber", atomDisc, "1/2")
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 1, 0, 2}, v.Data)

	v, err = encodeValue("bpm", [4]byte{'t', 'm', 'p', 'o'}, "120")
	require.NoError(t, err)
	assert.Equal(t, uint32(typeInt), v.DataType)
	assert.Equal(t, []byte{0, 120}, v.Data)

	text, ok := decodeValue([4]byte{'t', 'm', 'p', 'o'}, v)
	require.True(t, ok)
	assert.Equal(t, "120", text)

	assert.Equal(t, "Blues", genreName(1))
	assert.Equal(t, "200", genreName(200))
}
