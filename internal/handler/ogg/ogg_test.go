package ogg

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/orcaman/writerseeker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solidcopy/multitag/internal/handler/vorbis"
	"github.com/solidcopy/multitag/internal/ledger"
	"github.com/solidcopy/multitag/internal/model"
)

const serial = 0x1234

var audioPackets = [][]byte{[]byte("AUDIO-1"), []byte("AUDIO-2")}

func streamBytes(t *testing.T, headers [][]byte) []byte {
	t.Helper()
	pages := paginate(serial, 0, flagBOS, headers[:1])
	pages = append(pages, paginate(serial, uint32(len(pages)), 0, headers[1:])...)
	for i, packet := range audioPackets {
		p := paginate(serial, uint32(len(pages)), 0, [][]byte{packet})[0]
		p.granule = int64(1000 * (i + 1))
		if i == len(audioPackets)-1 {
			p.headerType |= flagEOS
		}
		pages = append(pages, p)
	}

	var buf bytes.Buffer
	for _, p := range pages {
		buf.Write(p.bytes())
	}
	return buf.Bytes()
}

func commentPacket(prefix string, framing []byte, entries ...string) []byte {
	c := vorbis.NewComments("test")
	for _, e := range entries {
		field, value, _ := strings.Cut(e, "=")
		_ = c.Set(field, []string{value})
	}
	packet := append([]byte(prefix), c.Bytes()...)
	return append(packet, framing...)
}

func vorbisFile(t *testing.T, entries ...string) []byte {
	return streamBytes(t, [][]byte{
		append([]byte("\x01vorbis"), make([]byte, 23)...),
		commentPacket("\x03vorbis", []byte{1}, entries...),
		append([]byte("\x05vorbis"), bytes.Repeat([]byte{0xAA}, 600)...),
	})
}

func opusFile(t *testing.T, entries ...string) []byte {
	return streamBytes(t, [][]byte{
		append([]byte("OpusHead\x01\x02"), make([]byte, 9)...),
		commentPacket("OpusTags", nil, entries...),
	})
}

func readAllPages(t *testing.T, data []byte) []*page {
	t.Helper()
	r := bytes.NewReader(data)
	var pages []*page
	for {
		p, err := readPage(r)
		if errors.Is(err, io.EOF) {
			return pages
		}
		require.NoError(t, err)
		pages = append(pages, p)
	}
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

func TestTrack(t *testing.T) {
	track := load(t, vorbisFile(t, "TITLE=Song", "ARTIST=A")).Track("a.ogg", model.DefaultOptions())
	assert.Equal(t, model.FormatOGG, track.Format)
	assert.Equal(t, "Song", track.First("title"))
	assert.Equal(t, []string{"A"}, track.Values("artist"))
}

func TestRewriteRenumbersPages(t *testing.T) {
	original := vorbisFile(t, "TITLE=Song")
	doc := load(t, original)
	before := readAllPages(t, original)

	long := strings.Repeat("x", 70000)
	require.NoError(t, doc.Apply([]ledger.Change{
		ledger.SetRaw{Tag: "comment", Values: []string{long}},
		ledger.SetRaw{Tag: "artist", Values: []string{"A", "B"}},
	}, model.DefaultOptions()))
	out := save(t, doc)

	after := readAllPages(t, out)
	require.Greater(t, len(after), len(before))
	for i, p := range after {
		assert.Equal(t, uint32(i), p.sequence)
	}
	last := after[len(after)-1]
	assert.Equal(t, []byte("AUDIO-2"), last.data)
	assert.Equal(t, int64(2000), last.granule)
	assert.NotZero(t, last.headerType&flagEOS)

	track := load(t, out).Track("a.ogg", model.DefaultOptions())
	assert.Equal(t, long, track.First("comment"))
	assert.Equal(t, []string{"A", "B"}, track.Values("artist"))
	assert.Equal(t, "Song", track.First("title"))
}

func TestPictureComments(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))))

	doc := load(t, opusFile(t, "TITLE=Song"))
	require.NoError(t, doc.Apply([]ledger.Change{
		ledger.AddPicture{Kind: model.KindCoverFront, Data: buf.Bytes()},
	}, model.DefaultOptions()))
	out := save(t, doc)

	track := load(t, out).Track("a.opus", model.DefaultOptions())
	img, ok := track.Image(model.KindCoverFront)
	require.True(t, ok)
	assert.Equal(t, "image/png", img.MIME)
	assert.False(t, track.HasTag("METADATA_BLOCK_PICTURE"))

	// Writing twice must not duplicate the picture comment.
	out = save(t, doc)
	track = load(t, out).Track("a.opus", model.DefaultOptions())
	assert.Len(t, track.Images, 1)
}

func TestUnsupportedOperation(t *testing.T) {
	doc := load(t, opusFile(t))
	err := doc.Apply([]ledger.Change{ledger.SetPopularimeter{}}, model.DefaultOptions())
	var opErr *model.UnsupportedOperationError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, model.FormatOGG, opErr.Format)
}

func TestLoadErrors(t *testing.T) {
	var formatErr *model.FormatError

	_, err := Load(bytes.NewReader([]byte("fLaC not ogg at all, sorry")))
	assert.True(t, errors.As(err, &formatErr))

	data := vorbisFile(t)
	data[len(data)-1] ^= 0xFF
	doc := load(t, data)
	err = doc.WriteTo(&writerseeker.WriterSeeker{})
	assert.True(t, errors.As(err, &formatErr), "corrupted audio page checksum")

	p := paginate(serial, 0, flagBOS, [][]byte{[]byte("\x01vorbis")})[0]
	_, err = Load(bytes.NewReader(p.bytes()))
	assert.True(t, errors.As(err, &formatErr), "stream ends inside headers")
}

func TestPaginateLargePacket(t *testing.T) {
	packet := bytes.Repeat([]byte{7}, 255*300)
	pages := paginate(serial, 5, 0, [][]byte{packet})
	require.Len(t, pages, 2)
	assert.Equal(t, byte(0), pages[0].headerType)
	assert.Equal(t, int64(noGranule), pages[0].granule)
	assert.Equal(t, byte(flagContinued), pages[1].headerType)
	assert.Equal(t, int64(0), pages[1].granule)
	assert.Equal(t, uint32(6), pages[1].sequence)
	// A packet that is a multiple of 255 bytes ends with a zero segment.
	assert.Equal(t, byte(0), pages[1].segments[len(pages[1].segments)-1])

	pages[0].headerType = flagBOS
	pr := &packetReader{r: bytes.NewReader(append(pages[0].bytes(), pages[1].bytes()...))}
	got, err := pr.next()
	require.NoError(t, err)
	assert.Equal(t, packet, got)
}
