package ogg

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/solidcopy/multitag/internal/model"
)

const (
	pageHeaderSize = 27
	maxSegments    = 255

	flagContinued = 0x01
	flagBOS       = 0x02
	flagEOS       = 0x04

	// noGranule marks a page on which no packet ends.
	noGranule = -1
)

// page is one Ogg page.
type page struct {
	headerType byte
	granule    int64
	serial     uint32
	sequence   uint32
	segments   []byte
	data       []byte
}

// readPage reads the page at the current position of r. io.EOF means r
// ended cleanly on a page boundary.
func readPage(r io.Reader) (*page, error) {
	header := make([]byte, pageHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, &model.FormatError{Reason: "truncated Ogg page header", Err: err}
	}
	if string(header[:4]) != "OggS" {
		return nil, &model.FormatError{Reason: "invalid Ogg capture pattern"}
	}
	if header[4] != 0 {
		return nil, &model.FormatError{Reason: fmt.Sprintf("unsupported Ogg version %d", header[4])}
	}

	p := &page{
		headerType: header[5],
		granule:    int64(binary.LittleEndian.Uint64(header[6:14])),
		serial:     binary.LittleEndian.Uint32(header[14:18]),
		sequence:   binary.LittleEndian.Uint32(header[18:22]),
		segments:   make([]byte, header[26]),
	}
	if _, err := io.ReadFull(r, p.segments); err != nil {
		return nil, &model.FormatError{Reason: "truncated Ogg segment table", Err: err}
	}
	size := 0
	for _, s := range p.segments {
		size += int(s)
	}
	p.data = make([]byte, size)
	if _, err := io.ReadFull(r, p.data); err != nil {
		return nil, &model.FormatError{Reason: "truncated Ogg page", Err: err}
	}

	stored := binary.LittleEndian.Uint32(header[22:26])
	if stored != p.checksum() {
		return nil, &model.FormatError{Reason: fmt.Sprintf("Ogg page %d checksum mismatch", p.sequence)}
	}
	return p, nil
}

// bytes encodes the page with a fresh checksum.
func (p *page) bytes() []byte {
	buf := p.encode()
	binary.LittleEndian.PutUint32(buf[22:26], crc(buf))
	return buf
}

func (p *page) checksum() uint32 {
	return crc(p.encode())
}

// encode lays out the page with a zero checksum field.
func (p *page) encode() []byte {
	buf := make([]byte, pageHeaderSize+len(p.segments)+len(p.data))
	copy(buf, "OggS")
	buf[5] = p.headerType
	binary.LittleEndian.PutUint64(buf[6:14], uint64(p.granule))
	binary.LittleEndian.PutUint32(buf[14:18], p.serial)
	binary.LittleEndian.PutUint32(buf[18:22], p.sequence)
	buf[26] = byte(len(p.segments))
	copy(buf[pageHeaderSize:], p.segments)
	copy(buf[pageHeaderSize+len(p.segments):], p.data)
	return buf
}

var crcTable = func() [256]uint32 {
	var table [256]uint32
	for i := range table {
		r := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if r&0x80000000 != 0 {
				r = r<<1 ^ 0x04c11db7
			} else {
				r <<= 1
			}
		}
		table[i] = r
	}
	return table
}()

// crc is the Ogg checksum: polynomial 0x04c11db7, unreflected, zero
// initial value and no final xor.
func crc(data []byte) uint32 {
	var sum uint32
	for _, b := range data {
		sum = sum<<8 ^ crcTable[byte(sum>>24)^b]
	}
	return sum
}

// packetReader reassembles packets from the pages of one logical stream.
type packetReader struct {
	r       io.Reader
	serial  uint32
	pending []byte
	queue   [][]byte
	// pages counts the pages consumed so far.
	pages         int
	firstSequence uint32
	// lastSequence is the sequence number of the last page consumed.
	lastSequence uint32
	// boundary reports whether the last consumed page ended on a packet.
	boundary bool
}

// next returns the next complete packet.
func (pr *packetReader) next() ([]byte, error) {
	for len(pr.queue) == 0 {
		p, err := readPage(pr.r)
		if errors.Is(err, io.EOF) {
			return nil, &model.FormatError{Reason: "Ogg stream ended inside the header packets"}
		}
		if err != nil {
			return nil, err
		}
		if pr.pages == 0 {
			if p.headerType&flagBOS == 0 {
				return nil, &model.FormatError{Reason: "first Ogg page is not a beginning of stream"}
			}
			pr.serial = p.serial
			pr.firstSequence = p.sequence
		} else if p.serial != pr.serial {
			return nil, &model.FormatError{Reason: "multiplexed Ogg streams are not supported"}
		}
		if p.headerType&flagContinued == 0 && len(pr.pending) > 0 {
			return nil, &model.FormatError{Reason: "Ogg packet interrupted by a fresh page"}
		}
		pr.pages++
		pr.lastSequence = p.sequence

		offset := 0
		for _, s := range p.segments {
			pr.pending = append(pr.pending, p.data[offset:offset+int(s)]...)
			offset += int(s)
			if s < 255 {
				pr.queue = append(pr.queue, pr.pending)
				pr.pending = nil
			}
		}
		pr.boundary = len(pr.pending) == 0
	}
	packet := pr.queue[0]
	pr.queue = pr.queue[1:]
	return packet, nil
}

// paginate lays packets out on fresh pages starting at sequence. The last
// page ends on a packet boundary, so the following page starts clean.
func paginate(serial uint32, sequence uint32, headerType byte, packets [][]byte) []*page {
	var pages []*page
	current := &page{headerType: headerType, serial: serial, sequence: sequence, granule: noGranule}

	for _, packet := range packets {
		remaining := packet
		started := false
		for {
			if len(current.segments) == maxSegments {
				pages = append(pages, current)
				current = &page{serial: serial, sequence: current.sequence + 1, granule: noGranule}
				if started {
					current.headerType = flagContinued
				}
			}
			n := len(remaining)
			if n > 255 {
				n = 255
			}
			current.segments = append(current.segments, byte(n))
			current.data = append(current.data, remaining[:n]...)
			remaining = remaining[n:]
			started = true
			if n < 255 {
				current.granule = 0
				break
			}
		}
	}
	return append(pages, current)
}
