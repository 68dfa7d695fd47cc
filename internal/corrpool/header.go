package corrpool

import "encoding/binary"

// HeaderSize is the size in bytes of the header region that precedes the
// samples of every buffer.
//
// Layout (little-endian):
//
//	0  antenna   uint16
//	2  beam      uint16
//	4  channel   uint16
//	6  flags     uint16
//	8  samples   uint32
//	12 reserved  uint32
//	16 sequence  uint64
//	24 timestamp int64 (ns since Unix epoch)
const HeaderSize = 32

// SampleSize is the size in bytes of one complex64 sample.
const SampleSize = 8

// Header is the decoded header region of a buffer.
type Header struct {
	Antenna     uint16 `json:"antenna"`
	Beam        uint16 `json:"beam"`
	Channel     uint16 `json:"channel"`
	Flags       uint16 `json:"flags"`
	SampleCount uint32 `json:"sample_count"`
	Reserved    uint32 `json:"reserved,omitempty"` // carried through unchanged
	Sequence    uint64 `json:"sequence"`
	Timestamp   int64  `json:"timestamp"`
}

// Key returns the index key the header declares, before any remapping.
func (h *Header) Key() Key {
	return Key{Antenna: int(h.Antenna), Channel: int(h.Channel), Beam: int(h.Beam)}
}

// Encode writes h into b, which must be at least HeaderSize bytes long.
func (h *Header) Encode(b []byte) {
	_ = b[HeaderSize-1]
	binary.LittleEndian.PutUint16(b[0:], h.Antenna)
	binary.LittleEndian.PutUint16(b[2:], h.Beam)
	binary.LittleEndian.PutUint16(b[4:], h.Channel)
	binary.LittleEndian.PutUint16(b[6:], h.Flags)
	binary.LittleEndian.PutUint32(b[8:], h.SampleCount)
	binary.LittleEndian.PutUint32(b[12:], h.Reserved)
	binary.LittleEndian.PutUint64(b[16:], h.Sequence)
	binary.LittleEndian.PutUint64(b[24:], uint64(h.Timestamp))
}

// DecodeHeader parses the header region at the start of b.
func DecodeHeader(b []byte) Header {
	_ = b[HeaderSize-1]
	return Header{
		Antenna:     binary.LittleEndian.Uint16(b[0:]),
		Beam:        binary.LittleEndian.Uint16(b[2:]),
		Channel:     binary.LittleEndian.Uint16(b[4:]),
		Flags:       binary.LittleEndian.Uint16(b[6:]),
		SampleCount: binary.LittleEndian.Uint32(b[8:]),
		Reserved:    binary.LittleEndian.Uint32(b[12:]),
		Sequence:    binary.LittleEndian.Uint64(b[16:]),
		Timestamp:   int64(binary.LittleEndian.Uint64(b[24:])),
	}
}

// Key addresses one slot of the ready index.
type Key struct {
	Antenna int
	Channel int
	Beam    int
}
