package corrpool

import "unsafe"

// headerWords is the header region expressed in complex64 words, so the
// sample region of every buffer stays 8-byte aligned.
const headerWords = HeaderSize / SampleSize

// store is the contiguous backing memory for all buffers. It is allocated
// once and never resized. Access is not synchronized; the status table
// decides who may touch a buffer.
type store struct {
	words       []complex64
	stride      int // complex64 words per buffer
	sampleCount int
	n           int
}

func newStore(n, sampleCount int) *store {
	stride := headerWords + sampleCount
	return &store{
		words:       make([]complex64, n*stride),
		stride:      stride,
		sampleCount: sampleCount,
		n:           n,
	}
}

// bufferSize is the number of bytes in one buffer: header plus samples.
func (s *store) bufferSize() int {
	return s.stride * SampleSize
}

// raw returns the whole buffer (header followed by samples) as bytes.
// Samples are stored in host byte order.
func (s *store) raw(id BufferID) []byte {
	span := s.words[int(id)*s.stride : (int(id)+1)*s.stride]
	return unsafe.Slice((*byte)(unsafe.Pointer(&span[0])), len(span)*SampleSize)
}

func (s *store) header(id BufferID) Header {
	return DecodeHeader(s.raw(id)[:HeaderSize])
}

func (s *store) setHeader(id BufferID, h *Header) {
	h.Encode(s.raw(id)[:HeaderSize])
}

// samples returns the data region of a buffer. The slice is capped so
// appends cannot spill into the next buffer.
func (s *store) samples(id BufferID) []complex64 {
	base := int(id)*s.stride + headerWords
	end := base + s.sampleCount
	return s.words[base:end:end]
}
