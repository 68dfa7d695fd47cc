package capture

import (
	"encoding/binary"
	"math"

	"github.com/corrlab/corrbuf/internal/corrpool"
)

// decodeRecord splits a raw pool buffer into its header and samples.
// Samples beyond the header's SampleCount are ignored.
func decodeRecord(b []byte, dst []complex64) (corrpool.Header, []complex64) {
	h := corrpool.DecodeHeader(b[:corrpool.HeaderSize])
	payload := b[corrpool.HeaderSize:]
	n := len(payload) / corrpool.SampleSize
	if c := int(h.SampleCount); c > 0 && c < n {
		n = c
	}
	dst = dst[:0]
	for i := range n {
		off := i * corrpool.SampleSize
		re := math.Float32frombits(binary.LittleEndian.Uint32(payload[off:]))
		im := math.Float32frombits(binary.LittleEndian.Uint32(payload[off+4:]))
		dst = append(dst, complex(re, im))
	}
	return h, dst
}

// toPCM interleaves I and Q as 16-bit PCM, mapping ±scale to full range.
func toPCM(samples []complex64, scale float64, dst []int) []int {
	dst = dst[:0]
	for _, s := range samples {
		dst = append(dst, quantize(float64(real(s)), scale), quantize(float64(imag(s)), scale))
	}
	return dst
}

func quantize(v, scale float64) int {
	q := math.Round(v / scale * math.MaxInt16)
	return int(max(math.MinInt16, min(math.MaxInt16, q)))
}
