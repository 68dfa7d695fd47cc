package correlator

import (
	"math"
	"math/cmplx"
	"time"
)

// Baseline is the normalized cross power of one antenna pair.
type Baseline struct {
	A         int     `json:"a"`
	B         int     `json:"b"`
	Real      float64 `json:"real"`
	Imag      float64 `json:"imag"`
	Magnitude float64 `json:"magnitude"`
	Phase     float64 `json:"phase"` // radians
}

// Result is the correlation of one matched set.
type Result struct {
	Time     time.Time  `json:"time"`
	Channel  int        `json:"channel"`
	Beam     int        `json:"beam"`
	Sequence uint64     `json:"sequence"` // of the lowest present antenna
	Samples  int        `json:"samples"`
	Present  []bool     `json:"present"`
	Power    []float64  `json:"power"` // auto power per antenna, 0 when absent
	Pairs    []Baseline `json:"baselines"`
}

// Correlate computes auto power for every antenna and cross power
// Σ x_a·conj(x_b)/n for every pair a<b. A nil entry marks an absent antenna
// and is left out of every product. Streams are truncated to the shortest
// one present.
func Correlate(streams [][]complex64) (power []float64, pairs []Baseline) {
	n := math.MaxInt
	for _, s := range streams {
		if s != nil {
			n = min(n, len(s))
		}
	}
	power = make([]float64, len(streams))
	if n == math.MaxInt || n == 0 {
		return power, nil
	}

	for a, s := range streams {
		if s == nil {
			continue
		}
		var acc float64
		for _, v := range s[:n] {
			re, im := float64(real(v)), float64(imag(v))
			acc += re*re + im*im
		}
		power[a] = acc / float64(n)
	}

	for a := range streams {
		if streams[a] == nil {
			continue
		}
		for b := a + 1; b < len(streams); b++ {
			if streams[b] == nil {
				continue
			}
			var acc complex128
			x, y := streams[a][:n], streams[b][:n]
			for i := range n {
				acc += complex128(x[i]) * cmplx.Conj(complex128(y[i]))
			}
			acc /= complex(float64(n), 0)
			pairs = append(pairs, Baseline{
				A:         a,
				B:         b,
				Real:      real(acc),
				Imag:      imag(acc),
				Magnitude: cmplx.Abs(acc),
				Phase:     cmplx.Phase(acc),
			})
		}
	}
	return power, pairs
}
