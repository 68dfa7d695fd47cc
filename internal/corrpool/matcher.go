package corrpool

import (
	"fmt"
	"slices"
)

// BufferSet is one matched group of buffers sharing a channel and beam.
// IDs has one slot per antenna; a slot is NoBuffer when the strategy
// accepted the set without that antenna. With antenna duplication the same
// id appears in slots 1 and 2.
type BufferSet struct {
	Channel int
	Beam    int
	IDs     []BufferID
}

// Complete reports whether every antenna slot is filled.
func (s BufferSet) Complete() bool {
	return len(s.IDs) > 0 && !slices.Contains(s.IDs, NoBuffer)
}

// Distinct returns the filled ids without repeats, in antenna order.
func (s BufferSet) Distinct() []BufferID {
	out := make([]BufferID, 0, len(s.IDs))
	for _, id := range s.IDs {
		if id != NoBuffer && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// MatchStrategy decides when the ready index holds a set worth processing.
// It runs with the pool lock held and must not retain the view or block.
// Implementations scan channels and then beams in ascending order so the
// lowest matching key wins.
type MatchStrategy interface {
	FindCompleteSet(v IndexView) (BufferSet, bool)
}

// AllAntennas matches a (channel, beam) only when every antenna is Ready.
type AllAntennas struct{}

func (AllAntennas) FindCompleteSet(v IndexView) (BufferSet, bool) {
	return scanSets(v, v.Antennas())
}

// Quorum matches a (channel, beam) once at least Min antennas are Ready.
// Missing antennas are NoBuffer in the returned set.
type Quorum struct {
	Min int
}

func (q Quorum) FindCompleteSet(v IndexView) (BufferSet, bool) {
	return scanSets(v, max(q.Min, 1))
}

// Validate checks Min against the antenna count of the pool.
func (q Quorum) Validate(antennas int) error {
	if q.Min < 1 || q.Min > antennas {
		return fmt.Errorf("quorum min %d outside [1, %d]", q.Min, antennas)
	}
	return nil
}

func scanSets(v IndexView, need int) (BufferSet, bool) {
	antennas := v.Antennas()
	for c := range v.Channels() {
		for b := range v.Beams() {
			have := 0
			for a := range antennas {
				if v.Lookup(Key{Antenna: a, Channel: c, Beam: b}) != NoBuffer {
					have++
				}
			}
			if have < need {
				continue
			}
			set := BufferSet{Channel: c, Beam: b, IDs: make([]BufferID, antennas)}
			for a := range antennas {
				set.IDs[a] = v.Lookup(Key{Antenna: a, Channel: c, Beam: b})
			}
			return set, true
		}
	}
	return BufferSet{}, false
}
