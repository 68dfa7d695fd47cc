package corrpool

// BufferID identifies one buffer of the pool, in [0, Capacity()).
type BufferID int

// NoBuffer marks an empty index slot or a missing antenna in a BufferSet.
const NoBuffer BufferID = -1

// IndexView is the read-only view of the ready index handed to a
// MatchStrategy. It is only valid for the duration of the call.
type IndexView interface {
	Antennas() int
	Channels() int
	Beams() int
	// Lookup returns the Ready buffer indexed at k, or NoBuffer.
	Lookup(k Key) BufferID
}

// maxRefs bounds how many slots may hold the same id: its own key plus the
// duplicated antenna-2 slot.
const maxRefs = 2

// readyIndex maps (antenna, channel, beam) to the Ready buffer holding the
// newest data for that key. Slots are laid out channel-major, then beam,
// then antenna, so all antennas of one (channel, beam) pair are adjacent.
type readyIndex struct {
	antennas int
	channels int
	beams    int
	slots    []BufferID

	// refs records the slot positions that reference each buffer id, so a
	// superseded or consumed buffer can be removed in O(1).
	refs  [][maxRefs]int
	nrefs []uint8
}

func newReadyIndex(antennas, channels, beams, capacity int) *readyIndex {
	ix := &readyIndex{
		antennas: antennas,
		channels: channels,
		beams:    beams,
		slots:    make([]BufferID, antennas*channels*beams),
		refs:     make([][maxRefs]int, capacity),
		nrefs:    make([]uint8, capacity),
	}
	for i := range ix.slots {
		ix.slots[i] = NoBuffer
	}
	return ix
}

func (ix *readyIndex) Antennas() int { return ix.antennas }
func (ix *readyIndex) Channels() int { return ix.channels }
func (ix *readyIndex) Beams() int    { return ix.beams }

func (ix *readyIndex) Lookup(k Key) BufferID {
	if !ix.contains(k) {
		return NoBuffer
	}
	return ix.slots[ix.pos(k)]
}

func (ix *readyIndex) contains(k Key) bool {
	return k.Antenna >= 0 && k.Antenna < ix.antennas &&
		k.Channel >= 0 && k.Channel < ix.channels &&
		k.Beam >= 0 && k.Beam < ix.beams
}

func (ix *readyIndex) pos(k Key) int {
	return (k.Channel*ix.beams+k.Beam)*ix.antennas + k.Antenna
}

// put stores id at k and returns the id it displaced, or NoBuffer. The
// displaced id loses only this slot; the caller decides whether it is still
// referenced elsewhere.
func (ix *readyIndex) put(k Key, id BufferID) BufferID {
	p := ix.pos(k)
	prev := ix.slots[p]
	if prev == id {
		return NoBuffer
	}
	if prev != NoBuffer {
		ix.dropRef(prev, p)
	}
	ix.slots[p] = id
	ix.refs[id][ix.nrefs[id]] = p
	ix.nrefs[id]++
	return prev
}

// remove empties every slot that references id.
func (ix *readyIndex) remove(id BufferID) {
	for i := range int(ix.nrefs[id]) {
		ix.slots[ix.refs[id][i]] = NoBuffer
	}
	ix.nrefs[id] = 0
}

func (ix *readyIndex) referenced(id BufferID) bool {
	return ix.nrefs[id] > 0
}

func (ix *readyIndex) dropRef(id BufferID, p int) {
	n := int(ix.nrefs[id])
	for i := range n {
		if ix.refs[id][i] == p {
			ix.refs[id][i] = ix.refs[id][n-1]
			ix.nrefs[id]--
			return
		}
	}
}

// first returns the Ready buffer with the lowest key in channel, beam,
// antenna order.
func (ix *readyIndex) first() BufferID {
	for _, id := range ix.slots {
		if id != NoBuffer {
			return id
		}
	}
	return NoBuffer
}

// len reports the number of occupied slots.
func (ix *readyIndex) len() int {
	n := 0
	for _, id := range ix.slots {
		if id != NoBuffer {
			n++
		}
	}
	return n
}
