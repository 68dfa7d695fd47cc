package corrpool

// HeaderPreprocessor validates and remaps a buffer header at publish time.
// Resolve may rewrite h; the pool writes the result back into the buffer.
// It returns the index key for the buffer, or false to reject it. It runs
// with the pool lock held and must be pure.
type HeaderPreprocessor interface {
	Resolve(h *Header) (Key, bool)
}

// PreprocessorFunc adapts a function to HeaderPreprocessor.
type PreprocessorFunc func(h *Header) (Key, bool)

func (f PreprocessorFunc) Resolve(h *Header) (Key, bool) { return f(h) }

// IdentityPreprocessor uses the header fields as the key unchanged.
type IdentityPreprocessor struct{}

func (IdentityPreprocessor) Resolve(h *Header) (Key, bool) {
	return h.Key(), true
}

// RemapPreprocessor translates hardware identifiers into logical indices.
// A nil table leaves that dimension unchanged; a value missing from a
// non-nil table rejects the buffer. The header is rewritten with the
// logical indices.
type RemapPreprocessor struct {
	Antennas map[uint16]uint16
	Channels map[uint16]uint16
	Beams    map[uint16]uint16
}

func (r RemapPreprocessor) Resolve(h *Header) (Key, bool) {
	var ok bool
	if h.Antenna, ok = remap(r.Antennas, h.Antenna); !ok {
		return Key{}, false
	}
	if h.Channel, ok = remap(r.Channels, h.Channel); !ok {
		return Key{}, false
	}
	if h.Beam, ok = remap(r.Beams, h.Beam); !ok {
		return Key{}, false
	}
	return h.Key(), true
}

func remap(table map[uint16]uint16, v uint16) (uint16, bool) {
	if table == nil {
		return v, true
	}
	out, ok := table[v]
	return out, ok
}
