package corrpool

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/corrlab/corrbuf/internal/logger"
)

// DefaultAntennas is the antenna count used when Config.Antennas is zero.
const DefaultAntennas = 3

// Operation outcomes reported to the Recorder.
const (
	StatusSuccess    = "success"
	StatusOverflow   = "overflow"
	StatusAccepted   = "accepted"
	StatusRejected   = "rejected"
	StatusSuperseded = "superseded"
	StatusCancelled  = "cancelled"
)

// Recorder receives pool events for metrics. It is called outside the pool
// lock.
type Recorder interface {
	RecordOperation(operation, status string)
	RecordDuration(operation string, seconds float64)
}

type nopRecorder struct{}

func (nopRecorder) RecordOperation(string, string) {}
func (nopRecorder) RecordDuration(string, float64) {}

// Config describes a pool. Capacity is Multiplier × Channels × Beams.
type Config struct {
	Antennas    int
	Channels    int
	Beams       int
	Multiplier  int
	SampleCount int

	// Preprocessor defaults to IdentityPreprocessor.
	Preprocessor HeaderPreprocessor
	// Matcher defaults to AllAntennas.
	Matcher MatchStrategy

	// DuplicateSecondAntenna indexes every antenna-1 buffer at antenna 2 as
	// well, for two-antenna hardware feeding a three-antenna correlator.
	DuplicateSecondAntenna bool

	Logger   logger.Logger
	Recorder Recorder
}

// Stats is a point-in-time snapshot of the pool.
type Stats struct {
	Capacity       int `json:"capacity"`
	Free           int `json:"free"`
	BeingFilled    int `json:"being_filled"`
	Ready          int `json:"ready"`
	BeingProcessed int `json:"being_processed"`
	Indexed        int `json:"indexed"`

	Acquired     uint64 `json:"acquired"`
	Overflows    uint64 `json:"overflows"`
	Published    uint64 `json:"published"`
	Rejected     uint64 `json:"rejected"`
	Superseded   uint64 `json:"superseded"`
	Discarded    uint64 `json:"discarded"`
	SetsTaken    uint64 `json:"sets_taken"`
	SinglesTaken uint64 `json:"singles_taken"`
	Released     uint64 `json:"released"`
}

// Pool is the buffer pool shared by fillers and one consumer.
type Pool struct {
	antennas int
	channels int
	beams    int
	store    *store
	guard    *guard

	pre      HeaderPreprocessor
	matcher  MatchStrategy
	log      logger.Logger
	recorder Recorder

	acquired     atomic.Uint64
	overflows    atomic.Uint64
	published    atomic.Uint64
	rejected     atomic.Uint64
	superseded   atomic.Uint64
	discarded    atomic.Uint64
	setsTaken    atomic.Uint64
	singlesTaken atomic.Uint64
	released     atomic.Uint64
}

// New allocates every buffer of the pool up front.
func New(cfg Config) (*Pool, error) {
	if cfg.Antennas == 0 {
		cfg.Antennas = DefaultAntennas
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	if cfg.Preprocessor == nil {
		cfg.Preprocessor = IdentityPreprocessor{}
	}
	if cfg.Matcher == nil {
		cfg.Matcher = AllAntennas{}
	}
	if v, ok := cfg.Matcher.(interface{ Validate(antennas int) error }); ok {
		if err := v.Validate(cfg.Antennas); err != nil {
			return nil, invalidConfig("matcher", cfg.Antennas, "invalid match strategy: %v", err)
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = GetLogger()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}

	n := cfg.Multiplier * cfg.Channels * cfg.Beams
	st := poolState{
		status:    make([]BufferStatus, n),
		index:     newReadyIndex(cfg.Antennas, cfg.Channels, cfg.Beams, n),
		dupSecond: cfg.DuplicateSecondAntenna,
	}
	st.counts[StatusFree] = n

	p := &Pool{
		antennas: cfg.Antennas,
		channels: cfg.Channels,
		beams:    cfg.Beams,
		store:    newStore(n, cfg.SampleCount),
		guard:    newGuard(st),
		pre:      cfg.Preprocessor,
		matcher:  cfg.Matcher,
		log:      cfg.Logger,
		recorder: cfg.Recorder,
	}

	if n < cfg.Antennas*cfg.Channels*cfg.Beams {
		p.log.Warn("pool capacity below one buffer per key, complete sets may never form",
			logger.Int("capacity", n),
			logger.Int("keys", cfg.Antennas*cfg.Channels*cfg.Beams))
	}
	p.log.Info("buffer pool created",
		logger.Int("capacity", n),
		logger.Int("antennas", cfg.Antennas),
		logger.Int("channels", cfg.Channels),
		logger.Int("beams", cfg.Beams),
		logger.Int("sample_count", cfg.SampleCount),
		logger.Int("buffer_size", p.store.bufferSize()),
		logger.Bool("duplicate_second_antenna", cfg.DuplicateSecondAntenna))
	return p, nil
}

func validate(cfg *Config) error {
	switch {
	case cfg.Antennas < 1:
		return invalidConfig("antennas", cfg.Antennas, "antennas must be positive, got %d", cfg.Antennas)
	case cfg.Channels < 1:
		return invalidConfig("channels", cfg.Channels, "channels must be positive, got %d", cfg.Channels)
	case cfg.Beams < 1:
		return invalidConfig("beams", cfg.Beams, "beams must be positive, got %d", cfg.Beams)
	case cfg.Multiplier < 1:
		return invalidConfig("multiplier", cfg.Multiplier, "multiplier must be positive, got %d", cfg.Multiplier)
	case cfg.SampleCount < 1:
		return invalidConfig("sample_count", cfg.SampleCount, "sample count must be positive, got %d", cfg.SampleCount)
	case cfg.DuplicateSecondAntenna && cfg.Antennas < 3:
		return invalidConfig("duplicate_second_antenna", cfg.Antennas,
			"antenna duplication needs at least 3 antennas, got %d", cfg.Antennas)
	}
	return nil
}

// AcquireForFill hands a Free buffer to a filler. It never blocks: when the
// pool is exhausted it returns (NoBuffer, false) and the caller drops its
// data. The buffer contents are stale.
func (p *Pool) AcquireForFill() (BufferID, bool) {
	id := NoBuffer
	p.guard.with(func(st *poolState) {
		if st.counts[StatusFree] == 0 {
			return
		}
		for i, s := range st.status {
			if s == StatusFree {
				id = BufferID(i)
				st.set(id, StatusBeingFilled)
				return
			}
		}
	})

	if id == NoBuffer {
		p.overflows.Add(1)
		p.recorder.RecordOperation(opAcquire, StatusOverflow)
		return NoBuffer, false
	}
	p.acquired.Add(1)
	p.recorder.RecordOperation(opAcquire, StatusSuccess)
	return id, true
}

// Publish hands a filled buffer to the consumer side. The header is run
// through the preprocessor; a rejected buffer returns to Free silently. An
// accepted buffer becomes Ready and replaces whatever was indexed under its
// key; a buffer left with no index entry by that is returned to Free.
func (p *Pool) Publish(id BufferID) {
	p.checkID(opPublish, id)

	var (
		accepted bool
		key      Key
		demoted  int
	)
	p.guard.with(func(st *poolState) {
		st.expect(opPublish, id, StatusBeingFilled)

		h := p.store.header(id)
		k, ok := p.pre.Resolve(&h)
		if !ok || !st.index.contains(k) {
			st.set(id, StatusFree)
			key = k
			return
		}
		p.store.setHeader(id, &h)

		st.set(id, StatusReady)
		demoted += p.insert(st, k, id)
		if st.dupSecond && k.Antenna == 1 {
			demoted += p.insert(st, Key{Antenna: 2, Channel: k.Channel, Beam: k.Beam}, id)
		}
		accepted, key = true, k
	})

	if !accepted {
		p.rejected.Add(1)
		p.recorder.RecordOperation(opPublish, StatusRejected)
		p.log.Debug("buffer rejected by header preprocessor",
			logger.Int("buffer_id", int(id)),
			logger.Int("antenna", key.Antenna),
			logger.Int("channel", key.Channel),
			logger.Int("beam", key.Beam))
		return
	}

	p.published.Add(1)
	p.recorder.RecordOperation(opPublish, StatusAccepted)
	if demoted > 0 {
		p.superseded.Add(uint64(demoted))
		for range demoted {
			p.recorder.RecordOperation(opPublish, StatusSuperseded)
		}
		p.log.Trace("stale ready buffer superseded",
			logger.Int("buffer_id", int(id)),
			logger.Int("antenna", key.Antenna),
			logger.Int("channel", key.Channel),
			logger.Int("beam", key.Beam))
	}
	p.guard.broadcast()
}

// insert indexes id at k. The buffer it displaces goes back to Free once no
// other slot references it. Returns the number of buffers demoted.
func (p *Pool) insert(st *poolState, k Key, id BufferID) int {
	prev := st.index.put(k, id)
	if prev == NoBuffer || st.index.referenced(prev) {
		return 0
	}
	st.set(prev, StatusFree)
	return 1
}

// Discard returns a buffer the filler could not complete to Free.
func (p *Pool) Discard(id BufferID) {
	p.checkID(opDiscard, id)
	p.guard.with(func(st *poolState) {
		st.expect(opDiscard, id, StatusBeingFilled)
		st.set(id, StatusFree)
	})
	p.discarded.Add(1)
	p.recorder.RecordOperation(opDiscard, StatusSuccess)
}

// WaitForCompleteSet blocks until the match strategy finds a set, removes
// it from the index and marks its buffers BeingProcessed. Channels and then
// beams are scanned in ascending order. It returns ctx.Err() if ctx is done
// first.
func (p *Pool) WaitForCompleteSet(ctx context.Context) (BufferSet, error) {
	start := time.Now()
	var set BufferSet
	err := p.guard.waitFor(ctx, func(st *poolState) bool {
		s, ok := p.matcher.FindCompleteSet(st.index)
		if !ok {
			return false
		}
		p.take(st, s)
		set = s
		return true
	})
	if err != nil {
		p.recorder.RecordOperation(opMatchSet, StatusCancelled)
		return BufferSet{}, err
	}
	p.setsTaken.Add(1)
	p.recorder.RecordOperation(opMatchSet, StatusSuccess)
	p.recorder.RecordDuration(opMatchSet, time.Since(start).Seconds())
	return set, nil
}

// take moves a matched set from Ready to BeingProcessed.
func (p *Pool) take(st *poolState, s BufferSet) {
	for a, id := range s.IDs {
		if id == NoBuffer {
			continue
		}
		k := Key{Antenna: a, Channel: s.Channel, Beam: s.Beam}
		if got := st.index.Lookup(k); got != id {
			panic(contractViolation(opMatchSet, id, StatusReady, st.status[id]))
		}
	}
	for _, id := range s.IDs {
		if id == NoBuffer || st.status[id] != StatusReady {
			continue
		}
		st.index.remove(id)
		st.set(id, StatusBeingProcessed)
	}
}

// WaitForAnyReady blocks until any buffer is Ready and takes the one with
// the lowest key. Used by capture consumers that do not correlate.
func (p *Pool) WaitForAnyReady(ctx context.Context) (BufferID, error) {
	start := time.Now()
	id := NoBuffer
	err := p.guard.waitFor(ctx, func(st *poolState) bool {
		id = st.index.first()
		if id == NoBuffer {
			return false
		}
		st.index.remove(id)
		st.set(id, StatusBeingProcessed)
		return true
	})
	if err != nil {
		p.recorder.RecordOperation(opMatchAny, StatusCancelled)
		return NoBuffer, err
	}
	p.singlesTaken.Add(1)
	p.recorder.RecordOperation(opMatchAny, StatusSuccess)
	p.recorder.RecordDuration(opMatchAny, time.Since(start).Seconds())
	return id, nil
}

// Release returns one processed buffer to Free.
func (p *Pool) Release(id BufferID) {
	p.ReleaseAll([]BufferID{id})
}

// ReleaseSet returns every buffer of a matched set to Free. An id
// duplicated across antenna slots is released once.
func (p *Pool) ReleaseSet(set BufferSet) {
	p.ReleaseAll(set.Distinct())
}

// ReleaseAll returns the listed buffers to Free under one lock. Either all
// of them transition or, if any is not BeingProcessed, none do and the call
// panics. Listing an id twice counts as a double release.
func (p *Pool) ReleaseAll(ids []BufferID) {
	if len(ids) == 0 {
		return
	}
	for _, id := range ids {
		p.checkID(opRelease, id)
	}
	p.guard.with(func(st *poolState) {
		for i, id := range ids {
			if st.status[id] != StatusBeingProcessed {
				for _, done := range ids[:i] {
					st.set(done, StatusBeingProcessed)
				}
				panic(contractViolation(opRelease, id, StatusBeingProcessed, st.status[id]))
			}
			st.set(id, StatusFree)
		}
	})
	p.released.Add(uint64(len(ids)))
	p.recorder.RecordOperation(opRelease, StatusSuccess)
}

// Raw returns the whole buffer, header region first, as bytes. Only the
// current owner of the buffer may touch it.
func (p *Pool) Raw(id BufferID) []byte {
	p.checkID(opBufferIO, id)
	return p.store.raw(id)
}

// Header decodes the header region of a buffer.
func (p *Pool) Header(id BufferID) Header {
	p.checkID(opBufferIO, id)
	return p.store.header(id)
}

// SetHeader encodes h into the header region of a buffer.
func (p *Pool) SetHeader(id BufferID, h Header) {
	p.checkID(opBufferIO, id)
	p.store.setHeader(id, &h)
}

// Samples returns the sample region of a buffer.
func (p *Pool) Samples(id BufferID) []complex64 {
	p.checkID(opBufferIO, id)
	return p.store.samples(id)
}

// BufferSize is the size in bytes of one buffer, header included.
func (p *Pool) BufferSize() int { return p.store.bufferSize() }

// SampleCount is the number of complex samples per buffer.
func (p *Pool) SampleCount() int { return p.store.sampleCount }

// Capacity is the number of buffers in the pool.
func (p *Pool) Capacity() int { return p.store.n }

// Antennas is the number of antenna slots in every set.
func (p *Pool) Antennas() int { return p.antennas }

// Channels is the number of channels the index covers.
func (p *Pool) Channels() int { return p.channels }

// Beams is the number of beams per channel the index covers.
func (p *Pool) Beams() int { return p.beams }

// DuplicateSecondAntenna reports whether antenna 1 is mirrored to antenna 2.
func (p *Pool) DuplicateSecondAntenna() bool {
	var on bool
	p.guard.with(func(st *poolState) { on = st.dupSecond })
	return on
}

// SetDuplicateSecondAntenna toggles antenna duplication for buffers
// published from now on. Already indexed buffers are left in place.
func (p *Pool) SetDuplicateSecondAntenna(on bool) error {
	if on && p.antennas < 3 {
		return invalidConfig("duplicate_second_antenna", p.antennas,
			"antenna duplication needs at least 3 antennas, got %d", p.antennas)
	}
	p.guard.with(func(st *poolState) { st.dupSecond = on })
	p.log.Info("antenna duplication changed", logger.Bool("enabled", on))
	return nil
}

// Status returns the current status of a buffer.
func (p *Pool) Status(id BufferID) BufferStatus {
	p.checkID(opBufferIO, id)
	var s BufferStatus
	p.guard.with(func(st *poolState) { s = st.status[id] })
	return s
}

// Inspect returns the status of a buffer and, for Ready and BeingProcessed
// buffers, its header. Buffers being filled are owned by their producer, so
// their header is not read and ok is false. The header is decoded under the
// pool lock, which also keeps the buffer from being released meanwhile.
func (p *Pool) Inspect(id BufferID) (status BufferStatus, h Header, ok bool) {
	p.checkID(opBufferIO, id)
	p.guard.with(func(st *poolState) {
		status = st.status[id]
		if status == StatusReady || status == StatusBeingProcessed {
			h, ok = p.store.header(id), true
		}
	})
	return status, h, ok
}

// Lookup returns the Ready buffer indexed at k, or NoBuffer.
func (p *Pool) Lookup(k Key) BufferID {
	id := NoBuffer
	p.guard.with(func(st *poolState) { id = st.index.Lookup(k) })
	return id
}

// Stats returns counters and per-status buffer counts.
func (p *Pool) Stats() Stats {
	s := Stats{
		Capacity:     p.store.n,
		Acquired:     p.acquired.Load(),
		Overflows:    p.overflows.Load(),
		Published:    p.published.Load(),
		Rejected:     p.rejected.Load(),
		Superseded:   p.superseded.Load(),
		Discarded:    p.discarded.Load(),
		SetsTaken:    p.setsTaken.Load(),
		SinglesTaken: p.singlesTaken.Load(),
		Released:     p.released.Load(),
	}
	p.guard.with(func(st *poolState) {
		s.Free = st.counts[StatusFree]
		s.BeingFilled = st.counts[StatusBeingFilled]
		s.Ready = st.counts[StatusReady]
		s.BeingProcessed = st.counts[StatusBeingProcessed]
		s.Indexed = st.index.len()
	})
	return s
}

func (p *Pool) checkID(op string, id BufferID) {
	if id < 0 || int(id) >= p.store.n {
		panic(invalidID(op, id, p.store.n))
	}
}
