package capture

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/corrlab/corrbuf/internal/corrpool"
	"github.com/corrlab/corrbuf/internal/errors"
	"github.com/corrlab/corrbuf/internal/logger"
)

const (
	bitDepth    = 16
	numChannels = 2 // I left, Q right
	formatPCM   = 1
)

// wavFile is one open output stream.
type wavFile struct {
	f   *os.File
	enc *wav.Encoder
}

// wavSet writes records to one WAV file per (antenna, channel, beam).
type wavSet struct {
	dir        string
	session    string
	sampleRate int
	scale      float64
	minFree    uint64
	log        logger.Logger

	files map[corrpool.Key]*wavFile
	pcm   []int
}

func newWAVSet(dir, session string, sampleRate int, scale float64, minFree uint64, log logger.Logger) *wavSet {
	return &wavSet{
		dir:        dir,
		session:    session,
		sampleRate: sampleRate,
		scale:      scale,
		minFree:    minFree,
		log:        log,
		files:      make(map[corrpool.Key]*wavFile),
	}
}

// fileName is the output name for one stream of this session.
func (w *wavSet) fileName(k corrpool.Key) string {
	return fmt.Sprintf("%s_a%d_c%d_b%d.wav", w.session, k.Antenna, k.Channel, k.Beam)
}

// write appends samples to the file of key k, opening it on first use.
func (w *wavSet) write(k corrpool.Key, samples []complex64) error {
	wf, ok := w.files[k]
	if !ok {
		var err error
		if wf, err = w.open(k); err != nil {
			return err
		}
		w.files[k] = wf
	}

	w.pcm = toPCM(samples, w.scale, w.pcm)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: numChannels, SampleRate: w.sampleRate},
		Data:           w.pcm,
		SourceBitDepth: bitDepth,
	}
	if err := wf.enc.Write(buf); err != nil {
		return errors.New(err).
			Component("capture").
			Category(errors.CategoryFileIO).
			Context("operation", "write_samples").
			Context("file", wf.f.Name()).
			Build()
	}
	return nil
}

func (w *wavSet) open(k corrpool.Key) (*wavFile, error) {
	if err := w.checkFreeSpace(); err != nil {
		return nil, err
	}
	path := filepath.Join(w.dir, w.fileName(k))
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.New(err).
			Component("capture").
			Category(errors.CategoryFileIO).
			Context("operation", "create_file").
			Context("file", path).
			Build()
	}
	w.log.Info("capture file opened", logger.String("file", path))
	return &wavFile{f: f, enc: wav.NewEncoder(f, w.sampleRate, bitDepth, numChannels, formatPCM)}, nil
}

func (w *wavSet) checkFreeSpace() error {
	if w.minFree == 0 {
		return nil
	}
	free, err := freeSpace(w.dir)
	if err != nil {
		return errors.New(err).
			Component("capture").
			Category(errors.CategorySystem).
			Context("operation", "check_disk_space").
			Context("path", w.dir).
			Build()
	}
	if free < w.minFree {
		return errors.Newf("insufficient disk space: %d bytes free, %d required", free, w.minFree).
			Component("capture").
			Category(errors.CategoryResource).
			Priority(errors.PriorityHigh).
			Context("path", w.dir).
			Context("free_bytes", free).
			Context("required_bytes", w.minFree).
			Build()
	}
	return nil
}

// close finalizes every WAV header and closes the files.
func (w *wavSet) close() error {
	var errs []error
	for k, wf := range w.files {
		if err := wf.enc.Close(); err != nil {
			errs = append(errs, fmt.Errorf("finalize %s: %w", w.fileName(k), err))
		}
		if err := wf.f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", w.fileName(k), err))
		}
		delete(w.files, k)
	}
	return errors.Join(errs...)
}

// paths lists the files written so far.
func (w *wavSet) paths() []string {
	out := make([]string, 0, len(w.files))
	for k := range w.files {
		out = append(out, filepath.Join(w.dir, w.fileName(k)))
	}
	return out
}
