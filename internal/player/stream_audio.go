package player

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always decodes to 16-bit little-endian stereo.
const bytesPerFrame = 4

// StreamAudio plays an MP3 over HTTP: a [RangeReader] feeds a go-mp3 decoder and
// a pump goroutine writes PCM to the sink in real time, scaled by the volume.
//
// Play, Pause, Seek, SetVolume and Close only flip state and wake the pump; all network
// work (opening the stream, reading windows, repositioning after a seek) happens on the
// pump goroutine. Failures are reported as [EventError].
//
// The decoder never sees the reader as an [io.Seeker], so go-mp3 does not walk every frame
// header of the file up front. The duration is estimated from the first window and the
// file size, and seeks reopen the decoder at the matching byte offset.
type StreamAudio struct {
	ctx    context.Context
	cancel context.CancelFunc
	url    string
	emit   EventFunc

	client *http.Client
	sink   io.Writer
	tick   time.Duration
	window int
	logger *log.Logger

	mu       sync.Mutex
	rate     int64   // PCM bytes per second, 0 until opened
	duration float64 // seconds, 0 when unknown
	pos      int64   // PCM bytes
	pending  float64 // seek target in seconds, -1 when none
	volume   float64
	playing  bool
	ended    bool
	closed   bool
	started  bool
	wake     chan struct{}
	done     chan struct{}

	// owned by the pump goroutine
	src       *RangeReader
	dec       *mp3.Decoder
	audioFrom int64 // byte offset of the first frame
}

// streamOnly hides Seek so go-mp3 decodes without scanning the whole file.
type streamOnly struct{ io.Reader }

// StreamOption configures a [StreamAudio].
type StreamOption func(*StreamAudio)

// WithHTTPClient sets the client used for range requests.
func WithHTTPClient(c *http.Client) StreamOption {
	return func(a *StreamAudio) { a.client = c }
}

// WithSink sets where decoded PCM is written. The default discards it.
func WithSink(w io.Writer) StreamOption {
	return func(a *StreamAudio) { a.sink = w }
}

// WithTick sets the pump interval; each tick writes one interval worth of PCM.
func WithTick(d time.Duration) StreamOption {
	return func(a *StreamAudio) { a.tick = d }
}

// WithStreamLogger sets the logger.
func WithStreamLogger(l *log.Logger) StreamOption {
	return func(a *StreamAudio) { a.logger = l }
}

// NewStreamAudio creates a handle for url. Nothing is fetched until Play.
func NewStreamAudio(ctx context.Context, url string, emit EventFunc, opts ...StreamOption) *StreamAudio {
	ctx, cancel := context.WithCancel(ctx)
	a := &StreamAudio{
		ctx:     ctx,
		cancel:  cancel,
		url:     url,
		emit:    emit,
		client:  http.DefaultClient,
		sink:    io.Discard,
		tick:    100 * time.Millisecond,
		window:  defaultWindow,
		volume:  1,
		pending: -1,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.emit == nil {
		a.emit = func(Event) {}
	}
	if a.logger == nil {
		a.logger = log.New(io.Discard)
	}
	return a
}

// StreamAudioFactory builds [StreamAudio] handles with the given options.
func StreamAudioFactory(opts ...StreamOption) AudioFactory {
	return func(ctx context.Context, url string, emit EventFunc) (Audio, error) {
		return NewStreamAudio(ctx, url, emit, opts...), nil
	}
}

// Play starts or resumes the pump. Playing after the end restarts the track.
func (a *StreamAudio) Play() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return fmt.Errorf("audio handle closed")
	}
	if a.playing {
		return nil
	}
	if a.ended {
		a.ended = false
		a.pending = 0
	}
	a.playing = true
	if !a.started {
		a.started = true
		go a.pump()
	}
	a.signal()
	return nil
}

// Pause stops writing PCM. A read already in flight completes in the background.
func (a *StreamAudio) Pause() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.playing {
		a.playing = false
		a.signal()
	}
}

// Seek moves to sec. The pump repositions the stream before its next read.
func (a *StreamAudio) Seek(sec float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.duration > 0 {
		sec = min(sec, a.duration)
	}
	a.pending = max(sec, 0)
	a.ended = false
	a.signal()
	return nil
}

// SetVolume scales output samples by v.
func (a *StreamAudio) SetVolume(v float64) {
	a.mu.Lock()
	a.volume = v
	a.mu.Unlock()
}

// Close stops playback, cancels any pending request and waits for the pump to exit.
func (a *StreamAudio) Close() {
	a.mu.Lock()
	a.closed = true
	a.playing = false
	started := a.started
	a.mu.Unlock()

	a.cancel()
	if started {
		<-a.done
	}
}

// Position is the current position in seconds, or the pending seek target.
func (a *StreamAudio) Position() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pending >= 0 {
		return a.pending
	}
	if a.rate == 0 {
		return 0
	}
	return float64(a.pos) / float64(a.rate)
}

// signal must be called with mu held.
func (a *StreamAudio) signal() {
	select {
	case a.wake <- struct{}{}:
	default:
	}
}

func (a *StreamAudio) pump() {
	defer close(a.done)

	ticker := time.NewTicker(a.tick)
	defer ticker.Stop()

	var buf []byte
	for a.waitPlaying() {
		if a.dec == nil {
			if err := a.open(); err != nil {
				a.fail(err)
				continue
			}
			buf = make([]byte, a.chunkSize())
		}
		if err := a.reposition(); err != nil {
			a.fail(err)
			continue
		}

		select {
		case <-a.ctx.Done():
			return
		case <-a.wake:
			continue
		case <-ticker.C:
		}

		a.step(buf)
	}
}

// waitPlaying blocks until the handle is playing. It reports false once the handle is closed.
func (a *StreamAudio) waitPlaying() bool {
	for {
		if a.ctx.Err() != nil {
			return false
		}
		a.mu.Lock()
		playing := a.playing
		a.mu.Unlock()
		if playing {
			return true
		}

		select {
		case <-a.wake:
		case <-a.ctx.Done():
			return false
		}
	}
}

// open fetches the first window and starts a decoder at the beginning of the stream.
func (a *StreamAudio) open() error {
	src, err := NewRangeReader(a.ctx, a.client, a.url, a.window)
	if err != nil {
		return err
	}
	dec, err := mp3.NewDecoder(streamOnly{src})
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", a.url, err)
	}

	head := src.Head()
	from := audioStart(head)
	duration, known := estimateDuration(head, from, src.Size())

	a.src, a.dec, a.audioFrom = src, dec, from

	a.mu.Lock()
	a.rate = int64(dec.SampleRate()) * bytesPerFrame
	a.pos = 0
	if known {
		a.duration = duration
	}
	a.mu.Unlock()

	if known {
		a.emit(Event{Kind: EventDuration, Duration: duration})
	}
	a.logger.Debug("opened stream", "url", a.url, "sample_rate", dec.SampleRate(), "size", src.Size(), "duration", duration)
	return nil
}

// reposition applies a pending seek by restarting the decoder at the matching byte offset.
func (a *StreamAudio) reposition() error {
	a.mu.Lock()
	target, rate, duration := a.pending, a.rate, a.duration
	a.mu.Unlock()
	if target < 0 {
		return nil
	}

	var off int64
	switch {
	case target == 0:
		off = a.audioFrom
	case duration > 0:
		frac := min(target/duration, 1)
		off = a.audioFrom + int64(frac*float64(a.src.Size()-a.audioFrom))
	default:
		a.logger.Warn("cannot seek a stream of unknown length", "url", a.url, "target", target)
		a.mu.Lock()
		if a.pending == target {
			a.pending = -1
		}
		a.mu.Unlock()
		return nil
	}

	if _, err := a.src.Seek(off, io.SeekStart); err != nil {
		return err
	}
	dec, err := mp3.NewDecoder(streamOnly{a.src})
	pos := int64(target*float64(rate)) / bytesPerFrame * bytesPerFrame
	if errors.Is(err, io.EOF) {
		a.mu.Lock()
		if a.pending == target {
			a.pending = -1
			a.pos = pos
			a.playing = false
			a.ended = true
		}
		a.mu.Unlock()
		a.emit(Event{Kind: EventEnded, Position: target})
		return nil
	}
	if err != nil {
		a.dec = nil
		return fmt.Errorf("failed to seek: %w", err)
	}

	a.dec = dec
	a.mu.Lock()
	if a.pending == target {
		a.pending = -1
		a.pos = pos
	}
	a.mu.Unlock()
	return nil
}

func (a *StreamAudio) chunkSize() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return max(a.rate*int64(a.tick)/int64(time.Second)/bytesPerFrame*bytesPerFrame, bytesPerFrame)
}

// step decodes and writes one tick of PCM. The decoder may block on the network, so no lock is held.
func (a *StreamAudio) step(buf []byte) {
	n, err := io.ReadFull(a.dec, buf)

	a.mu.Lock()
	if a.pending >= 0 {
		// a seek arrived during the read; this chunk belongs to the old position
		a.mu.Unlock()
		return
	}
	a.pos += int64(n)
	pos, rate, volume := a.pos, a.rate, a.volume
	eof := errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
	if err != nil {
		a.playing = false
		a.ended = eof
	}
	a.mu.Unlock()

	if n > 0 {
		scale(buf[:n], volume)
		if _, werr := a.sink.Write(buf[:n]); werr != nil {
			a.logger.Warn("pcm sink write failed", "error", werr)
		}
		a.emit(Event{Kind: EventProgress, Position: float64(pos) / float64(rate)})
	}

	switch {
	case err == nil:
	case eof:
		a.emit(Event{Kind: EventEnded, Position: float64(pos) / float64(rate)})
	default:
		// reopen on the next Play and resume where the read failed
		a.dec = nil
		a.mu.Lock()
		if a.pending < 0 {
			a.pending = float64(pos) / float64(rate)
		}
		a.mu.Unlock()
		if a.ctx.Err() == nil {
			a.emit(Event{Kind: EventError, Err: err})
		}
	}
}

// fail stops playback after an open or seek error.
func (a *StreamAudio) fail(err error) {
	a.mu.Lock()
	a.playing = false
	a.mu.Unlock()

	if a.ctx.Err() != nil {
		return
	}
	a.logger.Error("stream failed", "url", a.url, "error", err)
	a.emit(Event{Kind: EventError, Err: err})
}

// audioStart returns the offset of the first frame, skipping an ID3v2 tag.
func audioStart(head []byte) int64 {
	if len(head) < 10 || string(head[:3]) != "ID3" {
		return 0
	}
	size := int64(head[6])<<21 | int64(head[7])<<14 | int64(head[8])<<7 | int64(head[9])
	size += 10
	if head[5]&0x10 != 0 {
		size += 10
	}
	return size
}

// estimateDuration decodes the frames inside head and scales their length to the file size.
// When the whole file fits in head the result is exact.
func estimateDuration(head []byte, from, size int64) (float64, bool) {
	if from >= int64(len(head)) || size <= from {
		return 0, false
	}
	dec, err := mp3.NewDecoder(bytes.NewReader(head[from:]))
	if err != nil || dec.Length() <= 0 || dec.SampleRate() == 0 {
		return 0, false
	}

	secs := float64(dec.Length()) / float64(dec.SampleRate()*bytesPerFrame)
	if int64(len(head)) >= size {
		return secs, true
	}
	return secs * float64(size-from) / float64(int64(len(head))-from), true
}

// scale multiplies 16-bit little-endian samples by v in place.
func scale(pcm []byte, v float64) {
	if v >= 1 {
		return
	}
	for i := 0; i+1 < len(pcm); i += 2 {
		s := int16(uint16(pcm[i]) | uint16(pcm[i+1])<<8)
		s = int16(float64(s) * v)
		pcm[i] = byte(s)
		pcm[i+1] = byte(uint16(s) >> 8)
	}
}

var _ Audio = (*StreamAudio)(nil)
