package player

import (
	"bytes"
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// silentMP3 builds n frames of MPEG-1 Layer III, 128 kbit/s, 44.1 kHz mono with empty
// side info and main data, which decode to silence.
func silentMP3(n int) []byte {
	const frameSize = 417
	var buf bytes.Buffer
	for range n {
		frame := make([]byte, frameSize)
		copy(frame, []byte{0xFF, 0xFB, 0x90, 0xC4})
		buf.Write(frame)
	}
	return buf.Bytes()
}

type countingSink struct {
	mu sync.Mutex
	n  int
}

func (s *countingSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	s.n += len(p)
	s.mu.Unlock()
	return len(p), nil
}

func (s *countingSink) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) emit(ev Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) find(kind EventKind) (Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ev := range l.events {
		if ev.Kind == kind {
			return ev, true
		}
	}
	return Event{}, false
}

// waitFor polls until an event of kind has been emitted.
func (l *eventLog) waitFor(t *testing.T, kind EventKind) Event {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if ev, ok := l.find(kind); ok {
			return ev
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no event of kind %d", kind)
	return Event{}
}

// gatedServer serves files through the stream handler, counting requests and holding
// each one until gate is closed.
func gatedServer(t *testing.T, files map[string][]byte, gate <-chan struct{}) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	upstream := setupStreamServer(t, files)
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
		upstream.Config.Handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

// returnsWithin fails the test when fn takes longer than d.
func returnsWithin(t *testing.T, d time.Duration, name string, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("%s blocked while the stream was loading", name)
	}
}

func TestStreamAudio(t *testing.T) {
	const frames = 10
	srv := setupStreamServer(t, map[string][]byte{"0001.mp3": silentMP3(frames), "bad.mp3": []byte("not audio at all")})
	wantDuration := float64(frames*1152) / 44100

	t.Run("plays to the end", func(t *testing.T) {
		events := &eventLog{}
		sink := &countingSink{}
		a := NewStreamAudio(context.Background(), srv.URL+"/stream/0001.mp3", events.emit,
			WithSink(sink), WithTick(time.Millisecond))
		defer a.Close()

		if err := a.Play(); err != nil {
			t.Fatalf("play failed: %v", err)
		}
		events.waitFor(t, EventEnded)

		if sink.total() == 0 || sink.total()%bytesPerFrame != 0 {
			t.Errorf("unexpected pcm byte count %d", sink.total())
		}
		if _, ok := events.find(EventProgress); !ok {
			t.Error("expected progress events")
		}
		ev, ok := events.find(EventDuration)
		if !ok || math.Abs(ev.Duration-wantDuration) > 0.01 {
			t.Errorf("expected duration near %v, got %+v", wantDuration, ev)
		}
	})

	t.Run("seek before play and pause", func(t *testing.T) {
		events := &eventLog{}
		a := NewStreamAudio(context.Background(), srv.URL+"/stream/0001.mp3", events.emit, WithTick(time.Millisecond))
		defer a.Close()

		if err := a.Seek(0.1); err != nil {
			t.Fatalf("seek failed: %v", err)
		}
		if got := a.Position(); got != 0.1 {
			t.Errorf("expected pending position 0.1, got %v", got)
		}

		if err := a.Play(); err != nil {
			t.Fatalf("play failed: %v", err)
		}
		if ev := events.waitFor(t, EventProgress); ev.Position < 0.1 || ev.Position > wantDuration {
			t.Errorf("expected first progress after 0.1, got %v", ev.Position)
		}

		a.Pause()
		a.Pause()
		if err := a.Seek(0); err != nil || a.Position() != 0 {
			t.Errorf("expected rewind, got %v at %v", err, a.Position())
		}
	})

	t.Run("seek past the end ends playback", func(t *testing.T) {
		events := &eventLog{}
		a := NewStreamAudio(context.Background(), srv.URL+"/stream/0001.mp3", events.emit, WithTick(time.Millisecond))
		defer a.Close()

		if err := a.Play(); err != nil {
			t.Fatalf("play failed: %v", err)
		}
		events.waitFor(t, EventDuration)
		if err := a.Seek(60); err != nil {
			t.Fatalf("seek failed: %v", err)
		}
		ev := events.waitFor(t, EventEnded)
		if math.Abs(ev.Position-wantDuration) > 0.01 {
			t.Errorf("expected end at %v, got %v", wantDuration, ev.Position)
		}
	})

	t.Run("undecodable stream reports an error event", func(t *testing.T) {
		events := &eventLog{}
		a := NewStreamAudio(context.Background(), srv.URL+"/stream/bad.mp3", events.emit)
		defer a.Close()
		if err := a.Play(); err != nil {
			t.Fatalf("play must not fail synchronously: %v", err)
		}
		if ev := events.waitFor(t, EventError); ev.Err == nil {
			t.Error("expected decode error")
		}
	})

	t.Run("closed handle refuses play", func(t *testing.T) {
		a := NewStreamAudio(context.Background(), srv.URL+"/stream/0001.mp3", nil)
		a.Close()
		if err := a.Play(); err == nil {
			t.Error("expected error after close")
		}
	})
}

func TestStreamAudioSlowServer(t *testing.T) {
	gate := make(chan struct{})
	data := silentMP3(50)
	srv, requests := gatedServer(t, map[string][]byte{"0001.mp3": data}, gate)

	var firstProgress atomic.Int32
	events := &eventLog{}
	emit := func(ev Event) {
		if ev.Kind == EventProgress {
			firstProgress.CompareAndSwap(0, requests.Load())
		}
		events.emit(ev)
	}

	a := NewStreamAudio(context.Background(), srv.URL+"/stream/0001.mp3", emit, WithTick(time.Millisecond))
	a.window = 1024
	defer a.Close()

	const limit = 200 * time.Millisecond
	returnsWithin(t, limit, "Play", func() {
		if err := a.Play(); err != nil {
			t.Errorf("play failed: %v", err)
		}
	})
	returnsWithin(t, limit, "Seek", func() { a.Seek(0) })
	returnsWithin(t, limit, "SetVolume", func() { a.SetVolume(0.5) })
	returnsWithin(t, limit, "Pause", a.Pause)
	returnsWithin(t, limit, "Play", func() { a.Play() })

	close(gate)
	events.waitFor(t, EventProgress)

	if n := firstProgress.Load(); n > 2 {
		t.Errorf("expected playback to start after at most 2 requests for a %d-byte file, got %d", len(data), n)
	}
	if _, ok := events.find(EventDuration); !ok {
		t.Error("expected an estimated duration")
	}

	returnsWithin(t, time.Second, "Close", a.Close)
}

func TestEstimateDuration(t *testing.T) {
	data := silentMP3(20)
	frameSecs := 1152.0 / 44100

	t.Run("whole file is exact", func(t *testing.T) {
		got, ok := estimateDuration(data, 0, int64(len(data)))
		if !ok || math.Abs(got-20*frameSecs) > 1e-9 {
			t.Errorf("expected %v, got %v (%v)", 20*frameSecs, got, ok)
		}
	})

	t.Run("window scales to file size", func(t *testing.T) {
		head := data[:417*4]
		got, ok := estimateDuration(head, 0, int64(len(data)))
		if !ok || math.Abs(got-20*frameSecs) > frameSecs {
			t.Errorf("expected about %v, got %v (%v)", 20*frameSecs, got, ok)
		}
	})

	t.Run("tag larger than window", func(t *testing.T) {
		tag := []byte{'I', 'D', '3', 4, 0, 0, 0, 0, 0x10, 0} // 2048-byte body
		from := audioStart(tag)
		if from != 2058 {
			t.Fatalf("expected audio at 2058, got %d", from)
		}
		if _, ok := estimateDuration(tag, from, 10000); ok {
			t.Error("expected no estimate")
		}
	})
}

func TestScale(t *testing.T) {
	pcm := []byte{0x00, 0x40, 0x00, 0xC0} // 16384, -16384
	scale(pcm, 0.5)
	if got := int16(uint16(pcm[0]) | uint16(pcm[1])<<8); got != 8192 {
		t.Errorf("expected 8192, got %d", got)
	}
	if got := int16(uint16(pcm[2]) | uint16(pcm[3])<<8); got != -8192 {
		t.Errorf("expected -8192, got %d", got)
	}

	loud := []byte{0x10, 0x20}
	scale(loud, 1)
	if loud[0] != 0x10 || loud[1] != 0x20 {
		t.Error("full volume must leave samples untouched")
	}
}
