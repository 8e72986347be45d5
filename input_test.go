package walkietalkie

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/denizetkar/walkie-talkie-app/packet"
)

// countingPAStream succeeds reads up to a fixed count, then blocks until
// told to stop — enough for captureLoop to run several real iterations in
// a test without a hardware device.
type countingPAStream struct {
	remaining atomic.Int32
	readCh    chan struct{}
	stopCh    chan struct{}
	stopOnce  sync.Once
}

func newCountingPAStream(reads int) *countingPAStream {
	s := &countingPAStream{stopCh: make(chan struct{})}
	s.remaining.Store(int32(reads))
	return s
}

func (s *countingPAStream) Start() error { return nil }
func (s *countingPAStream) Stop() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	return nil
}
func (s *countingPAStream) Close() error { return nil }

func (s *countingPAStream) Read() error {
	if s.remaining.Add(-1) >= 0 {
		return nil
	}
	<-s.stopCh
	return errors.New("stream stopped")
}

func (s *countingPAStream) Write() error {
	<-s.stopCh
	return errors.New("stream stopped")
}

func TestCaptureLoopSendsEncodedFramesWhenMicEnabled(t *testing.T) {
	cfg := DefaultConfig(99)
	transport := &nullTransport{}
	e := New(cfg, transport, nil)
	defer e.Close()

	capture := newCountingPAStream(5)
	playback := newCountingPAStream(0)
	startEngineWithMocks(e, capture, playback, cfg.SamplesPerFrame())

	deadline := time.After(2 * time.Second)
	for transport.sent.Load() < 5 {
		select {
		case <-deadline:
			t.Fatalf("got %d packets sent after 2s, want at least 5", transport.sent.Load())
		default:
			time.Sleep(time.Millisecond)
		}
	}

	capture.Stop()
	playback.Stop()
	e.StopSession()
}

func TestCaptureLoopDropsFramesWhenMicDisabled(t *testing.T) {
	cfg := DefaultConfig(99)
	transport := &nullTransport{}
	e := New(cfg, transport, nil)
	defer e.Close()
	e.SetMicEnabled(false)

	capture := newCountingPAStream(10)
	playback := newCountingPAStream(0)
	startEngineWithMocks(e, capture, playback, cfg.SamplesPerFrame())

	capture.Stop()
	playback.Stop()
	e.StopSession()

	if n := transport.sent.Load(); n != 0 {
		t.Fatalf("got %d packets sent with mic disabled, want 0", n)
	}
}

func TestCaptureLoopSequenceNumbersAreMonotonicWithWrap(t *testing.T) {
	cfg := DefaultConfig(1)
	var mu sync.Mutex
	var seqs []uint16
	capturingTransport := transportFunc(func(data []byte) error {
		_, seq, _, err := packet.Unwrap(data)
		if err != nil {
			return err
		}
		mu.Lock()
		seqs = append(seqs, seq)
		mu.Unlock()
		return nil
	})
	e := New(cfg, capturingTransport, nil)
	defer e.Close()
	e.outSeq.Store(65534) // force a wraparound during the test

	capture := newCountingPAStream(6)
	playback := newCountingPAStream(0)
	startEngineWithMocks(e, capture, playback, cfg.SamplesPerFrame())

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := len(seqs)
		mu.Unlock()
		if n >= 6 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("got %d packets after 2s, want at least 6", n)
		default:
			time.Sleep(time.Millisecond)
		}
	}

	capture.Stop()
	playback.Stop()
	e.StopSession()

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(seqs); i++ {
		if seqs[i] != seqs[i-1]+1 {
			t.Fatalf("sequence not contiguous with wrap at index %d: %v", i, seqs)
		}
	}
}

type transportFunc func(data []byte) error

func (f transportFunc) SendPacket(data []byte) error { return f(data) }
