package walkietalkie

import (
	"testing"

	"github.com/denizetkar/walkie-talkie-app/internal/jitter"
)

// constDecoder decodes every frame as samplesPerFrame copies of a fixed
// value, and PLC frames as zero, so mixing arithmetic is exactly
// predictable in tests.
type constDecoder struct{ value int16 }

func (d *constDecoder) Decode(data []byte, pcm []int16) (int, error) {
	v := d.value
	if data == nil {
		v = 0
	}
	for i := range pcm {
		pcm[i] = v
	}
	return len(pcm), nil
}

func (d *constDecoder) DecodeFEC(data []byte, pcm []int16) error { return nil }

func primeJitterBuffer(ps *PeerStream, startSeq uint16) {
	for i := 0; i < jitter.StartThreshold; i++ {
		ps.Push(startSeq+uint16(i), []byte{1})
	}
}

func newPrimedPeer(t *testing.T, value int16, samplesPerFrame int) *PeerStream {
	t.Helper()
	ps := NewPeerStream(32, samplesPerFrame, func() (opusDecoder, error) {
		return &constDecoder{value: value}, nil
	})
	primeJitterBuffer(ps, 0)
	return ps
}

// TestMixAndClampSumsAndClampsTwoPeers exercises spec.md §8 S6: two peers
// loud enough that their sum overflows the int16 range must clamp, not
// wrap, and the normalized output must sit at the clamp ceiling.
func TestMixAndClampSumsAndClampsTwoPeers(t *testing.T) {
	const samplesPerFrame = 8
	peers := map[uint32]*PeerStream{
		1: newPrimedPeer(t, 25000, samplesPerFrame),
		2: newPrimedPeer(t, 25000, samplesPerFrame),
	}
	mix := make([]int32, samplesPerFrame)
	scratch := make([]int16, samplesPerFrame)
	buf := make([]float32, samplesPerFrame)

	mixAndClamp(peers, mix, scratch, buf, 9999)

	for i, s := range buf {
		if s != 32767.0/32768.0 {
			t.Fatalf("sample %d: got %v, want clamp ceiling %v", i, s, 32767.0/32768.0)
		}
	}
}

// TestMixAndClampSumsNegativeOverflow mirrors the positive-clamp case for
// the negative rail.
func TestMixAndClampSumsNegativeOverflow(t *testing.T) {
	const samplesPerFrame = 8
	peers := map[uint32]*PeerStream{
		1: newPrimedPeer(t, -25000, samplesPerFrame),
		2: newPrimedPeer(t, -25000, samplesPerFrame),
	}
	mix := make([]int32, samplesPerFrame)
	scratch := make([]int16, samplesPerFrame)
	buf := make([]float32, samplesPerFrame)

	mixAndClamp(peers, mix, scratch, buf, 9999)

	for i, s := range buf {
		if s != -1.0 {
			t.Fatalf("sample %d: got %v, want -1.0", i, s)
		}
	}
}

// TestMixAndClampNoOverflowStaysExact checks that sub-clamp sums pass
// through without distortion.
func TestMixAndClampNoOverflowStaysExact(t *testing.T) {
	const samplesPerFrame = 8
	peers := map[uint32]*PeerStream{
		1: newPrimedPeer(t, 100, samplesPerFrame),
		2: newPrimedPeer(t, 200, samplesPerFrame),
	}
	mix := make([]int32, samplesPerFrame)
	scratch := make([]int16, samplesPerFrame)
	buf := make([]float32, samplesPerFrame)

	mixAndClamp(peers, mix, scratch, buf, 9999)

	want := float32(300) / 32768.0
	for i, s := range buf {
		if s != want {
			t.Fatalf("sample %d: got %v, want %v", i, s, want)
		}
	}
}

func TestClampInt32(t *testing.T) {
	cases := []struct {
		in   int32
		want int32
	}{
		{0, 0},
		{32767, 32767},
		{32768, 32767},
		{100000, 32767},
		{-32768, -32768},
		{-32769, -32768},
		{-100000, -32768},
	}
	for _, c := range cases {
		if got := clampInt32(c.in); got != c.want {
			t.Errorf("clampInt32(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestPeerGarbageCollectedAfterTimeout(t *testing.T) {
	cfg := DefaultConfig(1)
	cfg.FrameMillis = 20
	e := New(cfg, &nullTransport{}, nil)
	defer e.Close()
	e.decoderFactory = func(sampleRate int) (opusDecoder, error) {
		return &constDecoder{value: 100}, nil
	}

	samplesPerFrame := cfg.SamplesPerFrame()
	maxJitterPackets := cfg.MaxJitterPackets()
	peerTimeoutFrames := peerTimeoutMillis / cfg.FrameMillis

	peers := map[uint32]*PeerStream{
		1: NewPeerStream(maxJitterPackets, samplesPerFrame, func() (opusDecoder, error) {
			return e.decoderFactory(cfg.SampleRate)
		}),
	}
	primeJitterBuffer(peers[1], 0)

	scratch := make([]int16, samplesPerFrame)
	for i := 0; i < jitter.StartThreshold; i++ {
		peers[1].Fill(scratch)
	}

	removed := false
	for i := 0; i < peerTimeoutFrames+1; i++ {
		produced := peers[1].Fill(scratch)
		if !produced && peers[1].SilenceFrames() > peerTimeoutFrames {
			delete(peers, 1)
			removed = true
			break
		}
	}
	if !removed {
		t.Fatal("expected peer to be garbage-collected after sustained silence")
	}
	if _, ok := peers[1]; ok {
		t.Fatal("peer should have been removed from the map")
	}
}
