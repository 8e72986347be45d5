package walkietalkie

import (
	"log"

	"github.com/denizetkar/walkie-talkie-app/internal/jitter"
)

// PeerStream is one remote sender's decode pipeline: a jitter buffer feeding
// an Opus decoder, plus the leftover-sample scratch described in spec.md §3
// that lets a decode produce more or fewer samples than the output pipeline
// asks for in one cycle without ever discarding audio.
//
// A PeerStream is owned exclusively by the output callback goroutine; it is
// not safe for concurrent use (spec.md §5).
type PeerStream struct {
	jb              *jitter.Buffer
	decoder         opusDecoder
	decoderFactory  func() (opusDecoder, error)
	samplesPerFrame int

	pcm        []int16 // reused decode destination, one frame wide
	scratch    []int16
	scratchLen int

	silenceFrames int
}

// NewPeerStream creates a peer decode pipeline. decoderFactory is called
// lazily, on the first frame this peer needs decoded, and again on later
// frames only if an earlier call failed — mirroring the teacher's lazy
// per-sender decoder creation in its playback loop.
func NewPeerStream(maxJitterPackets, samplesPerFrame int, decoderFactory func() (opusDecoder, error)) *PeerStream {
	return &PeerStream{
		jb:              jitter.New(maxJitterPackets),
		decoderFactory:  decoderFactory,
		samplesPerFrame: samplesPerFrame,
		pcm:             make([]int16, samplesPerFrame),
		// Scratch holds at most a couple of decoded frames of overhang —
		// comfortably above the ~120ms spec.md §3 calls for at typical
		// frame durations.
		scratch: make([]int16, samplesPerFrame*3),
	}
}

// Push enqueues a newly received payload at seq and resets the silence
// counter, per spec.md §4.3 Step 1 — a peer that is still buffering but
// actively receiving packets must never be mistaken for one that has gone
// quiet.
func (p *PeerStream) Push(seq uint16, payload []byte) {
	p.jb.Push(seq, payload)
	p.silenceFrames = 0
}

// SilenceFrames reports how many consecutive Fill calls have produced no
// audio at all — the peer garbage-collection signal (spec.md §4.3 Step G).
func (p *PeerStream) SilenceFrames() int { return p.silenceFrames }

func (p *PeerStream) ensureDecoder() error {
	if p.decoder != nil {
		return nil
	}
	d, err := p.decoderFactory()
	if err != nil {
		return err
	}
	p.decoder = d
	return nil
}

// Fill writes exactly len(dst) samples of this peer's decoded audio into
// dst, draining leftover scratch first (Step A) and otherwise running the
// jitter buffer's trim/gate/select cycle (Steps B-D) and decoding (Step E)
// until dst is full or the peer has nothing left to give this cycle, in
// which case the remainder of dst is zero-filled.
//
// produced reports whether any genuinely new or leftover audio was written;
// false means the peer was completely silent this cycle.
func (p *PeerStream) Fill(dst []int16) (produced bool) {
	need := len(dst)
	filled := 0

	if p.scratchLen > 0 {
		n := copy(dst, p.scratch[:p.scratchLen])
		filled += n
		remaining := p.scratchLen - n
		copy(p.scratch, p.scratch[n:p.scratchLen])
		p.scratchLen = remaining
		produced = true
	}

	for filled < need {
		p.jb.TrimOverflow()
		sel := p.jb.Advance()

		switch sel.Kind {
		case jitter.KindSilence:
			if filled == 0 {
				for i := range dst {
					dst[i] = 0
				}
				p.silenceFrames++
				return false
			}
			for i := filled; i < need; i++ {
				dst[i] = 0
			}
			p.silenceFrames = 0
			return true

		case jitter.KindHappy, jitter.KindPLC:
			if err := p.ensureDecoder(); err != nil {
				log.Printf("[peer] create decoder: %v", err)
				for i := filled; i < need; i++ {
					dst[i] = 0
				}
				p.silenceFrames++
				return filled > 0
			}

			var n int
			var err error
			if sel.Kind == jitter.KindHappy {
				n, err = p.decoder.Decode(sel.Payload, p.pcm)
			} else {
				n, err = p.decoder.Decode(nil, p.pcm)
			}
			if err != nil {
				log.Printf("[peer] decode: %v", err)
				continue
			}

			produced = true
			space := need - filled
			c := n
			if c > space {
				c = space
			}
			copy(dst[filled:filled+c], p.pcm[:c])
			filled += c

			if c < n {
				leftover := n - c
				if leftover > len(p.scratch) {
					leftover = len(p.scratch)
				}
				copy(p.scratch[:leftover], p.pcm[c:c+leftover])
				p.scratchLen = leftover
			}
		}
	}

	if produced {
		p.silenceFrames = 0
	}
	return produced
}
