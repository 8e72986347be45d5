package walkietalkie

import (
	"log"

	"github.com/denizetkar/walkie-talkie-app/packet"
)

// maxEncodedFrameBytes bounds a single Opus frame's encoded size. Opus at
// the bitrates and frame durations this engine uses never approaches this;
// it exists so the encode destination is a fixed, reusable allocation.
const maxEncodedFrameBytes = 512

// opusBitrate is the initial Opus encoder target bitrate in bits/sec.
const opusBitrate = 32000

// captureLoop is the Input Pipeline (spec.md §4.2): read a device frame,
// accumulate it in a fixed scratch buffer, and for every full codec frame
// available — gated on the mic being enabled — encode, frame, and enqueue
// it for the transport worker, then shift any remainder to the scratch
// buffer's origin.
//
// This runs on its own goroutine for the lifetime of one session and must
// never block on anything but captureStream.Read.
func (e *Engine) captureLoop(buf []float32) {
	samplesPerFrame := e.cfg.SamplesPerFrame()

	// Scratch capacity is a multiple of the device frame so an accumulation
	// of several reads never overflows before a codec frame drains it.
	scratch := make([]float32, samplesPerFrame*2+len(buf))
	scratchLen := 0

	pcm := make([]int16, samplesPerFrame)
	opusBuf := make([]byte, maxEncodedFrameBytes)

	for e.running.Load() {
		if err := e.captureStream.Read(); err != nil {
			if e.running.Load() {
				log.Printf("[walkietalkie] capture read: %v", err)
				e.reportAsyncError(ErrDeviceError)
			}
			return
		}

		if scratchLen+len(buf) > len(scratch) {
			// Accumulated backlog the pipeline never cleared in time; drop it
			// rather than grow unbounded, and resync from the newest samples.
			scratchLen = 0
		}
		copy(scratch[scratchLen:], buf)
		scratchLen += len(buf)

		for scratchLen >= samplesPerFrame {
			frame := scratch[:samplesPerFrame]

			if !e.micEnabled.Load() {
				copy(scratch, scratch[samplesPerFrame:scratchLen])
				scratchLen -= samplesPerFrame
				continue
			}

			for i, s := range frame {
				pcm[i] = int16(clampFloat32(s) * 32767)
			}

			n, err := e.encoder.Encode(pcm, opusBuf)
			copy(scratch, scratch[samplesPerFrame:scratchLen])
			scratchLen -= samplesPerFrame
			if err != nil {
				log.Printf("[walkietalkie] encode: %v", err)
				continue
			}

			seq := uint16(e.outSeq.Add(1) - 1)
			wire := packet.Wrap(e.cfg.OwnNodeID, seq, opusBuf[:n])
			e.outQueue.Push(wire)
		}
	}
}

// clampFloat32 clamps v to [-1.0, 1.0] before int16 conversion.
func clampFloat32(v float32) float32 {
	if v > 1.0 {
		return 1.0
	}
	if v < -1.0 {
		return -1.0
	}
	return v
}
