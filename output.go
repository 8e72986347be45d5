package walkietalkie

import "log"

// peerTimeoutMillis is the silence duration after which a peer's decode
// state is garbage-collected (spec.md §4.3 Step G: roughly 15s regardless
// of frame duration).
const peerTimeoutMillis = 15000

// incomingPacket is a deframed packet handed from PushIncomingPacket to the
// playback loop's ingest queue.
type incomingPacket struct {
	originID uint32
	seq      uint16
	payload  []byte
}

// playbackLoop is the Output Pipeline / Mixer (spec.md §4.3): drain newly
// received packets into their peer's jitter buffer, then for every active
// peer decode one device frame's worth of audio and additively mix it into
// the output buffer, finally clamping to the int16 range before writing to
// the device.
//
// The peer map is owned exclusively by this goroutine — no locking is
// needed on the hot path (spec.md §5).
func (e *Engine) playbackLoop(buf []float32) {
	samplesPerFrame := e.cfg.SamplesPerFrame()
	maxJitterPackets := e.cfg.MaxJitterPackets()
	peerTimeoutFrames := peerTimeoutMillis / e.cfg.FrameMillis
	if peerTimeoutFrames < 1 {
		peerTimeoutFrames = 1
	}

	peers := make(map[uint32]*PeerStream)
	mix := make([]int32, samplesPerFrame)
	scratch := make([]int16, samplesPerFrame)

	for e.running.Load() {
		select {
		case <-e.stopCh:
			return
		default:
		}

		// Step 1: drain everything waiting on the ingest queue into the
		// owning peer's jitter buffer, creating peers on first contact.
		for {
			pkt, ok := e.inQueue.TryPop()
			if !ok {
				break
			}
			ps, exists := peers[pkt.originID]
			if !exists {
				ps = NewPeerStream(maxJitterPackets, samplesPerFrame, func() (opusDecoder, error) {
					return e.decoderFactory(e.cfg.SampleRate)
				})
				peers[pkt.originID] = ps
			}
			ps.Push(pkt.seq, pkt.payload)
		}

		mixAndClamp(peers, mix, scratch, buf, peerTimeoutFrames)

		if err := e.playbackStream.Write(); err != nil {
			if e.running.Load() {
				log.Printf("[walkietalkie] playback write: %v", err)
				e.reportAsyncError(ErrDeviceError)
			}
			return
		}
	}
}

// mixAndClamp runs spec.md §4.3 Steps 2-4 for one block: pull one frame
// from every active peer, additively accumulate into mix, garbage-collect
// peers that have gone silent past peerTimeoutFrames, then clamp the
// accumulated mix into buf as normalized float32 samples. mix and scratch
// are caller-owned scratch space reused across blocks to avoid allocating
// on the realtime hot path.
func mixAndClamp(peers map[uint32]*PeerStream, mix []int32, scratch []int16, buf []float32, peerTimeoutFrames int) {
	for i := range mix {
		mix[i] = 0
	}

	for id, ps := range peers {
		produced := ps.Fill(scratch)
		if produced {
			for i, s := range scratch {
				mix[i] += int32(s)
			}
		} else if ps.SilenceFrames() > peerTimeoutFrames {
			delete(peers, id)
		}
	}

	for i, s := range mix {
		buf[i] = float32(clampInt32(s)) / 32768.0
	}
}

// clampInt32 clamps an accumulated mix sample to the int16 range.
func clampInt32(v int32) int32 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return v
}

