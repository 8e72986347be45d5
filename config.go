package walkietalkie

// Config holds the engine's immutable-after-construction configuration
// (spec.md §3). Zero value is not directly usable for sample rate / frame
// duration — use DefaultConfig and override fields before passing to New.
type Config struct {
	// SampleRate is the codec and device sample rate in Hz.
	SampleRate int
	// FrameMillis is the frame duration in milliseconds; both encode and
	// decode bookkeeping are keyed to this cadence.
	FrameMillis int
	// JitterBufferMillis is the target jitter buffer capacity in
	// milliseconds; MaxJitterPackets derives from it.
	JitterBufferMillis int
	// InputDeviceID selects a specific input device; 0 means "use the
	// system default input device".
	InputDeviceID int
	// OutputDeviceID selects a specific output device; 0 means "use the
	// system default output device".
	OutputDeviceID int
	// OwnNodeID is this node's 32-bit sender identity, stamped on every
	// outgoing packet.
	OwnNodeID uint32
}

// DefaultConfig returns the spec.md §3 defaults: 48 kHz, 60 ms frames, a
// 1000 ms jitter buffer, and system-default devices.
func DefaultConfig(ownNodeID uint32) Config {
	return Config{
		SampleRate:         48000,
		FrameMillis:        60,
		JitterBufferMillis: 1000,
		InputDeviceID:      0,
		OutputDeviceID:     0,
		OwnNodeID:          ownNodeID,
	}
}

// SamplesPerFrame is the derived frame size in samples:
// sample_rate/1000 * frame_ms.
func (c Config) SamplesPerFrame() int {
	return c.SampleRate / 1000 * c.FrameMillis
}

// MaxJitterPackets is the derived per-peer jitter buffer bound:
// jitter_buffer_ms / frame_ms.
func (c Config) MaxJitterPackets() int {
	if c.FrameMillis <= 0 {
		return 0
	}
	return c.JitterBufferMillis / c.FrameMillis
}
