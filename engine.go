package walkietalkie

import (
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
	"gopkg.in/hraban/opus.v2"

	"github.com/denizetkar/walkie-talkie-app/internal/queue"
	"github.com/denizetkar/walkie-talkie-app/packet"
)

// Engine is the façade spec.md §4.4 describes: it owns the capture/playback
// device streams, the Opus codec, the per-peer jitter-buffered mixer, and
// the transport worker, and exposes the small surface a host application
// needs to drive a push-to-talk voice session.
type Engine struct {
	cfg       Config
	transport PacketTransport
	onError   AudioErrorCallback

	mu             sync.Mutex
	captureStream  paStream
	playbackStream paStream
	encoder        opusEncoder
	decoderFactory func(sampleRate int) (opusDecoder, error)

	running    atomic.Bool
	micEnabled atomic.Bool
	outSeq     atomic.Uint32

	stopCh   chan struct{}
	wg       sync.WaitGroup
	outQueue *queue.Unbounded[[]byte]
	inQueue  *queue.Unbounded[incomingPacket]

	transportWG sync.WaitGroup
}

// New constructs an Engine. It does not touch any hardware or start any
// goroutine other than the transport worker, which only drains the
// outbound queue and is harmless with no active session.
func New(cfg Config, transport PacketTransport, onError AudioErrorCallback) *Engine {
	e := &Engine{
		cfg:            cfg,
		transport:      transport,
		onError:        onError,
		outQueue:       queue.New[[]byte](),
		inQueue:        queue.New[incomingPacket](),
		decoderFactory: newRealDecoder,
	}
	e.micEnabled.Store(true)

	e.transportWG.Add(1)
	go func() {
		defer e.transportWG.Done()
		runTransportWorker(e.outQueue, e.transport)
	}()

	return e
}

// IsSessionActive reports whether capture/playback streams are running.
func (e *Engine) IsSessionActive() bool { return e.running.Load() }

// SetMicEnabled gates whether captured frames are encoded and sent. The
// capture stream keeps running either way — only the encode/send step is
// skipped, matching spec.md §4.2's mic-gate check.
func (e *Engine) SetMicEnabled(enabled bool) { e.micEnabled.Store(enabled) }

// StartSession opens the codec and the capture/playback device streams and
// starts the input and output pipelines on their own goroutines. It returns
// ErrSessionActive if a session is already running, and ErrDeviceError /
// ErrEncoderError on construction failure (spec.md §7). It never returns
// ErrDecoderError: decoders are created lazily, per peer, by the output
// pipeline.
func (e *Engine) StartSession() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running.Load() {
		return ErrSessionActive
	}

	enc, err := opus.NewEncoder(e.cfg.SampleRate, 1, opus.AppVoIP)
	if err != nil {
		return ErrEncoderError
	}
	enc.SetBitrate(opusBitrate)
	enc.SetDTX(true)
	enc.SetInBandFEC(true)
	enc.SetPacketLossPerc(5)

	devices, err := portaudio.Devices()
	if err != nil {
		return ErrDeviceError
	}

	inputDev, err := resolveDevice(devices, e.cfg.InputDeviceID, portaudio.DefaultInputDevice)
	if err != nil {
		return ErrDeviceError
	}
	outputDev, err := resolveDevice(devices, e.cfg.OutputDeviceID, portaudio.DefaultOutputDevice)
	if err != nil {
		return ErrDeviceError
	}

	samplesPerFrame := e.cfg.SamplesPerFrame()
	captureBuf := make([]float32, samplesPerFrame)
	playbackBuf := make([]float32, samplesPerFrame)

	playbackStream, err := openPlaybackStream(e.cfg, outputDev, playbackBuf)
	if err != nil {
		return ErrDeviceError
	}
	captureStream, err := openCaptureStream(e.cfg, inputDev, captureBuf)
	if err != nil {
		playbackStream.Close()
		return ErrDeviceError
	}

	if err := playbackStream.Start(); err != nil {
		playbackStream.Close()
		captureStream.Close()
		return ErrDeviceError
	}
	if err := captureStream.Start(); err != nil {
		playbackStream.Stop()
		playbackStream.Close()
		captureStream.Close()
		return ErrDeviceError
	}

	e.encoder = enc
	e.captureStream = captureStream
	e.playbackStream = playbackStream
	e.stopCh = make(chan struct{})
	e.running.Store(true)

	e.wg.Add(2)
	go func() { defer e.wg.Done(); e.captureLoop(captureBuf) }()
	go func() { defer e.wg.Done(); e.playbackLoop(playbackBuf) }()

	return nil
}

// StopSession halts capture and playback. Stream ordering mirrors the
// teacher's sequencing: Pa_StopStream unblocks any goroutine blocked in
// Read/Write, so we wait for both loops to exit before closing the stream
// objects — closing first would free native memory a goroutine might still
// be touching.
func (e *Engine) StopSession() {
	if !e.running.CompareAndSwap(true, false) {
		return
	}
	close(e.stopCh)

	e.mu.Lock()
	if e.captureStream != nil {
		e.captureStream.Stop()
	}
	if e.playbackStream != nil {
		e.playbackStream.Stop()
	}
	e.mu.Unlock()

	e.wg.Wait()

	e.mu.Lock()
	if e.captureStream != nil {
		e.captureStream.Close()
		e.captureStream = nil
	}
	if e.playbackStream != nil {
		e.playbackStream.Close()
		e.playbackStream = nil
	}
	e.encoder = nil
	e.mu.Unlock()
}

// PushIncomingPacket deframes a wire packet and enqueues it for the output
// pipeline. Malformed packets are silently dropped (spec.md §4.4) — there
// is no channel back to the transport to report a framing error.
func (e *Engine) PushIncomingPacket(data []byte) {
	originID, seq, payload, err := packet.Unwrap(data)
	if err != nil {
		return
	}
	owned := make([]byte, len(payload))
	copy(owned, payload)
	e.inQueue.Push(incomingPacket{originID: originID, seq: seq, payload: owned})
}

// Close releases the transport worker and any open hardware. It is safe to
// call whether or not StopSession was called first, and safe to call more
// than once.
func (e *Engine) Close() {
	e.StopSession()
	e.outQueue.Close()
	e.transportWG.Wait()
}

func (e *Engine) reportAsyncError(err error) {
	if e.onError != nil {
		e.onError.OnEngineError(err)
	}
}

func newRealDecoder(sampleRate int) (opusDecoder, error) {
	return opus.NewDecoder(sampleRate, 1)
}
