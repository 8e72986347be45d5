package walkietalkie

import "errors"

// Construction-time errors surfaced synchronously from StartSession, matching
// the error kinds named in spec.md §7.
var (
	// ErrDeviceError indicates a hardware stream failed to open or start, or
	// that a fatal stream-level error occurred during an active session.
	ErrDeviceError = errors.New("walkietalkie: audio device error")

	// ErrEncoderError indicates the codec encoder failed to construct.
	ErrEncoderError = errors.New("walkietalkie: encoder construction failed")

	// ErrDecoderError indicates the codec decoder failed to construct. The
	// engine itself never returns it: StartSession constructs no decoder.
	ErrDecoderError = errors.New("walkietalkie: decoder construction failed")

	// ErrSessionActive is returned by StartSession when a session is already
	// running. Re-starting is the caller's responsibility (spec.md §4.4).
	ErrSessionActive = errors.New("walkietalkie: session already active")
)
