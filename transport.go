package walkietalkie

import (
	"log"

	"github.com/denizetkar/walkie-talkie-app/internal/queue"
)

// PacketTransport is the host-supplied delivery mechanism for outgoing wire
// packets (spec.md §4.4, §6). SendPacket may block; the engine never calls
// it from the realtime capture callback, only from the transport worker
// goroutine. A returned error is logged and otherwise ignored — the spec
// defines no retry policy.
type PacketTransport interface {
	SendPacket(data []byte) error
}

// AudioErrorCallback receives asynchronous fatal errors raised by the
// capture or playback streams after a session has started (spec.md §7).
// Construction-time errors are returned directly from StartSession instead.
type AudioErrorCallback interface {
	OnEngineError(err error)
}

// runTransportWorker drains q and hands each packet to transport, one at a
// time, until the queue is closed. It is the sole goroutine allowed to call
// transport.SendPacket, keeping the realtime capture callback free of any
// blocking I/O (spec.md §5).
func runTransportWorker(q *queue.Unbounded[[]byte], transport PacketTransport) {
	for {
		packet, ok := q.Pop()
		if !ok {
			return
		}
		if err := transport.SendPacket(packet); err != nil {
			log.Printf("[walkietalkie] send packet: %v", err)
		}
	}
}
