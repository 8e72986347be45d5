// Command walkietalkiedemo wires the walkietalkie engine to a WebSocket
// transport: every outgoing wire packet becomes one binary WebSocket
// message, and every binary message received from the peer is handed back
// to the engine as an incoming packet. It is a minimal, transport-agnostic
// demonstration — the engine itself has no notion of WebSocket, channels,
// or multi-party routing.
package main

import (
	"flag"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"

	walkietalkie "github.com/denizetkar/walkie-talkie-app"
)

// wsTransport adapts a single *websocket.Conn to walkietalkie.PacketTransport.
type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) SendPacket(data []byte) error {
	return t.conn.WriteMessage(websocket.BinaryMessage, data)
}

type loggingErrorCallback struct{}

func (loggingErrorCallback) OnEngineError(err error) {
	log.Printf("[walkietalkiedemo] engine error: %v", err)
}

func main() {
	listen := flag.String("listen", "", "if set, run as a WebSocket server on this address (e.g. :8080)")
	dial := flag.String("dial", "", "if set, dial a peer's WebSocket server at this ws:// URL")
	nodeID := flag.Uint("node-id", 1, "this node's 32-bit origin id")
	flag.Parse()

	if (*listen == "") == (*dial == "") {
		log.Fatal("exactly one of -listen or -dial must be set")
	}

	var conn *websocket.Conn
	if *dial != "" {
		u, err := url.Parse(*dial)
		if err != nil {
			log.Fatalf("parse -dial URL: %v", err)
		}
		c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
		if err != nil {
			log.Fatalf("dial %s: %v", u.String(), err)
		}
		conn = c
	} else {
		conn = acceptOneConnection(*listen)
	}
	defer conn.Close()

	cfg := walkietalkie.DefaultConfig(uint32(*nodeID))
	engine := walkietalkie.New(cfg, &wsTransport{conn: conn}, loggingErrorCallback{})
	defer engine.Close()

	if err := engine.StartSession(); err != nil {
		log.Fatalf("start session: %v", err)
	}
	defer engine.StopSession()

	go func() {
		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				log.Printf("[walkietalkiedemo] read: %v", err)
				return
			}
			if kind != websocket.BinaryMessage {
				continue
			}
			engine.PushIncomingPacket(data)
		}
	}()

	engine.SetMicEnabled(true)
	log.Println("[walkietalkiedemo] session active, press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	<-sigCh
}

// acceptOneConnection runs a throwaway HTTP server that upgrades exactly
// one incoming connection to WebSocket, then stops accepting further ones.
func acceptOneConnection(addr string) *websocket.Conn {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	connCh := make(chan *websocket.Conn, 1)
	srv := &http.Server{Addr: addr}
	srv.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[walkietalkiedemo] upgrade: %v", err)
			return
		}
		select {
		case connCh <- c:
		default:
			c.Close()
		}
	})

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	conn := <-connCh
	go srv.Close()
	return conn
}
