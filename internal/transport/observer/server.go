package observer

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"tilewalk.ai/internal/observerproto"
	"tilewalk.ai/internal/protocol"
	"tilewalk.ai/internal/sim/world"
)

// Hub fans tick records out to websocket viewers. It is a world.TickSink.
type Hub struct {
	worldID    string
	tickRateHz int
	log        *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
	lastTick atomic.Uint64

	mu      sync.Mutex
	clients map[string]chan []byte
}

func NewHub(worldID string, tickRateHz int, logger *log.Logger) *Hub {
	return &Hub{
		worldID:    worldID,
		tickRateHz: tickRateHz,
		log:        logger,
		clients:    map[string]chan []byte{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // loopback only
		},
	}
}

func (h *Hub) WriteTick(e world.TickLogEntry) error {
	msg := observerproto.TickMsg{
		Type:            protocol.TypeTick,
		ProtocolVersion: observerproto.Version,
		WorldID:         h.worldID,
		Tick:            e.Tick,
		Movers:          make([]observerproto.MoverState, 0, len(e.Movers)),
		Events:          e.Events,
	}
	for _, m := range e.Movers {
		msg.Movers = append(msg.Movers, observerproto.MoverState(m))
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	h.lastTick.Store(e.Tick)

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.clients {
		sendLatest(ch, b)
	}
	return nil
}

// Clients returns the number of connected viewers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		resp := observerproto.BootstrapResponse{
			ProtocolVersion: observerproto.Version,
			WorldID:         h.worldID,
			Tick:            h.lastTick.Load(),
			TickRateHz:      h.tickRateHz,
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (h *Hub) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sid := fmt.Sprintf("O%d", h.nextID.Add(1))
		out := make(chan []byte, 8)
		h.mu.Lock()
		h.clients[sid] = out
		h.mu.Unlock()
		h.logf("observer %s connected from %s", sid, r.RemoteAddr)
		defer func() {
			h.mu.Lock()
			delete(h.clients, sid)
			h.mu.Unlock()
			h.logf("observer %s disconnected", sid)
		}()

		// Reader loop only detects the close; viewers send nothing we act on.
		readDone := make(chan struct{})
		go func() {
			defer close(readDone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-readDone:
				return
			case b := <-out:
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					return
				}
			}
		}
	}
}

// Mux serves the observer endpoints.
func (h *Hub) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/observe", h.WSHandler())
	mux.HandleFunc("/v1/observe/bootstrap", h.BootstrapHandler())
	return mux
}

func (h *Hub) logf(format string, args ...any) {
	if h.log != nil {
		h.log.Printf(format, args...)
	}
}

// sendLatest never blocks: when ch is full the oldest frame is dropped.
func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
