package observer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"tilewalk.ai/internal/observerproto"
	"tilewalk.ai/internal/protocol"
	"tilewalk.ai/internal/sim/world"
)

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for h.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients=%d want %d", h.Clients(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubStreamsTicks(t *testing.T) {
	h := NewHub("w1", 5, nil)
	srv := httptest.NewServer(h.Mux())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/observe"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitClients(t, h, 1)

	err = h.WriteTick(world.TickLogEntry{
		Tick:   42,
		Movers: []world.MoverState{{ID: "p1", Pos: [3]int{3, 4, 0}, Moving: true, TaskID: "T000001", State: "ACTIVE"}},
		Events: []protocol.Event{{"type": protocol.EventTaskDone, "task_id": "T000001"}},
	})
	if err != nil {
		t.Fatalf("WriteTick: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg observerproto.TickMsg
	if err := json.Unmarshal(b, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != protocol.TypeTick || msg.ProtocolVersion != observerproto.Version {
		t.Fatalf("type=%q version=%q", msg.Type, msg.ProtocolVersion)
	}
	if msg.Tick != 42 || msg.WorldID != "w1" || len(msg.Movers) != 1 || msg.Movers[0].Pos != [3]int{3, 4, 0} {
		t.Fatalf("msg=%+v", msg)
	}
	if len(msg.Events) != 1 || msg.Events[0].Type() != protocol.EventTaskDone {
		t.Fatalf("events=%v", msg.Events)
	}

	conn.Close()
	waitClients(t, h, 0)
}

func TestBootstrapReportsLastTick(t *testing.T) {
	h := NewHub("w1", 10, nil)
	_ = h.WriteTick(world.TickLogEntry{Tick: 9})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/observe/bootstrap", nil)
	req.RemoteAddr = "127.0.0.1:5555"
	h.BootstrapHandler()(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var resp observerproto.BootstrapResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Tick != 9 || resp.TickRateHz != 10 || resp.WorldID != "w1" {
		t.Fatalf("resp=%+v", resp)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/v1/observe/bootstrap", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	h.BootstrapHandler()(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-loopback status=%d", rec.Code)
	}
}

func TestSendLatestDropsOldest(t *testing.T) {
	ch := make(chan []byte, 2)
	sendLatest(ch, []byte("a"))
	sendLatest(ch, []byte("b"))
	sendLatest(ch, []byte("c"))
	if got := string(<-ch); got != "b" {
		t.Fatalf("first=%q want b", got)
	}
	if got := string(<-ch); got != "c" {
		t.Fatalf("second=%q want c", got)
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:80": true,
		"[::1]:9000":   true,
		"10.0.0.1:80":  false,
		"garbage":      false,
	}
	for addr, want := range cases {
		if got := isLoopbackRemote(addr); got != want {
			t.Fatalf("isLoopbackRemote(%q)=%v want %v", addr, got, want)
		}
	}
}
