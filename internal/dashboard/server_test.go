package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"remindbot/internal/dispatch"
	"remindbot/internal/eventbus"
	"remindbot/internal/session"
	logx "remindbot/pkg/logx"
)

type fakeSessions struct {
	mu      sync.Mutex
	state   session.State
	logouts int
}

func (f *fakeSessions) State() session.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeSessions) Logout() {
	f.mu.Lock()
	f.logouts++
	f.mu.Unlock()
}

func (f *fakeSessions) logoutCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logouts
}

type fakeCycles struct{ cycles []dispatch.CycleSummary }

func (f *fakeCycles) History() []dispatch.CycleSummary { return f.cycles }

func startTestServer(t *testing.T, sessions Sessions, cycles Cycles, bus eventbus.Bus) *httptest.Server {
	t.Helper()
	s := New(Config{Enabled: true, CORSOrigin: "*"}, sessions, cycles, nil, logx.Nop(), bus)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.hub.run(ctx)
	if bus != nil {
		go s.pump(ctx)
	}
	srv := httptest.NewServer(s.routes())
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var f Frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

func TestConnectReceivesCurrentStatus(t *testing.T) {
	t.Parallel()

	sessions := &fakeSessions{state: session.StateConnected}
	srv := startTestServer(t, sessions, &fakeCycles{}, nil)
	conn := dial(t, srv)

	f := readFrame(t, conn)
	if f.Type != eventbus.TypeStatus {
		t.Fatalf("first frame type = %q, want status", f.Type)
	}
	if f.Data != "Connected" {
		t.Fatalf("first frame data = %v, want Connected", f.Data)
	}
}

func TestBusEventsReachSocket(t *testing.T) {
	t.Parallel()

	bus := eventbus.New()
	srv := startTestServer(t, &fakeSessions{state: session.StateDisconnected}, &fakeCycles{}, bus)
	conn := dial(t, srv)
	_ = readFrame(t, conn) // initial status

	// Give the hub time to register the client before broadcasting.
	time.Sleep(50 * time.Millisecond)
	bus.Publish(eventbus.Event{Type: eventbus.TypeLog, Data: "Pesan terkirim ke 62811"})
	bus.Publish(eventbus.Event{Type: "send.ok", Data: "internal"}) // not a dashboard frame
	bus.Publish(eventbus.Event{Type: eventbus.TypeQRCode, Data: "qr-data"})

	f := readFrame(t, conn)
	if f.Type != eventbus.TypeLog || f.Data != "Pesan terkirim ke 62811" {
		t.Fatalf("frame = %+v", f)
	}
	f = readFrame(t, conn)
	if f.Type != eventbus.TypeQRCode || f.Data != "qr-data" {
		t.Fatalf("frame = %+v, want qr_code (send.ok must not be forwarded)", f)
	}
}

func TestLogoutCommand(t *testing.T) {
	t.Parallel()

	sessions := &fakeSessions{state: session.StateConnected}
	srv := startTestServer(t, sessions, &fakeCycles{}, nil)
	conn := dial(t, srv)
	_ = readFrame(t, conn)

	if err := conn.WriteJSON(map[string]string{"type": "logout-wa"}); err != nil {
		t.Fatalf("write command: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for sessions.logoutCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("logout command not delivered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Unknown commands are ignored, the connection stays up.
	if err := conn.WriteJSON(map[string]string{"type": "reboot-everything"}); err != nil {
		t.Fatalf("write command: %v", err)
	}
	if sessions.logoutCount() != 1 {
		t.Fatalf("logouts = %d, want 1", sessions.logoutCount())
	}
}

func TestHistoryEndpoint(t *testing.T) {
	t.Parallel()

	cycles := &fakeCycles{cycles: []dispatch.CycleSummary{
		{ID: "cy:1", Reason: "schedule 10:50", Sent: 3, Skipped: 1},
	}}
	srv := startTestServer(t, &fakeSessions{}, cycles, nil)

	resp, err := http.Get(srv.URL + "/api/history")
	if err != nil {
		t.Fatalf("GET /api/history: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("cors header = %q", got)
	}

	var body struct {
		Cycles []dispatch.CycleSummary `json:"cycles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Cycles) != 1 || body.Cycles[0].ID != "cy:1" {
		t.Fatalf("cycles = %+v", body.Cycles)
	}
}

func TestCheckOrigin(t *testing.T) {
	t.Parallel()

	s := New(Config{CORSOrigin: "https://panel.example.test"}, &fakeSessions{}, &fakeCycles{}, nil, logx.Nop(), nil)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "https://panel.example.test")
	if !s.checkOrigin(req) {
		t.Fatal("matching origin rejected")
	}
	req.Header.Set("Origin", "https://evil.example.test")
	if s.checkOrigin(req) {
		t.Fatal("mismatched origin accepted")
	}

	open := New(Config{CORSOrigin: "*"}, &fakeSessions{}, &fakeCycles{}, nil, logx.Nop(), nil)
	if !open.checkOrigin(req) {
		t.Fatal("wildcard origin rejected")
	}
}
