package relay

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type recordingLedger struct {
	mu     sync.Mutex
	opened []string
	closed map[string]int64
}

func (l *recordingLedger) Opened(_ context.Context, connID, _ string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.opened = append(l.opened, connID)
}

func (l *recordingLedger) Closed(_ context.Context, connID string, relayed, _ int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed == nil {
		l.closed = make(map[string]int64)
	}
	l.closed[connID] = relayed
}

func (l *recordingLedger) snapshot() (int, map[string]int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]int64, len(l.closed))
	for k, v := range l.closed {
		out[k] = v
	}
	return len(l.opened), out
}

// startRelay runs a hub behind an httptest server and returns its websocket URL.
func startRelay(t *testing.T, ledger Ledger) (*Hub, string) {
	t.Helper()

	hub := NewHub()
	go hub.Run()

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(conn, PeerOptions{QueueSize: 16, RemoteIP: r.RemoteAddr}, ledger)
	}))

	t.Cleanup(func() {
		hub.Stop()
		<-hub.Done()
		srv.Close()
	})

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForPeers(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if hub.Count() == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("hub has %d peers, want %d", hub.Count(), n)
}

func readFrame(t *testing.T, conn *websocket.Conn, timeout time.Duration) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(timeout))
	defer conn.SetReadDeadline(time.Time{})
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return string(payload)
}

// expectSilence asserts that nothing arrives on conn within d.
// The connection is unusable afterwards: gorilla poisons a conn after a read timeout.
func expectSilence(t *testing.T, conn *websocket.Conn, d time.Duration) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(d))
	if _, payload, err := conn.ReadMessage(); err == nil {
		t.Fatalf("unexpected frame %q", payload)
	}
}

func TestFanOutExcludesSender(t *testing.T) {
	hub, url := startRelay(t, nil)

	const n = 4
	conns := make([]*websocket.Conn, n)
	for i := range conns {
		conns[i] = dial(t, url)
	}
	waitForPeers(t, hub, n)

	frame := `{"x":10,"y":10,"color":"#000","size":4,"username":"Alice","action":"draw","newStroke":true}`
	if err := conns[0].WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("write: %v", err)
	}

	for i := 1; i < n; i++ {
		if got := readFrame(t, conns[i], 2*time.Second); got != frame {
			t.Fatalf("peer %d got %q, want verbatim %q", i, got, frame)
		}
	}

	expectSilence(t, conns[0], 200*time.Millisecond)
}

func TestFanOutPreservesPerSenderOrder(t *testing.T) {
	hub, url := startRelay(t, nil)

	sender := dial(t, url)
	receiver := dial(t, url)
	waitForPeers(t, hub, 2)

	for i := 0; i < 50; i++ {
		frame := fmt.Sprintf(`{"action":"cursor","x":%d,"y":0,"username":"Alice"}`, i)
		if err := sender.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	for i := 0; i < 50; i++ {
		want := fmt.Sprintf(`{"action":"cursor","x":%d,"y":0,"username":"Alice"}`, i)
		if got := readFrame(t, receiver, 2*time.Second); got != want {
			t.Fatalf("frame %d = %q, want %q", i, got, want)
		}
	}
}

func TestRelayForwardsGarbageUnparsed(t *testing.T) {
	hub, url := startRelay(t, nil)

	a := dial(t, url)
	b := dial(t, url)
	waitForPeers(t, hub, 2)

	if err := a.WriteMessage(websocket.TextMessage, []byte("not json at all")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := readFrame(t, b, 2*time.Second); got != "not json at all" {
		t.Fatalf("got %q", got)
	}
}

func TestRelayPreservesBinaryFrames(t *testing.T) {
	hub, url := startRelay(t, nil)

	a := dial(t, url)
	b := dial(t, url)
	waitForPeers(t, hub, 2)

	payload := []byte{0x00, 0xff, 0x10}
	if err := a.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		t.Fatalf("write: %v", err)
	}

	b.SetReadDeadline(time.Now().Add(2 * time.Second))
	messageType, got, err := b.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if messageType != websocket.BinaryMessage || string(got) != string(payload) {
		t.Fatalf("got type %d payload %v, want binary %v", messageType, got, payload)
	}
}

func TestLateJoinerGetsNoHistory(t *testing.T) {
	hub, url := startRelay(t, nil)

	a := dial(t, url)
	b := dial(t, url)
	waitForPeers(t, hub, 2)

	if err := a.WriteMessage(websocket.TextMessage, []byte(`{"action":"clear"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	readFrame(t, b, 2*time.Second)

	late := dial(t, url)
	waitForPeers(t, hub, 3)

	if err := b.WriteMessage(websocket.TextMessage, []byte(`{"action":"dark_mode","state":true}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := readFrame(t, late, 2*time.Second); got != `{"action":"dark_mode","state":true}` {
		t.Fatalf("late joiner's first frame = %q, want only the post-join message", got)
	}
}

func TestDisconnectRemovesPeerAndRecordsLedger(t *testing.T) {
	ledger := &recordingLedger{}
	hub, url := startRelay(t, ledger)

	a := dial(t, url)
	b := dial(t, url)
	waitForPeers(t, hub, 2)

	for i := 0; i < 3; i++ {
		if err := a.WriteMessage(websocket.TextMessage, []byte(`{"action":"clear"}`)); err != nil {
			t.Fatalf("write: %v", err)
		}
		readFrame(t, b, 2*time.Second)
	}

	a.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	a.Close()
	waitForPeers(t, hub, 1)

	// The survivor keeps working and hears nothing about the departure.
	c := dial(t, url)
	waitForPeers(t, hub, 2)
	if err := c.WriteMessage(websocket.TextMessage, []byte(`{"action":"clear"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := readFrame(t, b, 2*time.Second); got != `{"action":"clear"}` {
		t.Fatalf("survivor got %q", got)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		opened, closed := ledger.snapshot()
		if opened == 3 && len(closed) == 1 {
			for _, relayed := range closed {
				if relayed != 3 {
					t.Fatalf("relayed = %d, want 3", relayed)
				}
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("ledger opened=%d closed=%v", opened, closed)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// stallingLedger blocks Opened until release is closed.
type stallingLedger struct {
	release chan struct{}
}

func (l *stallingLedger) Opened(context.Context, string, string)       { <-l.release }
func (l *stallingLedger) Closed(context.Context, string, int64, int64) {}

func TestSlowLedgerDoesNotDelayDelivery(t *testing.T) {
	ledger := &stallingLedger{release: make(chan struct{})}
	hub, url := startRelay(t, ledger)
	t.Cleanup(func() { close(ledger.release) })

	conn := dial(t, url)
	waitForPeers(t, hub, 1)

	hub.Broadcast(Envelope{From: "elsewhere", Type: websocket.TextMessage, Payload: []byte(`{"action":"clear"}`)})

	if got := readFrame(t, conn, 2*time.Second); got != `{"action":"clear"}` {
		t.Fatalf("got %q", got)
	}
}

func TestSlowPeerDoesNotStallOthers(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	t.Cleanup(func() {
		hub.Stop()
		<-hub.Done()
	})

	// A peer with no WritePump never drains its queue.
	stuck := &Peer{ID: "stuck", hub: hub, send: make(chan Envelope, 1)}
	healthy := &Peer{ID: "healthy", hub: hub, send: make(chan Envelope, 64)}
	hub.Register(stuck)
	hub.Register(healthy)

	for i := 0; i < 10; i++ {
		hub.Broadcast(Envelope{From: "sender", Type: websocket.TextMessage, Payload: []byte(fmt.Sprint(i))})
	}

	for i := 0; i < 10; i++ {
		select {
		case got := <-healthy.send:
			if string(got.Payload) != fmt.Sprint(i) {
				t.Fatalf("healthy peer frame %d = %q", i, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("healthy peer starved at frame %d", i)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for stuck.Dropped() != 9 {
		if time.Now().After(deadline) {
			t.Fatalf("stuck peer dropped %d frames, want 9", stuck.Dropped())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestStopClosesPeerQueues(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	p := &Peer{ID: "p", hub: hub, send: make(chan Envelope, 1)}
	hub.Register(p)
	hub.Stop()
	<-hub.Done()

	if _, ok := <-p.send; ok {
		t.Fatal("peer queue should be closed after Stop")
	}
	if hub.Register(&Peer{ID: "late", hub: hub, send: make(chan Envelope)}) {
		t.Fatal("Register after Stop should report false")
	}
	hub.Stop()
}
