package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"syncboard/internal/app/relay"
	"syncboard/internal/configs"
	"syncboard/internal/pkg/errs"
	"syncboard/internal/pkg/resp"
)

func testConfig() *configs.AppConfig {
	return &configs.AppConfig{
		Environment:     "production",
		Port:            8000,
		WSPath:          "/ws",
		AllowedOrigins:  []string{"https://board.example"},
		ConnectRate:     100,
		ConnectBurst:    100,
		SendQueueSize:   16,
		MaxMessageBytes: 8192,
	}
}

func startServer(t *testing.T, cfg *configs.AppConfig) (*relay.Hub, *httptest.Server) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	hub := relay.NewHub()
	go hub.Run()

	srv := httptest.NewServer(Router(ctx, &AppDeps{Hub: hub, Config: cfg, Ledger: relay.NopLedger{}}))
	t.Cleanup(func() {
		hub.Stop()
		<-hub.Done()
		srv.Close()
		cancel()
	})
	return hub, srv
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func TestHealthReportsParticipants(t *testing.T) {
	_, srv := startServer(t, testConfig())

	res, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer res.Body.Close()

	var body resp.JSONResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	data, ok := body.Data.(map[string]any)
	if !ok || data["status"] != "ok" || data["participants"] != float64(0) {
		t.Fatalf("health body = %+v", body)
	}
}

func TestWebSocketRelaysBetweenParticipants(t *testing.T) {
	hub, srv := startServer(t, testConfig())

	header := http.Header{"Origin": []string{"https://board.example"}}
	a, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws"), header)
	if err != nil {
		t.Fatalf("dial a: %v", err)
	}
	defer a.Close()
	b, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws"), header)
	if err != nil {
		t.Fatalf("dial b: %v", err)
	}
	defer b.Close()

	deadline := time.Now().Add(5 * time.Second)
	for hub.Count() != 2 {
		if time.Now().After(deadline) {
			t.Fatalf("hub has %d peers", hub.Count())
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := a.WriteMessage(websocket.TextMessage, []byte(`{"action":"clear"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	b.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := b.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(payload) != `{"action":"clear"}` {
		t.Fatalf("payload = %q", payload)
	}
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	_, srv := startServer(t, testConfig())

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, res, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws"), header)
	if err == nil {
		t.Fatal("dial with a foreign origin should fail")
	}
	if res == nil || res.StatusCode != http.StatusForbidden {
		t.Fatalf("response = %+v, want 403", res)
	}
	defer res.Body.Close()

	var body resp.JSONResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != errs.ErrOriginNotAllowed {
		t.Fatalf("code = %d", body.Code)
	}
}

func TestWebSocketConnectRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.ConnectRate = 0.001
	cfg.ConnectBurst = 1
	_, srv := startServer(t, cfg)

	first, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws"), nil)
	if err != nil {
		t.Fatalf("first dial: %v", err)
	}
	defer first.Close()

	_, res, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws"), nil)
	if err == nil {
		t.Fatal("second dial should be rate limited")
	}
	if res == nil || res.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("response = %+v, want 429", res)
	}
	res.Body.Close()
}
