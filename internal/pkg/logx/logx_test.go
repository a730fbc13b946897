package logx

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestAnonymizeIP(t *testing.T) {
	cases := map[string]string{
		"203.0.113.77:5120":         "203.0.113.0",
		"198.51.100.9":              "198.51.100.0",
		"[2001:db8:1:2:3:4:5:6]:80": "2001:db8:1:2::",
		"127.0.0.1:9000":            "127.0.0.1",
		"[::1]:9000":                "127.0.0.1",
		"not-an-ip":                 "unknown_ip",
	}

	for in, want := range cases {
		if got := AnonymizeIP(in); got != want {
			t.Errorf("AnonymizeIP(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	if got := ParseLevel("WARN", zerolog.InfoLevel); got != zerolog.WarnLevel {
		t.Fatalf("ParseLevel(WARN) = %v", got)
	}
	if got := ParseLevel("bogus", zerolog.ErrorLevel); got != zerolog.ErrorLevel {
		t.Fatalf("ParseLevel(bogus) = %v, want fallback", got)
	}
}

func TestInitGlobalLoggerProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	InitGlobalLogger(Options{Level: "info", Output: &buf})
	t.Cleanup(func() { InitGlobalLogger(Options{Level: "error", Output: &bytes.Buffer{}}) })

	Debug("hidden")
	Info("relay started", "port", 8000)

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("expected exactly one JSON line, got %q: %v", buf.String(), err)
	}
	if line["message"] != "relay started" {
		t.Fatalf("message = %v", line["message"])
	}
	if line["port"] != float64(8000) {
		t.Fatalf("port field = %v", line["port"])
	}
}

func TestOddFieldsAreDropped(t *testing.T) {
	var buf bytes.Buffer
	InitGlobalLogger(Options{Level: "debug", Output: &buf})
	t.Cleanup(func() { InitGlobalLogger(Options{Level: "error", Output: &bytes.Buffer{}}) })

	Warn("odd", "dangling")

	if !bytes.Contains(buf.Bytes(), []byte("odd number of fields")) {
		t.Fatalf("expected a warning about odd fields, got %q", buf.String())
	}
}
