/*
Package handler provides the relay's HTTP surface.

This file holds the websocket endpoint. Opening the channel is the whole handshake:
no query parameters or first message are required.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"syncboard/internal/app/relay"
	"syncboard/internal/pkg/errs"
	"syncboard/internal/pkg/limiter"
	"syncboard/internal/pkg/logx"
	"syncboard/internal/pkg/resp"
)

// originChecker allows every origin in development and the configured list otherwise.
// Requests without an Origin header (non-browser clients) are accepted.
func originChecker(deps *AppDeps) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(deps.Config.AllowedOrigins))
	for _, origin := range deps.Config.AllowedOrigins {
		allowed[origin] = struct{}{}
	}

	return func(r *http.Request) bool {
		if deps.Config.IsDevelopment() {
			return true
		}

		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := allowed[origin]; ok {
			return true
		}

		logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
		return false
	}
}

// HandleWebSocket upgrades the request and serves the connection until it closes.
func HandleWebSocket(deps *AppDeps, upgrader websocket.Upgrader) http.HandlerFunc {
	checkOrigin := upgrader.CheckOrigin
	// The upgrader would answer a bad origin with a bare 403; answer with the JSON envelope instead.
	upgrader.CheckOrigin = func(*http.Request) bool { return true }

	return func(w http.ResponseWriter, r *http.Request) {
		if checkOrigin != nil && !checkOrigin(r) {
			resp.RespondError(w, errs.NewError(errs.ErrOriginNotAllowed))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		deps.Hub.Serve(conn, relay.PeerOptions{
			QueueSize:       deps.Config.SendQueueSize,
			MaxMessageBytes: deps.Config.MaxMessageBytes,
			RemoteIP:        limiter.ClientIP(r),
		}, deps.Ledger)
	}
}
