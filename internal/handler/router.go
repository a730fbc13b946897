/*
Package handler provides the relay's HTTP surface.

This file defines the Router, applying CORS, request IDs, real-IP extraction, request
logging and panic recovery before delegating to the health check and the websocket
endpoint.
*/
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"syncboard/internal/pkg/limiter"
	"syncboard/internal/pkg/logx"
	"syncboard/internal/pkg/resp"
)

const (
	readBufferSize  = 4096
	writeBufferSize = 4096
)

// Router builds the chi router. ctx bounds background work owned by the router
// (the connect limiter's sweeper).
func Router(ctx context.Context, deps *AppDeps) http.Handler {
	connectLimiter := limiter.NewIPRateLimiter(ctx, rate.Limit(deps.Config.ConnectRate), deps.Config.ConnectBurst)

	r := chi.NewRouter()

	corsAllowedOrigins := deps.Config.AllowedOrigins
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	}

	c := cors.New(cors.Options{
		AllowedOrigins: corsAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/", HandleHealth(deps))
	r.Get("/health", HandleHealth(deps))

	upgrader := websocket.Upgrader{
		ReadBufferSize:  readBufferSize,
		WriteBufferSize: writeBufferSize,
		CheckOrigin:     originChecker(deps),
	}
	r.With(connectLimiter.Middleware).Get(deps.Config.WSPath, HandleWebSocket(deps, upgrader))

	return r
}

// HandleHealth reports liveness and the current participant count.
func HandleHealth(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, map[string]any{
			"status":       "ok",
			"service":      "syncboard relay",
			"participants": deps.Hub.Count(),
		})
	}
}
