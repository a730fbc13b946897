/*
Package relay fans board messages out between connected participants.

This file defines the Peer, one websocket connection. ReadPump forwards inbound frames
to the hub verbatim; WritePump drains the peer's queue and keeps the heartbeat going.
*/
package relay

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"syncboard/internal/pkg/logx"
	"syncboard/internal/pkg/randx"
)

const (
	// timeout for writing one frame to the connection.
	writeWait = 10 * time.Second

	// time allowed without hearing a pong from the participant.
	pongWait = 60 * time.Second

	// ping frequency; must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// DefaultQueueSize is the outbound queue length when PeerOptions leaves it unset.
	DefaultQueueSize = 256

	// DefaultMaxMessageBytes is the inbound frame limit when PeerOptions leaves it unset.
	DefaultMaxMessageBytes = 8192
)

// PeerOptions tunes a single connection.
type PeerOptions struct {
	QueueSize       int
	MaxMessageBytes int64
	RemoteIP        string
}

// Peer is one participant connection registered with a Hub.
type Peer struct {
	// ID is the connection ID; the relay assigns no other identity.
	ID string

	hub  *Hub
	conn *websocket.Conn

	// outbound frames; closed only by the hub.
	send chan Envelope

	maxMessageBytes int64

	// frames read from this peer and handed to the hub.
	relayed atomic.Int64

	// frames addressed to this peer that were dropped because its queue was full.
	dropped atomic.Int64

	logger zerolog.Logger
}

// NewPeer wraps an upgraded connection.
func NewPeer(hub *Hub, conn *websocket.Conn, opts PeerOptions) *Peer {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.MaxMessageBytes <= 0 {
		opts.MaxMessageBytes = DefaultMaxMessageBytes
	}

	id := randx.ConnectionID()

	return &Peer{
		ID:              id,
		hub:             hub,
		conn:            conn,
		send:            make(chan Envelope, opts.QueueSize),
		maxMessageBytes: opts.MaxMessageBytes,
		logger: logx.Logger().With().
			Str("conn_id", id).
			Str("remote_ip", logx.AnonymizeIP(opts.RemoteIP)).
			Logger(),
	}
}

// Relayed returns how many frames this peer has sent into the hub.
func (p *Peer) Relayed() int64 {
	return p.relayed.Load()
}

// Dropped returns how many frames addressed to this peer were discarded.
func (p *Peer) Dropped() int64 {
	return p.dropped.Load()
}

// ReadPump reads frames until the connection fails, handing each one to the hub.
// On return the peer is unregistered and the connection is closed.
func (p *Peer) ReadPump() {
	defer p.cleanupOnDisconnect()

	p.conn.SetReadLimit(p.maxMessageBytes)

	if err := p.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		p.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, payload, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				p.logger.Info().Err(err).Msg("Connection closed unexpectedly")
			}
			return
		}

		p.relayed.Add(1)
		p.hub.Broadcast(Envelope{From: p.ID, Type: messageType, Payload: payload})
	}
}

func (p *Peer) cleanupOnDisconnect() {
	p.hub.Unregister(p)

	if err := p.conn.Close(); err != nil {
		p.logger.Debug().Err(err).Msg("Connection close error")
	}

	p.logger.Info().
		Int64("relayed", p.Relayed()).
		Int64("dropped", p.Dropped()).
		Msg("Peer connection cleaned up.")
}

// WritePump writes queued frames and periodic pings until the queue is closed or a
// write fails.
func (p *Peer) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := p.conn.Close(); err != nil {
			p.logger.Debug().Err(err).Msg("Connection close error in WritePump")
		}
	}()

	for {
		select {
		case envelope, ok := <-p.send:
			if !p.writeQueued(envelope, ok) {
				return
			}

		case <-ticker.C:
			if !p.writePing() {
				return
			}
		}
	}
}

// writeQueued writes one frame, or a close frame when the queue has been closed.
// It returns false when the pump should stop.
func (p *Peer) writeQueued(envelope Envelope, ok bool) bool {
	if err := p.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		p.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := p.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			p.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := p.conn.WriteMessage(envelope.Type, envelope.Payload); err != nil {
		p.logger.Warn().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

func (p *Peer) writePing() bool {
	if err := p.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		p.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		p.logger.Warn().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
