/*
Package relay fans board messages out between connected participants.

This file defines the Hub, which owns the active connection set. It registers and
removes peers and forwards every inbound frame, unmodified, to every peer except
the one that sent it. The hub never decodes payloads.
*/
package relay

import (
	"sync"

	"github.com/rs/zerolog"

	"syncboard/internal/pkg/logx"
)

const broadcastChannelBuffer = 1024

// Envelope is one inbound frame together with the connection it arrived on.
// Type is the websocket message type (text or binary) and is preserved on fan-out.
type Envelope struct {
	From    string
	Type    int
	Payload []byte
}

// Hub is the single event loop that serializes membership changes and fan-out.
type Hub struct {
	// peers currently connected, keyed by connection ID.
	peers map[string]*Peer

	// inbound frames waiting to be fanned out.
	broadcast chan Envelope

	register   chan *Peer
	unregister chan *Peer

	// closed by Stop; Run returns once it observes it.
	stopChan chan struct{}
	stopOnce sync.Once

	// closed when Run has returned and every peer queue is closed.
	done chan struct{}

	// mu protects peers for readers outside the loop (Count).
	mu sync.RWMutex

	logger zerolog.Logger
}

// NewHub creates a Hub. Call Run in its own goroutine before registering peers.
func NewHub() *Hub {
	return &Hub{
		peers:      make(map[string]*Peer),
		broadcast:  make(chan Envelope, broadcastChannelBuffer),
		register:   make(chan *Peer),
		unregister: make(chan *Peer),
		stopChan:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logx.Component("hub"),
	}
}

// Stop signals Run to exit. Safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		h.logger.Info().Msg("Received stop signal. Stopping hub.")
		close(h.stopChan)
	})
}

// Done is closed after Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Count returns the number of registered peers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// Run is the hub's event loop. It returns after Stop, closing every peer queue so
// that each WritePump sends a close frame and exits.
func (h *Hub) Run() {
	defer func() {
		h.mu.Lock()
		for id, peer := range h.peers {
			close(peer.send)
			delete(h.peers, id)
		}
		h.mu.Unlock()

		close(h.done)
		h.logger.Info().Msg("Hub Run loop finished.")
	}()

	for {
		select {
		case peer := <-h.register:
			h.mu.Lock()
			h.peers[peer.ID] = peer
			total := len(h.peers)
			h.mu.Unlock()

			peer.logger.Info().Int("total_peers", total).Msg("Peer joined board.")

		case peer := <-h.unregister:
			h.mu.Lock()
			current, ok := h.peers[peer.ID]
			if ok && current == peer {
				delete(h.peers, peer.ID)
				close(peer.send)
			}
			total := len(h.peers)
			h.mu.Unlock()

			if ok {
				peer.logger.Info().Int("total_peers", total).Msg("Peer left board.")
			} else {
				peer.logger.Debug().Msg("Unregister for unknown or already removed peer.")
			}

		case envelope := <-h.broadcast:
			h.fanOut(envelope)

		case <-h.stopChan:
			return
		}
	}
}

// fanOut enqueues the envelope for every peer except the sender. A full queue drops
// the frame for that peer only.
func (h *Hub) fanOut(envelope Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, peer := range h.peers {
		if id == envelope.From {
			continue
		}

		select {
		case peer.send <- envelope:
		default:
			peer.dropped.Add(1)
			peer.logger.Warn().
				Int("queue_len", len(peer.send)).
				Msg("Peer send queue full, dropping frame.")
		}
	}
}

// Register adds peer to the active set. Frames broadcast after Register returns
// are delivered to it; earlier frames are not. It reports false if the hub has stopped.
func (h *Hub) Register(peer *Peer) bool {
	select {
	case h.register <- peer:
		return true
	case <-h.stopChan:
		return false
	}
}

// Unregister removes peer from the active set and closes its queue.
func (h *Hub) Unregister(peer *Peer) {
	select {
	case h.unregister <- peer:
	case <-h.stopChan:
	}
}

// Broadcast queues a frame for fan-out. It blocks only while the broadcast buffer is
// full and gives up once the hub stops.
func (h *Hub) Broadcast(envelope Envelope) {
	select {
	case h.broadcast <- envelope:
	case <-h.stopChan:
	}
}
