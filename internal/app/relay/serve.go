package relay

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

// ledgerTimeout bounds each ledger write so a slow database never holds a connection.
const ledgerTimeout = 3 * time.Second

// Ledger records connection lifecycles. It never sees payloads.
type Ledger interface {
	Opened(ctx context.Context, connID, remoteIP string)
	Closed(ctx context.Context, connID string, relayed, dropped int64)
}

// NopLedger discards every record.
type NopLedger struct{}

func (NopLedger) Opened(context.Context, string, string)       {}
func (NopLedger) Closed(context.Context, string, int64, int64) {}

// Serve runs one upgraded connection to completion: it records the connection,
// registers the peer, pumps frames both ways and records the close.
// It blocks until the participant disconnects or the hub stops.
func (h *Hub) Serve(conn *websocket.Conn, opts PeerOptions, ledger Ledger) {
	if ledger == nil {
		ledger = NopLedger{}
	}

	peer := NewPeer(h, conn, opts)

	if !h.Register(peer) {
		peer.logger.Warn().Msg("Hub stopped before the peer could register; closing.")
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "relay shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	// The queue drains from the moment of registration, even while the ledger is slow.
	go peer.WritePump()

	ctx, cancel := context.WithTimeout(context.Background(), ledgerTimeout)
	ledger.Opened(ctx, peer.ID, opts.RemoteIP)
	cancel()

	peer.ReadPump()

	ctx, cancel = context.WithTimeout(context.Background(), ledgerTimeout)
	ledger.Closed(ctx, peer.ID, peer.Relayed(), peer.Dropped())
	cancel()
}
