package session

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"syncboard/internal/app/protocol"
	"syncboard/internal/pkg/errs"
	"syncboard/internal/pkg/logx"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// DefaultSendQueue is the number of encoded messages Conn buffers before Send fails.
	DefaultSendQueue = 256

	maxFrameBytes = 8192
)

// Conn is a client connection to the relay. Send is safe for concurrent use.
type Conn struct {
	ws *websocket.Conn

	send   chan []byte
	frames chan []byte

	// closed by Close.
	done chan struct{}
	// closed when the read side stops.
	lost chan struct{}
	// closed when the writer has flushed and exited.
	flushed chan struct{}

	closeOnce sync.Once

	logger zerolog.Logger
}

// Dial connects to the relay at url. header may carry an Origin.
func Dial(ctx context.Context, url string, header http.Header) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("dial relay %s: %w", url, err)
	}

	c := &Conn{
		ws:      ws,
		send:    make(chan []byte, DefaultSendQueue),
		frames:  make(chan []byte, DefaultSendQueue),
		done:    make(chan struct{}),
		lost:    make(chan struct{}),
		flushed: make(chan struct{}),
		logger:  logx.Component("relay_client").With().Str("url", url).Logger(),
	}

	go c.readLoop()
	go c.writeLoop()

	return c, nil
}

// Frames delivers every frame received from the relay. It is closed when the
// connection is lost or closed.
func (c *Conn) Frames() <-chan []byte {
	return c.frames
}

// Send encodes msg and queues it. It never blocks.
func (c *Conn) Send(msg protocol.Message) error {
	select {
	case <-c.done:
		return errs.NewError(errs.ErrNotConnected)
	case <-c.lost:
		return errs.NewError(errs.ErrNotConnected)
	default:
	}

	frame, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	select {
	case c.send <- frame:
		return nil
	default:
		return errs.NewError(errs.ErrSendQueueFull, cap(c.send))
	}
}

// Close flushes queued messages, sends a close frame and releases the connection.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		<-c.flushed
		err = c.ws.Close()
	})
	return err
}

func (c *Conn) readLoop() {
	defer func() {
		close(c.lost)
		close(c.frames)
	}()

	c.ws.SetReadLimit(maxFrameBytes)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, payload, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Warn().Err(err).Msg("Relay connection lost")
			}
			return
		}

		if messageType != websocket.TextMessage {
			continue
		}

		select {
		case c.frames <- payload:
		case <-c.done:
			return
		}
	}
}

func (c *Conn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(c.flushed)
	}()

	for {
		select {
		case frame := <-c.send:
			if !c.write(websocket.TextMessage, frame) {
				_ = c.ws.Close()
				return
			}

		case <-ticker.C:
			if !c.write(websocket.PingMessage, nil) {
				_ = c.ws.Close()
				return
			}

		case <-c.lost:
			return

		case <-c.done:
			c.drain()
			c.write(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// drain writes whatever is still queued.
func (c *Conn) drain() {
	for {
		select {
		case frame := <-c.send:
			if !c.write(websocket.TextMessage, frame) {
				return
			}
		default:
			return
		}
	}
}

func (c *Conn) write(messageType int, payload []byte) bool {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Debug().Err(err).Msg("Failed to set write deadline")
		return false
	}
	if err := c.ws.WriteMessage(messageType, payload); err != nil {
		c.logger.Debug().Err(err).Int("message_type", messageType).Msg("Write failed")
		return false
	}
	return true
}
