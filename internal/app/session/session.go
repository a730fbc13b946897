package session

import (
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"syncboard/internal/app/protocol"
	"syncboard/internal/pkg/errs"
	"syncboard/internal/pkg/logx"
)

// ErrUsernameRequired is returned by New for an empty or whitespace-only name.
var ErrUsernameRequired = errs.NewError(errs.ErrUsernameRequired)

// Config wires a Session to its collaborators.
type Config struct {
	// Username is trimmed; it must not be empty.
	Username string

	// Canvas is required.
	Canvas Canvas

	// Theme, Labels and Sender are optional. Without a Sender the session is local only.
	Theme  Theme
	Labels LabelSink
	Sender Sender

	// StaleAfter expires registry entries not refreshed for this long. Zero keeps them forever.
	StaleAfter time.Duration

	// Now is the clock used for registry timestamps. Defaults to time.Now.
	Now func() time.Time
}

// Session is one participant's board state. It is not safe for concurrent use;
// drive it from a single goroutine, for example with Run.
type Session struct {
	username string

	canvas Canvas
	theme  Theme
	labels LabelSink
	sender Sender
	now    func() time.Time

	tool     Tool
	darkMode bool

	// local stroke state
	drawing      bool
	awaitingMove bool
	localLast    protocol.Point
	cursor       protocol.Point

	// remote stroke state: last point of each sender's in-progress path
	paths map[string]protocol.Point

	registry *Registry

	// set after the first failed send; cleared by the next successful one
	unsynced bool

	logger zerolog.Logger
}

// New validates cfg and returns a Session using the default tool.
func New(cfg Config) (*Session, error) {
	name := strings.TrimSpace(cfg.Username)
	if name == "" {
		return nil, ErrUsernameRequired
	}
	if cfg.Canvas == nil {
		return nil, errors.New("session: canvas is required")
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Session{
		username: name,
		canvas:   cfg.Canvas,
		theme:    cfg.Theme,
		labels:   cfg.Labels,
		sender:   cfg.Sender,
		now:      now,
		tool:     DefaultTool(),
		paths:    make(map[string]protocol.Point),
		registry: NewRegistry(cfg.StaleAfter),
		logger:   logx.Logger().With().Str("component", "session").Str("username", name).Logger(),
	}, nil
}

// Username returns the local participant's name.
func (s *Session) Username() string { return s.username }

// Tool returns the current tool selection.
func (s *Session) Tool() Tool { return s.tool }

// DarkMode reports the current theme state.
func (s *Session) DarkMode() bool { return s.darkMode }

// Drawing reports whether the pointer is down.
func (s *Session) Drawing() bool { return s.drawing }

// Cursor returns the last local pointer position.
func (s *Session) Cursor() protocol.Point { return s.cursor }

// Registry exposes the participant registry for inspection.
func (s *Session) Registry() *Registry { return s.registry }

// Synced reports whether the last send succeeded.
func (s *Session) Synced() bool { return !s.unsynced }

// SetSender attaches or replaces the relay connection.
func (s *Session) SetSender(sender Sender) { s.sender = sender }

// --- local input ---

// PointerDown starts a stroke at (x, y). With the eraser selected it stamps instead.
func (s *Session) PointerDown(x, y float64) {
	p := protocol.Point{X: x, Y: y}
	s.drawing = true

	if s.tool.Eraser {
		s.awaitingMove = false
		s.erase(p, s.tool.Size)
		s.send(protocol.Erase{Point: p, Size: s.tool.Size})
		return
	}

	s.awaitingMove = true
	s.localLast = s.plot(nil, p, s.tool.style())
	s.send(s.draw(p, true))
}

// PointerMove always reports the cursor; while drawing it also extends the stroke
// or stamps the eraser.
func (s *Session) PointerMove(x, y float64) {
	p := protocol.Point{X: x, Y: y}
	s.cursor = p
	s.send(protocol.Cursor{Point: p, Username: s.username})

	if !s.drawing {
		return
	}

	if s.tool.Eraser {
		s.erase(p, s.tool.Size)
		s.send(protocol.Erase{Point: p, Size: s.tool.Size})
		return
	}

	// The first move restarts the path so it is never joined to the press point.
	if s.awaitingMove {
		s.awaitingMove = false
		s.localLast = s.plot(nil, p, s.tool.style())
		s.send(s.draw(p, true))
		return
	}

	s.localLast = s.plot(&s.localLast, p, s.tool.style())
	s.send(s.draw(p, false))
}

// PointerUp ends the stroke. Nothing is sent.
func (s *Session) PointerUp() {
	s.drawing = false
	s.awaitingMove = false
}

// ClearCanvas wipes the local canvas and tells everyone else to do the same.
func (s *Session) ClearCanvas() {
	s.canvas.ClearAll()
	s.send(protocol.Clear{})
}

// ToggleDarkMode flips the theme locally and broadcasts the new state.
func (s *Session) ToggleDarkMode() {
	s.setDarkMode(!s.darkMode)
	s.send(protocol.DarkMode{Enabled: s.darkMode})
}

// SetColor selects a brush color. Picking a color leaves eraser mode.
func (s *Session) SetColor(color string) {
	s.tool.Color = color
	s.tool.Eraser = false
}

// SetSize selects the brush and eraser diameter. Non-positive sizes are ignored.
func (s *Session) SetSize(size float64) {
	if size > 0 {
		s.tool.Size = size
	}
}

// ToggleEraser switches between brush and eraser.
func (s *Session) ToggleEraser() {
	s.tool.Eraser = !s.tool.Eraser
}

// Leave announces that this participant is going away.
func (s *Session) Leave() {
	s.send(protocol.Leave{Username: s.username})
}

// --- remote messages ---

// HandleFrame decodes a frame from the relay and applies it.
// Malformed frames and unknown actions are dropped.
func (s *Session) HandleFrame(frame []byte) {
	msg, err := protocol.Decode(frame)
	if err != nil {
		if errors.Is(err, protocol.ErrUnknownAction) {
			s.logger.Debug().Err(err).Msg("Ignoring message with unknown action")
		} else {
			s.logger.Debug().Err(err).Int("frame_len", len(frame)).Msg("Dropping malformed frame")
		}
		return
	}

	// The relay never echoes, so this is another participant using the same name.
	if name, ok := protocol.Sender(msg); ok && name == s.username {
		s.logger.Debug().Str("action", string(msg.Action())).Msg("Frame carries the local participant's name")
	}

	s.Apply(msg)
}

// Apply renders or records one message from another participant.
func (s *Session) Apply(msg protocol.Message) {
	switch m := msg.(type) {
	case protocol.Clear:
		s.canvas.ClearAll()

	case protocol.DarkMode:
		s.setDarkMode(m.Enabled)

	case protocol.Erase:
		s.erase(m.Point, m.Size)

	case protocol.Cursor:
		s.touch(m.Username, m.Point)

	case protocol.Draw:
		var prev *protocol.Point
		if last, ok := s.paths[m.Username]; ok && !m.NewStroke {
			prev = &last
		}
		s.paths[m.Username] = s.plot(prev, m.Point, StrokeStyle{Color: m.Color, Width: m.Size})
		s.touch(m.Username, m.Point)

	case protocol.Leave:
		s.forget(m.Username)

	default:
		s.logger.Debug().Str("action", string(msg.Action())).Msg("Ignoring unhandled message kind")
	}
}

// Tick expires stale registry entries. It is a no-op without StaleAfter.
func (s *Session) Tick() {
	removed := s.registry.Prune(s.now())
	if len(removed) == 0 {
		return
	}
	for _, name := range removed {
		delete(s.paths, name)
	}
	s.logger.Debug().Strs("names", removed).Msg("Expired stale participants")
	s.renderLabels()
}

// --- helpers ---

// plot draws one step of a path and returns the new path end. A nil prev starts a
// new path, rendered as a dot at p; otherwise a segment joins prev to p.
func (s *Session) plot(prev *protocol.Point, p protocol.Point, style StrokeStyle) protocol.Point {
	from := p
	if prev != nil {
		from = *prev
	}

	s.canvas.BeginPath()
	s.canvas.MoveTo(from.X, from.Y)
	s.canvas.LineTo(p.X, p.Y)
	s.canvas.Stroke(style)

	return p
}

func (s *Session) erase(p protocol.Point, size float64) {
	s.canvas.FillCircle(p.X, p.Y, size/2, DestinationOut)
}

func (s *Session) draw(p protocol.Point, newStroke bool) protocol.Draw {
	return protocol.Draw{
		Point:     p,
		Color:     s.tool.Color,
		Size:      s.tool.Size,
		Username:  s.username,
		NewStroke: newStroke,
	}
}

func (s *Session) setDarkMode(enabled bool) {
	s.darkMode = enabled
	if s.theme != nil {
		s.theme.SetDarkMode(enabled)
	}
}

// touch moves name's label. The local participant and nameless messages never get one.
func (s *Session) touch(name string, p protocol.Point) {
	if name == "" || name == s.username {
		return
	}
	s.registry.Touch(name, p, s.now())
	s.renderLabels()
}

func (s *Session) forget(name string) {
	delete(s.paths, name)
	if name == s.username {
		return
	}
	if s.registry.Remove(name) {
		s.renderLabels()
	}
}

func (s *Session) renderLabels() {
	if s.labels != nil {
		s.labels.RenderLabels(s.registry.Labels(s.username))
	}
}

func (s *Session) send(msg protocol.Message) {
	if s.sender == nil {
		return
	}

	if err := s.sender.Send(msg); err != nil {
		if !s.unsynced {
			s.logger.Warn().Err(err).Msg("Relay unreachable; drawing continues locally")
		} else {
			s.logger.Debug().Err(err).Str("action", string(msg.Action())).Msg("Send failed")
		}
		s.unsynced = true
		return
	}

	if s.unsynced {
		s.logger.Info().Msg("Relay reachable again")
		s.unsynced = false
	}
}
