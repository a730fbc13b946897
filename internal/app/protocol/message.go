/*
Package protocol defines the board's wire messages.

A message is one JSON object whose "action" field selects the kind. Decode turns a
frame into exactly one of the concrete types below; everything downstream switches on
the Go type instead of probing fields.
*/
package protocol

// Action is the discriminator carried in the "action" field.
type Action string

const (
	ActionDraw     Action = "draw"
	ActionErase    Action = "erase"
	ActionCursor   Action = "cursor"
	ActionClear    Action = "clear"
	ActionDarkMode Action = "dark_mode"
	ActionLeave    Action = "leave"
)

// Message is implemented by every wire message kind.
type Message interface {
	Action() Action
	isMessage()
}

// Point is a canvas coordinate in CSS pixels relative to the canvas origin.
type Point struct {
	X float64
	Y float64
}

// Draw is one sampled point of a pen stroke.
// NewStroke marks the first point of a path; it must never be joined to a previous point.
type Draw struct {
	Point
	Color     string
	Size      float64
	Username  string
	NewStroke bool
}

// Erase stamps a transparent circle of diameter Size centred on the point.
type Erase struct {
	Point
	Size float64
}

// Cursor reports where a participant's pointer is.
type Cursor struct {
	Point
	Username string
}

// Clear wipes the whole canvas.
type Clear struct{}

// DarkMode switches the cosmetic theme.
type DarkMode struct {
	Enabled bool
}

// Leave announces that a participant is closing its session.
type Leave struct {
	Username string
}

func (Draw) Action() Action     { return ActionDraw }
func (Erase) Action() Action    { return ActionErase }
func (Cursor) Action() Action   { return ActionCursor }
func (Clear) Action() Action    { return ActionClear }
func (DarkMode) Action() Action { return ActionDarkMode }
func (Leave) Action() Action    { return ActionLeave }

func (Draw) isMessage()     {}
func (Erase) isMessage()    {}
func (Cursor) isMessage()   {}
func (Clear) isMessage()    {}
func (DarkMode) isMessage() {}
func (Leave) isMessage()    {}

// Sender returns the participant name a message carries, if its kind has one.
func Sender(m Message) (string, bool) {
	switch msg := m.(type) {
	case Draw:
		return msg.Username, true
	case Cursor:
		return msg.Username, true
	case Leave:
		return msg.Username, true
	default:
		return "", false
	}
}
