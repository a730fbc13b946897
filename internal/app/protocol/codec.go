package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrMalformed is returned for frames that are not a JSON object or lack a required field.
	ErrMalformed = errors.New("malformed message")

	// ErrUnknownAction is returned for well-formed frames with an unrecognized discriminator.
	ErrUnknownAction = errors.New("unknown action")
)

// wireMessage is the flat JSON shape shared by every kind.
// Pointers distinguish an absent field from its zero value.
type wireMessage struct {
	Action    Action   `json:"action"`
	X         *float64 `json:"x,omitempty"`
	Y         *float64 `json:"y,omitempty"`
	Color     *string  `json:"color,omitempty"`
	Size      *number  `json:"size,omitempty"`
	Username  *string  `json:"username,omitempty"`
	NewStroke *bool    `json:"newStroke,omitempty"`
	State     *bool    `json:"state,omitempty"`
}

// number accepts a JSON number or a string holding one.
// Browser range inputs report their value as a string.
type number float64

func (n *number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("size %q is not numeric", s)
		}
		*n = number(v)
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = number(v)
	return nil
}

// Decode parses one frame. Unused fields are ignored.
func Decode(frame []byte) (Message, error) {
	var w wireMessage
	if err := json.Unmarshal(frame, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch w.Action {
	case ActionClear:
		return Clear{}, nil

	case ActionDarkMode:
		if w.State == nil {
			return nil, missing(w.Action, "state")
		}
		return DarkMode{Enabled: *w.State}, nil

	case ActionErase:
		if err := require(w, "x", "y", "size"); err != nil {
			return nil, err
		}
		return Erase{Point: Point{X: *w.X, Y: *w.Y}, Size: float64(*w.Size)}, nil

	case ActionCursor:
		if err := require(w, "x", "y", "username"); err != nil {
			return nil, err
		}
		return Cursor{Point: Point{X: *w.X, Y: *w.Y}, Username: *w.Username}, nil

	case ActionDraw:
		if err := require(w, "x", "y", "color", "size", "username", "newStroke"); err != nil {
			return nil, err
		}
		return Draw{
			Point:     Point{X: *w.X, Y: *w.Y},
			Color:     *w.Color,
			Size:      float64(*w.Size),
			Username:  *w.Username,
			NewStroke: *w.NewStroke,
		}, nil

	case ActionLeave:
		if err := require(w, "username"); err != nil {
			return nil, err
		}
		return Leave{Username: *w.Username}, nil

	case "":
		return nil, missing(w.Action, "action")

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, w.Action)
	}
}

func require(w wireMessage, fields ...string) error {
	for _, field := range fields {
		var present bool
		switch field {
		case "x":
			present = w.X != nil
		case "y":
			present = w.Y != nil
		case "color":
			present = w.Color != nil
		case "size":
			present = w.Size != nil
		case "username":
			present = w.Username != nil
		case "newStroke":
			present = w.NewStroke != nil
		}
		if !present {
			return missing(w.Action, field)
		}
	}
	return nil
}

func missing(action Action, field string) error {
	return fmt.Errorf("%w: %s message without %q", ErrMalformed, action, field)
}

// Encode renders m as a single JSON object.
func Encode(m Message) ([]byte, error) {
	w := wireMessage{Action: m.Action()}

	switch msg := m.(type) {
	case Draw:
		size := number(msg.Size)
		w.X, w.Y = &msg.X, &msg.Y
		w.Color = &msg.Color
		w.Size = &size
		w.Username = &msg.Username
		w.NewStroke = &msg.NewStroke

	case Erase:
		size := number(msg.Size)
		w.X, w.Y = &msg.X, &msg.Y
		w.Size = &size

	case Cursor:
		// Browser peers expect newStroke on cursor frames; receivers ignore it.
		newStroke := true
		w.X, w.Y = &msg.X, &msg.Y
		w.Username = &msg.Username
		w.NewStroke = &newStroke

	case DarkMode:
		w.State = &msg.Enabled

	case Leave:
		w.Username = &msg.Username

	case Clear:

	default:
		return nil, fmt.Errorf("encode: unsupported message type %T", m)
	}

	return json.Marshal(w)
}
