/*
Package session is one participant's view of the board.

A Session turns local pointer input into wire messages while drawing them immediately,
and applies messages from other participants to the same canvas. Pixels and name
labels are left to the collaborators declared in this file.
*/
package session

import "syncboard/internal/app/protocol"

// CompositeOp selects how FillCircle combines with existing pixels.
type CompositeOp int

const (
	// SourceOver paints on top of existing content.
	SourceOver CompositeOp = iota

	// DestinationOut clears existing content to transparent where the shape covers it.
	DestinationOut
)

// StrokeStyle describes how a path is stroked. Caps and joins are always round.
type StrokeStyle struct {
	Color string
	Width float64
}

// Canvas is the raster surface. Implementations need not be safe for concurrent use;
// a Session calls it from one goroutine.
type Canvas interface {
	BeginPath()
	MoveTo(x, y float64)
	LineTo(x, y float64)
	Stroke(style StrokeStyle)
	FillCircle(x, y, radius float64, op CompositeOp)
	ClearAll()
}

// Theme receives the cosmetic light/dark state.
type Theme interface {
	SetDarkMode(enabled bool)
}

// Label is one floating name tag at a participant's last known position.
type Label struct {
	Name string
	X    float64
	Y    float64
}

// LabelSink renders the complete label set. Each call replaces the previous one.
type LabelSink interface {
	RenderLabels(labels []Label)
}

// Sender delivers a message to the relay.
type Sender interface {
	Send(msg protocol.Message) error
}
