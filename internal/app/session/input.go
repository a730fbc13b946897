package session

import (
	"context"
	"time"
)

// minPruneInterval bounds how often Run expires stale participants.
const minPruneInterval = 10 * time.Millisecond

// Input is a local user action fed to Run.
type Input interface {
	apply(s *Session)
}

// PointerDown presses the pointer at (X, Y).
type PointerDown struct{ X, Y float64 }

// PointerMove moves the pointer to (X, Y).
type PointerMove struct{ X, Y float64 }

// PointerUp releases the pointer.
type PointerUp struct{}

// ClearRequest clears the board for everyone.
type ClearRequest struct{}

// DarkModeToggle flips the theme for everyone.
type DarkModeToggle struct{}

// ColorChange selects a brush color.
type ColorChange struct{ Color string }

// SizeChange selects a brush size.
type SizeChange struct{ Size float64 }

// EraserToggle switches between brush and eraser.
type EraserToggle struct{}

func (e PointerDown) apply(s *Session)  { s.PointerDown(e.X, e.Y) }
func (e PointerMove) apply(s *Session)  { s.PointerMove(e.X, e.Y) }
func (PointerUp) apply(s *Session)      { s.PointerUp() }
func (ClearRequest) apply(s *Session)   { s.ClearCanvas() }
func (DarkModeToggle) apply(s *Session) { s.ToggleDarkMode() }
func (e ColorChange) apply(s *Session)  { s.SetColor(e.Color) }
func (e SizeChange) apply(s *Session)   { s.SetSize(e.Size) }
func (EraserToggle) apply(s *Session)   { s.ToggleEraser() }

// Run serializes relay frames and local input onto the session until ctx is done or
// both channels are closed. A closed frames channel means the relay is gone; local
// drawing keeps working.
func (s *Session) Run(ctx context.Context, frames <-chan []byte, inputs <-chan Input) error {
	var tick <-chan time.Time
	if s.registry.ttl > 0 {
		ticker := time.NewTicker(max(s.registry.ttl/2, minPruneInterval))
		defer ticker.Stop()
		tick = ticker.C
	}

	for frames != nil || inputs != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case frame, ok := <-frames:
			if !ok {
				frames = nil
				s.unsynced = true
				s.logger.Warn().Msg("Relay connection closed; continuing offline")
				continue
			}
			s.HandleFrame(frame)

		case in, ok := <-inputs:
			if !ok {
				inputs = nil
				continue
			}
			in.apply(s)

		case <-tick:
			s.Tick()
		}
	}

	return nil
}
