/*
Command watch joins a board as a silent participant and logs what it would render.

It is a headless session client that writes to the log whatever a screen would show.
On SIGINT or SIGTERM it announces its departure and disconnects.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"syncboard/internal/app/session"
	"syncboard/internal/pkg/logx"
	"syncboard/internal/pkg/randx"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		url        string
		name       string
		origin     string
		logLevel   string
		dev        bool
		staleAfter time.Duration
	)

	flagSet := pflag.NewFlagSet("watch", pflag.ContinueOnError)
	flagSet.StringVar(&url, "url", "ws://localhost:8000/ws", "relay websocket URL")
	flagSet.StringVar(&name, "name", "", "participant name (default: a random watch_ name)")
	flagSet.StringVar(&origin, "origin", "", "Origin header to present to the relay")
	flagSet.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	flagSet.BoolVar(&dev, "dev", false, "human-readable console logs")
	flagSet.DurationVar(&staleAfter, "stale-after", 0, "drop labels not refreshed for this long (0 keeps them)")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	logx.InitGlobalLogger(logx.Options{Development: dev, Level: logLevel})

	if name == "" {
		generated, err := randx.Name("watch")
		if err != nil {
			return fmt.Errorf("generate name: %w", err)
		}
		name = generated
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}

	conn, err := session.Dial(ctx, url, header)
	if err != nil {
		return err
	}
	defer conn.Close()

	logger := logx.Component("watch")
	out := &logSurface{logger: logger}

	s, err := session.New(session.Config{
		Username:   name,
		Canvas:     out,
		Theme:      out,
		Labels:     out,
		Sender:     conn,
		StaleAfter: staleAfter,
	})
	if err != nil {
		return err
	}

	logger.Info().Str("url", url).Str("name", s.Username()).Msg("Watching board")

	err = s.Run(ctx, conn.Frames(), nil)
	s.Leave()

	logger.Info().Int64("strokes", out.strokes).Int64("erases", out.erases).Msg("Stopped watching")

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// logSurface stands in for a screen. It logs each completed drawing operation.
type logSurface struct {
	logger zerolog.Logger

	from, to [2]float64
	strokes  int64
	erases   int64
}

func (l *logSurface) BeginPath() {}

func (l *logSurface) MoveTo(x, y float64) { l.from = [2]float64{x, y} }

func (l *logSurface) LineTo(x, y float64) { l.to = [2]float64{x, y} }

func (l *logSurface) Stroke(style session.StrokeStyle) {
	l.strokes++
	l.logger.Debug().
		Floats64("from", l.from[:]).
		Floats64("to", l.to[:]).
		Str("color", style.Color).
		Float64("width", style.Width).
		Msg("stroke")
}

func (l *logSurface) FillCircle(x, y, radius float64, op session.CompositeOp) {
	l.erases++
	l.logger.Debug().Float64("x", x).Float64("y", y).Float64("radius", radius).Msg("erase")
}

func (l *logSurface) ClearAll() {
	l.logger.Info().Msg("Board cleared")
}

func (l *logSurface) SetDarkMode(enabled bool) {
	l.logger.Info().Bool("dark_mode", enabled).Msg("Theme changed")
}

func (l *logSurface) RenderLabels(labels []session.Label) {
	names := make([]string, len(labels))
	for i, label := range labels {
		names[i] = label.Name
	}
	l.logger.Debug().Strs("participants", names).Msg("labels")
}
