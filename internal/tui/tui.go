// Package tui is the terminal front end. It draws the trace with
// termbox and maps the numeric keypad to the display commands.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	termbox "github.com/nsf/termbox-go"

	"oszifox-viewer/internal/acquire"
	"oszifox-viewer/internal/waveform"
)

// ErrQuit is returned by Run when the user leaves the viewer.
var ErrQuit = errors.New("tui: quit")

// redrawInterval bounds how stale the screen gets without new frames.
const redrawInterval = 250 * time.Millisecond

// Source yields the latest acquired frame.
type Source interface {
	Latest() (acquire.Snapshot, bool)
}

// Command maps a key event to a display command. quit is set for q and
// Esc; cmd is empty for keys without a binding.
func Command(ev termbox.Event) (cmd string, quit bool) {
	if ev.Type != termbox.EventKey {
		return "", false
	}
	switch ev.Key {
	case termbox.KeyEsc, termbox.KeyCtrlC:
		return "", true
	case termbox.KeySpace:
		return waveform.CmdPause, false
	case termbox.KeyArrowLeft:
		return waveform.CmdLeft, false
	case termbox.KeyArrowRight:
		return waveform.CmdRight, false
	case termbox.KeyArrowUp:
		return waveform.CmdUp, false
	case termbox.KeyArrowDown:
		return waveform.CmdDown, false
	case 0:
	default:
		return "", false
	}
	switch ev.Ch {
	case '4':
		return waveform.CmdLeft, false
	case '6':
		return waveform.CmdRight, false
	case '8':
		return waveform.CmdUp, false
	case '2':
		return waveform.CmdDown, false
	case '5':
		return waveform.CmdCenter, false
	case ' ':
		return waveform.CmdPause, false
	case 'q', 'Q':
		return "", true
	}
	return "", false
}

// Viewer runs the terminal display.
type Viewer struct {
	src     Source
	view    *waveform.View
	recon   *waveform.Reconstructor
	refresh chan struct{}
}

func New(src Source, view *waveform.View, recon *waveform.Reconstructor) *Viewer {
	return &Viewer{
		src:     src,
		view:    view,
		recon:   recon,
		refresh: make(chan struct{}, 1),
	}
}

// Notify schedules a redraw. It never blocks.
func (v *Viewer) Notify(acquire.Snapshot) {
	select {
	case v.refresh <- struct{}{}:
	default:
	}
}

// Scene builds the current screen contents.
func (v *Viewer) Scene() Scene {
	vs := v.view.Snapshot()
	snap, ok := v.src.Latest()
	if !ok {
		return Scene{Waiting: true, Paused: vs.Paused}
	}
	return Scene{
		Paused: vs.Paused,
		Config: snap.Config,
		Points: v.recon.ReconstructFrame(snap.Frame, vs.Offset),
		Axis:   waveform.TimeAxis(snap.Config.Timebase),
	}
}

// Run owns the terminal until ctx is cancelled or the user quits, in
// which case it returns ErrQuit.
func (v *Viewer) Run(ctx context.Context) error {
	if err := termbox.Init(); err != nil {
		return fmt.Errorf("tui: failed to initialize terminal: %w", err)
	}
	defer termbox.Close()
	termbox.HideCursor()

	events := make(chan termbox.Event, 4)
	go func() {
		defer close(events)
		for {
			ev := termbox.PollEvent()
			if ev.Type == termbox.EventInterrupt {
				return
			}
			events <- ev
		}
	}()
	defer func() {
		termbox.Interrupt()
		for range events {
		}
	}()

	ticker := time.NewTicker(redrawInterval)
	defer ticker.Stop()

	if err := v.draw(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			switch ev.Type {
			case termbox.EventKey:
				cmd, quit := Command(ev)
				if quit {
					return ErrQuit
				}
				if cmd != "" {
					v.view.Apply(cmd)
				}
			case termbox.EventError:
				return fmt.Errorf("tui: %w", ev.Err)
			}
		case <-v.refresh:
		case <-ticker.C:
		}
		if err := v.draw(); err != nil {
			return err
		}
	}
}

func (v *Viewer) draw() error {
	w, h := termbox.Size()
	c := NewCanvas(w, h)
	Rasterize(c, v.Scene())

	if err := termbox.Clear(termbox.ColorDefault, termbox.ColorBlack); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	for y := 0; y < c.H; y++ {
		for x := 0; x < c.W; x++ {
			cell := c.Cells[y*c.W+x]
			if cell.Ch != 0 {
				termbox.SetCell(x, y, cell.Ch, cell.Fg, cell.Bg)
			}
		}
	}
	if err := termbox.Flush(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
