// Package display draws overlays onto frames and shows them in a window.
package display

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/claude/strongsight/internal/capture"
	"github.com/claude/strongsight/internal/overlay"
)

// screen is the part of gocv.Window the renderer uses.
type screen interface {
	IMShow(img gocv.Mat) error
	WaitKey(delay int) int
	Close() error
}

// Window is an OpenCV HighGUI window with a quit key.
type Window struct {
	w       screen
	quitKey int
}

// Open creates the window. quitKey is the key code that ends the session.
func Open(title string, quitKey int) *Window {
	return &Window{w: gocv.NewWindow(title), quitKey: quitKey}
}

// Render draws ov onto the frame, shows it, and reports whether the quit
// key was pressed. The frame is modified in place. A frame that cannot be
// shown is an error, since the quit key can no longer be read.
func (w *Window) Render(frame *capture.Frame, ov overlay.Overlay) (bool, error) {
	if err := Draw(&frame.Mat, ov); err != nil {
		return false, fmt.Errorf("drawing overlay: %w", err)
	}
	if err := w.w.IMShow(frame.Mat); err != nil {
		return false, fmt.Errorf("showing frame: %w", err)
	}
	key := w.w.WaitKey(1)
	return key >= 0 && key&0xFF == w.quitKey, nil
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.w.Close()
}

// Draw paints markers, segments and text onto img. Every primitive is
// attempted; the failures are joined.
func Draw(img *gocv.Mat, ov overlay.Overlay) error {
	var errs []error
	for _, m := range ov.Markers {
		if err := gocv.Circle(img, m.Center, m.Radius, m.Color, -1); err != nil {
			errs = append(errs, fmt.Errorf("marker at %v: %w", m.Center, err))
		}
	}
	for _, s := range ov.Segments {
		if err := gocv.Line(img, s.From, s.To, s.Color, s.Thickness); err != nil {
			errs = append(errs, fmt.Errorf("segment %v-%v: %w", s.From, s.To, err))
		}
	}
	for _, t := range ov.Texts {
		if err := gocv.PutText(img, t.Text, t.Origin, gocv.FontHersheySimplex, t.Scale, t.Color, t.Thickness); err != nil {
			errs = append(errs, fmt.Errorf("text %q: %w", t.Text, err))
		}
	}
	return errors.Join(errs...)
}
