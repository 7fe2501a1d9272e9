package camera

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/saturnino-fabrica-de-software/facegate/internal/recognition"
)

var (
	colorMatched = color.RGBA{R: 0, G: 200, B: 0, A: 0}
	colorUnknown = color.RGBA{R: 200, G: 0, B: 0, A: 0}
	colorWelcome = color.RGBA{R: 255, G: 200, B: 40, A: 0}
	colorHint    = color.RGBA{R: 255, G: 150, B: 0, A: 0}
)

// Window renders overlays and turns key presses into loop actions.
type Window struct {
	win     *gocv.Window
	lastKey int
}

func NewWindow(title string) *Window {
	return &Window{win: gocv.NewWindow(title), lastKey: -1}
}

func (w *Window) Show(frame recognition.Frame, overlays []recognition.Overlay, hud recognition.HUD) error {
	f, ok := frame.(*Frame)
	if !ok {
		return fmt.Errorf("unsupported frame type %T", frame)
	}
	img := f.mat
	h := img.Rows()

	for _, o := range overlays {
		c := colorUnknown
		if o.Matched {
			c = colorMatched
		}
		gocv.Rectangle(img, o.Box, c, 2)
		gocv.PutText(img, o.Label, image.Pt(o.Box.Min.X, max(25, o.Box.Min.Y-10)),
			gocv.FontHersheySimplex, 0.6, c, 2)
	}

	if hud.Footer != "" {
		c, scale := colorHint, 0.7
		if hud.FooterMatched {
			c, scale = colorWelcome, 0.8
		}
		gocv.PutText(img, hud.Footer, image.Pt(10, h-20), gocv.FontHersheySimplex, scale, c, 2)
	}

	statusColor := colorUnknown
	if hud.Validation {
		statusColor = colorMatched
	}
	gocv.PutText(img, hud.Status(), image.Pt(10, 30), gocv.FontHersheySimplex, 0.7, statusColor, 2)

	w.win.IMShow(*img)
	w.lastKey = w.win.WaitKey(1)
	return nil
}

// Poll maps the key read during the last Show.
func (w *Window) Poll() recognition.Action {
	key := w.lastKey
	w.lastKey = -1
	return actionForKey(key)
}

func (w *Window) Close() error {
	return w.win.Close()
}

func actionForKey(key int) recognition.Action {
	if key < 0 {
		return recognition.ActionNone
	}
	switch key & 0xFF {
	case 'q', 'Q':
		return recognition.ActionQuit
	case 'v', 'V':
		return recognition.ActionToggleValidation
	case 'c', 'C':
		return recognition.ActionEnroll
	default:
		return recognition.ActionNone
	}
}
