// Package camera adapts an OpenCV capture device and window to the
// recognition loop.
package camera

import (
	"context"
	"fmt"
	"image"
	"strconv"
	"sync"

	"gocv.io/x/gocv"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/recognition"
)

// Capture reads frames into a single reusable buffer. A Frame returned by
// Next is valid until the following call.
type Capture struct {
	mu     sync.Mutex
	vc     *gocv.VideoCapture
	mat    gocv.Mat
	closed bool
}

// Open opens a device index ("0") or a file/stream URL.
func Open(device string) (*Capture, error) {
	var source interface{} = device
	if idx, err := strconv.Atoi(device); err == nil {
		source = idx
	}

	vc, err := gocv.OpenVideoCapture(source)
	if err != nil {
		return nil, domain.ErrDeviceUnavailable.WithError(fmt.Errorf("open %q: %w", device, err))
	}
	if !vc.IsOpened() {
		_ = vc.Close()
		return nil, domain.ErrDeviceUnavailable.WithError(fmt.Errorf("open %q: device not opened", device))
	}

	return &Capture{vc: vc, mat: gocv.NewMat()}, nil
}

func (c *Capture) Next(ctx context.Context) (recognition.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, recognition.ErrSourceExhausted
	}

	if ok := c.vc.Read(&c.mat); !ok || c.mat.Empty() {
		return nil, recognition.ErrSourceExhausted
	}
	return &Frame{mat: &c.mat}, nil
}

func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	matErr := c.mat.Close()
	if err := c.vc.Close(); err != nil {
		return fmt.Errorf("release capture: %w", err)
	}
	return matErr
}

// Frame wraps the capture buffer.
type Frame struct {
	mat *gocv.Mat
}

func (f *Frame) Size() image.Point {
	return image.Pt(f.mat.Cols(), f.mat.Rows())
}

// Downsample resizes by scale and JPEG-encodes the result for the detector.
func (f *Frame) Downsample(scale float64) ([]byte, error) {
	src := *f.mat
	if scale > 0 && scale != 1 {
		resized := gocv.NewMat()
		defer resized.Close()
		gocv.Resize(*f.mat, &resized, image.Point{}, scale, scale, gocv.InterpolationLinear)
		src = resized
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, src)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	return append([]byte(nil), buf.GetBytes()...), nil
}
