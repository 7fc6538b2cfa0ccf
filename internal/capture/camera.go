// Package capture reads frames from a camera or video source through OpenCV.
package capture

import (
	"errors"
	"fmt"
	"strconv"

	"gocv.io/x/gocv"
)

var (
	// ErrReadFailed is returned when the device stops delivering frames.
	ErrReadFailed = errors.New("could not read frame")
	// ErrEmptyFrame is returned when the device delivers an empty image.
	ErrEmptyFrame = errors.New("empty frame")
)

// Frame is a captured BGR image. The holder must Close it.
type Frame struct {
	Mat gocv.Mat
}

// Clone returns an independent copy that must be closed separately.
func (f *Frame) Clone() *Frame {
	return &Frame{Mat: f.Mat.Clone()}
}

// Size returns the frame width and height in pixels.
func (f *Frame) Size() (width, height int) {
	return f.Mat.Cols(), f.Mat.Rows()
}

// Close releases the underlying image memory.
func (f *Frame) Close() error {
	return f.Mat.Close()
}

// Config selects and sizes the source.
type Config struct {
	// Device is a camera index or a file/stream path.
	Device string
	// Width and Height request a capture size; zero keeps the device default.
	Width  int
	Height int
}

// Camera wraps an open gocv.VideoCapture.
type Camera struct {
	vc     *gocv.VideoCapture
	device string
}

// Open opens the configured device. A numeric device is treated as a camera
// index, anything else as a path or URL.
func Open(cfg Config) (*Camera, error) {
	var source any = cfg.Device
	if id, err := strconv.Atoi(cfg.Device); err == nil {
		source = id
	}

	vc, err := gocv.OpenVideoCapture(source)
	if err != nil {
		return nil, fmt.Errorf("opening video capture %s: %w", cfg.Device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("video capture %s did not open", cfg.Device)
	}

	if cfg.Width > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	}
	if cfg.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}

	return &Camera{vc: vc, device: cfg.Device}, nil
}

// Read grabs the next frame.
func (c *Camera) Read() (*Frame, error) {
	m := gocv.NewMat()
	if ok := c.vc.Read(&m); !ok {
		m.Close()
		return nil, fmt.Errorf("device %s: %w", c.device, ErrReadFailed)
	}
	if m.Empty() {
		m.Close()
		return nil, fmt.Errorf("device %s: %w", c.device, ErrEmptyFrame)
	}
	return &Frame{Mat: m}, nil
}

// Close releases the device.
func (c *Camera) Close() error {
	return c.vc.Close()
}

// Device returns the configured device string.
func (c *Camera) Device() string {
	return c.device
}
