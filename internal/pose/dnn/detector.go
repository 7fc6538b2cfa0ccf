// Package dnn runs a BlazePose landmark model through the OpenCV DNN module.
package dnn

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/claude/strongsight/internal/capture"
	"github.com/claude/strongsight/internal/pose"
)

// Input tensor layouts.
const (
	LayoutNHWC = "nhwc"
	LayoutNCHW = "nchw"
)

// Config describes the model file and how to feed it.
type Config struct {
	ModelPath   string
	InputSize   int
	InputLayout string
	// Backend and Target are OpenCV names such as "default"/"cpu" or "cuda"/"cuda_fp16".
	Backend string
	Target  string
	// MinPoseScore is the pose-presence probability below which a frame
	// is reported as having no person.
	MinPoseScore float64
	// Output layer names. BlazePose ONNX exports name them Identity (landmarks)
	// and Identity_1 (pose flag).
	LandmarksOutput string
	PoseFlagOutput  string
}

// DefaultConfig returns settings for the full BlazePose landmark model
// converted from TFLite to ONNX.
func DefaultConfig() Config {
	return Config{
		InputSize:       256,
		InputLayout:     LayoutNHWC,
		Backend:         "default",
		Target:          "cpu",
		MinPoseScore:    0.5,
		LandmarksOutput: "Identity",
		PoseFlagOutput:  "Identity_1",
	}
}

// Detector implements pose.Detector for captured frames. The underlying
// net is not safe for concurrent use, so Detect serializes callers.
type Detector struct {
	cfg Config

	mu  sync.Mutex
	net gocv.Net
}

// New loads the model and selects the compute backend.
func New(cfg Config) (*Detector, error) {
	if cfg.InputSize <= 0 {
		return nil, fmt.Errorf("invalid input size %d", cfg.InputSize)
	}
	if cfg.InputLayout != LayoutNHWC && cfg.InputLayout != LayoutNCHW {
		return nil, fmt.Errorf("unknown input layout %q", cfg.InputLayout)
	}

	net := gocv.ReadNet(cfg.ModelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("loading pose model %s", cfg.ModelPath)
	}
	if err := net.SetPreferableBackend(gocv.ParseNetBackend(cfg.Backend)); err != nil {
		net.Close()
		return nil, fmt.Errorf("setting backend %s: %w", cfg.Backend, err)
	}
	if err := net.SetPreferableTarget(gocv.ParseNetTarget(cfg.Target)); err != nil {
		net.Close()
		return nil, fmt.Errorf("setting target %s: %w", cfg.Target, err)
	}

	return &Detector{cfg: cfg, net: net}, nil
}

// Detect runs the model on frame. A frame where the pose flag is under
// MinPoseScore yields an empty result, not an error.
func (d *Detector) Detect(ctx context.Context, frame *capture.Frame, ts time.Duration) (*pose.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if frame == nil || frame.Mat.Empty() {
		return nil, fmt.Errorf("frame at %v: %w", ts, capture.ErrEmptyFrame)
	}

	blob, err := d.input(frame.Mat)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.net.SetInput(blob, "")
	outs := d.net.ForwardLayers([]string{d.cfg.LandmarksOutput, d.cfg.PoseFlagOutput})
	defer func() {
		for i := range outs {
			outs[i].Close()
		}
	}()
	if len(outs) != 2 {
		return nil, fmt.Errorf("model returned %d outputs, want 2", len(outs))
	}

	flag, err := outs[1].DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("reading pose flag: %w", err)
	}
	if len(flag) == 0 {
		return nil, fmt.Errorf("pose flag output is empty")
	}
	if pose.Sigmoid(float64(flag[0])) < d.cfg.MinPoseScore {
		return &pose.Result{}, nil
	}

	raw, err := outs[0].DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("reading landmarks: %w", err)
	}
	set, err := pose.DecodeBlazePose(raw, d.cfg.InputSize)
	if err != nil {
		return nil, err
	}
	return &pose.Result{Poses: []pose.LandmarkSet{set}}, nil
}

// input converts a BGR frame into the model's normalized RGB tensor.
func (d *Detector) input(src gocv.Mat) (gocv.Mat, error) {
	size := image.Pt(d.cfg.InputSize, d.cfg.InputSize)

	if d.cfg.InputLayout == LayoutNCHW {
		return gocv.BlobFromImage(src, 1.0/255, size, gocv.NewScalar(0, 0, 0, 0), true, false), nil
	}

	resized := gocv.NewMat()
	defer resized.Close()
	if err := gocv.Resize(src, &resized, size, 0, 0, gocv.InterpolationLinear); err != nil {
		return gocv.Mat{}, fmt.Errorf("resizing frame: %w", err)
	}
	rgb := gocv.NewMat()
	defer rgb.Close()
	if err := gocv.CvtColor(resized, &rgb, gocv.ColorBGRToRGB); err != nil {
		return gocv.Mat{}, fmt.Errorf("converting frame to RGB: %w", err)
	}

	scaled := gocv.NewMat()
	defer scaled.Close()
	if err := rgb.ConvertToWithParams(&scaled, gocv.MatTypeCV32FC3, 1.0/255, 0); err != nil {
		return gocv.Mat{}, fmt.Errorf("scaling frame: %w", err)
	}

	pixels, err := scaled.DataPtrFloat32()
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("reading scaled frame: %w", err)
	}

	// A continuous HxWx3 float image already has NHWC memory order.
	blob := gocv.NewMatWithSizes([]int{1, d.cfg.InputSize, d.cfg.InputSize, 3}, gocv.MatTypeCV32F)
	dst, err := blob.DataPtrFloat32()
	if err != nil {
		blob.Close()
		return gocv.Mat{}, fmt.Errorf("allocating input tensor: %w", err)
	}
	copy(dst, pixels)
	return blob, nil
}

// Close releases the network.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}
