// Package overlay turns a landmark set and a counter frame into drawable
// primitives in pixel space. Drawing itself happens in package display.
package overlay

import (
	"fmt"
	"image"
	"image/color"

	"github.com/claude/strongsight/internal/counter"
	"github.com/claude/strongsight/internal/pose"
)

var (
	jointColor = color.RGBA{G: 255, A: 255}
	boneColor  = color.RGBA{R: 255, G: 255, A: 255}
	angleColor = color.RGBA{B: 255, A: 255}
	alertColor = color.RGBA{R: 255, A: 255}
)

// Marker is a filled circle at a joint.
type Marker struct {
	Center image.Point
	Radius int
	Color  color.RGBA
}

// Segment is a skeleton line.
type Segment struct {
	From      image.Point
	To        image.Point
	Color     color.RGBA
	Thickness int
}

// Text is a label anchored at its bottom-left corner.
type Text struct {
	Text      string
	Origin    image.Point
	Scale     float64
	Color     color.RGBA
	Thickness int
}

// Overlay is everything drawn over one frame.
type Overlay struct {
	Markers  []Marker
	Segments []Segment
	Texts    []Text
}

// Build lays out the overlay for a frame of the given size. Joints and the
// skeleton are drawn only while tracking; skeleton segments whose indices
// fall outside the set are skipped.
func Build(set pose.LandmarkSet, width, height int, f counter.Frame) Overlay {
	var ov Overlay

	switch f.Status {
	case counter.NoPose:
		return ov
	case counter.Stabilizing:
		ov.Texts = append(ov.Texts, Text{
			Text: "Stabilizing...", Origin: image.Pt(30, 150), Scale: 0.8, Color: alertColor, Thickness: 2,
		})
		return ov
	case counter.Skipped:
		ov.Texts = append(ov.Texts, countText(f.Count))
		return ov
	}

	toPixel := func(l pose.Landmark) image.Point {
		return image.Pt(int(l.X*float64(width)), int(l.Y*float64(height)))
	}

	ov.Markers = make([]Marker, 0, len(set))
	for _, l := range set {
		ov.Markers = append(ov.Markers, Marker{Center: toPixel(l), Radius: 4, Color: jointColor})
	}

	ov.Segments = make([]Segment, 0, len(pose.Skeleton))
	for _, c := range pose.Skeleton {
		if !set.Has(c.From, c.To) {
			continue
		}
		ov.Segments = append(ov.Segments, Segment{
			From: toPixel(set[c.From]), To: toPixel(set[c.To]), Color: boneColor, Thickness: 2,
		})
	}

	ov.Texts = append(ov.Texts,
		Text{
			Text:   fmt.Sprintf("L: %d R: %d", int(f.LeftKnee), int(f.RightKnee)),
			Origin: image.Pt(30, 50), Scale: 1, Color: angleColor, Thickness: 2,
		},
		countText(f.Count),
	)
	return ov
}

func countText(n int) Text {
	return Text{
		Text: fmt.Sprintf("Squats: %d", n), Origin: image.Pt(30, 100), Scale: 1.2, Color: alertColor, Thickness: 3,
	}
}
