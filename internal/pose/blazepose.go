package pose

import (
	"fmt"
	"math"
)

// blazePoseStride is the number of values per landmark in the BlazePose
// landmark tensor: x, y, z, visibility, presence.
const blazePoseStride = 5

// DecodeBlazePose converts the raw landmark tensor of a BlazePose landmark
// model into a LandmarkSet. The tensor holds 39 points (33 body landmarks
// plus 6 auxiliary ones) in input-pixel coordinates, with visibility as a
// logit. inputSize is the square model input edge in pixels; the frame is
// assumed to have been resized onto it without letterboxing, so dividing by
// inputSize yields coordinates normalized to the original frame.
func DecodeBlazePose(raw []float32, inputSize int) (LandmarkSet, error) {
	if inputSize <= 0 {
		return nil, fmt.Errorf("invalid input size %d", inputSize)
	}
	if len(raw) < NumLandmarks*blazePoseStride {
		return nil, fmt.Errorf("landmark tensor has %d values, need at least %d", len(raw), NumLandmarks*blazePoseStride)
	}

	size := float64(inputSize)
	set := make(LandmarkSet, NumLandmarks)
	for i := range set {
		v := raw[i*blazePoseStride : (i+1)*blazePoseStride]
		set[i] = Landmark{
			X:          float64(v[0]) / size,
			Y:          float64(v[1]) / size,
			Z:          float64(v[2]) / size,
			Visibility: Sigmoid(float64(v[3])),
		}
	}
	return set, nil
}

// Sigmoid maps a logit to [0,1].
func Sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
