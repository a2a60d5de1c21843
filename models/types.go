package models

import "fmt"

// Detection is a single recognized object instance. Coordinates are pixel
// positions in the original (pre-letterbox) image space.
type Detection struct {
	X1, Y1, X2, Y2 float32
	Confidence     float32
	ClassID        int
	Label          string
}

// fallbackLabel substitutes for an empty label on the lenient path.
const fallbackLabel = "unknown"

// NewDetection validates every field and fails on the first violation.
// Use DetectionFromModel for values read out of a raw output tensor.
func NewDetection(x1, y1, x2, y2, confidence float32, classID int, label string) (Detection, error) {
	switch {
	case x2 <= x1:
		return Detection{}, NewValidationError(fmt.Sprintf("x2 (%g) must be greater than x1 (%g)", x2, x1), nil)
	case y2 <= y1:
		return Detection{}, NewValidationError(fmt.Sprintf("y2 (%g) must be greater than y1 (%g)", y2, y1), nil)
	case confidence < 0 || confidence > 1:
		return Detection{}, NewValidationError(fmt.Sprintf("confidence %g outside [0,1]", confidence), nil)
	case classID < 0:
		return Detection{}, NewValidationError(fmt.Sprintf("negative class id %d", classID), nil)
	case label == "":
		return Detection{}, NewValidationError("empty label", nil)
	}
	return Detection{
		X1:         x1,
		Y1:         y1,
		X2:         x2,
		Y2:         y2,
		Confidence: confidence,
		ClassID:    classID,
		Label:      label,
	}, nil
}

// DetectionFromModel builds a Detection from raw model output, clamping
// out-of-range values into validity instead of failing. Raw numeric output
// cannot be assumed well-formed.
func DetectionFromModel(x1, y1, x2, y2, confidence float32, classID int, label string) Detection {
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	if y2 < y1 {
		y1, y2 = y2, y1
	}
	// A zero-extent box still has to satisfy the strict ordering invariant.
	if x2 == x1 {
		x2 = x1 + 1
	}
	if y2 == y1 {
		y2 = y1 + 1
	}
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}
	if classID < 0 {
		classID = 0
	}
	if label == "" {
		label = fallbackLabel
	}
	return Detection{
		X1:         x1,
		Y1:         y1,
		X2:         x2,
		Y2:         y2,
		Confidence: confidence,
		ClassID:    classID,
		Label:      label,
	}
}

// Width returns the horizontal extent of the box in pixels.
func (d Detection) Width() float32 { return d.X2 - d.X1 }

// Height returns the vertical extent of the box in pixels.
func (d Detection) Height() float32 { return d.Y2 - d.Y1 }

// Area returns the box area in square pixels.
func (d Detection) Area() float32 { return d.Width() * d.Height() }

// LetterboxTransform records the scale/offset applied when an image was
// resized into the model's square input. Inverting it maps model-space
// coordinates back to original-image coordinates.
type LetterboxTransform struct {
	Scale   float64
	PadLeft int
	PadTop  int
}

// FrameResult is the outcome of one accepted, completed pipeline run.
// Detections are ordered confidence-descending.
type FrameResult struct {
	Detections      []Detection
	InferenceTimeMs int
	ProcessedWidth  int
	ProcessedHeight int
}
