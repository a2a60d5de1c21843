package detections

import (
	"fmt"
	"sort"

	"github.com/nutrivision/food-detection-service/models"
)

// PostprocessParams carries everything needed to turn one raw output tensor
// into detections in original-image coordinates.
type PostprocessParams struct {
	Transform           models.LetterboxTransform
	OrigWidth           int
	OrigHeight          int
	ConfidenceThreshold float32
	IoUThreshold        float32
	NumClasses          int
	NumPredictions      int
	Labels              []string
}

// Postprocess decodes an output tensor laid out [4+numClasses, N] row-major:
// per prediction a center-form box in letterboxed model-pixel space followed
// by one score per class. Candidates below the confidence threshold or with
// degenerate geometry after inverting the letterbox are dropped, then
// classwise NMS keeps the highest-confidence box per overlapping cluster.
// The result is ordered confidence-descending and deterministic for
// identical tensors.
func Postprocess(output []float32, p PostprocessParams) ([]models.Detection, error) {
	n := p.NumPredictions
	expected := (4 + p.NumClasses) * n
	if len(output) != expected {
		return nil, models.NewInferenceError(
			fmt.Sprintf("output tensor length %d, expected %d", len(output), expected), nil)
	}

	candidates := make([]models.Detection, 0, 64)
	for i := 0; i < n; i++ {
		// Linear scan argmax; on equal scores the earlier class index
		// wins, and that tie-break is part of the contract.
		classID := 0
		maxScore := output[4*n+i]
		for c := 1; c < p.NumClasses; c++ {
			if s := output[(4+c)*n+i]; s > maxScore {
				maxScore = s
				classID = c
			}
		}
		if maxScore < p.ConfidenceThreshold {
			continue
		}

		cx := output[i]
		cy := output[n+i]
		w := output[2*n+i]
		h := output[3*n+i]

		x1 := p.unletterboxX(cx - w/2)
		y1 := p.unletterboxY(cy - h/2)
		x2 := p.unletterboxX(cx + w/2)
		y2 := p.unletterboxY(cy + h/2)
		if x2 <= x1 || y2 <= y1 {
			continue
		}

		candidates = append(candidates,
			models.DetectionFromModel(x1, y1, x2, y2, maxScore, classID, p.label(classID)))
	}

	return NonMaxSuppression(candidates, p.IoUThreshold), nil
}

// unletterboxX maps a model-space x coordinate back to the original image
// and clamps it to [0, width].
func (p PostprocessParams) unletterboxX(x float32) float32 {
	v := (float64(x) - float64(p.Transform.PadLeft)) / p.Transform.Scale
	return clampF(float32(v), 0, float32(p.OrigWidth))
}

func (p PostprocessParams) unletterboxY(y float32) float32 {
	v := (float64(y) - float64(p.Transform.PadTop)) / p.Transform.Scale
	return clampF(float32(v), 0, float32(p.OrigHeight))
}

func (p PostprocessParams) label(classID int) string {
	if classID >= 0 && classID < len(p.Labels) {
		return p.Labels[classID]
	}
	return fmt.Sprintf("class_%d", classID)
}

// NonMaxSuppression sorts detections by confidence descending and walks the
// list, accepting each survivor and suppressing every later detection of
// the same class whose IoU with it reaches threshold. Detections of
// different classes never suppress each other. The sort is stable, so
// output order is deterministic for identical input.
func NonMaxSuppression(dets []models.Detection, iouThreshold float32) []models.Detection {
	if len(dets) == 0 {
		return dets
	}

	sorted := make([]models.Detection, len(dets))
	copy(sorted, dets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	suppressed := make([]bool, len(sorted))
	kept := make([]models.Detection, 0, len(sorted))
	for i := range sorted {
		if suppressed[i] {
			continue
		}
		kept = append(kept, sorted[i])
		for j := i + 1; j < len(sorted); j++ {
			if suppressed[j] || sorted[j].ClassID != sorted[i].ClassID {
				continue
			}
			if IoU(sorted[i], sorted[j]) >= iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}

// IoU is the intersection area over the union area of two boxes, 0 when
// they are disjoint.
func IoU(a, b models.Detection) float32 {
	ix := minF(a.X2, b.X2) - maxF(a.X1, b.X1)
	iy := minF(a.Y2, b.Y2) - maxF(a.Y1, b.Y1)
	if ix <= 0 || iy <= 0 {
		return 0
	}
	inter := ix * iy
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func clampF(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minF(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
