// Package detections holds the model-facing half of the pipeline: letterbox
// preprocessing into a reusable input tensor, the inference runner contract
// and its ONNX Runtime implementation, and output-tensor postprocessing with
// classwise non-maximum suppression.
package detections

import (
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/nutrivision/food-detection-service/models"
)

// PadValue is the normalized neutral gray used outside the resized image,
// the Ultralytics letterbox convention (114/255).
const PadValue = float32(114.0 / 255.0)

// Preprocessor letterboxes arbitrary-size RGB images into a fixed square
// CHW float32 tensor normalized to [0,1]. The tensor buffer is allocated
// once and reused across calls, so a Preprocessor must only be written by
// one pipeline run at a time (the scheduler's busy flag enforces this).
type Preprocessor struct {
	size   int
	buffer []float32
}

func NewPreprocessor(size int) *Preprocessor {
	return &Preprocessor{
		size:   size,
		buffer: make([]float32, size*size*3),
	}
}

// Size returns the square model input dimension.
func (p *Preprocessor) Size() int { return p.size }

// Process resizes img with linear interpolation, preserving aspect ratio,
// centers it on the square canvas and returns the filled tensor plus the
// transform needed to map model-space coordinates back to image space.
// The returned slice aliases the reused internal buffer.
func (p *Preprocessor) Process(img image.Image) ([]float32, models.LetterboxTransform) {
	srcW := img.Bounds().Dx()
	srcH := img.Bounds().Dy()

	scale := math.Min(float64(p.size)/float64(srcW), float64(p.size)/float64(srcH))
	newW := int(math.Round(float64(srcW) * scale))
	newH := int(math.Round(float64(srcH) * scale))

	resized := imaging.Resize(img, newW, newH, imaging.Linear)

	padLeft := (p.size - newW) / 2
	padTop := (p.size - newH) / 2

	for i := range p.buffer {
		p.buffer[i] = PadValue
	}
	p.fill(resized, padLeft, padTop)

	return p.buffer, models.LetterboxTransform{
		Scale:   scale,
		PadLeft: padLeft,
		PadTop:  padTop,
	}
}

// fill writes the resized image into the CHW tensor at the pad offset.
// imaging always hands back *image.NRGBA, so the pixel walk reads Pix
// directly instead of going through the color interface.
func (p *Preprocessor) fill(img *image.NRGBA, padLeft, padTop int) {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	channelSize := p.size * p.size

	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		dstRow := (padTop + y) * p.size
		for x := 0; x < w; x++ {
			i := dstRow + padLeft + x
			s := x * 4
			p.buffer[i] = float32(row[s]) / 255.0
			p.buffer[channelSize+i] = float32(row[s+1]) / 255.0
			p.buffer[channelSize*2+i] = float32(row[s+2]) / 255.0
		}
	}
}
