// Package yuv converts planar 4:2:0 camera frames into RGB images, applying
// the sensor rotation and the front-camera mirror on the way out.
package yuv

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/nutrivision/food-detection-service/models"
)

// Plane is one image plane as delivered by the camera. RowStride is the
// byte offset between rows; PixelStride the byte offset between horizontally
// adjacent samples (relevant for the chroma planes, where interleaved
// layouts use a stride of 2).
type Plane struct {
	Data        []byte
	RowStride   int
	PixelStride int
}

// Frame is a planar YUV 4:2:0 frame plus the sensor geometry needed to
// orient it. Planes are ordered Y, U, V.
type Frame struct {
	Planes   []Plane
	Width    int
	Height   int
	Rotation int  // degrees clockwise: 0, 90, 180 or 270
	Mirror   bool // front camera: flip horizontally after rotation
}

// ProcessedSize returns the pixel dimensions after rotation. A 90 or 270
// degree rotation swaps width and height.
func (f Frame) ProcessedSize() (int, int) {
	if f.Rotation == 90 || f.Rotation == 270 {
		return f.Height, f.Width
	}
	return f.Width, f.Height
}

// ToRGB converts the frame to a dense RGB image. BT.601 full-range
// coefficients, rounded to nearest and clamped to [0,255]:
//
//	R = Y + 1.402 (V-128)
//	G = Y - 0.344136 (U-128) - 0.714136 (V-128)
//	B = Y + 1.772 (U-128)
//
// Chroma is read at (y/2, x/2) per 4:2:0 subsampling. Returns a
// FrameFormatError when the frame is malformed; no partial output.
func (f Frame) ToRGB() (*image.NRGBA, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}

	yPlane, uPlane, vPlane := f.Planes[0], f.Planes[1], f.Planes[2]
	out := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))

	for y := 0; y < f.Height; y++ {
		yRow := y * yPlane.RowStride
		uvRow := (y / 2) * uPlane.RowStride
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < f.Width; x++ {
			luma := float64(yPlane.Data[yRow+x])
			uvCol := (x / 2) * uPlane.PixelStride
			u := float64(uPlane.Data[uvRow+uvCol]) - 128
			v := float64(vPlane.Data[(y/2)*vPlane.RowStride+uvCol]) - 128

			i := x * 4
			dst[i] = clamp255(luma + 1.402*v)
			dst[i+1] = clamp255(luma - 0.344136*u - 0.714136*v)
			dst[i+2] = clamp255(luma + 1.772*u)
			dst[i+3] = 0xff
		}
	}

	oriented := orient(out, f.Rotation, f.Mirror)
	return oriented, nil
}

// orient rotates clockwise by the sensor angle, then mirrors front-camera
// frames horizontally.
func orient(img *image.NRGBA, rotation int, mirror bool) *image.NRGBA {
	switch rotation {
	case 90:
		img = imaging.Rotate270(img)
	case 180:
		img = imaging.Rotate180(img)
	case 270:
		img = imaging.Rotate90(img)
	}
	if mirror {
		img = imaging.FlipH(img)
	}
	return img
}

func (f Frame) validate() error {
	if len(f.Planes) < 3 {
		return models.NewFrameFormatError(
			fmt.Sprintf("expected 3 planes, got %d", len(f.Planes)), nil)
	}
	if f.Width <= 0 || f.Height <= 0 {
		return models.NewFrameFormatError(
			fmt.Sprintf("invalid dimensions %dx%d", f.Width, f.Height), nil)
	}
	switch f.Rotation {
	case 0, 90, 180, 270:
	default:
		return models.NewFrameFormatError(
			fmt.Sprintf("unsupported rotation %d", f.Rotation), nil)
	}

	yPlane := f.Planes[0]
	if need := (f.Height-1)*yPlane.RowStride + f.Width; len(yPlane.Data) < need {
		return models.NewFrameFormatError(
			fmt.Sprintf("luma plane too short: have %d, need %d", len(yPlane.Data), need), nil)
	}
	for i, p := range f.Planes[1:] {
		if p.PixelStride <= 0 {
			return models.NewFrameFormatError(
				fmt.Sprintf("chroma plane %d: invalid pixel stride %d", i+1, p.PixelStride), nil)
		}
		need := ((f.Height-1)/2)*p.RowStride + ((f.Width-1)/2)*p.PixelStride + 1
		if len(p.Data) < need {
			return models.NewFrameFormatError(
				fmt.Sprintf("chroma plane %d too short: have %d, need %d", i+1, len(p.Data), need), nil)
		}
	}
	return nil
}

func clamp255(v float64) uint8 {
	r := int(v + 0.5)
	if r < 0 {
		return 0
	}
	if r > 255 {
		return 255
	}
	return uint8(r)
}
