package yuv_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutrivision/food-detection-service/models"
	"github.com/nutrivision/food-detection-service/yuv"
)

// solidFrame builds a width x height frame with uniform Y/U/V samples and
// tightly packed planes (luma stride = width, chroma pixel stride = 1).
func solidFrame(width, height int, y, u, v byte) yuv.Frame {
	cw, ch := (width+1)/2, (height+1)/2
	yData := make([]byte, width*height)
	uData := make([]byte, cw*ch)
	vData := make([]byte, cw*ch)
	for i := range yData {
		yData[i] = y
	}
	for i := range uData {
		uData[i] = u
		vData[i] = v
	}
	return yuv.Frame{
		Planes: []yuv.Plane{
			{Data: yData, RowStride: width, PixelStride: 1},
			{Data: uData, RowStride: cw, PixelStride: 1},
			{Data: vData, RowStride: cw, PixelStride: 1},
		},
		Width:  width,
		Height: height,
	}
}

func TestToRGBNeutralGray(t *testing.T) {
	img, err := solidFrame(8, 6, 128, 128, 128).ToRGB()
	require.NoError(t, err)

	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			c := img.NRGBAAt(x, y)
			assert.InDelta(t, 128, int(c.R), 1)
			assert.InDelta(t, 128, int(c.G), 1)
			assert.InDelta(t, 128, int(c.B), 1)
		}
	}
}

func TestToRGBKnownColor(t *testing.T) {
	// BT.601: Y=81, U=90, V=240 is a saturated red.
	img, err := solidFrame(4, 4, 81, 90, 240).ToRGB()
	require.NoError(t, err)

	c := img.NRGBAAt(1, 2)
	assert.InDelta(t, 238, int(c.R), 1)
	assert.InDelta(t, 14, int(c.G), 1)
	assert.InDelta(t, 14, int(c.B), 1)
}

func TestToRGBClampsExtremes(t *testing.T) {
	// 255 + 1.402*(255-128) overflows, 0 + 1.772*(0-128) underflows.
	bright, err := solidFrame(2, 2, 255, 128, 255).ToRGB()
	require.NoError(t, err)
	assert.Equal(t, uint8(255), bright.NRGBAAt(0, 0).R)

	dark, err := solidFrame(2, 2, 0, 0, 128).ToRGB()
	require.NoError(t, err)
	assert.Equal(t, uint8(0), dark.NRGBAAt(0, 0).B)
}

func TestToRGBRespectsStrides(t *testing.T) {
	// 2x2 frame with padded rows: luma stride 4, chroma pixel stride 2.
	f := yuv.Frame{
		Planes: []yuv.Plane{
			{Data: []byte{50, 100, 0, 0, 150, 200, 0, 0}, RowStride: 4, PixelStride: 1},
			{Data: []byte{128, 0}, RowStride: 2, PixelStride: 2},
			{Data: []byte{128, 0}, RowStride: 2, PixelStride: 2},
		},
		Width:  2,
		Height: 2,
	}
	img, err := f.ToRGB()
	require.NoError(t, err)

	assert.InDelta(t, 50, int(img.NRGBAAt(0, 0).R), 1)
	assert.InDelta(t, 100, int(img.NRGBAAt(1, 0).R), 1)
	assert.InDelta(t, 150, int(img.NRGBAAt(0, 1).R), 1)
	assert.InDelta(t, 200, int(img.NRGBAAt(1, 1).R), 1)
}

// gradientFrame has per-pixel luma values y*width+x (times 10) on neutral
// chroma, so converted pixels are identifiable grays.
func gradientFrame(width, height int) yuv.Frame {
	f := solidFrame(width, height, 0, 128, 128)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			f.Planes[0].Data[y*width+x] = byte(10 * (y*width + x + 1))
		}
	}
	return f
}

func TestToRGBRotation90SwapsDimensions(t *testing.T) {
	f := gradientFrame(2, 2)
	f.Rotation = 90
	img, err := f.ToRGB()
	require.NoError(t, err)

	w, h := f.ProcessedSize()
	assert.Equal(t, w, img.Bounds().Dx())
	assert.Equal(t, h, img.Bounds().Dy())

	// Clockwise quarter turn: the old bottom-left pixel (luma 30) lands
	// at the new top-left.
	assert.InDelta(t, 30, int(img.NRGBAAt(0, 0).R), 1)
	assert.InDelta(t, 10, int(img.NRGBAAt(1, 0).R), 1)
	assert.InDelta(t, 40, int(img.NRGBAAt(0, 1).R), 1)
	assert.InDelta(t, 20, int(img.NRGBAAt(1, 1).R), 1)
}

func TestToRGBRotation180(t *testing.T) {
	f := gradientFrame(2, 2)
	f.Rotation = 180
	img, err := f.ToRGB()
	require.NoError(t, err)

	assert.InDelta(t, 40, int(img.NRGBAAt(0, 0).R), 1)
	assert.InDelta(t, 10, int(img.NRGBAAt(1, 1).R), 1)
}

func TestToRGBMirror(t *testing.T) {
	f := gradientFrame(2, 2)
	f.Mirror = true
	img, err := f.ToRGB()
	require.NoError(t, err)

	assert.InDelta(t, 20, int(img.NRGBAAt(0, 0).R), 1)
	assert.InDelta(t, 10, int(img.NRGBAAt(1, 0).R), 1)
}

func TestToRGBMissingPlanes(t *testing.T) {
	f := solidFrame(4, 4, 128, 128, 128)
	f.Planes = f.Planes[:2]

	img, err := f.ToRGB()
	require.Error(t, err)
	assert.Nil(t, img)
	var ferr *models.FrameFormatError
	assert.True(t, errors.As(err, &ferr))
}

func TestToRGBTruncatedPlane(t *testing.T) {
	f := solidFrame(8, 8, 128, 128, 128)
	f.Planes[0].Data = f.Planes[0].Data[:10]

	_, err := f.ToRGB()
	require.Error(t, err)
	var ferr *models.FrameFormatError
	assert.True(t, errors.As(err, &ferr))
}

func TestToRGBInvalidRotation(t *testing.T) {
	f := solidFrame(4, 4, 128, 128, 128)
	f.Rotation = 45

	_, err := f.ToRGB()
	require.Error(t, err)
	var ferr *models.FrameFormatError
	assert.True(t, errors.As(err, &ferr))
}
