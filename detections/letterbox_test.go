package detections_test

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutrivision/food-detection-service/detections"
)

func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestProcessTransformLandscape(t *testing.T) {
	pre := detections.NewPreprocessor(640)
	tensor, tf := pre.Process(solidImage(640, 480, color.NRGBA{R: 200, G: 100, B: 50, A: 255}))

	assert.Len(t, tensor, 640*640*3)
	assert.InDelta(t, 1.0, tf.Scale, 1e-9)
	assert.Equal(t, 0, tf.PadLeft)
	assert.Equal(t, 80, tf.PadTop)
}

func TestProcessTransformUpscale(t *testing.T) {
	pre := detections.NewPreprocessor(640)
	_, tf := pre.Process(solidImage(320, 240, color.NRGBA{A: 255}))

	assert.InDelta(t, 2.0, tf.Scale, 1e-9)
	assert.Equal(t, 0, tf.PadLeft)
	assert.Equal(t, 80, tf.PadTop)
}

func TestProcessPadAndContent(t *testing.T) {
	const size = 640
	pre := detections.NewPreprocessor(size)
	tensor, tf := pre.Process(solidImage(640, 480, color.NRGBA{R: 200, G: 100, B: 50, A: 255}))

	channel := size * size

	// Everything above the content band is neutral padding, in all
	// three channels.
	for _, i := range []int{0, size / 2, tf.PadTop*size - 1} {
		assert.Equal(t, detections.PadValue, tensor[i])
		assert.Equal(t, detections.PadValue, tensor[channel+i])
		assert.Equal(t, detections.PadValue, tensor[2*channel+i])
	}

	// First content pixel carries the normalized source color, CHW.
	i := tf.PadTop * size
	assert.InDelta(t, 200.0/255.0, tensor[i], 1e-2)
	assert.InDelta(t, 100.0/255.0, tensor[channel+i], 1e-2)
	assert.InDelta(t, 50.0/255.0, tensor[2*channel+i], 1e-2)
}

func TestProcessNormalizedRange(t *testing.T) {
	pre := detections.NewPreprocessor(64)
	tensor, _ := pre.Process(solidImage(100, 40, color.NRGBA{R: 255, G: 0, B: 128, A: 255}))

	for _, v := range tensor {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.LessOrEqual(t, v, float32(1))
	}
}

func TestProcessReusesBuffer(t *testing.T) {
	pre := detections.NewPreprocessor(64)
	a, _ := pre.Process(solidImage(100, 40, color.NRGBA{R: 10, A: 255}))
	b, _ := pre.Process(solidImage(30, 90, color.NRGBA{R: 240, A: 255}))

	require.NotEmpty(t, a)
	assert.Same(t, &a[0], &b[0])
}

func TestProcessPortraitPadsLeft(t *testing.T) {
	pre := detections.NewPreprocessor(640)
	_, tf := pre.Process(solidImage(480, 640, color.NRGBA{A: 255}))

	assert.InDelta(t, 1.0, tf.Scale, 1e-9)
	assert.Equal(t, 80, tf.PadLeft)
	assert.Equal(t, 0, tf.PadTop)
}
