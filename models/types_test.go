package models_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutrivision/food-detection-service/models"
)

func TestNewDetectionValid(t *testing.T) {
	d, err := models.NewDetection(10, 20, 110, 220, 0.75, 3, "apple")
	require.NoError(t, err)
	assert.Equal(t, float32(10), d.X1)
	assert.Equal(t, float32(20), d.Y1)
	assert.Equal(t, float32(110), d.X2)
	assert.Equal(t, float32(220), d.Y2)
	assert.Equal(t, float32(0.75), d.Confidence)
	assert.Equal(t, 3, d.ClassID)
	assert.Equal(t, "apple", d.Label)
}

func TestNewDetectionBoundaryConfidence(t *testing.T) {
	_, err := models.NewDetection(0, 0, 1, 1, 0, 0, "rice")
	assert.NoError(t, err)
	_, err = models.NewDetection(0, 0, 1, 1, 1, 0, "rice")
	assert.NoError(t, err)
}

func TestNewDetectionRejectsInvalid(t *testing.T) {
	cases := []struct {
		name           string
		x1, y1, x2, y2 float32
		confidence     float32
		classID        int
		label          string
	}{
		{"x2 equal x1", 10, 0, 10, 5, 0.5, 0, "apple"},
		{"x2 below x1", 10, 0, 5, 5, 0.5, 0, "apple"},
		{"y2 equal y1", 0, 10, 5, 10, 0.5, 0, "apple"},
		{"y2 below y1", 0, 10, 5, 4, 0.5, 0, "apple"},
		{"negative confidence", 0, 0, 5, 5, -0.1, 0, "apple"},
		{"confidence above one", 0, 0, 5, 5, 1.1, 0, "apple"},
		{"negative class id", 0, 0, 5, 5, 0.5, -1, "apple"},
		{"empty label", 0, 0, 5, 5, 0.5, 0, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := models.NewDetection(tc.x1, tc.y1, tc.x2, tc.y2, tc.confidence, tc.classID, tc.label)
			require.Error(t, err)
			var verr *models.ValidationError
			assert.True(t, errors.As(err, &verr))
		})
	}
}

func TestDetectionFromModelClamps(t *testing.T) {
	d := models.DetectionFromModel(110, 220, 10, 20, 1.5, -4, "")
	assert.Less(t, d.X1, d.X2)
	assert.Less(t, d.Y1, d.Y2)
	assert.Equal(t, float32(1), d.Confidence)
	assert.Equal(t, 0, d.ClassID)
	assert.NotEmpty(t, d.Label)
}

func TestDetectionFromModelDegenerateBox(t *testing.T) {
	d := models.DetectionFromModel(50, 60, 50, 60, -2, 1, "bread")
	assert.Greater(t, d.X2, d.X1)
	assert.Greater(t, d.Y2, d.Y1)
	assert.Equal(t, float32(0), d.Confidence)
}

func TestDetectionFromModelKeepsValidInput(t *testing.T) {
	d := models.DetectionFromModel(1, 2, 3, 4, 0.9, 7, "soup")
	want, err := models.NewDetection(1, 2, 3, 4, 0.9, 7, "soup")
	require.NoError(t, err)
	assert.Equal(t, want, d)
}

func TestDetectionGeometry(t *testing.T) {
	d, err := models.NewDetection(10, 10, 30, 50, 0.5, 0, "apple")
	require.NoError(t, err)
	assert.Equal(t, float32(20), d.Width())
	assert.Equal(t, float32(40), d.Height())
	assert.Equal(t, float32(800), d.Area())
}
