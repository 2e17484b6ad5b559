package utils

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestAnnotateJPEG(t *testing.T) {
	frame := testJPEG(t, 320, 240)

	out, err := AnnotateJPEG(frame, []LabeledBox{
		{Label: "Person Detected 91%", Rect: image.Rect(40, 40, 120, 200)},
	})
	require.NoError(t, err)

	decoded, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 320, 240), decoded.Bounds())

	// something got drawn
	assert.NotEqual(t, frame, out)
}

func TestAnnotateJPEGClampsOutOfBoundsBox(t *testing.T) {
	frame := testJPEG(t, 100, 100)

	out, err := AnnotateJPEG(frame, []LabeledBox{
		{Label: "Fire Detected 88%", Rect: image.Rect(80, 80, 300, 300)},
		{Label: "off-frame", Rect: image.Rect(200, 200, 300, 300)},
	})
	require.NoError(t, err)

	_, err = jpeg.Decode(bytes.NewReader(out))
	assert.NoError(t, err)
}

func TestAnnotateJPEGBadInput(t *testing.T) {
	_, err := AnnotateJPEG([]byte("not a jpeg"), nil)
	assert.Error(t, err)
}

func TestBoxColor(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 255, G: 64, B: 0, A: 255}, boxColor("Fire Detected 90%"))
	assert.Equal(t, color.RGBA{G: 255, A: 255}, boxColor("Person Detected 80%"))
}
