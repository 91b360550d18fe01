package vision

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/facewatch/internal/models"
)

func grayFrame(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{100, 100, 100, 255})
		}
	}
	return img
}

func TestDecodeImage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, grayFrame(8, 8)))

	img, err := DecodeImage(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())

	_, err = DecodeImage([]byte("not an image"))
	assert.Error(t, err)
}

func TestEncodeJPEGRoundTrip(t *testing.T) {
	data := EncodeJPEG(grayFrame(16, 16), 85)
	require.NotEmpty(t, data)

	img, err := DecodeImage(data)
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())
	assert.Equal(t, 16, img.Bounds().Dy())
}

func TestCropFace(t *testing.T) {
	frame := grayFrame(100, 80)

	crop := CropFace(frame, models.FaceBox{X: 10, Y: 10, Width: 30, Height: 20})
	assert.Equal(t, 30, crop.Bounds().Dx())
	assert.Equal(t, 20, crop.Bounds().Dy())
}

func TestCropFaceClampsToFrame(t *testing.T) {
	frame := grayFrame(100, 80)

	// Box partly outside the frame must be clamped, not panic.
	crop := CropFace(frame, models.FaceBox{X: 90, Y: 70, Width: 50, Height: 50})
	assert.LessOrEqual(t, crop.Bounds().Dx(), 10)
	assert.LessOrEqual(t, crop.Bounds().Dy(), 10)

	crop = CropFace(frame, models.FaceBox{X: -20, Y: -20, Width: 40, Height: 40})
	assert.LessOrEqual(t, crop.Bounds().Dx(), 20)
	assert.LessOrEqual(t, crop.Bounds().Dy(), 20)
}

func TestAnnotateDoesNotMutateOriginal(t *testing.T) {
	frame := grayFrame(60, 60)
	box := models.FaceBox{X: 10, Y: 10, Width: 20, Height: 20}

	annotated := Annotate(frame, box)

	// The box edge turns green on the copy only.
	r, g, b, _ := annotated.At(10, 10).RGBA()
	assert.True(t, g > r && g > b, "expected green box edge")

	or, og, ob, _ := frame.At(10, 10).RGBA()
	assert.Equal(t, or, og)
	assert.Equal(t, og, ob)
}

func TestResizeImage(t *testing.T) {
	resized := resizeImage(grayFrame(100, 50), 20, 10)
	assert.Equal(t, 20, resized.Bounds().Dx())
	assert.Equal(t, 10, resized.Bounds().Dy())
}
