package filestore

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"

	"github.com/kozaktomas/face-attendance/internal/face"
)

// samplePadding is the number of pixels added around the detected face
// region when cropping an enrollment sample.
const samplePadding = 20

// CropSample decodes the frame, crops the detected face region with padding,
// and re-encodes it as JPEG for storage.
func CropSample(frame []byte, region face.Region) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	bounds := img.Bounds()
	rect := region.Pad(samplePadding, bounds.Dx(), bounds.Dy()).Rect().Add(bounds.Min)
	if rect.Empty() {
		return nil, fmt.Errorf("face region %v is empty after clamping", region)
	}

	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(dst, dst.Bounds(), img, rect.Min, draw.Src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode sample: %w", err)
	}
	return buf.Bytes(), nil
}
