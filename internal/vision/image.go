package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// cropPadding expands the detector's tight box so the crop keeps some
// context around the face.
const cropPadding = 0.1

// maxCropEdge bounds the longer edge of an uploaded crop.
const maxCropEdge = 512

// CropFace extracts the face region described by a normalized bottom-left
// origin box from the image, pads it, downscales oversized crops, and
// re-encodes as JPEG. Returns an error when the box lies outside the image.
func CropFace(img image.Image, box Box) ([]byte, error) {
	bounds := img.Bounds()
	w := float64(bounds.Dx())
	h := float64(bounds.Dy())

	// Bottom-left origin to pixel coordinates (image origin is top-left).
	x1 := int((box.X - box.W*cropPadding) * w)
	x2 := int((box.X + box.W*(1+cropPadding)) * w)
	y1 := int((1 - box.Y - box.H*(1+cropPadding)) * h)
	y2 := int((1 - box.Y + box.H*cropPadding) * h)

	x1 = clamp(x1, bounds.Min.X, bounds.Max.X)
	x2 = clamp(x2, bounds.Min.X, bounds.Max.X)
	y1 = clamp(y1, bounds.Min.Y, bounds.Max.Y)
	y2 = clamp(y2, bounds.Min.Y, bounds.Max.Y)

	if x2-x1 <= 0 || y2-y1 <= 0 {
		return nil, fmt.Errorf("face box %+v outside image bounds", box)
	}

	rect := image.Rect(0, 0, x2-x1, y2-y1)
	dstW, dstH := rect.Dx(), rect.Dy()
	if dstW > maxCropEdge || dstH > maxCropEdge {
		scale := float64(maxCropEdge) / float64(max(dstW, dstH))
		dstW = int(float64(dstW) * scale)
		dstH = int(float64(dstH) * scale)
	}

	crop := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	draw.CatmullRom.Scale(crop, crop.Bounds(), img, image.Rect(x1, y1, x2, y2), draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, crop, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encode crop: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeImage decodes JPEG or PNG bytes.
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
