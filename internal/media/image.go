package media

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	_ "image/gif"
	_ "image/jpeg"

	"watopic/internal/constants"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// NormalizeSticker decodes an image and renders it into a square canvas of
// the sticker side length, preserving aspect ratio and padding the rest
// with transparency.
func NormalizeSticker(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	squared := squarePad(img, constants.StickerSideLength)

	var buf bytes.Buffer
	if err := png.Encode(&buf, squared); err != nil {
		return nil, fmt.Errorf("failed to encode sticker: %w", err)
	}
	return buf.Bytes(), nil
}

// squarePad scales img to fit inside a side x side square and centers it on
// a transparent background.
func squarePad(img image.Image, side int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return image.NewNRGBA(image.Rect(0, 0, side, side))
	}

	scaledW, scaledH := side, side
	if w > h {
		scaledH = h * side / w
	} else if h > w {
		scaledW = w * side / h
	}

	dst := image.NewNRGBA(image.Rect(0, 0, side, side))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	offsetX := (side - scaledW) / 2
	offsetY := (side - scaledH) / 2
	target := image.Rect(offsetX, offsetY, offsetX+scaledW, offsetY+scaledH)

	draw.CatmullRom.Scale(dst, target, img, bounds, draw.Over, nil)
	return dst
}
