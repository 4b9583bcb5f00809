package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
)

// EncodePNG serialises a rendered label.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeBase64PNG returns the PNG bytes as standard base64 text.
func EncodeBase64PNG(img image.Image) (string, error) {
	data, err := EncodePNG(img)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// ThresholdLevel converts a threshold percentage into a gray cut-off: with
// 70% only pixels darker than 30% gray become black.
func ThresholdLevel(percent int) uint8 {
	percent = min(max(percent, 0), 100)
	return uint8((100 - percent) * 255 / 100)
}

// RowBytes is the packed width of one bitmap row.
func RowBytes(width int) int {
	return (width + 7) / 8
}

// ToMonochrome packs an image into 1-bit rows, MSB first, one bit per dot.
// A set bit is a dark pixel unless invert is true. The image is scaled to fit
// width x height when its size differs; uncovered dots are white.
func ToMonochrome(img image.Image, width, height int, threshold uint8, invert bool) []byte {
	src := img
	if b := img.Bounds(); b.Dx() != width || b.Dy() != height {
		src = resizeToFit(img, width, height)
	}
	sb := src.Bounds()

	widthBytes := RowBytes(width)
	data := make([]byte, widthBytes*height)

	for y := 0; y < height; y++ {
		for x := 0; x < widthBytes*8; x++ {
			gray := uint8(255)
			if x < sb.Dx() && y < sb.Dy() {
				gray = inkLevel(src.At(sb.Min.X+x, sb.Min.Y+y))
			}

			var bit uint8
			if gray < threshold {
				bit = 1
			}
			if invert {
				bit = 1 - bit
			}

			data[y*widthBytes+x/8] |= bit << (7 - x%8)
		}
	}

	return data
}

// inkLevel is the darkest channel of a color, so saturated ink such as red
// on two-color media binarises as dark while gray keeps its level.
func inkLevel(c color.Color) uint8 {
	r, g, b, _ := c.RGBA()
	// 16-bit channels
	return uint8(min(r, g, b) >> 8)
}

// resizeToFit scales with nearest neighbour, keeping the aspect ratio.
func resizeToFit(img image.Image, maxW, maxH int) image.Image {
	bounds := img.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()

	scale := float64(maxW) / float64(srcW)
	if s := float64(maxH) / float64(srcH); s < scale {
		scale = s
	}

	newW := max(int(float64(srcW)*scale), 1)
	newH := max(int(float64(srcH)*scale), 1)
	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))

	for y := 0; y < newH; y++ {
		for x := 0; x < newW; x++ {
			srcX := min(int(float64(x)/scale), srcW-1)
			srcY := min(int(float64(y)/scale), srcH-1)
			dst.Set(x, y, img.At(bounds.Min.X+srcX, bounds.Min.Y+srcY))
		}
	}

	return dst
}

// PreviewMonochrome turns packed bitmap data back into a viewable image.
func PreviewMonochrome(data []byte, width, height int) *image.Gray {
	widthBytes := RowBytes(width)
	img := image.NewGray(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			bit := (data[y*widthBytes+x/8] >> (7 - x%8)) & 1
			if bit == 1 {
				img.SetGray(x, y, color.Gray{0})
			} else {
				img.SetGray(x, y, color.Gray{255})
			}
		}
	}

	return img
}

// Rotate90CW rotates an image 90 degrees clockwise.
func Rotate90CW(src image.Image) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, h, w))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Set(h-1-y, x, src.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}

	return dst
}

// Rotate90CCW rotates an image 90 degrees counter-clockwise.
func Rotate90CCW(src image.Image) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, h, w))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Set(y, w-1-x, src.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}

	return dst
}
