package imaging

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/datamatrix"

	"label-web/internal/label"
)

const (
	// Roughly 5x5mm for a short grocycode at 300 dpi.
	dataMatrixModule = 5
	dataMatrixQuiet  = 10
)

// DataMatrix encodes payload as a square DataMatrix with a white quiet zone.
func DataMatrix(payload string) (image.Image, error) {
	if payload == "" {
		return nil, fmt.Errorf("%w: empty barcode payload", label.ErrInvalidParameter)
	}
	code, err := datamatrix.Encode(payload)
	if err != nil {
		return nil, fmt.Errorf("encode datamatrix: %w", err)
	}
	b := code.Bounds()
	scaled, err := barcode.Scale(code, b.Dx()*dataMatrixModule, b.Dy()*dataMatrixModule)
	if err != nil {
		return nil, fmt.Errorf("scale datamatrix: %w", err)
	}

	sb := scaled.Bounds()
	img := image.NewRGBA(image.Rect(0, 0, sb.Dx()+2*dataMatrixQuiet, sb.Dy()+2*dataMatrixQuiet))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(img, sb.Add(image.Pt(dataMatrixQuiet, dataMatrixQuiet)), scaled, sb.Min, draw.Src)
	return img, nil
}
