package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"

	"label-web/internal/label"
)

// MinFontSize is the floor of the font-fit search.
const MinFontSize = 2

// FaceSource builds font faces at a pixel size.
type FaceSource interface {
	Face(size int) font.Face
}

// Geometry is the printer-side layout policy: how large the canvas is for a
// measured text box and where the text box starts on it.
type Geometry interface {
	CanvasSize(box image.Point, req *label.Request) (int, int)
	TextOrigin(width, height int, box image.Point, req *label.Request) image.Point
}

// NormalizeEmptyLines replaces empty lines with a single space so every line
// contributes its full height to the measured box.
func NormalizeEmptyLines(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line == "" {
			lines[i] = " "
		}
	}
	return strings.Join(lines, "\n")
}

// measurer reuses one scratch context for repeated measurements.
type measurer struct {
	dc *gg.Context
}

func newMeasurer() *measurer {
	return &measurer{dc: gg.NewContext(1, 1)}
}

func (m *measurer) box(face font.Face, text string) image.Point {
	m.dc.SetFontFace(face)
	w, h := m.dc.MeasureMultilineString(text, 1)
	return image.Pt(int(math.Ceil(w)), int(math.Ceil(h)))
}

// MeasureMultiline returns the bounding box of text drawn with face.
func MeasureMultiline(face font.Face, text string) image.Point {
	return newMeasurer().box(face, NormalizeEmptyLines(text))
}

// FitFontSize walks down from size until the text box plus offsets fits
// strictly inside width x height. It never goes below MinFontSize.
func FitFontSize(src FaceSource, text string, size, width, height, hOffset, vOffset int) int {
	text = NormalizeEmptyLines(text)
	m := newMeasurer()
	for ; size > MinFontSize; size-- {
		b := m.box(src.Face(size), text)
		if b.X+hOffset < width && b.Y+vOffset < height {
			return size
		}
	}
	return MinFontSize
}

// RenderText lays out req.Text on a white canvas sized by geo.
func RenderText(req *label.Request, src FaceSource, geo Geometry) (image.Image, error) {
	if req.Text == "" {
		return nil, fmt.Errorf("%w: empty text", label.ErrInvalidParameter)
	}
	text := NormalizeEmptyLines(req.Text)
	m := newMeasurer()

	size := req.FontSize
	box := m.box(src.Face(size), text)

	width, height := geo.CanvasSize(box, req)
	width, height = max(width, 1), max(height, 1)

	if fitted := FitFontSize(src, text, size, width, height, 0, 0); fitted != size {
		size = fitted
		box = m.box(src.Face(size), text)
	}

	dc := gg.NewContext(width, height)
	dc.SetColor(color.White)
	dc.Clear()

	origin := geo.TextOrigin(width, height, box, req)
	dc.SetColor(req.Fill)
	drawMultiline(dc, src.Face(size), text, origin, box.X, req.Align)

	return dc.Image(), nil
}

// drawMultiline draws text line by line from the top-left corner origin,
// aligning each line inside a box boxWidth wide.
func drawMultiline(dc *gg.Context, face font.Face, text string, origin image.Point, boxWidth int, align label.Align) {
	dc.SetFontFace(face)
	metrics := face.Metrics()
	lineHeight := float64(metrics.Height) / 64
	ascent := float64(metrics.Ascent) / 64

	for i, line := range strings.Split(text, "\n") {
		w, _ := dc.MeasureString(line)
		x := float64(origin.X)
		switch align {
		case label.AlignCenter:
			x += (float64(boxWidth) - w) / 2
		case label.AlignRight:
			x += float64(boxWidth) - w
		}
		dc.DrawString(line, x, float64(origin.Y)+float64(i)*lineHeight+ascent)
	}
}
