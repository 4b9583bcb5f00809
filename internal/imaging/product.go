package imaging

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/fogleman/gg"

	"label-web/internal/label"
)

const (
	// ProductColumns is the wrap width of product names.
	ProductColumns = 25
	// Gap between the barcode and the product text.
	barcodeGap = 40
	// Vertical gap between product text and due date.
	dueDateGutter = 10
	dueDateScale  = 0.6
)

// RenderProductLabel composes a Grocy product label: DataMatrix at a fixed
// offset, the wrapped product name next to it and an optional due date below
// the name.
func RenderProductLabel(req *label.ProductRequest, src FaceSource, geo Geometry) (image.Image, error) {
	if req.Product == "" {
		return nil, fmt.Errorf("%w: empty product", label.ErrInvalidParameter)
	}
	product := WrapColumns(req.Product, ProductColumns)

	code, err := DataMatrix(req.Grocycode)
	if err != nil {
		return nil, err
	}
	codeSize := code.Bounds().Size()

	m := newMeasurer()
	size := req.FontSize
	box := m.box(src.Face(size), product)

	width, height := geo.CanvasSize(box, &req.Request)
	if req.Orientation == label.Rotated {
		width, height = height, width
	}
	width = max(width, 2*label.ProductMarginLeft+codeSize.X)
	height = max(height, 2*label.ProductMarginTop+codeSize.Y)

	dc := gg.NewContext(width, height)
	dc.SetColor(color.White)
	dc.Clear()

	var x, y int
	if req.Orientation == label.Rotated {
		code = Rotate90CW(code)
		x = label.ProductMarginLeft - 10
		y = label.ProductMarginTop + codeSize.X + barcodeGap
	} else {
		x = codeSize.X + barcodeGap
		y = label.ProductMarginTop - 10
	}
	dc.DrawImage(code, label.ProductMarginLeft, label.ProductMarginTop)

	size = FitFontSize(src, product, size, width, height, x, y)
	face := src.Face(size)
	dc.SetColor(req.Fill)
	drawMultiline(dc, face, product, image.Pt(x, y), 0, label.AlignLeft)

	if req.DueDate != "" {
		y += m.box(face, product).Y + dueDateGutter
		dueSize := max(int(float64(req.FontSize)*dueDateScale), MinFontSize)
		dueSize = FitFontSize(src, req.DueDate, dueSize, width, height, x, y)
		drawMultiline(dc, src.Face(dueSize), req.DueDate, image.Pt(x, y), 0, label.AlignLeft)
	}

	return dc.Image(), nil
}

// WrapColumns wraps text to at most columns runes per line, breaking at
// whitespace. A word longer than a line fills the rest of the current line
// and continues on the next ones, as Python's textwrap does.
func WrapColumns(text string, columns int) string {
	var lines []string
	var line []rune

	flush := func() {
		if len(line) > 0 {
			lines = append(lines, string(line))
			line = line[:0]
		}
	}

	for _, word := range strings.Fields(text) {
		r := []rune(word)
		switch {
		case len(line) > 0 && len(line)+1+len(r) <= columns:
			line = append(append(line, ' '), r...)
			continue
		case len(r) <= columns:
			flush()
			line = append(line, r...)
			continue
		}

		if len(line) > 0 {
			if space := columns - len(line) - 1; space > 0 {
				line = append(append(line, ' '), r[:space]...)
				r = r[space:]
			}
			flush()
		}
		for len(r) > columns {
			lines = append(lines, string(r[:columns]))
			r = r[columns:]
		}
		line = append(line, r...)
	}
	flush()
	return strings.Join(lines, "\n")
}
