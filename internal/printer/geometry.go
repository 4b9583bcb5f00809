package printer

import (
	"image"

	"label-web/internal/label"
)

// Geometry decides canvas size and text placement.
//
// Endless media always grows with the text: a standard label is as tall as
// the text plus top and bottom margins, a rotated one as long as the text
// plus left and right margins. Fixed labels use the requested dimensions.
// On fixed labels the standard text starts at the top margin, or is centered
// vertically when CenterFixed is set. Rotated text is always centered
// vertically, skewed by half the difference of the top and bottom margins.
type Geometry struct {
	CenterFixed bool
}

func (g Geometry) CanvasSize(box image.Point, req *label.Request) (int, int) {
	m := req.Margins
	if req.Kind == label.Endless {
		if req.Orientation == label.Rotated {
			return box.X + m.Left + m.Right, req.Height
		}
		return req.Width, box.Y + m.Top + m.Bottom
	}
	return req.Width, req.Height
}

func (g Geometry) TextOrigin(width, height int, box image.Point, req *label.Request) image.Point {
	m := req.Margins
	centered := floorDiv(height-box.Y, 2) + floorDiv(m.Top-m.Bottom, 2)
	if req.Orientation == label.Rotated {
		return image.Pt(m.Left, centered)
	}
	x := max(floorDiv(width-box.X, 2), 0)
	if req.Kind != label.Endless && g.CenterFixed {
		return image.Pt(x, centered)
	}
	return image.Pt(x, m.Top)
}

// floorDiv rounds toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
