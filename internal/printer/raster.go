package printer

import (
	"image"

	"label-web/internal/imaging"
	"label-web/internal/label"
	"label-web/internal/tspl"
)

// rasterJob converts a rendered label into a TSPL job for media. The print
// head spans media.Width dots, so rotated renders and images wider than the
// head are turned to run along the feed direction. TSPL prints 0 bits, hence
// the inverted bitmap.
func rasterJob(img image.Image, req *label.Request, m label.Size, density, copies int) []byte {
	if needsTurn(img.Bounds().Size(), req, m) {
		img = imaging.Rotate90CCW(img)
	}

	height := img.Bounds().Dy()
	if m.Kind != label.Endless && m.Height > 0 {
		height = m.Height
	}
	widthBytes := imaging.RowBytes(m.Width)
	bitmap := imaging.ToMonochrome(img, m.Width, height, imaging.ThresholdLevel(req.Threshold), true)

	job := tspl.Job{
		Media:      m,
		WidthBytes: widthBytes,
		Height:     height,
		Bitmap:     bitmap,
		Density:    density,
		Copies:     copies,
	}
	if m.Kind == label.Endless && m.WidthMM > 0 {
		dotsPerMM := float64(m.Width) / m.WidthMM
		job.HeightMM = float64(height) / dotsPerMM
	}
	return tspl.BuildPrintJob(job)
}

// needsTurn reports whether the image lies across the head. A rotated render
// has the label's dimensions swapped, so its height matches the head width.
func needsTurn(size image.Point, req *label.Request, m label.Size) bool {
	if size.X == m.Width {
		return false
	}
	if req.Orientation == label.Rotated && size.Y == m.Width {
		return true
	}
	return size.X > m.Width && size.Y <= m.Width
}
