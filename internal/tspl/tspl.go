// Package tspl builds TSPL2 command streams for raster label printers.
package tspl

import (
	"bytes"
	"fmt"

	"label-web/internal/label"
)

// Command builds TSPL2 commands
type Command struct {
	buf bytes.Buffer
}

func New() *Command {
	return &Command{}
}

// Size sets label dimensions
func (c *Command) Size(width, height float64) *Command {
	fmt.Fprintf(&c.buf, "SIZE %.1f mm,%.1f mm\r\n", width, height)
	return c
}

// Gap sets gap between labels
func (c *Command) Gap(gap, offset float64) *Command {
	fmt.Fprintf(&c.buf, "GAP %.1f mm,%.1f mm\r\n", gap, offset)
	return c
}

// Direction sets print direction (0 or 1)
func (c *Command) Direction(dir, mirror int) *Command {
	fmt.Fprintf(&c.buf, "DIRECTION %d,%d\r\n", dir, mirror)
	return c
}

// Density sets print darkness (0-15)
func (c *Command) Density(level int) *Command {
	fmt.Fprintf(&c.buf, "DENSITY %d\r\n", min(max(level, 0), 15))
	return c
}

// CLS clears the image buffer
func (c *Command) CLS() *Command {
	c.buf.WriteString("CLS\r\n")
	return c
}

// Bitmap adds a bitmap image at x, y (dots). widthBytes is the packed row
// width, data the raw 1-bit rows.
func (c *Command) Bitmap(x, y, widthBytes, height int, data []byte) *Command {
	fmt.Fprintf(&c.buf, "BITMAP %d,%d,%d,%d,1,", x, y, widthBytes, height)
	c.buf.Write(data)
	c.buf.WriteString("\r\n")
	return c
}

// Print prints n copies
func (c *Command) Print(copies int) *Command {
	fmt.Fprintf(&c.buf, "PRINT %d\r\n", max(copies, 1))
	return c
}

// Bytes returns the raw command bytes to send to printer
func (c *Command) Bytes() []byte {
	return c.buf.Bytes()
}

func (c *Command) String() string {
	return c.buf.String()
}

// Job describes one raster print job.
type Job struct {
	Media      label.Size
	HeightMM   float64 // overrides Media.HeightMM for endless media
	WidthBytes int
	Height     int // dots
	Bitmap     []byte
	Density    int
	Copies     int
}

// BuildPrintJob renders a complete job: setup, one bitmap, print.
func BuildPrintJob(j Job) []byte {
	height := j.Media.HeightMM
	if j.HeightMM > 0 {
		height = j.HeightMM
	}
	gap := 2.0
	if j.Media.Kind == label.Endless {
		gap = 0
	}
	return New().
		Size(j.Media.WidthMM, height).
		Gap(gap, 0).
		Direction(0, 0).
		Density(j.Density).
		CLS().
		Bitmap(0, 0, j.WidthBytes, j.Height, j.Bitmap).
		Print(j.Copies).
		Bytes()
}
