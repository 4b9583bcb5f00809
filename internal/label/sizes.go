package label

import "fmt"

type Kind int

const (
	DieCut Kind = iota
	Endless
)

func (k Kind) String() string {
	if k == Endless {
		return "endless"
	}
	return "die-cut"
}

// Size is a named media geometry. Width and Height are the printable area in
// device dots; Height is 0 for endless media. WidthMM and HeightMM describe
// the physical label for printers that want it (TSPL SIZE).
type Size struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Kind     Kind    `json:"-"`
	WidthMM  float64 `json:"-"`
	HeightMM float64 `json:"-"`
}

// Brother QL media at 300 dpi.
var BrotherQL = []Size{
	{ID: "12", Name: "12mm endless", Width: 106, Kind: Endless, WidthMM: 12},
	{ID: "29", Name: "29mm endless", Width: 306, Kind: Endless, WidthMM: 29},
	{ID: "38", Name: "38mm endless", Width: 413, Kind: Endless, WidthMM: 38},
	{ID: "50", Name: "50mm endless", Width: 554, Kind: Endless, WidthMM: 50},
	{ID: "54", Name: "54mm endless", Width: 590, Kind: Endless, WidthMM: 54},
	{ID: "62", Name: "62mm endless", Width: 696, Kind: Endless, WidthMM: 62},
	{ID: "62mm", Name: "62mm endless", Width: 696, Kind: Endless, WidthMM: 62},
	{ID: "62red", Name: "62mm endless (black/red/white)", Width: 696, Kind: Endless, WidthMM: 62},
	{ID: "102", Name: "102mm endless", Width: 1164, Kind: Endless, WidthMM: 102},
	{ID: "17x54", Name: "17mm x 54mm die-cut", Width: 165, Height: 566, WidthMM: 17, HeightMM: 54},
	{ID: "29x90", Name: "29mm x 90mm die-cut", Width: 306, Height: 991, WidthMM: 29, HeightMM: 90},
	{ID: "62x29", Name: "62mm x 29mm die-cut", Width: 696, Height: 271, WidthMM: 62, HeightMM: 29},
	{ID: "62x100", Name: "62mm x 100mm die-cut", Width: 696, Height: 1109, WidthMM: 62, HeightMM: 100},
}

// Thermal media for a CUPS queue (Zebra LP 2844 class, 203 dpi).
var Thermal = []Size{
	{ID: "2.25x1.25", Name: `2.25" by 1.25"`, Width: 457, Height: 254, WidthMM: 57.2, HeightMM: 31.8},
	{ID: "1.25x2.25", Name: `1.25" x 2.25"`, Width: 254, Height: 457, WidthMM: 31.8, HeightMM: 57.2},
}

// Nelko P21 media, 96 dots across the head at 203 dpi.
var Nelko = []Size{
	{ID: "12x40mm", Name: "12mm x 40mm", Width: 96, Height: 284, WidthMM: 12, HeightMM: 40},
	{ID: "14x40mm", Name: "14mm x 40mm", Width: 96, Height: 284, WidthMM: 14, HeightMM: 40},
	{ID: "14x50mm", Name: "14mm x 50mm", Width: 96, Height: 355, WidthMM: 14, HeightMM: 50},
	{ID: "14x75mm", Name: "14mm x 75mm", Width: 96, Height: 532, WidthMM: 14, HeightMM: 75},
	{ID: "15x30mm", Name: "15mm x 30mm", Width: 96, Height: 213, WidthMM: 15, HeightMM: 30},
}

// Catalog is an ordered, read-only set of sizes.
type Catalog struct {
	sizes []Size
	byID  map[string]Size
}

func NewCatalog(sizes []Size) *Catalog {
	c := &Catalog{sizes: append([]Size(nil), sizes...), byID: make(map[string]Size, len(sizes))}
	for _, s := range sizes {
		c.byID[s.ID] = s
	}
	return c
}

// Sizes returns a copy in declaration order.
func (c *Catalog) Sizes() []Size {
	return append([]Size(nil), c.sizes...)
}

func (c *Catalog) Lookup(id string) (Size, error) {
	s, ok := c.byID[id]
	if !ok {
		return Size{}, fmt.Errorf("%w: %q", ErrUnknownLabelSize, id)
	}
	return s, nil
}

// Dimensions returns the printable area of a size in dots.
func (c *Catalog) Dimensions(id string) (int, int, error) {
	s, err := c.Lookup(id)
	if err != nil {
		return 0, 0, err
	}
	return s.Width, s.Height, nil
}

// Oriented normalises dimensions to landscape for the standard orientation
// and swaps them for the rotated one.
func Oriented(width, height int, o Orientation) (int, int) {
	if height > width {
		width, height = height, width
	}
	if o == Rotated {
		width, height = height, width
	}
	return width, height
}
