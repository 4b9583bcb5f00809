package label

import (
	"errors"
	"fmt"
	"image/color"
	"strings"
)

// Caller input errors. LookupError kind: unknown font or label size.
// ValueError kind: a parameter that could not be parsed.
var (
	ErrUnknownFont      = errors.New("couldn't find the font & style")
	ErrUnknownLabelSize = errors.New("unknown label_size")
	ErrInvalidParameter = errors.New("invalid parameter")
)

// IsInputError reports whether err was caused by the caller's request.
func IsInputError(err error) bool {
	return errors.Is(err, ErrUnknownFont) ||
		errors.Is(err, ErrUnknownLabelSize) ||
		errors.Is(err, ErrInvalidParameter)
}

type Orientation int

const (
	Standard Orientation = iota
	Rotated
)

func (o Orientation) String() string {
	if o == Rotated {
		return "rotated"
	}
	return "standard"
}

// ParseOrientation accepts "standard" and "rotated".
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "standard":
		return Standard, nil
	case "rotated":
		return Rotated, nil
	}
	return Standard, fmt.Errorf("%w: orientation %q", ErrInvalidParameter, s)
}

type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

func (a Align) String() string {
	switch a {
	case AlignLeft:
		return "left"
	case AlignRight:
		return "right"
	}
	return "center"
}

// ParseAlign accepts "left", "center" and "right".
func ParseAlign(s string) (Align, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return AlignLeft, nil
	case "center", "centre":
		return AlignCenter, nil
	case "right":
		return AlignRight, nil
	}
	return AlignCenter, fmt.Errorf("%w: align %q", ErrInvalidParameter, s)
}

// Margins in device pixels.
type Margins struct {
	Top, Bottom, Left, Right int
}

// MarginsFromPercent converts margins given as percentages of the font size.
func MarginsFromPercent(fontSize int, top, bottom, left, right float64) Margins {
	px := func(pct float64) int { return int(float64(fontSize) * pct / 100) }
	return Margins{Top: px(top), Bottom: px(bottom), Left: px(left), Right: px(right)}
}

var (
	Black = color.RGBA{0, 0, 0, 255}
	Red   = color.RGBA{255, 0, 0, 255}
)

// FillColor picks red ink for two-color media, black otherwise.
func FillColor(sizeID string) color.RGBA {
	if strings.Contains(sizeID, "red") {
		return Red
	}
	return Black
}

// Request carries everything the layout engine and a printer backend need
// to render and print one text label.
type Request struct {
	Text        string
	FontFamily  string
	FontStyle   string
	FontSize    int
	SizeID      string
	Kind        Kind
	Orientation Orientation
	Align       Align
	Margins     Margins
	Margin      int
	Threshold   int // percent
	Fill        color.RGBA

	// Target dimensions, already swapped for the orientation.
	Width  int
	Height int
}

// ProductRequest is a Grocy product label: DataMatrix, product name and an
// optional due date.
type ProductRequest struct {
	Request
	Product   string
	DueDate   string
	Grocycode string
}

// Fixed margins of product labels.
const (
	ProductMarginLeft = 15
	ProductMarginTop  = 22
)

// Result is the JSON answer of a print attempt.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func Failed(err error) Result {
	return Result{Error: err.Error()}
}

func Succeeded() Result {
	return Result{Success: true}
}
