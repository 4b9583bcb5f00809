package server

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"label-web/internal/fonts"
	"label-web/internal/label"
)

// Default margins in percent of the font size.
const (
	defaultMarginTop    = 24
	defaultMarginBottom = 45
	defaultMarginLeft   = 35
	defaultMarginRight  = 35

	defaultMargin    = 10
	defaultThreshold = 70
)

// param reads a form value, falling back to the query string.
func param(c *gin.Context, key string) (string, bool) {
	if v, ok := c.GetPostForm(key); ok {
		return v, true
	}
	return c.GetQuery(key)
}

func paramOr(c *gin.Context, key, def string) string {
	if v, ok := param(c, key); ok {
		return v
	}
	return def
}

func intParam(c *gin.Context, key string, def int) (int, error) {
	v, ok := param(c, key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", label.ErrInvalidParameter, key, v)
	}
	return n, nil
}

func floatParam(c *gin.Context, key string, def float64) (float64, error) {
	v, ok := param(c, key)
	if !ok || v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number, got %q", label.ErrInvalidParameter, key, v)
	}
	return f, nil
}

// labelContext is a parsed request together with the font it selected.
type labelContext struct {
	req  *label.ProductRequest
	font *fonts.Font
}

// parseRequest turns query and form parameters into a label request. All
// errors it returns are input errors.
func (s *Server) parseRequest(c *gin.Context) (*labelContext, error) {
	fontSize, err := intParam(c, "font_size", s.cfg.DefaultFontSize)
	if err != nil {
		return nil, err
	}
	if fontSize < 2 {
		return nil, fmt.Errorf("%w: font_size must be at least 2", label.ErrInvalidParameter)
	}
	margin, err := intParam(c, "margin", defaultMargin)
	if err != nil {
		return nil, err
	}
	threshold, err := intParam(c, "threshold", defaultThreshold)
	if err != nil {
		return nil, err
	}
	if threshold < 0 || threshold > 100 {
		return nil, fmt.Errorf("%w: threshold must be between 0 and 100", label.ErrInvalidParameter)
	}

	var pct [4]float64
	for i, m := range []struct {
		key string
		def float64
	}{
		{"margin_top", defaultMarginTop},
		{"margin_bottom", defaultMarginBottom},
		{"margin_left", defaultMarginLeft},
		{"margin_right", defaultMarginRight},
	} {
		if pct[i], err = floatParam(c, m.key, m.def); err != nil {
			return nil, err
		}
	}

	align, err := label.ParseAlign(paramOr(c, "align", "center"))
	if err != nil {
		return nil, err
	}
	orientation, err := label.ParseOrientation(paramOr(c, "orientation", s.cfg.DefaultOrientation))
	if err != nil {
		return nil, err
	}

	spec := s.defaultFont
	if v, ok := param(c, "font_family"); ok && strings.TrimSpace(v) != "" {
		spec = fonts.ParseSpec(v)
	}
	font, err := s.fonts.Lookup(spec.Family, spec.Style)
	if err != nil {
		return nil, err
	}

	sizeID := paramOr(c, "label_size", s.cfg.DefaultSize)
	size, err := s.sizes.Lookup(sizeID)
	if err != nil {
		return nil, err
	}
	width, height, err := s.backend.Dimensions(sizeID)
	if err != nil {
		return nil, err
	}
	width, height = label.Oriented(width, height, orientation)

	dueDate, ok := param(c, "due_date")
	if !ok {
		dueDate = paramOr(c, "duedate", "")
	}

	req := &label.ProductRequest{
		Request: label.Request{
			Text:        paramOr(c, "text", ""),
			FontFamily:  font.Family,
			FontStyle:   font.Style,
			FontSize:    fontSize,
			SizeID:      sizeID,
			Kind:        size.Kind,
			Orientation: orientation,
			Align:       align,
			Margins:     label.MarginsFromPercent(fontSize, pct[0], pct[1], pct[2], pct[3]),
			Margin:      margin,
			Threshold:   threshold,
			Fill:        label.FillColor(sizeID),
			Width:       width,
			Height:      height,
		},
		Product:   paramOr(c, "product", ""),
		DueDate:   dueDate,
		Grocycode: paramOr(c, "grocycode", ""),
	}
	return &labelContext{req: req, font: font}, nil
}
