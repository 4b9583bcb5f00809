// Package printer turns rendered labels into print jobs. A Backend owns the
// label sizes its device supports, the layout policy for them and the
// transport that delivers the job.
package printer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"go.uber.org/zap"

	"label-web/internal/config"
	"label-web/internal/label"
)

var (
	ErrNotConnected   = errors.New("printer not connected")
	ErrUnknownBackend = errors.New("unknown printer backend")
	ErrUnknownMedia   = errors.New("unknown printer media")
)

// Backend is a configured printer.
type Backend interface {
	Name() string
	LabelSizes() []label.Size
	Dimensions(id string) (int, int, error)
	CanvasSize(box image.Point, req *label.Request) (int, int)
	TextOrigin(width, height int, box image.Point, req *label.Request) image.Point
	// Submit prints img. Failures are reported in the result.
	Submit(ctx context.Context, img image.Image, req *label.Request) label.Result
}

// media is the part every backend shares: a size catalog and a layout.
type media struct {
	*label.Catalog
	Geometry
}

func (m media) LabelSizes() []label.Size {
	return m.Sizes()
}

// Catalog returns the named media catalog.
func Catalog(name string) (*label.Catalog, error) {
	switch strings.ToLower(name) {
	case "brother", "brother_ql", "ql":
		return label.NewCatalog(label.BrotherQL), nil
	case "thermal", "zebra":
		return label.NewCatalog(label.Thermal), nil
	case "nelko", "p21":
		return label.NewCatalog(label.Nelko), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMedia, name)
}

// New builds the backend selected by cfg.Backend.
func New(cfg config.PrinterConfig, log *zap.Logger) (Backend, error) {
	log = log.Named("printer")
	switch strings.ToLower(cfg.Backend) {
	case "cups", "":
		return NewCUPS(cfg, log)
	case "network", "tcp":
		return NewNetwork(cfg, log)
	case "serial":
		return NewSerial(cfg, log)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
}

func catalogOrDefault(name, fallback string) (*label.Catalog, error) {
	if name == "" {
		name = fallback
	}
	return Catalog(name)
}
