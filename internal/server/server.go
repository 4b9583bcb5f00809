// Package server is the HTTP surface: label previews, print submission and
// a few discovery endpoints.
package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"label-web/internal/config"
	"label-web/internal/fonts"
	"label-web/internal/label"
	"label-web/internal/logger"
	"label-web/internal/notify"
	"label-web/internal/printer"
)

const defaultTimeout = 30 * time.Second

// ErrNoFonts is returned at startup when no font could be loaded.
var ErrNoFonts = errors.New("no fonts available")

// Server holds everything a request needs. It is read-only after New.
type Server struct {
	cfg         config.LabelConfig
	timeout     time.Duration
	backend     printer.Backend
	sizes       *label.Catalog
	fonts       *fonts.Registry
	defaultFont fonts.Spec
	notifier    notify.Notifier
	log         *zap.Logger
}

// New validates the label defaults against the backend and the font
// registry and picks the default font.
func New(cfg *config.Config, backend printer.Backend, reg *fonts.Registry, notifier notify.Notifier, log *zap.Logger) (*Server, error) {
	if _, _, err := backend.Dimensions(cfg.Label.DefaultSize); err != nil {
		return nil, fmt.Errorf("invalid default label size: %w", err)
	}
	if reg.Len() == 0 {
		return nil, ErrNoFonts
	}

	def, found := reg.SelectDefault(cfg.Label.DefaultFonts)
	if !found {
		log.Warn("none of the configured default fonts is available",
			zap.Stringers("configured", cfg.Label.DefaultFonts),
			zap.Stringer("using", def))
	}

	if notifier == nil {
		notifier = nopNotifier{}
	}
	timeout := cfg.Printer.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Server{
		cfg:         cfg.Label,
		timeout:     timeout,
		backend:     backend,
		sizes:       label.NewCatalog(backend.LabelSizes()),
		fonts:       reg,
		defaultFont: def,
		notifier:    notifier,
		log:         log,
	}, nil
}

type nopNotifier struct{}

func (nopNotifier) Notify(notify.Event) {}

// DefaultFont is the font used when a request names none.
func (s *Server) DefaultFont() fonts.Spec {
	return s.defaultFont
}

// Router builds the gin engine with logging middleware and all routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(logger.RequestID(), logger.GinMiddleware(s.log), logger.Recovery(s.log))

	api := r.Group("/api")
	{
		api.GET("/preview/text", s.previewText)
		api.POST("/preview/text", s.previewText)
		api.GET("/preview/grocy", s.previewGrocy)
		api.POST("/preview/grocy", s.previewGrocy)

		api.GET("/print/text", s.printText)
		api.POST("/print/text", s.printText)
		api.GET("/print/grocy", s.printGrocy)
		api.POST("/print/grocy", s.printGrocy)

		api.GET("/label-sizes", s.labelSizes)
		api.GET("/fonts", s.listFonts)
	}
	r.GET("/health", s.health)

	return r
}

// HTTPServer wraps the router in an http.Server listening on addr.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
