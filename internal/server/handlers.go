package server

import (
	"context"
	"image"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"label-web/internal/imaging"
	"label-web/internal/label"
	"label-web/internal/logger"
	"label-web/internal/notify"
)

const (
	msgMissingText      = "Please provide the text for the label"
	msgMissingProduct   = "Please provide the product for the label"
	msgMissingGrocycode = "Please provide the grocycode for the label"
)

// renderFunc draws the label for a parsed request. The second return value
// is a user-facing message when a required parameter is missing.
type renderFunc func(lc *labelContext) (image.Image, string, error)

func (s *Server) renderText(lc *labelContext) (image.Image, string, error) {
	if lc.req.Text == "" {
		return nil, msgMissingText, nil
	}
	img, err := imaging.RenderText(&lc.req.Request, lc.font, s.backend)
	return img, "", err
}

func (s *Server) renderGrocy(lc *labelContext) (image.Image, string, error) {
	if lc.req.Product == "" {
		return nil, msgMissingProduct, nil
	}
	if lc.req.Grocycode == "" {
		return nil, msgMissingGrocycode, nil
	}
	img, err := imaging.RenderProductLabel(lc.req, lc.font, s.backend)
	return img, "", err
}

func (s *Server) previewText(c *gin.Context)  { s.preview(c, s.renderText) }
func (s *Server) previewGrocy(c *gin.Context) { s.preview(c, s.renderGrocy) }
func (s *Server) printText(c *gin.Context)    { s.submit(c, "text", s.renderText) }
func (s *Server) printGrocy(c *gin.Context)   { s.submit(c, "grocy", s.renderGrocy) }

// preview answers with the rendered PNG, or its base64 text when
// return_format=base64. Input errors are 400 with a JSON result.
func (s *Server) preview(c *gin.Context, render renderFunc) {
	lc, err := s.parseRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, label.Failed(err))
		return
	}
	img, missing, err := render(lc)
	if missing != "" {
		c.JSON(http.StatusBadRequest, label.Result{Error: missing})
		return
	}
	if err != nil {
		s.renderError(c, err)
		return
	}

	if c.Query("return_format") == "base64" {
		text, err := imaging.EncodeBase64PNG(img)
		if err != nil {
			s.renderError(c, err)
			return
		}
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(text))
		return
	}
	data, err := imaging.EncodePNG(img)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}

func (s *Server) renderError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if label.IsInputError(err) {
		status = http.StatusBadRequest
	} else {
		_ = c.Error(err)
	}
	c.JSON(status, label.Failed(err))
}

// submit renders and prints a label. Every outcome is a 200 JSON result.
func (s *Server) submit(c *gin.Context, kind string, render renderFunc) {
	lc, err := s.parseRequest(c)
	if err != nil {
		c.JSON(http.StatusOK, label.Failed(err))
		return
	}
	img, missing, err := render(lc)
	if missing != "" {
		c.JSON(http.StatusOK, label.Result{Error: missing})
		return
	}
	if err != nil {
		logger.FromGin(c).Error("render label", zap.Error(err))
		c.JSON(http.StatusOK, label.Failed(err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.timeout)
	defer cancel()
	result := s.backend.Submit(ctx, img, &lc.req.Request)

	ev := notify.NewEvent(kind, lc.req.SizeID, lc.req.Text, result)
	if kind == "grocy" {
		ev.Text = lc.req.Product
		ev.Grocycode = lc.req.Grocycode
	}
	s.notifier.Notify(ev)

	c.JSON(http.StatusOK, result)
}

type sizeResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Kind   string `json:"kind"`
}

func (s *Server) labelSizes(c *gin.Context) {
	sizes := s.backend.LabelSizes()
	out := make([]sizeResponse, 0, len(sizes))
	for _, sz := range sizes {
		out = append(out, sizeResponse{
			ID:     sz.ID,
			Name:   sz.Name,
			Width:  sz.Width,
			Height: sz.Height,
			Kind:   sz.Kind.String(),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) listFonts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"fonts":   s.fonts.Families(),
		"default": s.defaultFont,
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"backend": s.backend.Name(),
	})
}
