package printer

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/google/uuid"
	"github.com/phin1x/go-ipp"
	"go.uber.org/zap"

	"label-web/internal/config"
	"label-web/internal/imaging"
	"label-web/internal/label"
)

// jobSubmitter is the part of the IPP client CUPS uses.
type jobSubmitter interface {
	PrintJob(document ipp.Document, printer string, jobAttributes map[string]interface{}) (int, error)
}

// CUPS prints PNG documents to a CUPS queue over IPP.
type CUPS struct {
	media
	client jobSubmitter
	queue  string
	copies int
	log    *zap.Logger
}

func NewCUPS(cfg config.PrinterConfig, log *zap.Logger) (*CUPS, error) {
	if cfg.Queue == "" {
		return nil, fmt.Errorf("cups backend: printer.queue is required")
	}
	catalog, err := catalogOrDefault(cfg.Media, "thermal")
	if err != nil {
		return nil, err
	}
	client := ipp.NewCUPSClient(cfg.CUPSHost, cfg.CUPSPort, cfg.CUPSUser, cfg.CUPSPassword, cfg.CUPSTLS)
	return &CUPS{
		media:  media{Catalog: catalog, Geometry: Geometry{}},
		client: client,
		queue:  cfg.Queue,
		copies: max(cfg.Copies, 1),
		log:    log,
	}, nil
}

func (c *CUPS) Name() string { return "cups" }

func (c *CUPS) Submit(ctx context.Context, img image.Image, req *label.Request) label.Result {
	data, err := imaging.EncodePNG(img)
	if err != nil {
		return label.Failed(err)
	}

	name := "label-" + uuid.NewString()
	doc := ipp.Document{
		Document: bytes.NewReader(data),
		Size:     len(data),
		Name:     name + ".png",
		MimeType: "image/png",
	}
	attrs := map[string]interface{}{
		ipp.AttributeJobName: name,
		ipp.AttributeCopies:  c.copies,
	}

	type outcome struct {
		id  int
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		id, err := c.client.PrintJob(doc, c.queue, attrs)
		done <- outcome{id, err}
	}()

	select {
	case <-ctx.Done():
		c.log.Error("print", zap.String("queue", c.queue), zap.Error(ctx.Err()))
		return label.Failed(fmt.Errorf("submit to %s: %w", c.queue, ctx.Err()))
	case o := <-done:
		if o.err != nil {
			c.log.Error("print", zap.String("queue", c.queue), zap.Error(o.err))
			return label.Failed(fmt.Errorf("submit to %s: %w", c.queue, o.err))
		}
		c.log.Info("label printed",
			zap.String("queue", c.queue),
			zap.Int("job_id", o.id),
			zap.String("label_size", req.SizeID))
		return label.Succeeded()
	}
}
