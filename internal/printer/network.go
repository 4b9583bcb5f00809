package printer

import (
	"context"
	"fmt"
	"image"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"label-web/internal/config"
	"label-web/internal/label"
)

// DefaultRawPort is the raw (JetDirect) printing port.
const DefaultRawPort = "9100"

// Network prints TSPL raster jobs over a raw TCP socket.
type Network struct {
	media
	address string
	timeout time.Duration
	density int
	copies  int
	log     *zap.Logger

	mu sync.Mutex
}

func NewNetwork(cfg config.PrinterConfig, log *zap.Logger) (*Network, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("network backend: printer.address is required")
	}
	address := cfg.Address
	if _, _, err := net.SplitHostPort(address); err != nil {
		address = net.JoinHostPort(address, DefaultRawPort)
	}
	catalog, err := catalogOrDefault(cfg.Media, "thermal")
	if err != nil {
		return nil, err
	}
	return &Network{
		media:   media{Catalog: catalog, Geometry: Geometry{CenterFixed: true}},
		address: address,
		timeout: cfg.Timeout,
		density: cfg.Density,
		copies:  cfg.Copies,
		log:     log,
	}, nil
}

func (n *Network) Name() string { return "network" }

func (n *Network) Submit(ctx context.Context, img image.Image, req *label.Request) label.Result {
	size, err := n.Lookup(req.SizeID)
	if err != nil {
		return label.Failed(err)
	}
	job := rasterJob(img, req, size, n.density, n.copies)

	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.send(ctx, job); err != nil {
		n.log.Error("print", zap.String("address", n.address), zap.Error(err))
		return label.Failed(err)
	}

	n.log.Info("label printed",
		zap.String("address", n.address),
		zap.String("label_size", req.SizeID),
		zap.Int("bytes", len(job)))
	return label.Succeeded()
}

func (n *Network) send(ctx context.Context, job []byte) error {
	d := net.Dialer{Timeout: n.timeout}
	conn, err := d.DialContext(ctx, "tcp", n.address)
	if err != nil {
		return fmt.Errorf("connect %s: %w", n.address, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}
	if _, err := conn.Write(job); err != nil {
		return fmt.Errorf("send job to %s: %w", n.address, err)
	}
	return nil
}
