package printer

import (
	"context"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"label-web/internal/config"
	"label-web/internal/label"
)

// cancelPause clears a paused state left over from a previous job.
var cancelPause = []byte("\x1b!o")

// openPort is swapped in tests.
var openPort = func(device string, mode *serial.Mode) (io.WriteCloser, error) {
	return serial.Open(device, mode)
}

// FindSerialDevices lists bound Bluetooth serial devices (/dev/rfcomm*).
func FindSerialDevices() []string {
	devices, _ := filepath.Glob("/dev/rfcomm*")
	return devices
}

// Port is an open connection to a TSPL printer on a serial line.
type Port struct {
	port io.WriteCloser
	name string
}

// Connect opens device at baud 8N1.
func Connect(device string, baud int) (*Port, error) {
	if baud <= 0 {
		baud = 115200
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := openPort(device, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open port %s: %w", device, err)
	}
	return &Port{port: port, name: device}, nil
}

// Close closes the connection
func (p *Port) Close() error {
	if p.port != nil {
		return p.port.Close()
	}
	return nil
}

// Print sends a raw job, clearing any pause state first.
func (p *Port) Print(data []byte) error {
	if p.port == nil {
		return ErrNotConnected
	}

	if _, err := p.port.Write(cancelPause); err != nil {
		return fmt.Errorf("cancel pause: %w", err)
	}
	time.Sleep(100 * time.Millisecond)

	if _, err := p.port.Write(data); err != nil {
		return fmt.Errorf("print failed: %w", err)
	}
	return nil
}

// Name returns the device path
func (p *Port) Name() string {
	return p.name
}

// Serial prints TSPL raster jobs over a serial line, one job at a time.
type Serial struct {
	media
	device  string
	baud    int
	density int
	copies  int
	log     *zap.Logger

	mu sync.Mutex
}

func NewSerial(cfg config.PrinterConfig, log *zap.Logger) (*Serial, error) {
	if cfg.Device == "" {
		return nil, fmt.Errorf("serial backend: printer.device is required")
	}
	catalog, err := catalogOrDefault(cfg.Media, "nelko")
	if err != nil {
		return nil, err
	}
	return &Serial{
		media:   media{Catalog: catalog, Geometry: Geometry{CenterFixed: true}},
		device:  cfg.Device,
		baud:    cfg.BaudRate,
		density: cfg.Density,
		copies:  cfg.Copies,
		log:     log,
	}, nil
}

func (s *Serial) Name() string { return "serial" }

func (s *Serial) Submit(ctx context.Context, img image.Image, req *label.Request) label.Result {
	size, err := s.Lookup(req.SizeID)
	if err != nil {
		return label.Failed(err)
	}
	job := rasterJob(img, req, size, s.density, s.copies)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return label.Failed(err)
	}

	port, err := Connect(s.device, s.baud)
	if err != nil {
		s.log.Error("open printer", zap.String("device", s.device), zap.Error(err))
		return label.Failed(err)
	}
	defer port.Close()

	if err := port.Print(job); err != nil {
		s.log.Error("print", zap.String("device", s.device), zap.Error(err))
		return label.Failed(err)
	}

	s.log.Info("label printed",
		zap.String("device", s.device),
		zap.String("label_size", req.SizeID),
		zap.Int("bytes", len(job)))
	return label.Succeeded()
}
