package printer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/phin1x/go-ipp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
	"go.uber.org/zap"

	"label-web/internal/config"
	"label-web/internal/fonts"
	"label-web/internal/imaging"
	"label-web/internal/label"
)

func request(t *testing.T, b Backend, sizeID string, o label.Orientation) *label.Request {
	t.Helper()
	size, err := label.NewCatalog(b.LabelSizes()).Lookup(sizeID)
	require.NoError(t, err)
	w, h := label.Oriented(size.Width, size.Height, o)
	return &label.Request{
		Text:        "Milk",
		FontSize:    40,
		SizeID:      sizeID,
		Kind:        size.Kind,
		Orientation: o,
		Margins:     label.MarginsFromPercent(40, 24, 45, 35, 35),
		Threshold:   70,
		Fill:        label.Black,
		Width:       w,
		Height:      h,
	}
}

func goRegular(t *testing.T) *fonts.Font {
	t.Helper()
	reg, err := fonts.NewRegistry(zap.NewNop())
	require.NoError(t, err)
	f, err := reg.Lookup("Go", "Regular")
	require.NoError(t, err)
	return f
}

func TestNewSelectsBackend(t *testing.T) {
	log := zap.NewNop()

	b, err := New(config.PrinterConfig{Backend: "cups", Queue: "LabelPrinter", CUPSHost: "localhost", CUPSPort: 631}, log)
	require.NoError(t, err)
	assert.Equal(t, "cups", b.Name())

	b, err = New(config.PrinterConfig{Backend: "network", Address: "10.0.0.5", Media: "brother"}, log)
	require.NoError(t, err)
	assert.Equal(t, "network", b.Name())
	assert.Equal(t, "10.0.0.5:9100", b.(*Network).address)

	b, err = New(config.PrinterConfig{Backend: "serial", Device: "/dev/rfcomm0"}, log)
	require.NoError(t, err)
	assert.Equal(t, "serial", b.Name())
	assert.Len(t, b.LabelSizes(), len(label.Nelko))

	_, err = New(config.PrinterConfig{Backend: "bluetooth"}, log)
	assert.ErrorIs(t, err, ErrUnknownBackend)

	_, err = New(config.PrinterConfig{Backend: "serial", Device: "/dev/ttyUSB0", Media: "dymo"}, log)
	assert.ErrorIs(t, err, ErrUnknownMedia)

	_, err = New(config.PrinterConfig{Backend: "cups"}, log)
	assert.Error(t, err, "queue is required")
}

func TestDimensions(t *testing.T) {
	b, err := NewCUPS(config.PrinterConfig{Queue: "q"}, zap.NewNop())
	require.NoError(t, err)

	w, h, err := b.Dimensions("2.25x1.25")
	require.NoError(t, err)
	assert.Equal(t, 457, w)
	assert.Equal(t, 254, h)

	_, _, err = b.Dimensions("4x6")
	assert.ErrorIs(t, err, label.ErrUnknownLabelSize)
}

func TestFixedGeometry(t *testing.T) {
	g := Geometry{}
	req := &label.Request{
		Kind:    label.DieCut,
		Width:   457,
		Height:  254,
		Margins: label.Margins{Top: 10, Bottom: 20, Left: 14, Right: 14},
	}
	box := image.Pt(200, 50)

	w, h := g.CanvasSize(box, req)
	assert.Equal(t, 457, w)
	assert.Equal(t, 254, h)
	assert.Equal(t, image.Pt(128, 10), g.TextOrigin(w, h, box, req))

	// wider than the label: pinned to the left edge
	assert.Equal(t, 0, g.TextOrigin(w, h, image.Pt(600, 50), req).X)

	req.Orientation = label.Rotated
	req.Width, req.Height = 254, 457
	w, h = g.CanvasSize(box, req)
	// (457-50)//2 + (10-20)//2 = 203 - 5
	assert.Equal(t, image.Pt(14, 198), g.TextOrigin(w, h, box, req))
}

func TestMediaGeometry(t *testing.T) {
	g := Geometry{CenterFixed: true}
	m := label.Margins{Top: 9, Bottom: 18, Left: 14, Right: 14}
	box := image.Pt(100, 40)

	endless := &label.Request{Kind: label.Endless, Width: 696, Margins: m}
	w, h := g.CanvasSize(box, endless)
	assert.Equal(t, 696, w)
	assert.Equal(t, 40+9+18, h)
	assert.Equal(t, image.Pt(298, 9), g.TextOrigin(w, h, box, endless))

	rotated := &label.Request{Kind: label.Endless, Orientation: label.Rotated, Height: 696, Margins: m}
	w, h = g.CanvasSize(box, rotated)
	assert.Equal(t, 100+14+14, w)
	assert.Equal(t, 696, h)

	dieCut := &label.Request{Kind: label.DieCut, Width: 696, Height: 271, Margins: m}
	w, h = g.CanvasSize(box, dieCut)
	assert.Equal(t, image.Pt(696, 271), image.Pt(w, h))
	// (271-40)//2 + (9-18)//2 = 115 - 5
	assert.Equal(t, image.Pt(298, 110), g.TextOrigin(w, h, box, dieCut))
}

func TestFloorDiv(t *testing.T) {
	assert.Equal(t, 2, floorDiv(5, 2))
	assert.Equal(t, -3, floorDiv(-5, 2))
	assert.Equal(t, -5, floorDiv(-10, 2))
	assert.Equal(t, 0, floorDiv(0, 2))
}

func TestEndlessLabelGrowsWithText(t *testing.T) {
	b, err := NewNetwork(config.PrinterConfig{Address: "127.0.0.1:9100", Media: "brother"}, zap.NewNop())
	require.NoError(t, err)
	f := goRegular(t)

	req := request(t, b, "62", label.Standard)
	img, err := imaging.RenderText(req, f, b)
	require.NoError(t, err)

	box := imaging.MeasureMultiline(f.Face(40), "Milk")
	assert.Equal(t, 696, img.Bounds().Dx())
	assert.Equal(t, box.Y+req.Margins.Top+req.Margins.Bottom, img.Bounds().Dy())
	assert.LessOrEqual(t, imaging.FitFontSize(f, "Milk", 40, img.Bounds().Dx(), img.Bounds().Dy(), 0, 0), 40)
}

func TestRasterJobTurnsLandscapeImages(t *testing.T) {
	size := label.Nelko[1]
	img := image.NewRGBA(image.Rect(0, 0, size.Height, size.Width))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	job := rasterJob(img, &label.Request{Threshold: 70}, size, 8, 1)

	header := "BITMAP 0,0,12,284,1,"
	i := bytes.Index(job, []byte(header))
	require.GreaterOrEqual(t, i, 0)
	// blank label: every bit set
	bitmap := job[i+len(header) : i+len(header)+12*284]
	assert.Equal(t, bytes.Repeat([]byte{0xff}, 12*284), bitmap)
}

// bitmapInk returns the bounds of the printing (cleared) dots of the BITMAP
// payload in job.
func bitmapInk(t *testing.T, job []byte, widthBytes, height int) image.Rectangle {
	t.Helper()
	header := fmt.Sprintf("BITMAP 0,0,%d,%d,1,", widthBytes, height)
	i := bytes.Index(job, []byte(header))
	require.GreaterOrEqual(t, i, 0, "missing %q", header)
	data := job[i+len(header) : i+len(header)+widthBytes*height]

	ink := image.Rectangle{}
	for y := 0; y < height; y++ {
		for x := 0; x < widthBytes*8; x++ {
			if data[y*widthBytes+x/8]>>(7-x%8)&1 == 0 {
				ink = ink.Union(image.Rect(x, y, x+1, y+1))
			}
		}
	}
	return ink
}

// renderInk returns the bounds of the dark pixels of a rendered label.
func renderInk(img image.Image) image.Rectangle {
	ink := image.Rectangle{}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			if min(r, g, bl)>>8 < uint32(imaging.ThresholdLevel(70)) {
				ink = ink.Union(image.Rect(x-b.Min.X, y-b.Min.Y, x-b.Min.X+1, y-b.Min.Y+1))
			}
		}
	}
	return ink
}

// turned maps a rectangle of a w-wide image through a counter-clockwise turn.
func turned(r image.Rectangle, w int) image.Rectangle {
	return image.Rect(r.Min.Y, w-r.Max.X, r.Max.Y, w-r.Min.X)
}

func TestRasterJobRotatedFixedLabel(t *testing.T) {
	b, err := NewNetwork(config.PrinterConfig{Address: "127.0.0.1:9100", Media: "thermal"}, zap.NewNop())
	require.NoError(t, err)
	req := request(t, b, "2.25x1.25", label.Rotated)
	img, err := imaging.RenderText(req, goRegular(t), b)
	require.NoError(t, err)
	require.Equal(t, image.Pt(254, 457), img.Bounds().Size())

	size, err := label.NewCatalog(b.LabelSizes()).Lookup("2.25x1.25")
	require.NoError(t, err)
	job := rasterJob(img, req, size, 8, 1)

	src := renderInk(img)
	require.False(t, src.Empty())
	ink := bitmapInk(t, job, 58, 254)
	// full scale: the turned render covers the label without shrinking
	assert.Equal(t, turned(src, 254), ink)
	assert.Greater(t, ink.Dy(), ink.Dx(), "rotated text runs along the feed")
}

func TestRasterJobRotatedEndlessLabel(t *testing.T) {
	b, err := NewNetwork(config.PrinterConfig{Address: "127.0.0.1:9100", Media: "brother"}, zap.NewNop())
	require.NoError(t, err)
	req := request(t, b, "62", label.Rotated)
	img, err := imaging.RenderText(req, goRegular(t), b)
	require.NoError(t, err)
	require.Equal(t, 696, img.Bounds().Dy())
	w := img.Bounds().Dx()
	require.Less(t, w, 696)

	size, err := label.NewCatalog(b.LabelSizes()).Lookup("62")
	require.NoError(t, err)
	job := rasterJob(img, req, size, 8, 1)

	// the label is as long as the rendered canvas is wide
	assert.Contains(t, string(job), fmt.Sprintf("SIZE 62.0 mm,%.1f mm\r\n", float64(w)/(696.0/62)))
	ink := bitmapInk(t, job, 87, w)
	assert.Equal(t, turned(renderInk(img), w), ink)
}

func TestRasterJobPrintsRedInk(t *testing.T) {
	b, err := NewNetwork(config.PrinterConfig{Address: "127.0.0.1:9100", Media: "brother"}, zap.NewNop())
	require.NoError(t, err)
	req := request(t, b, "62red", label.Standard)
	req.Fill = label.FillColor("62red")
	img, err := imaging.RenderText(req, goRegular(t), b)
	require.NoError(t, err)

	size, err := label.NewCatalog(b.LabelSizes()).Lookup("62red")
	require.NoError(t, err)
	job := rasterJob(img, req, size, 8, 1)

	ink := bitmapInk(t, job, 87, img.Bounds().Dy())
	assert.False(t, ink.Empty(), "red text must produce printing dots")
}

func TestRasterJobEndlessHeight(t *testing.T) {
	size := label.BrotherQL[5]
	img := image.NewRGBA(image.Rect(0, 0, 696, 300))
	job := string(rasterJob(img, &label.Request{Threshold: 70}, size, 8, 1))
	// 300 dots at 696/62 dots per mm
	assert.Contains(t, job, "SIZE 62.0 mm,26.7 mm\r\n")
	assert.Contains(t, job, "BITMAP 0,0,87,300,1,")
}

func TestNetworkSubmit(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		received <- data
	}()

	b, err := NewNetwork(config.PrinterConfig{Address: ln.Addr().String(), Timeout: time.Second, Density: 8, Copies: 1}, zap.NewNop())
	require.NoError(t, err)

	req := request(t, b, "2.25x1.25", label.Standard)
	img, err := imaging.RenderText(req, goRegular(t), b)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result := b.Submit(ctx, img, req)
	require.True(t, result.Success, result.Error)

	select {
	case data := <-received:
		s := string(data)
		assert.True(t, strings.HasPrefix(s, "SIZE 57.2 mm,31.8 mm\r\n"))
		assert.Contains(t, s, "DENSITY 8\r\n")
		assert.True(t, strings.HasSuffix(s, "PRINT 1\r\n"))
	case <-time.After(5 * time.Second):
		t.Fatal("no job received")
	}
}

func TestNetworkSubmitUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	b, err := NewNetwork(config.PrinterConfig{Address: addr, Timeout: time.Second}, zap.NewNop())
	require.NoError(t, err)

	req := request(t, b, "2.25x1.25", label.Standard)
	result := b.Submit(context.Background(), image.NewRGBA(image.Rect(0, 0, 457, 254)), req)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

type fakePort struct {
	bytes.Buffer
	closed bool
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func TestSerialSubmit(t *testing.T) {
	port := &fakePort{}
	var gotMode *serial.Mode
	orig := openPort
	openPort = func(device string, mode *serial.Mode) (io.WriteCloser, error) {
		gotMode = mode
		return port, nil
	}
	defer func() { openPort = orig }()

	b, err := NewSerial(config.PrinterConfig{Device: "/dev/rfcomm0", Copies: 2}, zap.NewNop())
	require.NoError(t, err)

	req := request(t, b, "14x40mm", label.Standard)
	img, err := imaging.RenderText(req, goRegular(t), b)
	require.NoError(t, err)

	result := b.Submit(context.Background(), img, req)
	require.True(t, result.Success, result.Error)

	assert.Equal(t, 115200, gotMode.BaudRate)
	assert.True(t, port.closed)
	out := port.String()
	assert.True(t, strings.HasPrefix(out, "\x1b!oSIZE 14.0 mm,40.0 mm\r\n"))
	assert.Contains(t, out, "BITMAP 0,0,12,284,1,")
	assert.True(t, strings.HasSuffix(out, "PRINT 2\r\n"))
}

func TestSerialSubmitOpenFails(t *testing.T) {
	orig := openPort
	openPort = func(string, *serial.Mode) (io.WriteCloser, error) {
		return nil, errors.New("no such device")
	}
	defer func() { openPort = orig }()

	b, err := NewSerial(config.PrinterConfig{Device: "/dev/rfcomm9"}, zap.NewNop())
	require.NoError(t, err)

	req := request(t, b, "14x40mm", label.Standard)
	result := b.Submit(context.Background(), image.NewRGBA(image.Rect(0, 0, 284, 96)), req)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "no such device")
}

type fakeIPP struct {
	doc     ipp.Document
	printer string
	attrs   map[string]interface{}
	err     error
	block   chan struct{}
}

func (f *fakeIPP) PrintJob(doc ipp.Document, printer string, attrs map[string]interface{}) (int, error) {
	if f.block != nil {
		<-f.block
	}
	f.doc, f.printer, f.attrs = doc, printer, attrs
	return 7, f.err
}

func cupsWith(t *testing.T, client jobSubmitter) *CUPS {
	t.Helper()
	c, err := NewCUPS(config.PrinterConfig{Queue: "LabelPrinter", Copies: 1}, zap.NewNop())
	require.NoError(t, err)
	c.client = client
	return c
}

func TestCUPSSubmit(t *testing.T) {
	fake := &fakeIPP{}
	c := cupsWith(t, fake)

	req := request(t, c, "2.25x1.25", label.Standard)
	img, err := imaging.RenderText(req, goRegular(t), c)
	require.NoError(t, err)

	result := c.Submit(context.Background(), img, req)
	require.True(t, result.Success, result.Error)
	assert.Equal(t, "LabelPrinter", fake.printer)
	assert.Equal(t, "image/png", fake.doc.MimeType)
	assert.Equal(t, 1, fake.attrs[ipp.AttributeCopies])

	data, err := io.ReadAll(fake.doc.Document)
	require.NoError(t, err)
	assert.Equal(t, fake.doc.Size, len(data))
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestCUPSSubmitError(t *testing.T) {
	c := cupsWith(t, &fakeIPP{err: errors.New("printer is offline")})
	req := request(t, c, "2.25x1.25", label.Standard)

	result := c.Submit(context.Background(), image.NewRGBA(image.Rect(0, 0, 457, 254)), req)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "printer is offline")
}

func TestCUPSSubmitHonorsContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	c := cupsWith(t, &fakeIPP{block: block})
	req := request(t, c, "2.25x1.25", label.Standard)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	result := c.Submit(ctx, image.NewRGBA(image.Rect(0, 0, 457, 254)), req)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, context.DeadlineExceeded.Error())
}
