package main

import (
	"context"
	"fmt"
	"image"
	"net/url"
	"os"
	"sort"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"label-web/internal/config"
	"label-web/internal/fonts"
	"label-web/internal/imaging"
	"label-web/internal/label"
	"label-web/internal/logger"
	"label-web/internal/printer"
)

const (
	AppVersion = "1.0.0"
	AppName    = "Label Designer"
)

const (
	modeText  = "Text"
	modeGrocy = "Grocy"
)

type App struct {
	fyneApp fyne.App
	window  fyne.Window
	log     *zap.Logger

	cfg     *config.Config
	fonts   *fonts.Registry
	backend printer.Backend

	previewImg *canvas.Image

	// Label settings
	font        fonts.Spec
	fontSize    int
	sizeID      string
	orientation label.Orientation
	align       label.Align
	threshold   int
	mode        string

	// Widgets that need updating
	statusLabel  *widget.Label
	printBtn     *widget.Button
	sizeSelect   *widget.Select
	deviceSelect *widget.Select

	textEntry    *widget.Entry
	productEntry *widget.Entry
	codeEntry    *widget.Entry
	dueEntry     *widget.Entry
}

func main() {
	fs := pflag.NewFlagSet("label-designer", pflag.ExitOnError)
	config.Flags(fs)
	_ = fs.Parse(os.Args[1:])

	configFile, _ := fs.GetString("config")
	cfg, err := config.Load(configFile, fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(2)
	}
	log := logger.New(logger.Config{Level: cfg.Server.LogLevel, Format: cfg.Server.LogFormat})
	defer func() { _ = log.Sync() }()

	reg, err := fonts.NewRegistry(log)
	if err != nil {
		log.Fatal("load fonts", zap.Error(err))
	}
	reg.LoadSystem()
	if cfg.Server.FontFolder != "" {
		if _, err := reg.LoadDir(cfg.Server.FontFolder); err != nil {
			log.Warn("font folder", zap.Error(err))
		}
	}

	backend, err := printer.New(cfg.Printer, log)
	if err != nil {
		log.Fatal("printer backend", zap.Error(err))
	}

	orientation, _ := label.ParseOrientation(cfg.Label.DefaultOrientation)
	defaultFont, _ := reg.SelectDefault(cfg.Label.DefaultFonts)

	a := app.New()
	w := a.NewWindow(fmt.Sprintf("%s v%s", AppName, AppVersion))
	w.Resize(fyne.NewSize(760, 560))

	designer := &App{
		fyneApp:     a,
		window:      w,
		log:         log,
		cfg:         cfg,
		fonts:       reg,
		backend:     backend,
		font:        defaultFont,
		fontSize:    cfg.Label.DefaultFontSize,
		sizeID:      cfg.Label.DefaultSize,
		orientation: orientation,
		align:       label.AlignCenter,
		threshold:   70,
		mode:        modeText,
	}

	w.SetMainMenu(designer.buildMenu())
	w.SetContent(designer.buildUI())
	w.ShowAndRun()
}

func (a *App) buildMenu() *fyne.MainMenu {
	aboutItem := fyne.NewMenuItem("About", func() {
		a.showAboutDialog()
	})
	return fyne.NewMainMenu(fyne.NewMenu("Help", aboutItem))
}

func (a *App) showAboutDialog() {
	content := container.NewVBox(
		widget.NewLabelWithStyle(AppName, fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
		widget.NewLabel(fmt.Sprintf("Version %s", AppVersion)),
		widget.NewSeparator(),
		widget.NewLabel("Design and print text and Grocy product labels."),
		widget.NewLabel(fmt.Sprintf("Printer backend: %s", a.backend.Name())),
		widget.NewHyperlink("Grocy", parseURL("https://grocy.info")),
		widget.NewLabel(""),
		widget.NewLabel("Built with Fyne and Go"),
	)
	dialog.ShowCustom("About", "Close", content, a.window)
}

func parseURL(urlStr string) *url.URL {
	u, _ := url.Parse(urlStr)
	return u
}

func (a *App) fontOptions() []string {
	var options []string
	families := a.fonts.Families()
	for _, family := range a.fonts.FamilyNames() {
		for _, style := range families[family] {
			options = append(options, fonts.Spec{Family: family, Style: style}.String())
		}
	}
	return options
}

func (a *App) buildUI() fyne.CanvasObject {
	a.statusLabel = widget.NewLabel(fmt.Sprintf("Printer: %s", a.backend.Name()))

	// === PRINTER SECTION ===
	sizes := a.backend.LabelSizes()
	sizeNames := make([]string, len(sizes))
	for i, s := range sizes {
		sizeNames[i] = s.Name
	}
	a.sizeSelect = widget.NewSelect(sizeNames, func(name string) {
		for _, s := range sizes {
			if s.Name == name {
				a.sizeID = s.ID
				a.updatePreview()
				break
			}
		}
	})
	for _, s := range sizes {
		if s.ID == a.sizeID {
			a.sizeSelect.SetSelected(s.Name)
		}
	}

	printerItems := []fyne.CanvasObject{
		widget.NewLabel("Label Size"),
		a.sizeSelect,
	}
	if a.backend.Name() == "serial" {
		a.deviceSelect = widget.NewSelect(nil, func(device string) {
			a.switchDevice(device)
		})
		refreshBtn := widget.NewButton("↻", func() {
			a.refreshDevices()
		})
		a.refreshDevices()
		printerItems = append(printerItems,
			widget.NewLabel("Device"),
			container.NewBorder(nil, nil, nil, refreshBtn, a.deviceSelect),
		)
	}

	// === LAYOUT SETTINGS ===
	fontSelect := widget.NewSelect(a.fontOptions(), func(s string) {
		a.font = fonts.ParseSpec(s)
		a.updatePreview()
	})
	fontSelect.SetSelected(a.font.String())

	fontSizeSlider := widget.NewSlider(imaging.MinFontSize, 150)
	fontSizeSlider.Value = float64(a.fontSize)
	fontSizeSlider.OnChanged = func(f float64) {
		a.fontSize = int(f)
		a.updatePreview()
	}

	orientationSelect := widget.NewSelect([]string{label.Standard.String(), label.Rotated.String()}, func(s string) {
		a.orientation, _ = label.ParseOrientation(s)
		a.updatePreview()
	})
	orientationSelect.SetSelected(a.orientation.String())

	alignSelect := widget.NewRadioGroup([]string{"left", "center", "right"}, func(s string) {
		a.align, _ = label.ParseAlign(s)
		a.updatePreview()
	})
	alignSelect.Horizontal = true
	alignSelect.SetSelected(a.align.String())

	thresholdSlider := widget.NewSlider(0, 100)
	thresholdSlider.Value = float64(a.threshold)
	thresholdSlider.OnChanged = func(f float64) {
		a.threshold = int(f)
		a.updatePreview()
	}

	settings := widget.NewForm(
		widget.NewFormItem("Font", fontSelect),
		widget.NewFormItem("Font Size", fontSizeSlider),
		widget.NewFormItem("Orientation", orientationSelect),
		widget.NewFormItem("Align", alignSelect),
		widget.NewFormItem("Threshold", thresholdSlider),
	)

	a.printBtn = widget.NewButton("Print", func() {
		a.print()
	})
	a.printBtn.Importance = widget.HighImportance
	a.printBtn.Disable()

	// === TEXT TAB ===
	a.textEntry = widget.NewMultiLineEntry()
	a.textEntry.SetPlaceHolder("Enter label text...")
	a.textEntry.SetMinRowsVisible(3)
	a.textEntry.OnChanged = func(string) { a.updatePreview() }

	// === GROCY TAB ===
	a.productEntry = widget.NewEntry()
	a.productEntry.SetPlaceHolder("Product name")
	a.codeEntry = widget.NewEntry()
	a.codeEntry.SetPlaceHolder("grcy:p:1")
	a.dueEntry = widget.NewEntry()
	a.dueEntry.SetPlaceHolder("2024-12-31")
	for _, e := range []*widget.Entry{a.productEntry, a.codeEntry, a.dueEntry} {
		e.OnChanged = func(string) { a.updatePreview() }
	}
	grocyTab := widget.NewForm(
		widget.NewFormItem("Product", a.productEntry),
		widget.NewFormItem("Grocycode", a.codeEntry),
		widget.NewFormItem("Due date", a.dueEntry),
	)

	tabs := container.NewAppTabs(
		container.NewTabItem(modeText, a.textEntry),
		container.NewTabItem(modeGrocy, grocyTab),
	)
	tabs.OnSelected = func(t *container.TabItem) {
		a.mode = t.Text
		a.updatePreview()
	}

	// Preview
	a.previewImg = canvas.NewImageFromImage(nil)
	a.previewImg.SetMinSize(fyne.NewSize(300, 200))
	a.previewImg.FillMode = canvas.ImageFillContain

	leftPanel := container.NewVBox(printerItems...)
	leftPanel.Add(widget.NewSeparator())
	leftPanel.Add(settings)
	leftPanel.Add(widget.NewSeparator())
	leftPanel.Add(a.printBtn)

	rightPanel := container.NewBorder(
		tabs,
		nil, nil, nil,
		container.NewCenter(a.previewImg),
	)

	content := container.NewHSplit(leftPanel, rightPanel)
	content.SetOffset(0.4)

	return container.NewBorder(
		nil,
		container.NewHBox(a.statusLabel),
		nil, nil,
		content,
	)
}

func (a *App) refreshDevices() {
	devices := printer.FindSerialDevices()
	for _, p := range []string{"/dev/ttyUSB0", "/dev/ttyACM0", a.cfg.Printer.Device} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil && !contains(devices, p) {
			devices = append(devices, p)
		}
	}
	sort.Strings(devices)

	a.deviceSelect.Options = devices
	a.deviceSelect.Refresh()
	if contains(devices, a.cfg.Printer.Device) {
		a.deviceSelect.SetSelected(a.cfg.Printer.Device)
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func (a *App) switchDevice(device string) {
	if device == "" || device == a.cfg.Printer.Device {
		return
	}
	pc := a.cfg.Printer
	pc.Device = device
	backend, err := printer.NewSerial(pc, a.log)
	if err != nil {
		dialog.ShowError(err, a.window)
		return
	}
	a.cfg.Printer = pc
	a.backend = backend
	a.statusLabel.SetText(fmt.Sprintf("Printer: %s", device))
}

// request builds the label request from the current settings.
func (a *App) request() (*label.ProductRequest, *fonts.Font, error) {
	font, err := a.fonts.Lookup(a.font.Family, a.font.Style)
	if err != nil {
		return nil, nil, err
	}
	size, err := label.NewCatalog(a.backend.LabelSizes()).Lookup(a.sizeID)
	if err != nil {
		return nil, nil, err
	}
	width, height := label.Oriented(size.Width, size.Height, a.orientation)

	req := &label.ProductRequest{
		Request: label.Request{
			Text:        a.textEntry.Text,
			FontFamily:  font.Family,
			FontStyle:   font.Style,
			FontSize:    a.fontSize,
			SizeID:      size.ID,
			Kind:        size.Kind,
			Orientation: a.orientation,
			Align:       a.align,
			Margins:     label.MarginsFromPercent(a.fontSize, 24, 45, 35, 35),
			Margin:      10,
			Threshold:   a.threshold,
			Fill:        label.FillColor(size.ID),
			Width:       width,
			Height:      height,
		},
		Product:   a.productEntry.Text,
		DueDate:   a.dueEntry.Text,
		Grocycode: a.codeEntry.Text,
	}
	return req, font, nil
}

func (a *App) render() (image.Image, *label.ProductRequest, error) {
	req, font, err := a.request()
	if err != nil {
		return nil, nil, err
	}
	var img image.Image
	if a.mode == modeGrocy {
		img, err = imaging.RenderProductLabel(req, font, a.backend)
	} else {
		img, err = imaging.RenderText(&req.Request, font, a.backend)
	}
	return img, req, err
}

func (a *App) updatePreview() {
	if a.previewImg == nil || a.textEntry == nil || a.productEntry == nil {
		return
	}
	img, req, err := a.render()
	if err != nil {
		a.printBtn.Disable()
		if !label.IsInputError(err) {
			a.statusLabel.SetText(err.Error())
		}
		return
	}

	// show what the printer will make of it
	b := img.Bounds()
	mono := imaging.ToMonochrome(img, b.Dx(), b.Dy(), imaging.ThresholdLevel(req.Threshold), false)
	a.previewImg.Image = imaging.PreviewMonochrome(mono, b.Dx(), b.Dy())
	a.previewImg.Refresh()
	a.printBtn.Enable()
}

func (a *App) print() {
	img, req, err := a.render()
	if err != nil {
		dialog.ShowError(err, a.window)
		return
	}

	a.statusLabel.SetText("Printing...")
	a.printBtn.Disable()

	// switchDevice replaces both on the UI thread
	backend, timeout := a.backend, a.cfg.Printer.Timeout
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		result := backend.Submit(ctx, img, &req.Request)

		if !result.Success {
			a.statusLabel.SetText(fmt.Sprintf("Print error: %s", result.Error))
		} else {
			a.statusLabel.SetText("Print complete!")
		}
		a.printBtn.Enable()
	}()
}
