// Package fonts discovers TrueType fonts once at startup and resolves the
// "Family (Style)" references used by label requests.
package fonts

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/golang/freetype/truetype"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"

	"label-web/internal/label"
)

// Sizes are pixels: faces are built at 72 dpi so one point is one dot.
const dpi = 72

// Font is a parsed font file with its family and style names.
type Font struct {
	Family string
	Style  string
	Path   string // empty for embedded fonts

	ttf *truetype.Font
}

// Face returns a face at the given pixel size.
func (f *Font) Face(size int) font.Face {
	return truetype.NewFace(f.ttf, &truetype.Options{
		Size:    float64(size),
		DPI:     dpi,
		Hinting: font.HintingFull,
	})
}

func (f *Font) String() string {
	return Spec{Family: f.Family, Style: f.Style}.String()
}

// Spec names a font as family plus style.
type Spec struct {
	Family string `json:"family" mapstructure:"family"`
	Style  string `json:"style" mapstructure:"style"`
}

func (s Spec) String() string {
	return fmt.Sprintf("%s (%s)", s.Family, s.Style)
}

// ParseSpec splits "DejaVu Sans (Bold)" at the last opening parenthesis.
// A value without a style yields an empty Style.
func ParseSpec(v string) Spec {
	i := strings.LastIndex(v, "(")
	if i < 0 {
		return Spec{Family: strings.TrimSpace(v)}
	}
	return Spec{
		Family: strings.TrimSpace(v[:i]),
		Style:  strings.TrimSuffix(strings.TrimSpace(v[i+1:]), ")"),
	}
}

// Registry maps family → style → font.
type Registry struct {
	fonts map[string]map[string]*Font
	log   *zap.Logger
}

var embedded = []struct {
	family, style string
	data          []byte
}{
	{"Go", "Regular", goregular.TTF},
	{"Go", "Bold", gobold.TTF},
	{"Go", "Italic", goitalic.TTF},
	{"Go", "Bold Italic", gobolditalic.TTF},
	{"Go Mono", "Regular", gomono.TTF},
	{"Go Mono", "Bold", gomonobold.TTF},
}

// NewRegistry returns a registry holding the embedded Go fonts.
func NewRegistry(log *zap.Logger) (*Registry, error) {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Registry{fonts: make(map[string]map[string]*Font), log: log}
	for _, e := range embedded {
		ttf, err := truetype.Parse(e.data)
		if err != nil {
			return nil, fmt.Errorf("parse embedded font %s (%s): %w", e.family, e.style, err)
		}
		r.add(&Font{Family: e.family, Style: e.style, ttf: ttf})
	}
	return r, nil
}

func (r *Registry) add(f *Font) {
	styles, ok := r.fonts[f.Family]
	if !ok {
		styles = make(map[string]*Font)
		r.fonts[f.Family] = styles
	}
	styles[f.Style] = f
}

// SystemDirs lists the usual font locations on Unix-like systems.
func SystemDirs() []string {
	dirs := []string{"/usr/share/fonts", "/usr/local/share/fonts", "/Library/Fonts"}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".fonts"), filepath.Join(home, ".local", "share", "fonts"))
	}
	return dirs
}

// LoadDir walks dir and registers every parseable .ttf/.otf file. Files the
// TrueType parser rejects (CFF outlines, collections) are skipped.
func (r *Registry) LoadDir(dir string) (int, error) {
	loaded := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".ttf" && ext != ".otf" {
			return nil
		}
		f, err := LoadFile(path)
		if err != nil {
			r.log.Debug("Skipping font", zap.String("path", path), zap.Error(err))
			return nil
		}
		r.add(f)
		loaded++
		return nil
	})
	if err != nil {
		return loaded, fmt.Errorf("load fonts from %s: %w", dir, err)
	}
	return loaded, nil
}

// LoadSystem loads all fonts from SystemDirs, ignoring missing directories.
func (r *Registry) LoadSystem() int {
	total := 0
	for _, dir := range SystemDirs() {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		n, err := r.LoadDir(dir)
		if err != nil {
			r.log.Warn("Font directory not fully loaded", zap.String("dir", dir), zap.Error(err))
		}
		total += n
	}
	return total
}

// LoadFile parses one font file and reads family and style from its name table.
func LoadFile(path string) (*Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", path, err)
	}
	ttf, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	family := ttf.Name(truetype.NameIDFontFamily)
	style := ttf.Name(truetype.NameIDFontSubfamily)
	if family == "" {
		family = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if style == "" {
		style = "Regular"
	}
	return &Font{Family: family, Style: style, Path: path, ttf: ttf}, nil
}

// Lookup resolves a family and style.
func (r *Registry) Lookup(family, style string) (*Font, error) {
	if f, ok := r.fonts[family][style]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("%w: %s (%s)", label.ErrUnknownFont, family, style)
}

// Has reports whether family and style are registered.
func (r *Registry) Has(s Spec) bool {
	_, ok := r.fonts[s.Family][s.Style]
	return ok
}

// Families returns family → sorted styles.
func (r *Registry) Families() map[string][]string {
	out := make(map[string][]string, len(r.fonts))
	for family, styles := range r.fonts {
		names := make([]string, 0, len(styles))
		for s := range styles {
			names = append(names, s)
		}
		sort.Strings(names)
		out[family] = names
	}
	return out
}

// FamilyNames returns all family names sorted.
func (r *Registry) FamilyNames() []string {
	names := make([]string, 0, len(r.fonts))
	for family := range r.fonts {
		names = append(names, family)
	}
	sort.Strings(names)
	return names
}

// Len counts registered fonts.
func (r *Registry) Len() int {
	n := 0
	for _, styles := range r.fonts {
		n += len(styles)
	}
	return n
}

// SelectDefault returns the first candidate present in the registry. Without
// a match it falls back to the alphabetically first family and style.
func (r *Registry) SelectDefault(candidates []Spec) (Spec, bool) {
	for _, c := range candidates {
		if r.Has(c) {
			return c, true
		}
	}
	families := r.FamilyNames()
	if len(families) == 0 {
		return Spec{}, false
	}
	styles := r.Families()[families[0]]
	return Spec{Family: families[0], Style: styles[0]}, false
}
