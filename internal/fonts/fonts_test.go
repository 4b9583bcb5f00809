package fonts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/gomono"

	"label-web/internal/label"
)

func TestParseSpec(t *testing.T) {
	tests := []struct {
		in   string
		want Spec
	}{
		{"DejaVu Sans (Bold)", Spec{Family: "DejaVu Sans", Style: "Bold"}},
		{"Go Mono (Regular)", Spec{Family: "Go Mono", Style: "Regular"}},
		{"Font (Narrow) (Bold Italic)", Spec{Family: "Font (Narrow)", Style: "Bold Italic"}},
		{"Plain", Spec{Family: "Plain"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSpec(tt.in))
		})
	}
	assert.Equal(t, "Go (Bold)", Spec{Family: "Go", Style: "Bold"}.String())
}

func TestRegistryEmbedded(t *testing.T) {
	r, err := NewRegistry(nil)
	require.NoError(t, err)

	f, err := r.Lookup("Go", "Regular")
	require.NoError(t, err)
	assert.Equal(t, "Go (Regular)", f.String())

	face := f.Face(40)
	require.NotNil(t, face)
	assert.Positive(t, face.Metrics().Height.Ceil())

	_, err = r.Lookup("Comic Sans", "Regular")
	assert.ErrorIs(t, err, label.ErrUnknownFont)

	assert.Equal(t, []string{"Go", "Go Mono"}, r.FamilyNames())
	assert.Equal(t, []string{"Bold", "Regular"}, r.Families()["Go Mono"])
	assert.Equal(t, 6, r.Len())
}

func TestRegistryLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mono.ttf"), gomono.TTF, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.ttf"), []byte("not a font"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("hello"), 0o644))

	r, err := NewRegistry(nil)
	require.NoError(t, err)

	n, err := r.LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	f, err := LoadFile(filepath.Join(dir, "mono.ttf"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "mono.ttf"), f.Path)
	assert.NotEmpty(t, f.Family)

	loaded, err := r.Lookup(f.Family, f.Style)
	require.NoError(t, err)
	assert.Equal(t, f.Path, loaded.Path)
}

func TestRegistryLoadDirMissing(t *testing.T) {
	r, err := NewRegistry(nil)
	require.NoError(t, err)
	_, err = r.LoadDir(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestSelectDefault(t *testing.T) {
	r, err := NewRegistry(nil)
	require.NoError(t, err)

	got, ok := r.SelectDefault([]Spec{{Family: "Minion Pro", Style: "Semibold"}, {Family: "Go", Style: "Bold"}})
	assert.True(t, ok)
	assert.Equal(t, Spec{Family: "Go", Style: "Bold"}, got)

	got, ok = r.SelectDefault([]Spec{{Family: "Minion Pro", Style: "Semibold"}})
	assert.False(t, ok)
	assert.Equal(t, Spec{Family: "Go", Style: "Bold"}, got)
}
