// Asterctl
// Copyright (c) 2026 The Asterctl Contributors.
// SPDX-License-Identifier: MIT OR Apache-2.0

package panel

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/asterctl/asterctl/pkg/config"
	"github.com/asterctl/asterctl/pkg/display"
	"github.com/asterctl/asterctl/pkg/sensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int, c color.RGBA) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = 0xFF
	}

	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestParseColor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    color.RGBA
		wantErr bool
	}{
		{name: "white", input: "#FFFFFF", want: color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}},
		{name: "lowercase", input: "#00ff7f", want: color.RGBA{G: 0xFF, B: 0x7F, A: 0xFF}},
		{name: "black", input: "#000000", want: color.RGBA{A: 0xFF}},
		{name: "missing hash", input: "FFFFFF", wantErr: true},
		{name: "too short", input: "#FFF", wantErr: true},
		{name: "not hex", input: "#GGGGGG", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseColor(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadFrameScalesToPanelResolution(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bg.png")
	writePNG(t, path, 100, 50, color.RGBA{R: 0x20, G: 0x40, B: 0x60, A: 0xFF})

	frame, err := LoadFrame(path)
	require.NoError(t, err)

	assert.Equal(t, display.Width, frame.Bounds().Dx())
	assert.Equal(t, display.Height, frame.Bounds().Dy())

	// A solid source stays solid after scaling.
	r, g, b, _ := frame.At(display.Width/2, display.Height/2).RGBA()
	assert.Equal(t, uint32(0x20), r>>8)
	assert.Equal(t, uint32(0x40), g>>8)
	assert.Equal(t, uint32(0x60), b>>8)
}

func TestLoadFrameMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadFrame(filepath.Join(t.TempDir(), "nope.png"))
	require.Error(t, err)
}

func TestRenderBackgroundAndText(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bg.png")
	writePNG(t, path, display.Width, display.Height, color.RGBA{R: 0x10, G: 0x10, B: 0x10, A: 0xFF})

	store := sensors.NewStore()
	store.Set("cpu_usage", "42%")

	r := NewRenderer(store)
	frame, err := r.Render(config.Panel{
		Name:       "cpu",
		Background: path,
		Fields: []config.Field{
			{Sensor: "cpu_usage", Label: "CPU ", Color: "#FF0000", X: 100, Y: 100},
		},
	})
	require.NoError(t, err)

	// Background fills areas away from the text.
	red, green, blue, _ := frame.At(800, 300).RGBA()
	assert.Equal(t, uint32(0x10), red>>8)
	assert.Equal(t, uint32(0x10), green>>8)
	assert.Equal(t, uint32(0x10), blue>>8)

	// Some pixel near the field position carries the text color.
	found := false
	for y := 80; y < 110 && !found; y++ {
		for x := 100; x < 200 && !found; x++ {
			pr, pg, pb, _ := frame.At(x, y).RGBA()
			if pr>>8 == 0xFF && pg == 0 && pb == 0 {
				found = true
			}
		}
	}
	assert.True(t, found, "text pixels not found near field position")
}

func TestRenderAppliesFieldFormatting(t *testing.T) {
	t.Parallel()

	store := sensors.NewStore()
	store.Set("cpu_temp", "61.74")

	digits := 3
	r := NewRenderer(store)

	// Two renders of the same value through different formatting configs
	// must differ; the formatted one also differs from an unformatted
	// control render.
	formatted, err := r.Render(config.Panel{
		Fields: []config.Field{
			{Sensor: "cpu_temp", IntegerDigits: &digits, DecimalDigits: 1, Unit: "°C", X: 10, Y: 20},
		},
	})
	require.NoError(t, err)

	raw, err := r.Render(config.Panel{
		Fields: []config.Field{
			{Sensor: "cpu_temp", X: 10, Y: 20},
		},
	})
	require.NoError(t, err)

	assert.NotEqual(t, formatted.Pix, raw.Pix,
		"formatted field must render differently from the raw value")

	// The formatter itself produces the expected text for this config.
	assert.Equal(t, "061.7°C", FormatValue("61.74", digits, 1, "°C"))
}

func TestRenderMissingSensorUsesPlaceholder(t *testing.T) {
	t.Parallel()

	r := NewRenderer(sensors.NewStore())
	frame, err := r.Render(config.Panel{
		Fields: []config.Field{
			{Sensor: "unknown", X: 10, Y: 20},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, frame)

	// Placeholder text renders in default white somewhere near the field.
	found := false
	for y := 5; y < 30 && !found; y++ {
		for x := 5; x < 40 && !found; x++ {
			pr, pg, pb, _ := frame.At(x, y).RGBA()
			if pr>>8 == 0xFF && pg>>8 == 0xFF && pb>>8 == 0xFF {
				found = true
			}
		}
	}
	assert.True(t, found, "placeholder text not rendered")
}

func TestRenderMissingBackground(t *testing.T) {
	t.Parallel()

	r := NewRenderer(sensors.NewStore())
	_, err := r.Render(config.Panel{Background: "/does/not/exist.png"})
	require.Error(t, err)
}

func TestRenderCachesBackground(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bg.png")
	writePNG(t, path, 10, 10, color.RGBA{R: 0x55, A: 0xFF})

	r := NewRenderer(sensors.NewStore())
	p := config.Panel{Background: path}

	_, err := r.Render(p)
	require.NoError(t, err)

	// Deleting the file does not break subsequent renders of the same panel.
	require.NoError(t, os.Remove(path))
	_, err = r.Render(p)
	require.NoError(t, err)
}
