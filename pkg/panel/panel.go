// Asterctl
// Copyright (c) 2026 The Asterctl Contributors.
// SPDX-License-Identifier: MIT OR Apache-2.0

// Package panel renders configured panels into frames for the display: a
// background image scaled to the panel resolution with sensor value text
// drawn on top.
package panel

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	// Background decoders.
	_ "image/jpeg"
	_ "image/png"

	"os"

	"github.com/asterctl/asterctl/pkg/config"
	"github.com/asterctl/asterctl/pkg/display"
	"github.com/asterctl/asterctl/pkg/sensors"
	"github.com/rs/zerolog/log"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// placeholder shown when a field references a sensor with no value yet.
const missingValue = "-"

// Renderer turns panel definitions into display frames. Backgrounds are
// decoded and scaled once, then reused across refresh ticks.
type Renderer struct {
	store       *sensors.Store
	backgrounds map[string]*image.RGBA
}

func NewRenderer(store *sensors.Store) *Renderer {
	return &Renderer{
		store:       store,
		backgrounds: make(map[string]*image.RGBA),
	}
}

// LoadFrame decodes an image file and scales it to the panel resolution.
func LoadFrame(path string) (*image.RGBA, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from user config
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msgf("error closing image: %s", path)
		}
	}()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	log.Debug().Msgf("loaded %s image: %s", format, path)

	return scaleToFrame(img), nil
}

// scaleToFrame resizes any image to the exact panel resolution, stretching
// if the aspect ratio differs.
func scaleToFrame(img image.Image) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, display.Width, display.Height))
	if img.Bounds().Dx() == display.Width && img.Bounds().Dy() == display.Height {
		draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
		return dst
	}
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst
}

// Render produces the frame for one panel from the current sensor values.
func (r *Renderer) Render(panel config.Panel) (*image.RGBA, error) {
	frame := image.NewRGBA(image.Rect(0, 0, display.Width, display.Height))

	if panel.Background != "" {
		bg, err := r.background(panel.Background)
		if err != nil {
			return nil, err
		}
		draw.Draw(frame, frame.Bounds(), bg, image.Point{}, draw.Src)
	}

	for _, field := range panel.Fields {
		value, ok := r.store.Get(field.Sensor)
		if !ok {
			value = missingValue
		} else if hasFormat(field) {
			value = FormatValue(value, fieldIntegerDigits(field), field.DecimalDigits, field.Unit)
		}
		drawText(frame, field.Label+value, field.X, field.Y, fieldColor(field))
	}

	return frame, nil
}

func (r *Renderer) background(path string) (*image.RGBA, error) {
	if bg, ok := r.backgrounds[path]; ok {
		return bg, nil
	}
	bg, err := LoadFrame(path)
	if err != nil {
		return nil, err
	}
	r.backgrounds[path] = bg
	return bg, nil
}

func hasFormat(field config.Field) bool {
	return field.IntegerDigits != nil || field.DecimalDigits > 0 || field.Unit != ""
}

func fieldIntegerDigits(field config.Field) int {
	if field.IntegerDigits == nil {
		return IntegerDigitsAuto
	}
	return *field.IntegerDigits
}

func fieldColor(field config.Field) color.RGBA {
	if field.Color == "" {
		return color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	}
	c, err := ParseColor(field.Color)
	if err != nil {
		log.Warn().Msgf("invalid field color for sensor %s: %s", field.Sensor, field.Color)
		return color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	}
	return c
}

// ParseColor parses a "#RRGGBB" hex color.
func ParseColor(s string) (color.RGBA, error) {
	if len(s) != 7 || s[0] != '#' {
		return color.RGBA{}, fmt.Errorf("invalid color: %q", s)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: r, G: g, B: b, A: 0xFF}, nil
}

func drawText(dst *image.RGBA, text string, x, y int, c color.RGBA) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
