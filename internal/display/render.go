// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package display renders the current zone onto a 128x64 monochrome badge,
// shown on an SSD1306 OLED or served as a PNG.
package display

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/zone_tracker/internal/gps"
	"github.com/relabs-tech/zone_tracker/internal/zone"
)

const (
	Width  = 128
	Height = 64

	// glyphs per line with Face7x13
	lineChars = Width / 7
	// header bar height, inverted while inside a zone
	headerHeight = 16
)

// View is what the badge shows.
type View struct {
	Zone   zone.Result
	Fix    *gps.Fix // nil until the first fix
	Status string
	Have   bool // a zone signal has been received
}

// NewCanvas returns a blank badge image.
func NewCanvas() *image1bit.VerticalLSB {
	return image1bit.NewVerticalLSB(image.Rect(0, 0, Width, Height))
}

// Render draws v onto dst, which should be Width x Height.
func Render(dst draw.Image, v View) {
	draw.Draw(dst, dst.Bounds(), &image.Uniform{image1bit.Off}, image.Point{}, draw.Src)

	fg := image1bit.On
	if v.Have && v.Zone.Matched {
		draw.Draw(dst, image.Rect(0, 0, Width, headerHeight), &image.Uniform{image1bit.On}, image.Point{}, draw.Src)
		fg = image1bit.Off
	}

	drawer := &font.Drawer{
		Dst:  dst,
		Src:  &image.Uniform{fg},
		Face: basicfont.Face7x13,
	}

	if !v.Have {
		drawer.Dot = fixed.P(2, 12)
		drawer.DrawString("Zone")
		drawer.Src = &image.Uniform{image1bit.On}
		drawer.Dot = fixed.P(0, 30)
		drawer.DrawString("Waiting...")
		drawStatus(drawer, v.Status)
		return
	}

	drawer.Dot = fixed.P(2, 12)
	drawer.DrawString(clip(v.Zone.String()))
	drawer.Src = &image.Uniform{image1bit.On}

	if v.Fix != nil {
		lat, latDir := v.Fix.Latitude, "N"
		if lat < 0 {
			lat, latDir = -lat, "S"
		}
		lon, lonDir := v.Fix.Longitude, "E"
		if lon < 0 {
			lon, lonDir = -lon, "W"
		}
		drawer.Dot = fixed.P(0, 29)
		drawer.DrawString(fmt.Sprintf("%.5f%s", lat, latDir))
		drawer.Dot = fixed.P(0, 42)
		drawer.DrawString(fmt.Sprintf("%.5f%s", lon, lonDir))
	}
	drawStatus(drawer, v.Status)
}

func drawStatus(d *font.Drawer, s string) {
	if s == "" {
		return
	}
	d.Dot = fixed.P(0, 60)
	d.DrawString(clip(s))
}

// clip shortens s to one badge line.
func clip(s string) string {
	r := []rune(s)
	if len(r) <= lineChars {
		return s
	}
	return string(r[:lineChars-1]) + "~"
}

// WritePNG renders v and encodes it as PNG, scaled up by an integer factor
// so it is legible in a browser.
func WritePNG(w io.Writer, v View, scale int) error {
	canvas := NewCanvas()
	Render(canvas, v)
	if scale <= 1 {
		return png.Encode(w, canvas)
	}

	out := image.NewGray(image.Rect(0, 0, Width*scale, Height*scale))
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			c := out.ColorModel().Convert(canvas.At(x, y))
			draw.Draw(out, image.Rect(x*scale, y*scale, (x+1)*scale, (y+1)*scale), &image.Uniform{c}, image.Point{}, draw.Src)
		}
	}
	return png.Encode(w, out)
}
