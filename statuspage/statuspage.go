// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package statuspage renders short lines of text into frames sized for small
// color panels.
package statuspage

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"net"
	"os"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// Align is the horizontal alignment of a line.
type Align int

const (
	Center Align = iota
	Left
	Right
)

// Line is one line of text.
type Line struct {
	Text  string
	Color color.Color
	// Size in points; 0 uses Opts.FontSize.
	Size  float64
	Align Align
}

// Opts defines the options for the Renderer.
type Opts struct {
	Width, Height int
	// FontFile is a TrueType file. The embedded Go Regular font is used when
	// empty.
	FontFile string
	FontSize float64
	// Background defaults to black.
	Background color.Color
	// Margin is the left and right padding in pixels.
	Margin float64
}

// DefaultOpts matches a 160x80 panel.
var DefaultOpts = Opts{
	Width:      160,
	Height:     80,
	FontSize:   16,
	Background: color.Black,
	Margin:     4,
}

// Renderer draws pages. It is not safe for concurrent use.
type Renderer struct {
	opts  Opts
	ttf   *truetype.Font
	faces map[float64]font.Face
	dc    *gg.Context
}

// New returns a Renderer. opts may be nil to use DefaultOpts.
func New(opts *Opts) (*Renderer, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("statuspage: invalid size %dx%d", opts.Width, opts.Height)
	}
	if opts.FontSize <= 0 {
		return nil, errors.New("statuspage: font size must be positive")
	}
	data := goregular.TTF
	if opts.FontFile != "" {
		var err error
		if data, err = os.ReadFile(opts.FontFile); err != nil {
			return nil, err
		}
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("statuspage: %s: %w", fontName(opts.FontFile), err)
	}
	r := &Renderer{
		opts:  *opts,
		ttf:   f,
		faces: map[float64]font.Face{},
		dc:    gg.NewContext(opts.Width, opts.Height),
	}
	if r.opts.Background == nil {
		r.opts.Background = color.Black
	}
	return r, nil
}

func fontName(path string) string {
	if path == "" {
		return "goregular"
	}
	return path
}

func (r *Renderer) face(size float64) font.Face {
	if size <= 0 {
		size = r.opts.FontSize
	}
	f, ok := r.faces[size]
	if !ok {
		f = truetype.NewFace(r.ttf, &truetype.Options{Size: size, Hinting: font.HintingFull})
		r.faces[size] = f
	}
	return f
}

// Render draws lines, stacked and vertically centered, on a new image.
func (r *Renderer) Render(lines []Line) *image.RGBA {
	dc := r.dc
	dc.SetColor(r.opts.Background)
	dc.Clear()

	heights := make([]float64, len(lines))
	total := 0.
	for i, l := range lines {
		dc.SetFontFace(r.face(l.Size))
		heights[i] = dc.FontHeight() * 1.2
		total += heights[i]
	}
	w := float64(r.opts.Width)
	y := (float64(r.opts.Height) - total) / 2
	for i, l := range lines {
		dc.SetFontFace(r.face(l.Size))
		c := l.Color
		if c == nil {
			c = color.White
		}
		dc.SetColor(c)
		x, ax := w/2, 0.5
		switch l.Align {
		case Left:
			x, ax = r.opts.Margin, 0
		case Right:
			x, ax = w-r.opts.Margin, 1
		}
		dc.DrawStringAnchored(l.Text, x, y+heights[i]/2, ax, 0.35)
		y += heights[i]
	}

	img := image.NewRGBA(image.Rect(0, 0, r.opts.Width, r.opts.Height))
	draw.Draw(img, img.Rect, dc.Image(), image.Point{}, draw.Src)
	return img
}

var (
	cyan   = color.RGBA{0, 220, 255, 255}
	yellow = color.RGBA{255, 210, 0, 255}
	grey   = color.RGBA{160, 160, 160, 255}
)

// Clock returns a page with the time and the date.
func Clock(now time.Time) []Line {
	return []Line{
		{Text: now.Format("15:04:05"), Color: cyan, Size: 26},
		{Text: now.Format("Mon 2 Jan 2006"), Color: grey, Size: 13},
	}
}

// Network returns a page with the host name and its address.
func Network(ip, host string) []Line {
	if ip == "" {
		ip = "no network"
	}
	return []Line{
		{Text: host, Color: yellow, Size: 16},
		{Text: ip, Color: color.White, Size: 15},
	}
}

// OutboundIP returns the local address used to reach the Internet. No packet
// is sent.
func OutboundIP() (string, error) {
	c, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer c.Close()
	return c.LocalAddr().(*net.UDPAddr).IP.String(), nil
}
