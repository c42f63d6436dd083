// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package screen2d implements a 2D display.Drawer that outputs to terminal
// (stdout) using ANSI color codes.
//
// Useful to lay out pages while the panel is not wired yet.
package screen2d

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"os"

	"github.com/GermanBionicSystems/zerolcd/st7735/image565"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"periph.io/x/conn/v3/display"
)

// Opts represents the options available for this display.
type Opts struct {
	W, H    int
	Palette *ansi256.Palette
	// Step keeps one pixel out of Step in both directions, so a 160x80 panel
	// fits a 80 column terminal with Step 4. Defaults to 1.
	Step int
	// Out defaults to stdout. Color codes are stripped when stdout is not a
	// terminal.
	Out io.Writer

	_ struct{}
}

// Dev is a 2D panel emulator that outputs to the console.
type Dev struct {
	w       io.Writer
	palette ansi256.Palette
	step    int
	rect    image.Rectangle

	frame *image.NRGBA
	drawn int
	buf   bytes.Buffer
}

// New returns a Dev that displays at the console.
func New(opts *Opts) (*Dev, error) {
	if opts.W <= 0 || opts.H <= 0 {
		return nil, fmt.Errorf("screen2d: invalid size %dx%d", opts.W, opts.H)
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	step := opts.Step
	if step <= 0 {
		step = 1
	}
	w := opts.Out
	if w == nil {
		w = stdout()
	}
	r := image.Rect(0, 0, opts.W, opts.H)
	return &Dev{
		w:       w,
		palette: *p,
		step:    step,
		rect:    r,
		frame:   image.NewNRGBA(r),
	}, nil
}

func stdout() io.Writer {
	if fd := os.Stdout.Fd(); isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return colorable.NewColorableStdout()
	}
	return colorable.NewNonColorable(os.Stdout)
}

func (d *Dev) String() string {
	return fmt.Sprintf("Screen2D{%d, %d}", d.rect.Dx(), d.rect.Dy())
}

// Halt implements conn.Resource.
//
// It resets the terminal colors.
func (d *Dev) Halt() error {
	d.drawn = 0
	_, err := d.w.Write([]byte("\033[0m\n"))
	return err
}

// Write accepts a full frame of big endian RGB565 pixels, the same stream
// the panel takes, and writes it to the console.
func (d *Dev) Write(pixels []byte) (int, error) {
	if len(pixels) != 2*d.rect.Dx()*d.rect.Dy() {
		return 0, errors.New("screen2d: invalid RGB565 stream length")
	}
	for i, j := 0, 0; i < len(pixels); i, j = i+2, j+4 {
		r, g, b, _ := image565.RGB565(uint16(pixels[i])<<8 | uint16(pixels[i+1])).RGBA()
		d.frame.Pix[j] = uint8(r >> 8)
		d.frame.Pix[j+1] = uint8(g >> 8)
		d.frame.Pix[j+2] = uint8(b >> 8)
		d.frame.Pix[j+3] = 255
	}
	if err := d.refresh(); err != nil {
		return 0, err
	}
	return len(pixels), nil
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return color.NRGBAModel
}

// Bounds implements display.Drawer.
func (d *Dev) Bounds() image.Rectangle {
	return d.rect
}

// Draw implements display.Drawer.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	draw.Draw(d.frame, r.Intersect(d.rect), src, sp, draw.Src)
	return d.refresh()
}

// Frame returns what is currently shown.
func (d *Dev) Frame() *image.NRGBA {
	return d.frame
}

// refresh redraws the frame over the previous one.
func (d *Dev) refresh() error {
	d.buf.Reset()
	if d.drawn != 0 {
		fmt.Fprintf(&d.buf, "\033[%dA", d.drawn)
	}
	lines := 0
	for y := 0; y < d.rect.Dy(); y += d.step {
		_, _ = d.buf.WriteString("\r\033[0m")
		for x := 0; x < d.rect.Dx(); x += d.step {
			_, _ = io.WriteString(&d.buf, d.palette.Block(d.frame.NRGBAAt(x, y)))
		}
		_, _ = d.buf.WriteString("\033[0m\n")
		lines++
	}
	d.drawn = lines
	_, err := d.buf.WriteTo(d.w)
	return err
}

var _ display.Drawer = &Dev{}
var _ fmt.Stringer = &Dev{}
