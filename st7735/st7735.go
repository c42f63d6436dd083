// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package st7735

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"time"

	"github.com/GermanBionicSystems/zerolcd/st7735/image565"
	xdraw "golang.org/x/image/draw"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

var (
	// ErrInvalidWindow is returned when a window is empty or not inside the
	// panel.
	ErrInvalidWindow = errors.New("invalid window")
	// ErrPixelCount is returned when a pixel stream does not match the
	// selected window.
	ErrPixelCount = errors.New("pixel stream length does not match window")
	// ErrNoWindow is returned when pixels are written without a window.
	ErrNoWindow = errors.New("no window selected")
	// ErrNotReset is returned by Init when Reset was not called first.
	ErrNotReset = errors.New("init called without reset")
	// ErrBacklightRange is returned for a brightness outside 0..100.
	ErrBacklightRange = errors.New("brightness out of range")
	// ErrShutdown is returned by every operation after Shutdown.
	ErrShutdown = errors.New("device is shut down")
)

// Opts defines the options for the device.
type Opts struct {
	// W and H are the panel size in pixels, as seen after MADCTL.
	W int
	H int
	// XOffset and YOffset are added to window coordinates. Some glass is
	// not mounted at the origin of the controller frame memory.
	XOffset int
	YOffset int
	// MADCTL is the memory access control register value; it sets
	// orientation and RGB/BGR order.
	MADCTL byte
	// Frequency is the SPI clock.
	Frequency physic.Frequency
	// ResetHold is how long RST is held low, then high, during Reset.
	ResetHold time.Duration
	// ChunkSize is the maximum number of bytes per SPI transaction. It is
	// further capped by the port limit when known.
	ChunkSize int
	// CS is an optional chip select line. Leave nil when the SPI port drives
	// its own chip select.
	CS gpio.PinOut
	// BacklightPWM selects PWM dimming. When false the backlight is on/off.
	BacklightPWM bool
	// BacklightFrequency is the PWM frequency.
	BacklightFrequency physic.Frequency
}

// DefaultOpts is the configuration of the 0.96" 160x80 panels on the
// Waveshare Zero LCD HAT (A).
var DefaultOpts = Opts{
	W:                  160,
	H:                  80,
	MADCTL:             MADCTLMY | MADCTLMX | MADCTLBGR,
	Frequency:          10 * physic.MegaHertz,
	ResetHold:          100 * time.Millisecond,
	ChunkSize:          4096,
	BacklightPWM:       true,
	BacklightFrequency: 1 * physic.KiloHertz,
}

// Dev is an open handle to the display controller.
type Dev struct {
	// Communication
	c   conn.Conn
	p   spi.Port
	dc  gpio.PinOut
	rst gpio.PinOut
	cs  gpio.PinOut
	bl  *Backlight

	opts  Opts
	rect  image.Rectangle
	chunk int

	// Mutable
	// window is the rectangle selected by the last SetWindow; armed is true
	// until pixels are written to it.
	window   image.Rectangle
	armed    bool
	wasReset bool
	closed   bool
	// frame holds the last frame drawn, in wire format.
	frame *image565.Image
	// scaled is lazy initialized on the first ShowImage() of an image that
	// does not have the panel size.
	scaled *image.RGBA
	sleep  func(time.Duration)
}

// New returns a Dev that communicates over SPI to an ST7735 controller.
//
// dc and rst are required. bl may be nil if the backlight is not wired to a
// GPIO. opts may be nil to use DefaultOpts.
//
// The controller is not touched until Reset and Init are called.
//
// If p is a spi.PortCloser, it is closed by Shutdown.
func New(p spi.Port, dc, rst, bl gpio.PinOut, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if dc == nil || dc == gpio.INVALID {
		return nil, errors.New("st7735: dc pin is required")
	}
	if rst == nil || rst == gpio.INVALID {
		return nil, errors.New("st7735: rst pin is required")
	}
	if opts.W <= 0 || opts.H <= 0 || opts.W+opts.XOffset > 0xFFFF || opts.H+opts.YOffset > 0xFFFF {
		return nil, fmt.Errorf("st7735: invalid size %dx%d", opts.W, opts.H)
	}
	if opts.XOffset < 0 || opts.YOffset < 0 {
		return nil, fmt.Errorf("st7735: invalid offset %d,%d", opts.XOffset, opts.YOffset)
	}
	if err := rst.Out(gpio.High); err != nil {
		return nil, err
	}
	if err := dc.Out(gpio.Low); err != nil {
		return nil, err
	}
	if opts.CS != nil {
		if err := opts.CS.Out(gpio.High); err != nil {
			return nil, err
		}
	}
	c, err := p.Connect(opts.Frequency, spi.Mode0, 8)
	if err != nil {
		return nil, err
	}

	chunk := opts.ChunkSize
	if chunk <= 0 {
		chunk = DefaultOpts.ChunkSize
	}
	if limits, ok := c.(conn.Limits); ok {
		if m := limits.MaxTxSize(); m > 0 && m < chunk {
			chunk = m
		}
	}

	d := &Dev{
		c:     c,
		p:     p,
		dc:    dc,
		rst:   rst,
		cs:    opts.CS,
		opts:  *opts,
		rect:  image.Rect(0, 0, opts.W, opts.H),
		chunk: chunk,
		frame: image565.NewImage(image.Rect(0, 0, opts.W, opts.H)),
		sleep: time.Sleep,
	}
	if bl != nil && bl != gpio.INVALID {
		d.bl = NewBacklight(bl, opts.BacklightPWM, opts.BacklightFrequency)
	}
	return d, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("st7735.Dev{%s, %s, %s}", d.c, d.dc, d.rect.Max)
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return image565.Model
}

// Bounds implements display.Drawer. Min is guaranteed to be {0, 0}.
func (d *Dev) Bounds() image.Rectangle {
	return d.rect
}

// Backlight returns the backlight controller, nil if none is wired.
func (d *Dev) Backlight() *Backlight {
	return d.bl
}

// Reset pulses the RST line: low for ResetHold, then high for ResetHold.
//
// It must be called before Init, including after any transport error.
func (d *Dev) Reset() error {
	if d.closed {
		return ErrShutdown
	}
	d.armed = false
	d.wasReset = false
	eh := errorHandler{d: d}
	eh.rstOut(gpio.Low)
	eh.delay(d.opts.ResetHold)
	eh.rstOut(gpio.High)
	eh.delay(d.opts.ResetHold)
	if eh.err == nil {
		d.wasReset = true
	}
	return eh.err
}

// Init sends the power-on sequence then clears the panel to black.
func (d *Dev) Init() error {
	if d.closed {
		return ErrShutdown
	}
	if !d.wasReset {
		return fmt.Errorf("st7735: %w", ErrNotReset)
	}
	d.wasReset = false
	eh := errorHandler{d: d}
	playScript(&eh, initScript(&d.opts))
	if eh.err != nil {
		return eh.err
	}
	return d.Clear(image565.Black)
}

// SetWindow selects the frame memory rectangle the next WritePixels fills.
//
// r must be non-empty and inside Bounds(); nothing is sent otherwise.
func (d *Dev) SetWindow(r image.Rectangle) error {
	if d.closed {
		return ErrShutdown
	}
	if r.Empty() || !r.In(d.rect) {
		return fmt.Errorf("st7735: window %v in %v: %w", r, d.rect, ErrInvalidWindow)
	}
	d.armed = false
	x0, x1 := r.Min.X+d.opts.XOffset, r.Max.X-1+d.opts.XOffset
	y0, y1 := r.Min.Y+d.opts.YOffset, r.Max.Y-1+d.opts.YOffset
	eh := errorHandler{d: d}
	eh.sendCommand(caSet)
	eh.sendData([]byte{byte(x0 >> 8), byte(x0), byte(x1 >> 8), byte(x1)})
	eh.sendCommand(raSet)
	eh.sendData([]byte{byte(y0 >> 8), byte(y0), byte(y1 >> 8), byte(y1)})
	eh.sendCommand(ramWr)
	if eh.err == nil {
		d.window = r
		d.armed = true
	}
	return eh.err
}

// WritePixels sends RGB565 pixels, row-major, to the window selected by the
// last SetWindow.
//
// len(p) must be exactly 2*Dx*Dy of that window. Each window accepts a
// single WritePixels.
func (d *Dev) WritePixels(p []byte) error {
	if d.closed {
		return ErrShutdown
	}
	if !d.armed {
		return fmt.Errorf("st7735: %w", ErrNoWindow)
	}
	if want := 2 * d.window.Dx() * d.window.Dy(); len(p) != want {
		return fmt.Errorf("st7735: expected %d bytes for window %v, got %d: %w", want, d.window, len(p), ErrPixelCount)
	}
	d.armed = false
	return d.sendData(p)
}

// ShowImage displays img on the whole panel.
//
// img is scaled to the panel size if needed, then converted to RGB565.
func (d *Dev) ShowImage(img image.Image) error {
	if d.closed {
		return ErrShutdown
	}
	src := img
	sp := img.Bounds().Min
	if img.Bounds().Size() != d.rect.Size() {
		if d.scaled == nil {
			d.scaled = image.NewRGBA(d.rect)
		}
		xdraw.CatmullRom.Scale(d.scaled, d.rect, img, img.Bounds(), xdraw.Src, nil)
		src = d.scaled
		sp = image.Point{}
	}
	image565.Convert(d.frame, src, sp)
	return d.flush(d.rect)
}

// Draw implements display.Drawer.
//
// Only the pixels inside r are sent. It draws synchronously, once this
// function returns, the panel is updated.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	if d.closed {
		return ErrShutdown
	}
	r = r.Intersect(d.rect)
	sr := r.Sub(r.Min).Add(sp).Intersect(src.Bounds())
	if sr.Empty() {
		return nil
	}
	r = sr.Sub(sp).Add(r.Min)
	image565.Convert(d.frame.SubImage(r).(*image565.Image), src, sr.Min)
	return d.flush(r)
}

// Write sends a full frame of RGB565 pixels, big-endian, row-major.
//
// It accepts the content of image565.Image.Pix.
func (d *Dev) Write(pixels []byte) (int, error) {
	if d.closed {
		return 0, ErrShutdown
	}
	if len(pixels) != len(d.frame.Pix) {
		return 0, fmt.Errorf("st7735: expected %d bytes, got %d: %w", len(d.frame.Pix), len(pixels), ErrPixelCount)
	}
	copy(d.frame.Pix, pixels)
	if err := d.flush(d.rect); err != nil {
		return 0, err
	}
	return len(pixels), nil
}

// Clear fills the panel with c.
func (d *Dev) Clear(c image565.RGB565) error {
	if d.closed {
		return ErrShutdown
	}
	d.frame.Fill(c)
	return d.flush(d.rect)
}

// SetBacklight sets the backlight brightness in percent, 0 to 100.
//
// It is a no-op when no backlight pin was provided.
func (d *Dev) SetBacklight(percent int) error {
	if d.closed {
		return ErrShutdown
	}
	if d.bl == nil {
		if percent < 0 || percent > 100 {
			return fmt.Errorf("st7735: backlight %d%%: %w", percent, ErrBacklightRange)
		}
		return nil
	}
	return d.bl.Set(percent)
}

// Invert enables or disables color inversion. IPS glass commonly needs it.
func (d *Dev) Invert(on bool) error {
	if d.closed {
		return ErrShutdown
	}
	if on {
		return d.sendCommand(invOn)
	}
	return d.sendCommand(invOff)
}

// Halt implements conn.Resource.
//
// It turns the display and the backlight off. Drawing afterward does not turn
// it back on, Reset and Init do.
func (d *Dev) Halt() error {
	if d.closed {
		return nil
	}
	if err := d.sendCommand(dispOff); err != nil {
		return err
	}
	if d.bl != nil {
		return d.bl.Stop()
	}
	return nil
}

// Shutdown sets RST high, D/C low, turns the backlight off and closes the
// SPI port if it is closable.
//
// It is safe to call multiple times and after a failed Init. Every step is
// attempted; the first error is returned.
func (d *Dev) Shutdown() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.armed = false
	var err error
	keep := func(e error) {
		if err == nil {
			err = e
		}
	}
	keep(d.rst.Out(gpio.High))
	keep(d.dc.Out(gpio.Low))
	if d.bl != nil {
		keep(d.bl.Stop())
	}
	if c, ok := d.p.(io.Closer); ok {
		keep(c.Close())
	}
	return err
}

// flush sends the part of d.frame inside r.
func (d *Dev) flush(r image.Rectangle) error {
	if err := d.SetWindow(r); err != nil {
		return err
	}
	if r == d.rect {
		return d.WritePixels(d.frame.Pix)
	}
	row := 2 * r.Dx()
	buf := make([]byte, 0, row*r.Dy())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		o := d.frame.PixOffset(r.Min.X, y)
		buf = append(buf, d.frame.Pix[o:o+row]...)
	}
	return d.WritePixels(buf)
}

func (d *Dev) sendCommand(cmd byte) error {
	if err := d.dc.Out(gpio.Low); err != nil {
		return err
	}
	return d.tx([]byte{cmd})
}

// sendData sends data in chunks no larger than the transport accepts.
func (d *Dev) sendData(data []byte) error {
	if err := d.dc.Out(gpio.High); err != nil {
		return err
	}
	for len(data) > 0 {
		n := min(len(data), d.chunk)
		if err := d.tx(data[:n]); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

func (d *Dev) tx(w []byte) error {
	if d.cs == nil {
		return d.c.Tx(w, nil)
	}
	if err := d.cs.Out(gpio.Low); err != nil {
		return err
	}
	err := d.c.Tx(w, nil)
	if err2 := d.cs.Out(gpio.High); err == nil {
		err = err2
	}
	return err
}

var _ display.Drawer = &Dev{}
var _ conn.Resource = &Dev{}
var _ io.Writer = &Dev{}
