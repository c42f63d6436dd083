// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lcdmirror serves over HTTP a copy of what an RGB565 panel shows.
//
// The buffer is quantized to RGB565 exactly like the panel frame memory, so
// the browser shows the same banding as the glass. Clients get a
// "multipart/x-mixed-replace" stream (MJPEG, as used by IP cameras) updated on
// every Draw, or a single image with "?once=1". PNG is the default format,
// "?format=jpeg" selects JPEG.
package lcdmirror

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"net/http"
	"sync"

	"github.com/GermanBionicSystems/zerolcd/st7735/image565"
	"periph.io/x/conn/v3/display"
)

// Options for a Mirror.
type Options struct {
	// Width and Height of the panel.
	Width, Height int
	// Format is the default image format sent to clients.
	Format Format
	// JPEGQuality is 1 to 100; 0 selects 90.
	JPEGQuality int
}

// Mirror is a display.Drawer and an http.Handler.
type Mirror struct {
	format  Format
	quality int

	mu      sync.Mutex
	buffer  *image565.Image
	encoded map[Format][]byte
	clients map[*client]struct{}
}

// New returns a Mirror showing a black panel.
func New(opts *Options) (*Mirror, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("lcdmirror: invalid size %dx%d", opts.Width, opts.Height)
	}
	q := opts.JPEGQuality
	if q == 0 {
		q = 90
	}
	if q < 1 || q > 100 {
		return nil, fmt.Errorf("lcdmirror: invalid JPEG quality %d", q)
	}
	return &Mirror{
		format:  opts.Format,
		quality: q,
		buffer:  image565.NewImage(image.Rect(0, 0, opts.Width, opts.Height)),
		encoded: map[Format][]byte{},
		clients: map[*client]struct{}{},
	}, nil
}

func (m *Mirror) String() string {
	return fmt.Sprintf("lcdmirror.Mirror{%dx%d}", m.buffer.Rect.Dx(), m.buffer.Rect.Dy())
}

// Halt implements conn.Resource. It ends every running stream.
func (m *Mirror) Halt() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for c := range m.clients {
		c.stop()
	}
	return nil
}

// ColorModel implements display.Drawer.
func (m *Mirror) ColorModel() color.Model {
	return image565.Model
}

// Bounds implements display.Drawer.
func (m *Mirror) Bounds() image.Rectangle {
	return m.buffer.Rect
}

// Draw implements display.Drawer.
func (m *Mirror) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	r = r.Intersect(m.buffer.Rect)
	sr := r.Sub(r.Min).Add(sp).Intersect(src.Bounds())
	if sr.Empty() {
		return nil
	}
	r = sr.Sub(sp).Add(r.Min)
	m.mu.Lock()
	defer m.mu.Unlock()
	image565.Convert(m.buffer.SubImage(r).(*image565.Image), src, sr.Min)
	m.changedLocked()
	return nil
}

// ShowImage shows img on the whole mirror, like st7735.Dev.ShowImage does
// for an image of the panel size.
func (m *Mirror) ShowImage(img image.Image) error {
	return m.Draw(m.buffer.Rect, img, img.Bounds().Min)
}

// Write accepts a full frame of big-endian RGB565 pixels, the same bytes as
// st7735.Dev.Write.
func (m *Mirror) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(p) != len(m.buffer.Pix) {
		return 0, errors.New("lcdmirror: invalid RGB565 frame length")
	}
	copy(m.buffer.Pix, p)
	m.changedLocked()
	return len(p), nil
}

// changedLocked drops the cached encodings and wakes up the streams.
func (m *Mirror) changedLocked() {
	clear(m.encoded)
	for c := range m.clients {
		c.wake()
	}
}

var _ display.Drawer = &Mirror{}
var _ http.Handler = &Mirror{}
