// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package image565 implements an image in the 16 bits per pixel RGB565 format
// used by ST7735 and similar TFT controllers.
//
// Each pixel is stored big-endian, high byte first, so Image.Pix can be sent
// as-is to the controller frame memory.
package image565

import (
	"image"
	"image/color"
	"image/draw"
)

// RGB565 is a 16 bits color: 5 bits red, 6 bits green, 5 bits blue.
type RGB565 uint16

// Common colors.
const (
	Black RGB565 = 0x0000
	White RGB565 = 0xFFFF
	Red   RGB565 = 0xF800
	Green RGB565 = 0x07E0
	Blue  RGB565 = 0x001F
)

// FromRGB quantizes an 8 bits per channel color.
func FromRGB(r, g, b uint8) RGB565 {
	return RGB565(uint16(r&0xF8)<<8 | uint16(g&0xFC)<<3 | uint16(b>>3))
}

// Bytes returns the two bytes as sent on the wire.
//
// hi = (r & 0xF8) | (g >> 5), lo = ((g & 0x1C) << 3) | (b >> 3).
func (c RGB565) Bytes() (hi, lo byte) {
	return byte(c >> 8), byte(c)
}

// RGBA implements color.Color.
//
// Channels are expanded by bit replication so that 0x1F maps to 0xFF.
func (c RGB565) RGBA() (r, g, b, a uint32) {
	r5 := uint32(c>>11) & 0x1F
	g6 := uint32(c>>5) & 0x3F
	b5 := uint32(c) & 0x1F
	r = (r5<<3 | r5>>2) * 0x101
	g = (g6<<2 | g6>>4) * 0x101
	b = (b5<<3 | b5>>2) * 0x101
	return r, g, b, 0xFFFF
}

func (c RGB565) String() string {
	const hex = "0123456789ABCDEF"
	return string([]byte{'0', 'x', hex[c>>12], hex[(c>>8)&0xF], hex[(c>>4)&0xF], hex[c&0xF]})
}

func convert(c color.Color) color.Color {
	if v, ok := c.(RGB565); ok {
		return v
	}
	r, g, b, _ := c.RGBA()
	return FromRGB(uint8(r>>8), uint8(g>>8), uint8(b>>8))
}

// Model is the color model for RGB565. Alpha is ignored.
var Model = color.ModelFunc(convert)

// Image is an in-memory image of RGB565 pixels.
type Image struct {
	// Pix holds the pixels, 2 bytes each, row-major, big-endian.
	Pix    []byte
	Stride int
	Rect   image.Rectangle
}

// NewImage returns a black image.
func NewImage(r image.Rectangle) *Image {
	w, h := r.Dx(), r.Dy()
	if w < 0 || h < 0 {
		return &Image{Rect: r}
	}
	return &Image{Pix: make([]byte, 2*w*h), Stride: 2 * w, Rect: r}
}

// ColorModel implements image.Image.
func (i *Image) ColorModel() color.Model {
	return Model
}

// Bounds implements image.Image.
func (i *Image) Bounds() image.Rectangle {
	return i.Rect
}

// Opaque is always true.
func (i *Image) Opaque() bool {
	return true
}

// At implements image.Image.
func (i *Image) At(x, y int) color.Color {
	return i.RGB565At(x, y)
}

// RGB565At returns the pixel at x, y. Out of bounds returns Black.
func (i *Image) RGB565At(x, y int) RGB565 {
	if !(image.Point{x, y}.In(i.Rect)) {
		return Black
	}
	o := i.PixOffset(x, y)
	return RGB565(uint16(i.Pix[o])<<8 | uint16(i.Pix[o+1]))
}

// PixOffset returns the index of the high byte of the pixel at x, y.
func (i *Image) PixOffset(x, y int) int {
	return (y-i.Rect.Min.Y)*i.Stride + (x-i.Rect.Min.X)*2
}

// Set implements draw.Image.
func (i *Image) Set(x, y int, c color.Color) {
	i.SetRGB565(x, y, convert(c).(RGB565))
}

// SetRGB565 sets the pixel at x, y.
func (i *Image) SetRGB565(x, y int, c RGB565) {
	if !(image.Point{x, y}.In(i.Rect)) {
		return
	}
	o := i.PixOffset(x, y)
	i.Pix[o], i.Pix[o+1] = c.Bytes()
}

// Fill sets every pixel to c.
func (i *Image) Fill(c RGB565) {
	hi, lo := c.Bytes()
	for o := 0; o+1 < len(i.Pix); o += 2 {
		i.Pix[o] = hi
		i.Pix[o+1] = lo
	}
}

// SubImage returns an image sharing pixels with i.
func (i *Image) SubImage(r image.Rectangle) image.Image {
	r = r.Intersect(i.Rect)
	if r.Empty() {
		return &Image{}
	}
	o := i.PixOffset(r.Min.X, r.Min.Y)
	return &Image{Pix: i.Pix[o:], Stride: i.Stride, Rect: r}
}

// Convert draws src onto dst, aligning dst.Rect.Min with sp in src. src must
// cover the whole of dst.Rect once aligned.
//
// *image.RGBA, *image.NRGBA and *Image sources are converted without going
// through color.Color. Translucent pixels are premultiplied by their alpha on
// every path, as draw.Draw does.
func Convert(dst *Image, src image.Image, sp image.Point) {
	r := dst.Rect
	switch s := src.(type) {
	case *Image:
		for y := r.Min.Y; y < r.Max.Y; y++ {
			so := s.PixOffset(sp.X, sp.Y+y-r.Min.Y)
			do := dst.PixOffset(r.Min.X, y)
			copy(dst.Pix[do:do+2*r.Dx()], s.Pix[so:])
		}
	case *image.RGBA:
		convertRGBA(dst, s.Pix, s.Stride, s.PixOffset(sp.X, sp.Y), false)
	case *image.NRGBA:
		convertRGBA(dst, s.Pix, s.Stride, s.PixOffset(sp.X, sp.Y), true)
	default:
		draw.Draw(dst, r, src, sp, draw.Src)
	}
}

// convertRGBA packs 4 bytes per pixel rows. When straight is set the source
// is non-premultiplied and is scaled by alpha like color.NRGBA.RGBA.
func convertRGBA(dst *Image, pix []byte, stride, start int, straight bool) {
	w := dst.Rect.Dx()
	for y := 0; y < dst.Rect.Dy(); y++ {
		so := start + y*stride
		do := dst.PixOffset(dst.Rect.Min.X, dst.Rect.Min.Y+y)
		for x := 0; x < w; x++ {
			r, g, b := pix[so], pix[so+1], pix[so+2]
			if a := pix[so+3]; straight && a != 0xFF {
				r, g, b = premul(r, a), premul(g, a), premul(b, a)
			}
			dst.Pix[do] = r&0xF8 | g>>5
			dst.Pix[do+1] = (g&0x1C)<<3 | b>>3
			so += 4
			do += 2
		}
	}
}

func premul(v, a uint8) uint8 {
	return uint8(uint32(v) * 0x101 * (uint32(a) * 0x101) / 0xFFFF >> 8)
}

var _ draw.Image = &Image{}
