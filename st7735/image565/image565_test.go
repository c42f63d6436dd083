// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package image565

import (
	"image"
	"image/color"
	"testing"
)

func TestFromRGBBytes(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b uint8
		hi, lo  byte
	}{
		{"white", 255, 255, 255, 0xFF, 0xFF},
		{"black", 0, 0, 0, 0x00, 0x00},
		{"red", 255, 0, 0, 0xF8, 0x00},
		{"green", 0, 255, 0, 0x07, 0xE0},
		{"blue", 0, 0, 255, 0x00, 0x1F},
		{"low bits dropped", 0x07, 0x03, 0x07, 0x00, 0x00},
		{"mixed", 0x3c, 0xbd, 0xc4, 0x3D, 0xF8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hi, lo := FromRGB(tt.r, tt.g, tt.b).Bytes()
			if hi != tt.hi || lo != tt.lo {
				t.Errorf("FromRGB(%d, %d, %d).Bytes() = (0x%02X, 0x%02X), want (0x%02X, 0x%02X)", tt.r, tt.g, tt.b, hi, lo, tt.hi, tt.lo)
			}
		})
	}
}

func TestFromRGBExhaustive(t *testing.T) {
	for r := 0; r < 256; r++ {
		for g := 0; g < 256; g++ {
			for b := 0; b < 256; b += 7 {
				hi, lo := FromRGB(uint8(r), uint8(g), uint8(b)).Bytes()
				wantHi := byte(r)&0xF8 | byte(g)>>5
				wantLo := (byte(g)&0x1C)<<3 | byte(b)>>3
				if hi != wantHi || lo != wantLo {
					t.Fatalf("FromRGB(%d, %d, %d) = (0x%02X, 0x%02X), want (0x%02X, 0x%02X)", r, g, b, hi, lo, wantHi, wantLo)
				}
			}
		}
	}
}

func TestRGBA(t *testing.T) {
	tests := []struct {
		c       RGB565
		r, g, b uint32
	}{
		{Black, 0, 0, 0},
		{White, 0xFFFF, 0xFFFF, 0xFFFF},
		{Red, 0xFFFF, 0, 0},
		{Green, 0, 0xFFFF, 0},
		{Blue, 0, 0, 0xFFFF},
	}
	for _, tt := range tests {
		r, g, b, a := tt.c.RGBA()
		if r != tt.r || g != tt.g || b != tt.b || a != 0xFFFF {
			t.Errorf("%s.RGBA() = (%x, %x, %x, %x), want (%x, %x, %x, ffff)", tt.c, r, g, b, a, tt.r, tt.g, tt.b)
		}
	}
}

func TestModelConvert(t *testing.T) {
	if got := Model.Convert(color.RGBA{255, 0, 0, 255}); got != Red {
		t.Errorf("Model.Convert(red) = %v, want %v", got, Red)
	}
	if got := Model.Convert(Blue); got != Blue {
		t.Errorf("Model.Convert(Blue) = %v, want %v", got, Blue)
	}
	if got := Model.Convert(color.Gray{0xFF}); got != White {
		t.Errorf("Model.Convert(white gray) = %v, want %v", got, White)
	}
}

func TestString(t *testing.T) {
	if got := Red.String(); got != "0xF800" {
		t.Errorf("Red.String() = %q", got)
	}
}

func TestImageSetAt(t *testing.T) {
	img := NewImage(image.Rect(0, 0, 4, 2))
	if len(img.Pix) != 16 || img.Stride != 8 {
		t.Fatalf("NewImage() len(Pix)=%d Stride=%d", len(img.Pix), img.Stride)
	}
	img.Set(1, 1, color.RGBA{0, 0, 255, 255})
	if got := img.RGB565At(1, 1); got != Blue {
		t.Errorf("RGB565At(1, 1) = %v, want %v", got, Blue)
	}
	if o := img.PixOffset(1, 1); img.Pix[o] != 0x00 || img.Pix[o+1] != 0x1F {
		t.Errorf("Pix[%d:%d] = % X", o, o+2, img.Pix[o:o+2])
	}
	// Out of bounds is ignored.
	img.Set(10, 10, color.White)
	if got := img.At(10, 10); got != Black {
		t.Errorf("At(10, 10) = %v, want Black", got)
	}
}

func TestImageFill(t *testing.T) {
	img := NewImage(image.Rect(0, 0, 3, 3))
	img.Fill(Red)
	for i := 0; i < len(img.Pix); i += 2 {
		if img.Pix[i] != 0xF8 || img.Pix[i+1] != 0x00 {
			t.Fatalf("Pix[%d:%d] = % X", i, i+2, img.Pix[i:i+2])
		}
	}
}

func TestSubImage(t *testing.T) {
	img := NewImage(image.Rect(0, 0, 4, 4))
	sub := img.SubImage(image.Rect(1, 1, 3, 3)).(*Image)
	sub.SetRGB565(2, 2, White)
	if got := img.RGB565At(2, 2); got != White {
		t.Errorf("parent At(2, 2) = %v, want White", got)
	}
	if empty := img.SubImage(image.Rect(10, 10, 12, 12)); !empty.Bounds().Empty() {
		t.Errorf("SubImage() out of bounds = %v", empty.Bounds())
	}
}

func TestConvert(t *testing.T) {
	r := image.Rect(0, 0, 3, 2)
	src := image.NewRGBA(r)
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			src.SetRGBA(x, y, color.RGBA{uint8(80 * x), uint8(120 * y), 200, 255})
		}
	}
	nsrc := image.NewNRGBA(r)
	gray := image.NewGray(r)
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			nsrc.Set(x, y, src.At(x, y))
			gray.SetGray(x, y, color.Gray{uint8(60 * (x + y))})
		}
	}

	for _, s := range []image.Image{src, nsrc, gray} {
		dst := NewImage(r)
		Convert(dst, s, image.Point{})
		for y := 0; y < 2; y++ {
			for x := 0; x < 3; x++ {
				sr, sg, sb, _ := s.At(x, y).RGBA()
				want := FromRGB(uint8(sr>>8), uint8(sg>>8), uint8(sb>>8))
				if got := dst.RGB565At(x, y); got != want {
					t.Errorf("%T: At(%d, %d) = %v, want %v", s, x, y, got, want)
				}
			}
		}
		again := NewImage(r)
		Convert(again, dst, image.Point{})
		if string(again.Pix) != string(dst.Pix) {
			t.Errorf("%T: copy of *Image differs", s)
		}
	}
}

func TestConvertOffset(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	src.SetRGBA(2, 3, color.RGBA{255, 255, 255, 255})
	dst := NewImage(image.Rect(0, 0, 2, 1))
	Convert(dst, src, image.Point{1, 3})
	if got := dst.RGB565At(1, 0); got != White {
		t.Errorf("At(1, 0) = %v, want White", got)
	}
	if got := dst.RGB565At(0, 0); got != Black {
		t.Errorf("At(0, 0) = %v, want Black", got)
	}
}

func TestConvertTranslucent(t *testing.T) {
	r := image.Rect(0, 0, 2, 2)
	c := color.NRGBA{255, 0, 0, 128}
	nrgba := image.NewNRGBA(r)
	rgba := image.NewRGBA(r)
	pal := image.NewPaletted(r, color.Palette{c})
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			nrgba.SetNRGBA(x, y, c)
			rgba.Set(x, y, c)
		}
	}
	for _, s := range []image.Image{nrgba, rgba, pal, &image.Uniform{c}} {
		dst := NewImage(r)
		Convert(dst, s, image.Point{})
		for o := 0; o < len(dst.Pix); o += 2 {
			if dst.Pix[o] != 0x80 || dst.Pix[o+1] != 0x00 {
				t.Fatalf("%T: Pix[%d:%d] = % X, want 80 00", s, o, o+2, dst.Pix[o:o+2])
			}
		}
	}
}
