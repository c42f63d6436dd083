// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdmirror

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
)

// Format is an image encoding.
type Format int

const (
	PNG Format = iota
	JPEG
)

func (f Format) String() string {
	switch f {
	case PNG:
		return "PNG"
	case JPEG:
		return "JPEG"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

func (f Format) mimeType() string {
	if f == JPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// ParseFormat returns the Format named by s: "png", "jpg" or "jpeg".
func ParseFormat(s string) (Format, error) {
	switch s {
	case "png":
		return PNG, nil
	case "jpg", "jpeg":
		return JPEG, nil
	}
	return PNG, fmt.Errorf("lcdmirror: unknown image format %q", s)
}

// Small frames are encoded on every change, speed matters more than size.
var pngEncoder = png.Encoder{CompressionLevel: png.BestSpeed}

func encode(f Format, img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch f {
	case PNG:
		err = pngEncoder.Encode(&buf, img)
	case JPEG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	default:
		err = fmt.Errorf("lcdmirror: unhandled format %s", f)
	}
	return buf.Bytes(), err
}
