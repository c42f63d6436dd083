// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package st7735 controls a TFT LCD panel driven by a Sitronix ST7735S
// controller over 4-wire SPI, as found on the Waveshare Zero LCD HAT (A)
// 0.96" 160x80 panels.
//
// The controller is fed a stream of command and data bytes. The D/C line
// selects between the two: low for a command byte, high for command arguments
// and pixel data. Pixels are sent as RGB565, high byte first, after selecting
// a window in frame memory.
//
// A session is:
//
//	New -> Reset -> Init -> {SetWindow -> WritePixels}* -> Shutdown
//
// ShowImage, Draw, Write and Clear wrap the SetWindow/WritePixels pair.
//
// At most one Dev may use a given SPI port. Multiple panels need distinct
// ports, usually distinct chip selects like SPI0.0 and SPI0.1.
//
// Transport and GPIO errors are returned unchanged and leave the controller
// in an unknown state; recover by calling Reset then Init.
//
// # Datasheet
//
// https://www.waveshare.com/w/upload/e/e2/ST7735S_V1.1_20111121.pdf
package st7735
