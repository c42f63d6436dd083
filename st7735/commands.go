// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package st7735

import "time"

// Commands
const (
	slpOut  byte = 0x11
	invOff  byte = 0x20
	invOn   byte = 0x21
	dispOff byte = 0x28
	dispOn  byte = 0x29
	caSet   byte = 0x2A
	raSet   byte = 0x2B
	ramWr   byte = 0x2C
	madCtl  byte = 0x36
	colMod  byte = 0x3A
	frmCtr1 byte = 0xB1
	frmCtr2 byte = 0xB2
	frmCtr3 byte = 0xB3
	invCtr  byte = 0xB4
	pwCtr1  byte = 0xC0
	pwCtr2  byte = 0xC1
	pwCtr3  byte = 0xC2
	pwCtr4  byte = 0xC3
	pwCtr5  byte = 0xC4
	vmCtr1  byte = 0xC5
	gmCtrP1 byte = 0xE0
	gmCtrN1 byte = 0xE1
)

// MADCTL bits.
const (
	MADCTLMY  byte = 0x80 // Row address order
	MADCTLMX  byte = 0x40 // Column address order
	MADCTLMV  byte = 0x20 // Row/column exchange
	MADCTLML  byte = 0x10 // Vertical refresh order
	MADCTLBGR byte = 0x08 // BGR panel
)

// colMod16 selects 16 bits per pixel.
const colMod16 byte = 0x05

const (
	sleepOutDelay  = 120 * time.Millisecond
	displayOnDelay = 100 * time.Millisecond
)

type controller interface {
	sendCommand(byte)
	sendData([]byte)
	delay(time.Duration)
}

// step is one entry of the power-on script.
type step struct {
	cmd   byte
	data  []byte
	delay time.Duration
}

// initScript returns the ST7735S power-on sequence. The order matters, the
// panel stays blank or shows garbage if entries are dropped or reordered.
func initScript(opts *Opts) []step {
	return []step{
		{cmd: slpOut, delay: sleepOutDelay},
		// Frame rate = fosc/((RTNA x 2 + 40) x (LINE + FPA + BPA)).
		{cmd: frmCtr1, data: []byte{0x01, 0x2C, 0x2D}},
		{cmd: frmCtr2, data: []byte{0x01, 0x2C, 0x2D}},
		{cmd: frmCtr3, data: []byte{0x01, 0x2C, 0x2D, 0x01, 0x2C, 0x2D}},
		// Column inversion.
		{cmd: invCtr, data: []byte{0x07}},
		{cmd: pwCtr1, data: []byte{0xA2, 0x02, 0x84}}, // -4.6V, auto mode
		{cmd: pwCtr2, data: []byte{0xC5}},
		{cmd: pwCtr3, data: []byte{0x0A, 0x00}},
		{cmd: pwCtr4, data: []byte{0x8A, 0x2A}},
		{cmd: pwCtr5, data: []byte{0x8A, 0xEE}},
		{cmd: vmCtr1, data: []byte{0x0E}},
		{cmd: madCtl, data: []byte{opts.MADCTL}},
		{cmd: colMod, data: []byte{colMod16}},
		{cmd: gmCtrP1, data: []byte{
			0x0F, 0x1A, 0x0F, 0x18, 0x2F, 0x28, 0x20, 0x22,
			0x1F, 0x1B, 0x23, 0x37, 0x00, 0x07, 0x02, 0x10,
		}},
		{cmd: gmCtrN1, data: []byte{
			0x0F, 0x1B, 0x0F, 0x17, 0x33, 0x2C, 0x29, 0x2E,
			0x30, 0x30, 0x39, 0x3F, 0x00, 0x07, 0x03, 0x10,
		}},
		{cmd: dispOn, delay: displayOnDelay},
	}
}

func playScript(ctrl controller, script []step) {
	for _, s := range script {
		ctrl.sendCommand(s.cmd)
		if len(s.data) != 0 {
			ctrl.sendData(s.data)
		}
		if s.delay != 0 {
			ctrl.delay(s.delay)
		}
	}
}
