// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package st7735

import (
	"time"

	"periph.io/x/conn/v3/gpio"
)

// errorHandler is a wrapper for error management.
//
// The first error sticks, every later call is a no-op.
type errorHandler struct {
	d   *Dev
	err error
}

func (eh *errorHandler) rstOut(l gpio.Level) {
	if eh.err != nil {
		return
	}
	eh.err = eh.d.rst.Out(l)
}

func (eh *errorHandler) sendCommand(cmd byte) {
	if eh.err != nil {
		return
	}
	eh.err = eh.d.sendCommand(cmd)
}

func (eh *errorHandler) sendData(data []byte) {
	if eh.err != nil {
		return
	}
	eh.err = eh.d.sendData(data)
}

func (eh *errorHandler) delay(d time.Duration) {
	if eh.err != nil {
		return
	}
	eh.d.sleep(d)
}
