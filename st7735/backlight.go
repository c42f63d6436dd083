// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package st7735

import (
	"fmt"

	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Backlight drives the panel backlight line.
//
// With PWM the brightness is a duty cycle, otherwise the line is simply on
// for any non-zero brightness. The mode is chosen once at construction, it is
// never probed.
type Backlight struct {
	pin     gpio.PinOut
	pwm     bool
	freq    physic.Frequency
	percent int
}

// NewBacklight returns a backlight on pin. freq is only used when pwm is
// true.
func NewBacklight(pin gpio.PinOut, pwm bool, freq physic.Frequency) *Backlight {
	return &Backlight{pin: pin, pwm: pwm, freq: freq}
}

// Set changes the brightness, in percent.
func (b *Backlight) Set(percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("st7735: backlight %d%%: %w", percent, ErrBacklightRange)
	}
	var err error
	switch {
	case !b.pwm || percent == 0 || percent == 100:
		err = b.pin.Out(gpio.Level(percent > 0))
	default:
		err = b.pin.PWM(gpio.Duty(int64(gpio.DutyMax)*int64(percent)/100), b.freq)
	}
	if err == nil {
		b.percent = percent
	}
	return err
}

// Percent returns the last brightness successfully set.
func (b *Backlight) Percent() int {
	return b.percent
}

// Backlight implements display.DisplayBacklight. intensity is a percentage,
// values above 100 are clamped.
func (b *Backlight) Backlight(intensity display.Intensity) error {
	p := int(intensity)
	if p > 100 {
		p = 100
	}
	if p < 0 {
		p = 0
	}
	return b.Set(p)
}

// Stop turns the backlight off and stops the PWM.
func (b *Backlight) Stop() error {
	err := b.pin.Out(gpio.Low)
	if err == nil {
		b.percent = 0
	}
	return err
}

func (b *Backlight) String() string {
	if b.pwm {
		return fmt.Sprintf("Backlight{%s, PWM %s}", b.pin, b.freq)
	}
	return fmt.Sprintf("Backlight{%s}", b.pin)
}

var _ display.DisplayBacklight = &Backlight{}
