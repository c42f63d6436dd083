// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpioprobe

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// ToggleStats is the timing of high/low cycles.
type ToggleStats struct {
	Count int
	Min   time.Duration
	Max   time.Duration
	Total time.Duration
}

func (s *ToggleStats) add(d time.Duration) {
	if s.Count == 0 || d < s.Min {
		s.Min = d
	}
	if d > s.Max {
		s.Max = d
	}
	s.Count++
	s.Total += d
}

// Mean returns the average duration of one cycle.
func (s ToggleStats) Mean() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// Rate returns the number of cycles per second.
func (s ToggleStats) Rate() float64 {
	if s.Total <= 0 {
		return 0
	}
	return float64(s.Count) / s.Total.Seconds()
}

func (s ToggleStats) String() string {
	return fmt.Sprintf("%d cycles, min %s, mean %s, max %s, %.0f Hz", s.Count, s.Min, s.Mean(), s.Max, s.Rate())
}

var now = time.Now

// cycle drives pin high then low and returns how long it took.
func cycle(pin gpio.PinOut) (time.Duration, error) {
	start := now()
	if err := pin.Out(gpio.High); err != nil {
		return 0, err
	}
	if err := pin.Out(gpio.Low); err != nil {
		return 0, err
	}
	return now().Sub(start), nil
}

// ToggleN drives pin high then low n times as fast as possible.
func ToggleN(pin gpio.PinOut, n int) (ToggleStats, error) {
	var s ToggleStats
	for i := 0; i < n; i++ {
		d, err := cycle(pin)
		if err != nil {
			return s, lowAfter(pin, err)
		}
		s.add(d)
	}
	return s, nil
}

// Toggle drives pin high then low as fast as possible for d, or until ctx is
// done.
func Toggle(ctx context.Context, pin gpio.PinOut, d time.Duration) (ToggleStats, error) {
	var s ToggleStats
	end := now().Add(d)
	for now().Before(end) {
		if err := ctx.Err(); err != nil {
			return s, lowAfter(pin, err)
		}
		c, err := cycle(pin)
		if err != nil {
			return s, lowAfter(pin, err)
		}
		s.add(c)
	}
	return s, nil
}

// Blink drives pin high for half, then low for half, n times. n 0 blinks
// until ctx is done.
func Blink(ctx context.Context, pin gpio.PinOut, half time.Duration, n int) error {
	for i := 0; n == 0 || i < n; i++ {
		if err := pin.Out(gpio.High); err != nil {
			return lowAfter(pin, err)
		}
		if err := sleep(ctx, half); err != nil {
			return lowAfter(pin, err)
		}
		if err := pin.Out(gpio.Low); err != nil {
			return err
		}
		if err := sleep(ctx, half); err != nil {
			return err
		}
	}
	return nil
}

// lowAfter drives pin low and returns err.
func lowAfter(pin gpio.PinOut, err error) error {
	_ = pin.Out(gpio.Low)
	return err
}
