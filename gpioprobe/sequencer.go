// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpioprobe

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// twinkleSteps is the number of steps of one cycle of a random pattern.
const twinkleSteps = 60

// Sequencer plays patterns on a set of lines.
type Sequencer struct {
	// Pins are the lines, pin 0 first. There must be as many as the pattern
	// width.
	Pins []gpio.PinOut
	// Pause is the delay between cycles. Defaults to 500ms.
	Pause time.Duration
	// Rand drives random patterns. Defaults to a time seeded source.
	Rand *rand.Rand
	// OnStep, when set, is called after every step is applied.
	OnStep func(cycle, step int, levels []bool)

	wait func(ctx context.Context, d time.Duration) error
}

// Run plays p repeat times. repeat 0 plays until ctx is done.
//
// The lines are driven low before Run returns. It returns ctx.Err() when
// cancelled.
func (s *Sequencer) Run(ctx context.Context, p *Pattern, repeat int) (err error) {
	if err := p.Validate(); err != nil {
		return err
	}
	if len(s.Pins) != p.Width {
		return fmt.Errorf("gpioprobe: %s needs %d pins, got %d", p.Name, p.Width, len(s.Pins))
	}
	defer func() {
		if err2 := s.AllLow(); err == nil {
			err = err2
		}
	}()
	rnd := s.Rand
	if rnd == nil && p.Random {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	pause := s.Pause
	if pause == 0 {
		pause = 500 * time.Millisecond
	}
	for cycle := 0; repeat == 0 || cycle < repeat; cycle++ {
		if cycle != 0 {
			if err := s.sleep(ctx, pause); err != nil {
				return err
			}
		}
		n := len(p.Steps)
		if p.Random {
			n = twinkleSteps
		}
		for i := 0; i < n; i++ {
			var levels []bool
			d := p.Interval
			if p.Random {
				// Between 1 and 5 intervals.
				levels, d = twinkle(rnd, p.Width), d+time.Duration(rnd.Int63n(int64(4*d)+1))
			} else {
				levels = p.Steps[i]
			}
			if err := s.apply(levels); err != nil {
				return err
			}
			if s.OnStep != nil {
				s.OnStep(cycle, i, levels)
			}
			if err := s.sleep(ctx, d); err != nil {
				return err
			}
		}
	}
	return nil
}

// AllLow drives every line low. Every line is attempted, the first error is
// returned.
func (s *Sequencer) AllLow() error {
	var err error
	for _, p := range s.Pins {
		if e := p.Out(gpio.Low); e != nil && err == nil {
			err = e
		}
	}
	return err
}

func (s *Sequencer) apply(levels []bool) error {
	for i, p := range s.Pins {
		if err := p.Out(gpio.Level(levels[i])); err != nil {
			return fmt.Errorf("gpioprobe: %s: %w", p, err)
		}
	}
	return nil
}

func (s *Sequencer) sleep(ctx context.Context, d time.Duration) error {
	if s.wait != nil {
		return s.wait(ctx, d)
	}
	return sleep(ctx, d)
}

// twinkle lights between 1 and width/2 random pins.
func twinkle(rnd *rand.Rand, width int) []bool {
	levels := make([]bool, width)
	n := 1 + rnd.Intn(max(1, width/2))
	for _, i := range rnd.Perm(width)[:n] {
		levels[i] = true
	}
	return levels
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
