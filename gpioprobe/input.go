// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpioprobe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"periph.io/x/conn/v3/gpio"
)

// Event is a level seen on a watched line.
type Event struct {
	Pin   gpio.PinIn
	Level gpio.Level
	Time  time.Time
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s %s", e.Time.Format("15:04:05.000"), e.Pin, e.Level)
}

// Read configures pin as an input with pull and returns its level.
func Read(pin gpio.PinIn, pull gpio.Pull) (gpio.Level, error) {
	if err := pin.In(pull, gpio.NoEdge); err != nil {
		return gpio.Low, fmt.Errorf("gpioprobe: %s: %w", pin, err)
	}
	return pin.Read(), nil
}

// watchPoll bounds how long Watch takes to notice cancellation.
const watchPoll = 100 * time.Millisecond

// Watch configures pins as inputs with pull, detecting both edges, and calls
// fn with the level of each line, then again every time one changes, until
// ctx is done. fn is never called concurrently.
//
// It returns ctx.Err() once ctx is done. Edge detection is disabled on
// return.
func Watch(ctx context.Context, pins []gpio.PinIn, pull gpio.Pull, fn func(Event)) error {
	if len(pins) == 0 {
		return errors.New("gpioprobe: no pin to watch")
	}
	for i, p := range pins {
		if err := p.In(pull, gpio.BothEdges); err != nil {
			release(pins[:i])
			return fmt.Errorf("gpioprobe: %s: %w", p, err)
		}
	}
	defer release(pins)

	last := make([]gpio.Level, len(pins))
	for i, p := range pins {
		last[i] = p.Read()
		fn(Event{Pin: p, Level: last[i], Time: now()})
	}
	var mu sync.Mutex
	var g errgroup.Group
	for i, p := range pins {
		g.Go(func() error {
			for ctx.Err() == nil {
				if !p.WaitForEdge(watchPoll) {
					continue
				}
				l := p.Read()
				mu.Lock()
				// Bounces can report an edge without a change.
				if l != last[i] {
					last[i] = l
					fn(Event{Pin: p, Level: l, Time: now()})
				}
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

func release(pins []gpio.PinIn) {
	for _, p := range pins {
		_ = p.In(gpio.PullNoChange, gpio.NoEdge)
	}
}
