// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpioprobe

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Pattern is a sequence of pin states.
//
// Steps[i][j] is the level of pin j during step i. A Random pattern has no
// steps: the sequencer lights a random subset of pins on every step.
type Pattern struct {
	Name        string
	Description string
	Width       int
	Steps       [][]bool
	Interval    time.Duration
	Random      bool
}

func (p *Pattern) String() string {
	if p.Random {
		return fmt.Sprintf("%s (%d pins, random, %s)", p.Name, p.Width, p.Interval)
	}
	return fmt.Sprintf("%s (%d pins, %d steps, %s)", p.Name, p.Width, len(p.Steps), p.Interval)
}

// Validate checks that every step has Width levels.
func (p *Pattern) Validate() error {
	if p.Width <= 0 {
		return fmt.Errorf("gpioprobe: %s: invalid width %d", p.Name, p.Width)
	}
	if p.Interval <= 0 {
		return fmt.Errorf("gpioprobe: %s: invalid interval %s", p.Name, p.Interval)
	}
	if !p.Random && len(p.Steps) == 0 {
		return fmt.Errorf("gpioprobe: %s: no step", p.Name)
	}
	for i, s := range p.Steps {
		if len(s) != p.Width {
			return fmt.Errorf("gpioprobe: %s: step %d has %d levels, want %d", p.Name, i, len(s), p.Width)
		}
	}
	return nil
}

type builtin struct {
	description string
	width       int
	// fixed is true when the pattern only exists at its default width.
	fixed    bool
	interval time.Duration
	random   bool
	steps    func(width int) [][]bool
}

var builtins = map[string]builtin{
	"knight_rider": {
		description: "Back and forth scanning light",
		width:       8,
		interval:    100 * time.Millisecond,
		steps:       knightRider,
	},
	"binary_counter": {
		description: "Count in binary, pin 0 is the least significant bit",
		width:       4,
		interval:    500 * time.Millisecond,
		steps:       binaryCounter,
	},
	"traffic_light": {
		description: "Red, red+yellow, green, yellow",
		width:       3,
		fixed:       true,
		interval:    time.Second,
		steps: func(int) [][]bool {
			return [][]bool{
				{true, false, false},
				{true, true, false},
				{false, false, true},
				{false, true, false},
			}
		},
	},
	"breathing": {
		description: "Fade in and out by varying the on/off ratio",
		width:       5,
		interval:    50 * time.Millisecond,
		steps:       breathing,
	},
	"random_twinkle": {
		description: "Random twinkling lights",
		width:       9,
		interval:    100 * time.Millisecond,
		random:      true,
	},
}

// Names returns the names of the builtin patterns, sorted.
func Names() []string {
	out := make([]string, 0, len(builtins))
	for n := range builtins {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Builtin returns the named builtin pattern for width pins. width 0 selects
// the pattern default.
func Builtin(name string, width int) (*Pattern, error) {
	b, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("gpioprobe: unknown pattern %q, want one of %s", name, strings.Join(Names(), ", "))
	}
	if width == 0 {
		width = b.width
	}
	if width < 1 || (b.fixed && width != b.width) {
		return nil, fmt.Errorf("gpioprobe: %s: invalid width %d", name, width)
	}
	if name == "binary_counter" && width > 16 {
		return nil, fmt.Errorf("gpioprobe: %s: at most 16 pins", name)
	}
	p := &Pattern{
		Name:        name,
		Description: b.description,
		Width:       width,
		Interval:    b.interval,
		Random:      b.random,
	}
	if b.steps != nil {
		p.Steps = b.steps(width)
	}
	return p, nil
}

// one returns a step with only pin i on.
func one(width, i int) []bool {
	s := make([]bool, width)
	s[i] = true
	return s
}

func all(width int, l bool) []bool {
	s := make([]bool, width)
	for i := range s {
		s[i] = l
	}
	return s
}

// knightRider sweeps forward then back without repeating the ends.
func knightRider(width int) [][]bool {
	var out [][]bool
	for i := 0; i < width; i++ {
		out = append(out, one(width, i))
	}
	for i := width - 2; i > 0; i-- {
		out = append(out, one(width, i))
	}
	return out
}

func binaryCounter(width int) [][]bool {
	out := make([][]bool, 1<<width)
	for n := range out {
		s := make([]bool, width)
		for i := range s {
			s[i] = n>>i&1 == 1
		}
		out[n] = s
	}
	return out
}

// breathing emulates PWM: for each intensity 0..10 then back to 0, intensity
// steps on followed by 10-intensity steps off.
func breathing(width int) [][]bool {
	var out [][]bool
	add := func(intensity int) {
		for i := 0; i < intensity; i++ {
			out = append(out, all(width, true))
		}
		for i := intensity; i < 10; i++ {
			out = append(out, all(width, false))
		}
	}
	for i := 0; i <= 10; i++ {
		add(i)
	}
	for i := 10; i >= 0; i-- {
		add(i)
	}
	return out
}

// patternFile is the file format. Steps are strings of '0' and '1', pin 0
// first.
type patternFile struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Width       int      `json:"width"`
	IntervalMS  int64    `json:"interval_ms"`
	Random      bool     `json:"random,omitempty"`
	Steps       []string `json:"steps,omitempty"`
}

// Save writes p as indented JSON. The file stores the interval in
// milliseconds, so p.Interval must be a whole number of them.
func (p *Pattern) Save(w io.Writer) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Interval%time.Millisecond != 0 {
		return fmt.Errorf("gpioprobe: %s: interval %s is not a whole number of milliseconds", p.Name, p.Interval)
	}
	f := patternFile{
		Name:        p.Name,
		Description: p.Description,
		Width:       p.Width,
		IntervalMS:  p.Interval.Milliseconds(),
		Random:      p.Random,
	}
	for _, s := range p.Steps {
		var b strings.Builder
		for _, l := range s {
			if l {
				b.WriteByte('1')
			} else {
				b.WriteByte('0')
			}
		}
		f.Steps = append(f.Steps, b.String())
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(&f)
}

// LoadPattern reads a pattern written by Save.
func LoadPattern(r io.Reader) (*Pattern, error) {
	var f patternFile
	d := json.NewDecoder(r)
	d.DisallowUnknownFields()
	if err := d.Decode(&f); err != nil {
		return nil, fmt.Errorf("gpioprobe: %w", err)
	}
	p := &Pattern{
		Name:        f.Name,
		Description: f.Description,
		Width:       f.Width,
		Interval:    time.Duration(f.IntervalMS) * time.Millisecond,
		Random:      f.Random,
	}
	if p.Name == "" {
		return nil, errors.New("gpioprobe: pattern has no name")
	}
	for i, s := range f.Steps {
		step := make([]bool, len(s))
		for j, c := range s {
			switch c {
			case '0':
			case '1':
				step[j] = true
			default:
				return nil, fmt.Errorf("gpioprobe: %s: step %d: invalid level %q", p.Name, i, c)
			}
		}
		p.Steps = append(p.Steps, step)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
