// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lcdhat wires the ST7735 panels of a Zero LCD HAT.
//
// Each panel has its own SPI chip select, reset, data/command and backlight
// line. Open resolves them by name, creates one st7735.Dev per panel and runs
// Reset and Init on each.
//
// The HAT also carries push buttons wired to ground. They are configured as
// pulled up inputs with falling edge detection and read with WaitKey.
//
// # Datasheet
//
// https://www.waveshare.com/wiki/Zero_LCD_HAT_(A)
package lcdhat

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/GermanBionicSystems/zerolcd/st7735"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
)

// PanelConfig names the lines of one panel.
type PanelConfig struct {
	Name string
	// SPI is the spireg name of the port, e.g. "SPI0.0".
	SPI string
	// RST, DC and BL are gpioreg names. BL may be empty.
	RST string
	DC  string
	BL  string
}

// Config describes a board.
type Config struct {
	Panels []PanelConfig
	// Keys are gpioreg names of the push buttons, in order. May be empty.
	Keys []string
	// Opts is used for every panel. Set Opts.BacklightPWM to false on boards
	// where the backlight lines can only be switched on and off.
	Opts st7735.Opts
}

// ZeroHATA is the Waveshare Zero LCD HAT (A) with its two 0.96" panels.
var ZeroHATA = Config{
	Panels: []PanelConfig{
		{Name: "left", SPI: "SPI0.0", RST: "GPIO24", DC: "GPIO4", BL: "GPIO13"},
		{Name: "right", SPI: "SPI0.1", RST: "GPIO23", DC: "GPIO5", BL: "GPIO12"},
	},
	Keys: []string{"GPIO25", "GPIO26"},
	Opts: st7735.DefaultOpts,
}

// Resolver finds ports and pins by name.
type Resolver interface {
	// OpenSPI opens the named port.
	OpenSPI(name string) (spi.PortCloser, error)
	// Pin returns the named pin, or nil when it does not exist.
	Pin(name string) gpio.PinIO
}

// Registry resolves names through periph's spireg and gpioreg. host.Init
// must have been called.
var Registry Resolver = registry{}

type registry struct{}

func (registry) OpenSPI(name string) (spi.PortCloser, error) {
	return spireg.Open(name)
}

func (registry) Pin(name string) gpio.PinIO {
	return gpioreg.ByName(name)
}

// HAT is an open board.
type HAT struct {
	panels []*st7735.Dev
	names  []string
	keys   []gpio.PinIn
}

// Open opens every panel of cfg through the periph registries.
func Open(cfg *Config) (*HAT, error) {
	return OpenWith(cfg, Registry)
}

// OpenWith opens, resets and initializes every panel of cfg.
//
// A port may only be named once: the SPI connection of a port is owned by a
// single driver. When a panel fails, the panels already opened are shut down.
func OpenWith(cfg *Config, r Resolver) (*HAT, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	h := &HAT{}
	for i := range cfg.Panels {
		d, err := openPanel(&cfg.Panels[i], &cfg.Opts, r)
		if err != nil {
			if err2 := h.Shutdown(); err2 != nil {
				err = errors.Join(err, err2)
			}
			return nil, err
		}
		h.panels = append(h.panels, d)
		h.names = append(h.names, cfg.Panels[i].Name)
	}
	for _, name := range cfg.Keys {
		k, err := pin(r, name)
		if err == nil {
			err = k.In(gpio.PullUp, gpio.FallingEdge)
		}
		if err != nil {
			err = fmt.Errorf("lcdhat: key %s: %w", name, err)
			if err2 := h.Shutdown(); err2 != nil {
				err = errors.Join(err, err2)
			}
			return nil, err
		}
		h.keys = append(h.keys, k)
	}
	return h, nil
}

func (c *Config) validate() error {
	if len(c.Panels) == 0 {
		return errors.New("lcdhat: no panel configured")
	}
	seen := map[string]int{}
	for i, p := range c.Panels {
		if p.SPI == "" {
			return fmt.Errorf("lcdhat: panel %d: SPI port is required", i)
		}
		if j, ok := seen[p.SPI]; ok {
			return fmt.Errorf("lcdhat: panels %d and %d both use %s", j, i, p.SPI)
		}
		seen[p.SPI] = i
	}
	keys := map[string]bool{}
	for _, k := range c.Keys {
		if keys[k] {
			return fmt.Errorf("lcdhat: key %s listed twice", k)
		}
		keys[k] = true
	}
	return nil
}

func openPanel(p *PanelConfig, opts *st7735.Opts, r Resolver) (*st7735.Dev, error) {
	rst, err := pin(r, p.RST)
	if err != nil {
		return nil, fmt.Errorf("lcdhat: %s: %w", p.Name, err)
	}
	dc, err := pin(r, p.DC)
	if err != nil {
		return nil, fmt.Errorf("lcdhat: %s: %w", p.Name, err)
	}
	var bl gpio.PinOut
	if p.BL != "" {
		if bl, err = pin(r, p.BL); err != nil {
			return nil, fmt.Errorf("lcdhat: %s: %w", p.Name, err)
		}
	}
	port, err := r.OpenSPI(p.SPI)
	if err != nil {
		return nil, fmt.Errorf("lcdhat: %s: %w", p.Name, err)
	}
	d, err := st7735.New(port, dc, rst, bl, opts)
	if err != nil {
		return nil, fmt.Errorf("lcdhat: %s: %w", p.Name, errors.Join(err, port.Close()))
	}
	if err := d.Reset(); err != nil {
		return nil, fmt.Errorf("lcdhat: %s: %w", p.Name, errors.Join(err, d.Shutdown()))
	}
	if err := d.Init(); err != nil {
		return nil, fmt.Errorf("lcdhat: %s: %w", p.Name, errors.Join(err, d.Shutdown()))
	}
	return d, nil
}

func pin(r Resolver, name string) (gpio.PinIO, error) {
	if name == "" {
		return nil, errors.New("pin name is required")
	}
	p := r.Pin(name)
	if p == nil || p == gpio.INVALID {
		return nil, fmt.Errorf("unknown pin %q", name)
	}
	return p, nil
}

func (h *HAT) String() string {
	return fmt.Sprintf("lcdhat.HAT%v", h.names)
}

// Len returns the number of panels.
func (h *HAT) Len() int {
	return len(h.panels)
}

// Panel returns panel i, in configuration order.
func (h *HAT) Panel(i int) *st7735.Dev {
	return h.panels[i]
}

// Name returns the configured name of panel i.
func (h *HAT) Name(i int) string {
	return h.names[i]
}

// ShowImages shows imgs[i] on panel i. nil images are skipped.
func (h *HAT) ShowImages(imgs ...image.Image) error {
	if len(imgs) > len(h.panels) {
		return fmt.Errorf("lcdhat: %d images for %d panels", len(imgs), len(h.panels))
	}
	for i, img := range imgs {
		if img == nil {
			continue
		}
		if err := h.panels[i].ShowImage(img); err != nil {
			return fmt.Errorf("lcdhat: %s: %w", h.names[i], err)
		}
	}
	return nil
}

// SetBacklight sets the brightness of every panel.
func (h *HAT) SetBacklight(percent int) error {
	for i, d := range h.panels {
		if err := d.SetBacklight(percent); err != nil {
			return fmt.Errorf("lcdhat: %s: %w", h.names[i], err)
		}
	}
	return nil
}

// Keys returns the number of push buttons.
func (h *HAT) Keys() int {
	return len(h.keys)
}

// Key returns push button i. It reads Low while pressed.
func (h *HAT) Key(i int) gpio.PinIn {
	return h.keys[i]
}

// keyPoll is how long WaitKey waits on one key before looking at the next.
// Edges are latched by the driver so a press on another key is not lost.
const keyPoll = 20 * time.Millisecond

// WaitKey blocks until a push button is pressed and returns its index.
//
// It returns ctx.Err() once ctx is done.
func (h *HAT) WaitKey(ctx context.Context) (int, error) {
	if len(h.keys) == 0 {
		return -1, errors.New("lcdhat: no key configured")
	}
	for {
		for i, k := range h.keys {
			if err := ctx.Err(); err != nil {
				return -1, err
			}
			if k.WaitForEdge(keyPoll) && k.Read() == gpio.Low {
				return i, nil
			}
		}
	}
}

// Shutdown shuts every panel down and releases the keys, even when one fails,
// and returns the first error.
func (h *HAT) Shutdown() error {
	var err error
	for _, d := range h.panels {
		if e := d.Shutdown(); e != nil && err == nil {
			err = e
		}
	}
	for _, k := range h.keys {
		if e := k.In(gpio.PullNoChange, gpio.NoEdge); e != nil && err == nil {
			err = e
		}
	}
	h.keys = nil
	return err
}
