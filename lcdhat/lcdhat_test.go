// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdhat

import (
	"context"
	"errors"
	"image"
	"strings"
	"testing"
	"time"

	"github.com/GermanBionicSystems/zerolcd/st7735"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spitest"
)

// port counts Close calls.
type port struct {
	*spitest.Record
	closed   int
	closeErr error
}

func (p *port) Close() error {
	p.closed++
	return p.closeErr
}

// pwmless is a line that can only be switched on and off.
type pwmless struct {
	*gpiotest.Pin
}

func (pwmless) PWM(gpio.Duty, physic.Frequency) error {
	return errors.New("pwm not supported")
}

// stuckHigh refuses to be driven low.
type stuckHigh struct {
	*gpiotest.Pin
}

func (p stuckHigh) Out(l gpio.Level) error {
	if l == gpio.Low {
		return errors.New("stuck high")
	}
	return p.Pin.Out(l)
}

type fakeBoard struct {
	ports   map[string]*port
	pins    map[string]*gpiotest.Pin
	openErr error
	// wrap, when set, replaces the pin handed out for a name.
	wrap func(name string, p *gpiotest.Pin) gpio.PinIO
}

func newFakeBoard() *fakeBoard {
	b := &fakeBoard{ports: map[string]*port{}, pins: map[string]*gpiotest.Pin{}}
	for _, n := range []string{"SPI0.0", "SPI0.1"} {
		b.ports[n] = &port{Record: &spitest.Record{}}
	}
	for _, n := range []string{"GPIO4", "GPIO5", "GPIO12", "GPIO13", "GPIO23", "GPIO24"} {
		b.pins[n] = &gpiotest.Pin{N: n}
	}
	for _, n := range []string{"GPIO25", "GPIO26"} {
		b.pins[n] = &gpiotest.Pin{N: n, EdgesChan: make(chan gpio.Level, 1)}
	}
	return b
}

func (b *fakeBoard) OpenSPI(name string) (spi.PortCloser, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}
	p, ok := b.ports[name]
	if !ok {
		return nil, errors.New("no such port")
	}
	return p, nil
}

func (b *fakeBoard) Pin(name string) gpio.PinIO {
	p, ok := b.pins[name]
	if !ok {
		return nil
	}
	if b.wrap != nil {
		return b.wrap(name, p)
	}
	return p
}

func testConfig() *Config {
	cfg := ZeroHATA
	cfg.Panels = append([]PanelConfig(nil), ZeroHATA.Panels...)
	cfg.Opts.ResetHold = 0
	return &cfg
}

func TestOpen(t *testing.T) {
	b := newFakeBoard()
	h, err := OpenWith(testConfig(), b)
	if err != nil {
		t.Fatal(err)
	}
	if h.Len() != 2 {
		t.Fatalf("Len() = %d", h.Len())
	}
	if h.Name(0) != "left" || h.Name(1) != "right" {
		t.Errorf("names = %s", h)
	}
	for _, n := range []string{"SPI0.0", "SPI0.1"} {
		if len(b.ports[n].Ops) == 0 {
			t.Errorf("%s was not initialized", n)
		}
		// Sleep out is the first command.
		if got := b.ports[n].Ops[0].W; len(got) != 1 || got[0] != 0x11 {
			t.Errorf("%s first write = % X", n, got)
		}
	}
	if b.pins["GPIO24"].L != gpio.High || b.pins["GPIO23"].L != gpio.High {
		t.Error("panels left in reset")
	}
	if err := h.Shutdown(); err != nil {
		t.Fatal(err)
	}
	for n, p := range b.ports {
		if p.closed != 1 {
			t.Errorf("%s closed %d times", n, p.closed)
		}
	}
	if err := h.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if b.ports["SPI0.0"].closed != 1 {
		t.Error("second Shutdown() closed the port again")
	}
}

func TestOpenConfigErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		cfg  func(c *Config)
		want string
	}{
		{"no panel", func(c *Config) { c.Panels = nil }, "no panel"},
		{"shared port", func(c *Config) { c.Panels[1].SPI = "SPI0.0" }, "both use SPI0.0"},
		{"no port", func(c *Config) { c.Panels[0].SPI = "" }, "SPI port is required"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.cfg(cfg)
			b := newFakeBoard()
			_, err := OpenWith(cfg, b)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("OpenWith() = %v, want %q", err, tc.want)
			}
			for n, p := range b.ports {
				if len(p.Ops) != 0 {
					t.Errorf("%s was written to", n)
				}
			}
		})
	}
}

func TestOpenPartialFailure(t *testing.T) {
	b := newFakeBoard()
	cfg := testConfig()
	cfg.Panels[1].DC = "GPIO99"
	if _, err := OpenWith(cfg, b); err == nil || !strings.Contains(err.Error(), `unknown pin "GPIO99"`) {
		t.Fatalf("OpenWith() = %v", err)
	}
	if b.ports["SPI0.0"].closed != 1 {
		t.Error("first panel was not shut down")
	}
	if len(b.ports["SPI0.1"].Ops) != 0 {
		t.Error("second panel was written to")
	}
}

func TestOpenPortError(t *testing.T) {
	b := newFakeBoard()
	b.openErr = errors.New("busy")
	if _, err := OpenWith(testConfig(), b); !errors.Is(err, b.openErr) {
		t.Fatalf("OpenWith() = %v, want %v", err, b.openErr)
	}
}

func TestNoBacklightPin(t *testing.T) {
	b := newFakeBoard()
	cfg := testConfig()
	cfg.Panels = cfg.Panels[:1]
	cfg.Panels[0].BL = ""
	h, err := OpenWith(cfg, b)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Shutdown()
	if h.Panel(0).Backlight() != nil {
		t.Error("unexpected backlight")
	}
	if err := h.SetBacklight(50); err != nil {
		t.Fatal(err)
	}
}

func TestShowImages(t *testing.T) {
	b := newFakeBoard()
	h, err := OpenWith(testConfig(), b)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Shutdown()
	left, right := b.ports["SPI0.0"], b.ports["SPI0.1"]
	nl, nr := len(left.Ops), len(right.Ops)

	img := image.NewRGBA(image.Rect(0, 0, 160, 80))
	for i := 0; i < len(img.Pix); i += 4 {
		copy(img.Pix[i:], []byte{255, 255, 255, 255})
	}
	if err := h.ShowImages(nil, img); err != nil {
		t.Fatal(err)
	}
	if len(left.Ops) != nl {
		t.Error("nil image was sent to the left panel")
	}
	if len(right.Ops) == nr {
		t.Fatal("right panel was not updated")
	}
	if last := right.Ops[len(right.Ops)-1].W; last[0] != 0xFF {
		t.Errorf("right panel got % X", last[:2])
	}
	if err := h.ShowImages(img, img, img); err == nil {
		t.Error("expected error for too many images")
	}
}

func TestSetBacklight(t *testing.T) {
	b := newFakeBoard()
	h, err := OpenWith(testConfig(), b)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Shutdown()
	if err := h.SetBacklight(100); err != nil {
		t.Fatal(err)
	}
	if b.pins["GPIO13"].L != gpio.High || b.pins["GPIO12"].L != gpio.High {
		t.Error("backlights not on")
	}
	if err := h.SetBacklight(120); !errors.Is(err, st7735.ErrBacklightRange) {
		t.Errorf("SetBacklight(120) = %v", err)
	}
}

func TestSetBacklightOnOff(t *testing.T) {
	b := newFakeBoard()
	b.wrap = func(name string, p *gpiotest.Pin) gpio.PinIO {
		if name == "GPIO12" || name == "GPIO13" {
			return pwmless{p}
		}
		return p
	}

	// PWM is the default and fails on these lines.
	h, err := OpenWith(testConfig(), b)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.SetBacklight(80); err == nil {
		t.Fatal("expected PWM error")
	}
	if err := h.Shutdown(); err != nil {
		t.Fatal(err)
	}

	b = newFakeBoard()
	b.wrap = func(name string, p *gpiotest.Pin) gpio.PinIO {
		if name == "GPIO12" || name == "GPIO13" {
			return pwmless{p}
		}
		return p
	}
	cfg := testConfig()
	cfg.Opts.BacklightPWM = false
	if h, err = OpenWith(cfg, b); err != nil {
		t.Fatal(err)
	}
	defer h.Shutdown()
	if err := h.SetBacklight(80); err != nil {
		t.Fatal(err)
	}
	if b.pins["GPIO13"].Read() != gpio.High || b.pins["GPIO12"].Read() != gpio.High {
		t.Error("backlights not on")
	}
	if err := h.SetBacklight(0); err != nil {
		t.Fatal(err)
	}
	if b.pins["GPIO13"].Read() != gpio.Low || b.pins["GPIO12"].Read() != gpio.Low {
		t.Error("backlights not off")
	}
}

func TestOpenRollbackErrors(t *testing.T) {
	t.Run("new", func(t *testing.T) {
		b := newFakeBoard()
		closeErr := errors.New("close failed")
		b.ports["SPI0.0"].closeErr = closeErr
		cfg := testConfig()
		cfg.Opts.W = 0
		_, err := OpenWith(cfg, b)
		if err == nil || !strings.Contains(err.Error(), "invalid size") {
			t.Fatalf("OpenWith() = %v", err)
		}
		if !errors.Is(err, closeErr) {
			t.Errorf("OpenWith() = %v, want it to carry %v", err, closeErr)
		}
		if b.ports["SPI0.0"].closed != 1 {
			t.Error("port was not closed")
		}
	})
	t.Run("reset", func(t *testing.T) {
		b := newFakeBoard()
		closeErr := errors.New("close failed")
		b.ports["SPI0.0"].closeErr = closeErr
		b.wrap = func(name string, p *gpiotest.Pin) gpio.PinIO {
			if name == "GPIO24" {
				return stuckHigh{p}
			}
			return p
		}
		_, err := OpenWith(testConfig(), b)
		if err == nil || !strings.Contains(err.Error(), "stuck high") {
			t.Fatalf("OpenWith() = %v", err)
		}
		if !errors.Is(err, closeErr) {
			t.Errorf("OpenWith() = %v, want it to carry %v", err, closeErr)
		}
		if len(b.ports["SPI0.1"].Ops) != 0 {
			t.Error("second panel was written to")
		}
	})
}

func TestKeys(t *testing.T) {
	b := newFakeBoard()
	h, err := OpenWith(testConfig(), b)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Shutdown()
	if h.Keys() != 2 {
		t.Fatalf("Keys() = %d", h.Keys())
	}
	k1, k2 := b.pins["GPIO25"], b.pins["GPIO26"]
	if k1.P != gpio.PullUp || k2.P != gpio.PullUp {
		t.Error("keys are not pulled up")
	}
	if h.Key(0).Read() != gpio.High {
		t.Error("released key reads low")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	k2.EdgesChan <- gpio.Low
	if i, err := h.WaitKey(ctx); err != nil || i != 1 {
		t.Fatalf("WaitKey() = %d, %v, want 1", i, err)
	}
	k1.EdgesChan <- gpio.Low
	if i, err := h.WaitKey(ctx); err != nil || i != 0 {
		t.Fatalf("WaitKey() = %d, %v, want 0", i, err)
	}
	// A release is not a press.
	k1.EdgesChan <- gpio.High
	short, cancel2 := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel2()
	if i, err := h.WaitKey(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("WaitKey() = %d, %v", i, err)
	}
}

func TestKeyErrors(t *testing.T) {
	b := newFakeBoard()
	cfg := testConfig()
	cfg.Keys = []string{"GPIO25", "GPIO99"}
	if _, err := OpenWith(cfg, b); err == nil || !strings.Contains(err.Error(), "key GPIO99") {
		t.Fatalf("OpenWith() = %v", err)
	}
	if b.ports["SPI0.0"].closed != 1 || b.ports["SPI0.1"].closed != 1 {
		t.Error("panels were not shut down")
	}

	cfg.Keys = []string{"GPIO25", "GPIO25"}
	if _, err := OpenWith(cfg, newFakeBoard()); err == nil || !strings.Contains(err.Error(), "listed twice") {
		t.Fatalf("OpenWith() = %v", err)
	}

	cfg.Keys = nil
	h, err := OpenWith(cfg, newFakeBoard())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Shutdown()
	if _, err := h.WaitKey(context.Background()); err == nil {
		t.Error("expected error without keys")
	}
}
