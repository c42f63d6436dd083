// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// zerolcd shows a clock and the network address on the two panels of a Zero
// LCD HAT (A).
//
// KEY1 turns the backlights off and on, KEY2 swaps the pages. Use -pwm=false
// on boards where the backlight lines can only be switched on and off.
//
// With -preview the pages are drawn in the terminal instead, no hardware is
// needed. With -http the panels are also served as MJPEG streams at /0 and
// /1.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/GermanBionicSystems/zerolcd/lcdhat"
	"github.com/GermanBionicSystems/zerolcd/lcdmirror"
	"github.com/GermanBionicSystems/zerolcd/screen2d"
	"github.com/GermanBionicSystems/zerolcd/st7735"
	"github.com/GermanBionicSystems/zerolcd/statuspage"
	"golang.org/x/sync/errgroup"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

var (
	spi0 = flag.String("spi0", "SPI0.0", "SPI port of panel 0")
	rst0 = flag.String("rst0", "GPIO24", "reset pin of panel 0")
	dc0  = flag.String("dc0", "GPIO4", "data/command pin of panel 0")
	bl0  = flag.String("bl0", "GPIO13", "backlight pin of panel 0, empty if not wired")
	spi1 = flag.String("spi1", "SPI0.1", "SPI port of panel 1")
	rst1 = flag.String("rst1", "GPIO23", "reset pin of panel 1")
	dc1  = flag.String("dc1", "GPIO5", "data/command pin of panel 1")
	bl1  = flag.String("bl1", "GPIO12", "backlight pin of panel 1, empty if not wired")
	key0 = flag.String("key0", "GPIO25", "KEY1 pin, toggles the backlights, empty if not wired")
	key1 = flag.String("key1", "GPIO26", "KEY2 pin, swaps the pages, empty if not wired")

	hz         = flag.Int64("hz", 10000000, "SPI clock in Hz")
	brightness = flag.Int("brightness", 80, "backlight brightness, 0 to 100")
	pwm        = flag.Bool("pwm", true, "dim the backlights with PWM; when false they are only switched on or off")
	interval   = flag.Duration("interval", time.Second, "refresh interval")
	fontFile   = flag.String("font", "", "TrueType font file, the Go font is used when empty")
	preview    = flag.Bool("preview", false, "draw in the terminal instead of the panels")
	httpAddr   = flag.String("http", "", "serve the panels as MJPEG streams on this address, e.g. :8080")
	panels     = flag.Int("panels", 2, "number of panels, 1 or 2")
)

func main() {
	flag.Parse()
	if *panels < 1 || *panels > 2 {
		log.Fatalf("-panels must be 1 or 2, got %d", *panels)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := mainImpl(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
}

func config() *lcdhat.Config {
	cfg := &lcdhat.Config{
		Panels: []lcdhat.PanelConfig{
			{Name: "left", SPI: *spi0, RST: *rst0, DC: *dc0, BL: *bl0},
			{Name: "right", SPI: *spi1, RST: *rst1, DC: *dc1, BL: *bl1},
		}[:*panels],
		Opts: st7735.DefaultOpts,
	}
	for _, k := range []string{*key0, *key1} {
		if k != "" {
			cfg.Keys = append(cfg.Keys, k)
		}
	}
	cfg.Opts.Frequency = physic.Frequency(*hz) * physic.Hertz
	cfg.Opts.BacklightPWM = *pwm
	return cfg
}

func mainImpl(ctx context.Context) error {
	cfg := config()
	r, err := statuspage.New(&statuspage.Opts{
		Width:    cfg.Opts.W,
		Height:   cfg.Opts.H,
		FontFile: *fontFile,
		FontSize: statuspage.DefaultOpts.FontSize,
		Margin:   statuspage.DefaultOpts.Margin,
	})
	if err != nil {
		return err
	}

	// sinks[i] lists everything showing panel i.
	sinks := make([][]display.Drawer, *panels)
	var hat *lcdhat.HAT
	if *preview {
		for i := range sinks {
			s, err := screen2d.New(&screen2d.Opts{W: cfg.Opts.W, H: cfg.Opts.H, Step: 2})
			if err != nil {
				return err
			}
			defer s.Halt()
			sinks[i] = append(sinks[i], s)
		}
	} else {
		if _, err := host.Init(); err != nil {
			return err
		}
		if hat, err = lcdhat.Open(cfg); err != nil {
			return err
		}
		defer func() {
			if err := hat.Shutdown(); err != nil {
				log.Printf("shutdown: %v", err)
			}
		}()
		if err := hat.SetBacklight(*brightness); err != nil {
			return err
		}
		log.Printf("opened %s", hat)
		for i := range sinks {
			sinks[i] = append(sinks[i], hat.Panel(i))
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	if *httpAddr != "" {
		mux := http.NewServeMux()
		var mirrors []*lcdmirror.Mirror
		for i := range sinks {
			m, err := lcdmirror.New(&lcdmirror.Options{Width: cfg.Opts.W, Height: cfg.Opts.H})
			if err != nil {
				return err
			}
			mux.Handle("/"+strconv.Itoa(i), m)
			sinks[i] = append(sinks[i], m)
			mirrors = append(mirrors, m)
		}
		srv := &http.Server{Addr: *httpAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		g.Go(func() error {
			log.Printf("serving on %s", *httpAddr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			// Ends the streams so Shutdown does not wait on them.
			for _, m := range mirrors {
				m.Halt()
			}
			c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(c)
		})
	}
	keys := make(chan int)
	if hat != nil && hat.Keys() != 0 {
		g.Go(func() error {
			for {
				i, err := hat.WaitKey(ctx)
				if err != nil {
					return nil
				}
				select {
				case keys <- i:
				case <-ctx.Done():
					return nil
				}
			}
		})
	}
	g.Go(func() error {
		return loop(ctx, r, sinks, hat, keys)
	})
	return g.Wait()
}

// loop refreshes the pages until ctx is done. Key presses are handled here so
// the panels are only touched from this goroutine.
func loop(ctx context.Context, r *statuspage.Renderer, sinks [][]display.Drawer, hat *lcdhat.HAT, keys <-chan int) error {
	hostname, _ := os.Hostname()
	t := time.NewTicker(*interval)
	defer t.Stop()
	lit, swap := true, 0
	for {
		ip, err := statuspage.OutboundIP()
		if err != nil {
			ip = ""
		}
		pages := [][]statuspage.Line{statuspage.Clock(time.Now()), statuspage.Network(ip, hostname)}
		for i, s := range sinks {
			img := r.Render(pages[i^swap])
			for _, d := range s {
				if err := d.Draw(d.Bounds(), img, image.Point{}); err != nil {
					return fmt.Errorf("panel %d: %w", i, err)
				}
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		case k := <-keys:
			// Keys only lists the wired keys, so index 0 is KEY2 when KEY1 is
			// not wired.
			if k != 0 || *key0 == "" {
				swap ^= 1
				continue
			}
			lit = !lit
			b := 0
			if lit {
				b = *brightness
			}
			if err := hat.SetBacklight(b); err != nil {
				return err
			}
		}
	}
}
