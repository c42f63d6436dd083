// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// gpioprobe identifies and exercises GPIO lines.
//
// Usage:
//
//	gpioprobe list
//	gpioprobe run -pins GPIO17,GPIO27,GPIO22 [-repeat 3] [-save p.json] <pattern|file.json>
//	gpioprobe toggle -pin GPIO17 [-period 1s] [-n 10]
//	gpioprobe bench -pin GPIO17 [-n 100000 | -duration 5s]
//	gpioprobe read -pins GPIO25,GPIO26 [-pull up|down|float]
//	gpioprobe watch -pins GPIO25,GPIO26 [-pull up|down|float]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/GermanBionicSystems/zerolcd/gpioprobe"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s <list|run|toggle|bench|read|watch> [flags]\n", os.Args[0])
	os.Exit(2)
}

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		usage()
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "list":
		err = list()
	case "run":
		err = run(ctx, args)
	case "toggle":
		err = toggle(ctx, args)
	case "bench":
		err = bench(ctx, args)
	case "read":
		err = read(args)
	case "watch":
		err = watch(ctx, args)
	default:
		usage()
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
}

func list() error {
	for _, n := range gpioprobe.Names() {
		p, err := gpioprobe.Builtin(n, 0)
		if err != nil {
			return err
		}
		fmt.Printf("%-16s %s\n%-16s %s\n", n, p.Description, "", p)
	}
	return nil
}

func pinByName(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("unknown pin %q", name)
	}
	return p, nil
}

func loadPattern(arg string, width int) (*gpioprobe.Pattern, error) {
	if !strings.HasSuffix(arg, ".json") {
		return gpioprobe.Builtin(arg, width)
	}
	f, err := os.Open(arg)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return gpioprobe.LoadPattern(f)
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	pins := fs.String("pins", "", "comma separated pin names, pin 0 first")
	repeat := fs.Int("repeat", 1, "number of cycles, 0 runs until interrupted")
	save := fs.String("save", "", "write the pattern to this JSON file and exit")
	verbose := fs.Bool("v", false, "print every step")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("run: expected one pattern name or file")
	}
	var names []string
	if *pins != "" {
		names = strings.Split(*pins, ",")
	}
	p, err := loadPattern(fs.Arg(0), len(names))
	if err != nil {
		return err
	}
	if *save != "" {
		f, err := os.Create(*save)
		if err != nil {
			return err
		}
		if err := p.Save(f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	if _, err := host.Init(); err != nil {
		return err
	}
	s := gpioprobe.Sequencer{}
	for _, n := range names {
		pin, err := pinByName(n)
		if err != nil {
			return err
		}
		s.Pins = append(s.Pins, pin)
	}
	if *verbose {
		s.OnStep = func(cycle, step int, levels []bool) {
			var b strings.Builder
			for _, l := range levels {
				if l {
					b.WriteByte('#')
				} else {
					b.WriteByte('.')
				}
			}
			log.Printf("%3d %4d %s", cycle, step, b.String())
		}
	}
	log.Printf("running %s on %s", p, *pins)
	return s.Run(ctx, p, *repeat)
}

func toggle(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("toggle", flag.ExitOnError)
	name := fs.String("pin", "", "pin name")
	period := fs.Duration("period", time.Second, "blink period")
	n := fs.Int("n", 0, "number of blinks, 0 runs until interrupted")
	fs.Parse(args)
	if _, err := host.Init(); err != nil {
		return err
	}
	pin, err := pinByName(*name)
	if err != nil {
		return err
	}
	log.Printf("blinking %s every %s", pin, *period)
	return gpioprobe.Blink(ctx, pin, *period/2, *n)
}

func bench(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("bench", flag.ExitOnError)
	name := fs.String("pin", "", "pin name")
	n := fs.Int("n", 0, "number of cycles")
	d := fs.Duration("duration", 5*time.Second, "duration when -n is 0")
	fs.Parse(args)
	if _, err := host.Init(); err != nil {
		return err
	}
	pin, err := pinByName(*name)
	if err != nil {
		return err
	}
	var s gpioprobe.ToggleStats
	if *n > 0 {
		s, err = gpioprobe.ToggleN(pin, *n)
	} else {
		s, err = gpioprobe.Toggle(ctx, pin, *d)
	}
	log.Printf("%s: %s", pin, s)
	return err
}

func parsePull(s string) (gpio.Pull, error) {
	switch s {
	case "up":
		return gpio.PullUp, nil
	case "down":
		return gpio.PullDown, nil
	case "float":
		return gpio.Float, nil
	}
	return gpio.PullNoChange, fmt.Errorf("invalid pull %q, expected up, down or float", s)
}

// inputs parses the flags shared by read and watch.
func inputs(name string, args []string) ([]gpio.PinIn, gpio.Pull, error) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	names := fs.String("pins", "", "comma separated pin names")
	pull := fs.String("pull", "up", "pull resistor: up, down or float")
	fs.Parse(args)
	p, err := parsePull(*pull)
	if err != nil {
		return nil, 0, err
	}
	if *names == "" {
		return nil, 0, fmt.Errorf("%s: -pins is required", name)
	}
	if _, err := host.Init(); err != nil {
		return nil, 0, err
	}
	var pins []gpio.PinIn
	for _, n := range strings.Split(*names, ",") {
		pin, err := pinByName(n)
		if err != nil {
			return nil, 0, err
		}
		pins = append(pins, pin)
	}
	return pins, p, nil
}

func read(args []string) error {
	pins, pull, err := inputs("read", args)
	if err != nil {
		return err
	}
	for _, p := range pins {
		l, err := gpioprobe.Read(p, pull)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", p, l)
	}
	return nil
}

func watch(ctx context.Context, args []string) error {
	pins, pull, err := inputs("watch", args)
	if err != nil {
		return err
	}
	log.Printf("watching %d pins, interrupt to stop", len(pins))
	return gpioprobe.Watch(ctx, pins, pull, func(e gpioprobe.Event) {
		fmt.Println(e)
	})
}
