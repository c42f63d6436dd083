// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package gpioprobe helps identify and exercise GPIO lines.
//
// Wire LEDs to the lines under test, then play a Pattern on them with a
// Sequencer: a knight rider sweep makes the line order obvious, a binary
// counter shows which line is which bit. Blink flashes a single line, and
// ToggleN measures how fast a line can be driven.
//
// Every function driving lines leaves them low when it returns, including on
// error and cancellation.
//
// Read and Watch go the other way: they sample lines of unknown use, e.g. a
// push button, with a pull resistor enabled.
package gpioprobe
