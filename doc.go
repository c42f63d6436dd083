// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package zerolcd is a container for the Zero LCD HAT drivers and tools.
//
// st7735 drives one panel, lcdhat opens the panels of a board, statuspage
// renders pages for them. screen2d and lcdmirror show the same frames in a
// terminal or a browser. gpioprobe helps find which header pin is which line.
package zerolcd
